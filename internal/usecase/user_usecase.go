package usecase

import (
	"context"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
)

type UserUseCase struct {
	userRepo repository.UserRepository
}

func NewUserUseCase(userRepo repository.UserRepository) *UserUseCase {
	return &UserUseCase{
		userRepo: userRepo,
	}
}

type UpdateProfileInput struct {
	Name       string
	Email      string
	ProfileURL string
	Bio        string
	PushToken  string
}

// UpsertProfile creates the caller's profile on first use and afterwards
// only overwrites the fields provided.
func (uc *UserUseCase) UpsertProfile(ctx context.Context, userID string, input UpdateProfileInput) (*entity.User, error) {
	user := &entity.User{
		ID:         userID,
		Name:       input.Name,
		Email:      input.Email,
		ProfileURL: input.ProfileURL,
		Bio:        input.Bio,
		PushToken:  input.PushToken,
	}
	if err := uc.userRepo.SaveProfile(ctx, user); err != nil {
		return nil, err
	}
	return uc.userRepo.GetByID(ctx, userID)
}

func (uc *UserUseCase) GetUserProfile(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DisplayName returns the user's name, or the id when no profile exists yet.
func (uc *UserUseCase) DisplayName(ctx context.Context, userID string) string {
	return displayName(ctx, uc.userRepo, userID)
}

func displayName(ctx context.Context, userRepo repository.UserRepository, userID string) string {
	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		return userID
	}
	return user.DisplayName()
}

func requireUser(ctx context.Context, userRepo repository.UserRepository, userID string) (*entity.User, error) {
	user, err := userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.IsNotFound(err) {
			return nil, errors.NotFound("User", err)
		}
		return nil, err
	}
	return user, nil
}
