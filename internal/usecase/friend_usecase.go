package usecase

import (
	"context"
	"sort"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
	"meetup/pkg/logger"
)

type FriendUseCase struct {
	userRepo      repository.UserRepository
	notifications *NotificationUseCase
}

func NewFriendUseCase(userRepo repository.UserRepository, notifications *NotificationUseCase) *FriendUseCase {
	return &FriendUseCase{
		userRepo:      userRepo,
		notifications: notifications,
	}
}

func (uc *FriendUseCase) SendFriendRequest(ctx context.Context, fromID, toID string) error {
	if fromID == toID {
		return errors.BadRequest("Cannot send a friend request to yourself", nil)
	}
	target, err := requireUser(ctx, uc.userRepo, toID)
	if err != nil {
		return err
	}
	if target.IsFriend(fromID) {
		return errors.Conflict("Already friends")
	}

	if err := uc.userRepo.AddFriendRequest(ctx, toID, fromID); err != nil {
		return err
	}

	if uc.notifications != nil {
		name := displayName(ctx, uc.userRepo, fromID)
		err := uc.notifications.Enqueue(ctx, toID, &entity.Notification{
			Title:   "친구 요청",
			Message: name + "님이 친구 요청을 보냈습니다.",
			Kind:    entity.NotificationFriendRequest,
		})
		if err != nil {
			logger.LogStepError("friend request notification", logger.Fields{"userId": toID}, err)
		}
	}
	return nil
}

func (uc *FriendUseCase) AcceptFriendRequest(ctx context.Context, userID, requesterID string) error {
	user, err := requireUser(ctx, uc.userRepo, userID)
	if err != nil {
		return err
	}
	if !user.FriendRequests[requesterID] {
		return errors.NotFound("Friend request", nil)
	}
	return uc.userRepo.AcceptFriendRequest(ctx, userID, requesterID)
}

func (uc *FriendUseCase) DeclineFriendRequest(ctx context.Context, userID, requesterID string) error {
	return uc.userRepo.RemoveFriendRequest(ctx, userID, requesterID)
}

func (uc *FriendUseCase) RemoveFriend(ctx context.Context, userID, friendID string) error {
	return uc.userRepo.RemoveFriendship(ctx, userID, friendID)
}

// ListFriends returns the friends' profiles; friends without a profile are
// returned with their id only.
func (uc *FriendUseCase) ListFriends(ctx context.Context, userID string) ([]*entity.User, error) {
	user, err := requireUser(ctx, uc.userRepo, userID)
	if err != nil {
		return nil, err
	}
	return uc.loadUsers(ctx, user.Friends), nil
}

func (uc *FriendUseCase) ListFriendRequests(ctx context.Context, userID string) ([]*entity.User, error) {
	user, err := requireUser(ctx, uc.userRepo, userID)
	if err != nil {
		return nil, err
	}
	return uc.loadUsers(ctx, user.FriendRequests), nil
}

func (uc *FriendUseCase) loadUsers(ctx context.Context, ids map[string]bool) []*entity.User {
	keys := make([]string, 0, len(ids))
	for id, ok := range ids {
		if ok {
			keys = append(keys, id)
		}
	}
	sort.Strings(keys)

	users := make([]*entity.User, 0, len(keys))
	for _, id := range keys {
		u, err := uc.userRepo.GetByID(ctx, id)
		if err != nil {
			u = &entity.User{ID: id}
		}
		users = append(users, u)
	}
	return users
}
