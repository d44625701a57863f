package usecase

import (
	"context"

	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
	"meetup/pkg/logger"
)

// MembershipUseCase keeps an activity's participant entries, its
// currentParticipants counter and the per-user activity index together.
type MembershipUseCase struct {
	activityRepo repository.ActivityRepository
}

func NewMembershipUseCase(activityRepo repository.ActivityRepository) *MembershipUseCase {
	return &MembershipUseCase{
		activityRepo: activityRepo,
	}
}

// Join adds the participant entry together with the counter bump and
// records the activity in the user's index. It reports false when the user
// was already a participant, in which case nothing is written. An activity
// deleted while the join is in flight is reported as NotFound and its index
// entry is dropped again.
func (uc *MembershipUseCase) Join(ctx context.Context, activityID, userID, userName string) (bool, error) {
	added, err := uc.activityRepo.AddParticipant(ctx, activityID, userID, userName)
	if err != nil {
		return false, err
	}
	if !added {
		return false, nil
	}

	if err := uc.activityRepo.AddToUserIndex(ctx, userID, activityID); err != nil {
		return true, err
	}
	if _, err := uc.activityRepo.GetByID(ctx, activityID); errors.IsNotFound(err) {
		if rmErr := uc.activityRepo.RemoveFromUserIndex(ctx, userID, activityID); rmErr != nil {
			logger.LogStepError("undo user activity index", logger.Fields{"activityId": activityID, "userId": userID}, rmErr)
		}
		return false, err
	}
	return true, nil
}

// Leave removes the participant entry, decrements the counter when the
// entry existed and drops the index entry. It returns the number of
// participants left.
func (uc *MembershipUseCase) Leave(ctx context.Context, activityID, userID string) (int, error) {
	removed, err := uc.activityRepo.RemoveParticipant(ctx, activityID, userID)
	if err != nil {
		return 0, err
	}
	fields := logger.Fields{"activityId": activityID, "userId": userID}

	if removed {
		if _, err := uc.activityRepo.AdjustParticipantCount(ctx, activityID, -1); err != nil && !errors.IsNotFound(err) {
			logger.LogStepError("decrement participant count", fields, err)
		}
	}
	if err := uc.activityRepo.RemoveFromUserIndex(ctx, userID, activityID); err != nil {
		logger.LogStepError("remove user activity index", fields, err)
	}

	participants, err := uc.activityRepo.GetParticipants(ctx, activityID)
	if err != nil {
		return 0, err
	}
	return len(participants), nil
}
