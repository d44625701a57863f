package usecase

import (
	"context"
	"sort"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
	"meetup/pkg/logger"
)

// ReviewUseCase is the pending review ledger: it records the ratings each
// participant owes after an activity ends and settles them on submit.
type ReviewUseCase struct {
	reviewRepo    repository.ReviewRepository
	userRepo      repository.UserRepository
	notifications *NotificationUseCase
}

func NewReviewUseCase(
	reviewRepo repository.ReviewRepository,
	userRepo repository.UserRepository,
	notifications *NotificationUseCase,
) *ReviewUseCase {
	return &ReviewUseCase{
		reviewRepo:    reviewRepo,
		userRepo:      userRepo,
		notifications: notifications,
	}
}

// OnActivityEnd creates one pending item for every ordered pair of distinct
// participants in a single write and returns how many were created.
func (uc *ReviewUseCase) OnActivityEnd(ctx context.Context, activity *entity.Activity, participantIDs []string) (int, error) {
	ids := uniqueSorted(participantIDs)
	items := make(map[string][]*entity.PendingReviewItem, len(ids))
	count := 0
	for _, reviewer := range ids {
		for _, target := range ids {
			if reviewer == target {
				continue
			}
			items[reviewer] = append(items[reviewer], &entity.PendingReviewItem{
				TargetUserID:  target,
				TargetName:    activity.Participants[target],
				ActivityID:    activity.ID,
				ActivityTitle: activity.Title,
				Status:        entity.PendingStatusPending,
			})
			count++
		}
	}
	if count == 0 {
		return 0, nil
	}
	if err := uc.reviewRepo.CreatePending(ctx, items); err != nil {
		return 0, err
	}
	return count, nil
}

func uniqueSorted(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

type SubmitReviewInput struct {
	TargetUserID string
	Rating       int
	Comment      string
}

// SubmitReview settles one pending item. The item is taken first so that
// only one of several overlapping submits goes on to append the review and
// fold the rating into the target's aggregate. When the reviewer owes
// nothing more for the activity, the activity's end notifications are
// cleared.
func (uc *ReviewUseCase) SubmitReview(ctx context.Context, reviewerID, pendingID string, input SubmitReviewInput) (*entity.UserReview, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, errors.BadRequest("Rating must be between 1 and 5", nil)
	}
	if input.TargetUserID == reviewerID {
		return nil, errors.BadRequest("Cannot review yourself", nil)
	}

	item, err := uc.reviewRepo.GetPending(ctx, reviewerID, pendingID)
	if err != nil {
		return nil, err
	}
	if input.TargetUserID != "" && input.TargetUserID != item.TargetUserID {
		return nil, errors.BadRequest("Target does not match the pending review", nil)
	}
	if item, err = uc.reviewRepo.TakePending(ctx, reviewerID, pendingID); err != nil {
		return nil, err
	}

	review := &entity.UserReview{
		ReviewerID:    reviewerID,
		ReviewerName:  displayName(ctx, uc.userRepo, reviewerID),
		ActivityID:    item.ActivityID,
		ActivityTitle: item.ActivityTitle,
		Rating:        input.Rating,
		Comment:       input.Comment,
	}
	if err := uc.reviewRepo.CreateReview(ctx, item.TargetUserID, review); err != nil {
		uc.restorePending(ctx, reviewerID, item)
		return nil, err
	}
	if _, err := uc.reviewRepo.ApplyRating(ctx, item.TargetUserID, input.Rating); err != nil {
		uc.restorePending(ctx, reviewerID, item)
		return nil, err
	}

	uc.clearEndNotifications(ctx, reviewerID, item.ActivityID)
	return review, nil
}

// restorePending puts a taken item back so the reviewer can retry.
func (uc *ReviewUseCase) restorePending(ctx context.Context, reviewerID string, item *entity.PendingReviewItem) {
	items := map[string][]*entity.PendingReviewItem{reviewerID: {item}}
	if err := uc.reviewRepo.CreatePending(ctx, items); err != nil {
		logger.LogStepError("restore pending review", logger.Fields{"userId": reviewerID, "activityId": item.ActivityID}, err)
	}
}

// clearEndNotifications is a best-effort derived-state cleanup.
func (uc *ReviewUseCase) clearEndNotifications(ctx context.Context, reviewerID, activityID string) {
	if uc.notifications == nil {
		return
	}
	fields := logger.Fields{"userId": reviewerID, "activityId": activityID}

	remaining, err := uc.reviewRepo.ListPending(ctx, reviewerID)
	if err != nil {
		logger.LogStepError("list remaining pending reviews", fields, err)
		return
	}
	for _, other := range remaining {
		if other.ActivityID == activityID {
			return
		}
	}

	removed, err := uc.notifications.RemoveActivityEndRecords(ctx, reviewerID, activityID)
	if err != nil {
		logger.LogStepError("remove activity end notifications", fields, err)
		return
	}
	logger.WithFields(fields).Debugf("removed %d activity end notifications", removed)
}

func (uc *ReviewUseCase) ListPendingReviews(ctx context.Context, reviewerID string) ([]*entity.PendingReviewItem, error) {
	return uc.reviewRepo.ListPending(ctx, reviewerID)
}

func (uc *ReviewUseCase) ListUserReviews(ctx context.Context, userID string) ([]*entity.UserReview, error) {
	return uc.reviewRepo.ListReviews(ctx, userID)
}
