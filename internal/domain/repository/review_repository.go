package repository

import (
	"context"

	"meetup/internal/domain/entity"
)

type ReviewRepository interface {
	// CreatePending writes every reviewer -> items entry in one update.
	CreatePending(ctx context.Context, items map[string][]*entity.PendingReviewItem) error
	GetPending(ctx context.Context, reviewerID, itemID string) (*entity.PendingReviewItem, error)
	ListPending(ctx context.Context, reviewerID string) ([]*entity.PendingReviewItem, error)
	// TakePending removes the item and returns it; NotFound when another
	// caller took it first.
	TakePending(ctx context.Context, reviewerID, itemID string) (*entity.PendingReviewItem, error)

	CreateReview(ctx context.Context, targetUserID string, review *entity.UserReview) error
	ListReviews(ctx context.Context, targetUserID string) ([]*entity.UserReview, error)
	// ApplyRating folds one rating into the target's aggregate atomically.
	ApplyRating(ctx context.Context, targetUserID string, rating int) (*entity.RatingStats, error)
}
