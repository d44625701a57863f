package repository

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
)

type treeReviewRepository struct {
	store repository.Store
}

func NewTreeReviewRepository(store repository.Store) repository.ReviewRepository {
	return &treeReviewRepository{
		store: store,
	}
}

func (r *treeReviewRepository) CreatePending(ctx context.Context, items map[string][]*entity.PendingReviewItem) error {
	values := make(map[string]interface{})
	now := time.Now().UnixMilli()
	for reviewerID, list := range items {
		for _, item := range list {
			if item.ID == "" {
				item.ID = uuid.New().String()
			}
			if item.Timestamp == 0 {
				item.Timestamp = now
			}
			if item.Status == "" {
				item.Status = entity.PendingStatusPending
			}
			values[nodePath(pendingReviewsRoot, reviewerID, item.ID)] = item
		}
	}
	if len(values) == 0 {
		return nil
	}

	if err := r.store.Update(ctx, values); err != nil {
		return errors.Internal("Failed to create pending reviews", err)
	}
	return nil
}

func (r *treeReviewRepository) GetPending(ctx context.Context, reviewerID, itemID string) (*entity.PendingReviewItem, error) {
	v, err := r.store.Get(ctx, nodePath(pendingReviewsRoot, reviewerID, itemID))
	if err != nil {
		return nil, errors.Internal("Failed to get pending review", err)
	}
	if v == nil {
		return nil, errors.NotFound("Pending review", nil)
	}

	var item entity.PendingReviewItem
	if err := decode(v, &item); err != nil {
		return nil, errors.Internal("Failed to parse pending review", err)
	}
	if item.ID == "" {
		item.ID = itemID
	}
	return &item, nil
}

// ListPending returns the reviewer's open items, newest first.
func (r *treeReviewRepository) ListPending(ctx context.Context, reviewerID string) ([]*entity.PendingReviewItem, error) {
	v, err := r.store.Get(ctx, nodePath(pendingReviewsRoot, reviewerID))
	if err != nil {
		return nil, errors.Internal("Failed to fetch pending reviews", err)
	}
	items := decodeChildren[entity.PendingReviewItem](v)
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp > items[j].Timestamp
	})
	return items, nil
}

// TakePending removes the item in a transaction and returns it. Only one
// caller can take a given item; the others get NotFound.
func (r *treeReviewRepository) TakePending(ctx context.Context, reviewerID, itemID string) (*entity.PendingReviewItem, error) {
	var taken interface{}
	_, err := r.store.Transaction(ctx, nodePath(pendingReviewsRoot, reviewerID, itemID), func(current interface{}) (interface{}, error) {
		taken = current
		if current == nil {
			return nil, repository.ErrAbortTransaction
		}
		return nil, nil
	})
	if err != nil {
		return nil, errors.Internal("Failed to remove pending review", err)
	}
	if taken == nil {
		return nil, errors.NotFound("Pending review", nil)
	}

	var item entity.PendingReviewItem
	if err := decode(taken, &item); err != nil {
		return nil, errors.Internal("Failed to parse pending review", err)
	}
	if item.ID == "" {
		item.ID = itemID
	}
	return &item, nil
}

func (r *treeReviewRepository) CreateReview(ctx context.Context, targetUserID string, review *entity.UserReview) error {
	if review.ReviewID == "" {
		review.ReviewID = uuid.New().String()
	}
	if review.Timestamp == 0 {
		review.Timestamp = time.Now().UnixMilli()
	}

	if err := r.store.Set(ctx, nodePath(usersRoot, targetUserID, "reviews", review.ReviewID), review); err != nil {
		return errors.Internal("Failed to create review", err)
	}
	return nil
}

func (r *treeReviewRepository) ListReviews(ctx context.Context, targetUserID string) ([]*entity.UserReview, error) {
	v, err := r.store.Get(ctx, nodePath(usersRoot, targetUserID, "reviews"))
	if err != nil {
		return nil, errors.Internal("Failed to fetch reviews", err)
	}
	reviews := decodeChildren[entity.UserReview](v)
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].Timestamp > reviews[j].Timestamp
	})
	return reviews, nil
}

// ApplyRating runs on the whole user node so the sum, the count and the
// derived average always move together.
func (r *treeReviewRepository) ApplyRating(ctx context.Context, targetUserID string, rating int) (*entity.RatingStats, error) {
	committed, err := r.store.Transaction(ctx, nodePath(usersRoot, targetUserID), func(current interface{}) (interface{}, error) {
		node, ok := current.(map[string]interface{})
		if !ok {
			node = map[string]interface{}{"id": targetUserID}
		}
		sum := toInt64(node["ratingSum"]) + int64(rating)
		count := toInt64(node["reviewCount"]) + 1
		node["ratingSum"] = sum
		node["reviewCount"] = count
		node["rating"] = float64(sum) / float64(count)
		return node, nil
	})
	if err != nil {
		return nil, errors.Internal("Failed to update rating", err)
	}

	node, _ := committed.(map[string]interface{})
	stats := &entity.RatingStats{
		RatingSum:   toInt64(node["ratingSum"]),
		ReviewCount: toInt64(node["reviewCount"]),
	}
	if f, ok := node["rating"].(float64); ok {
		stats.Rating = f
	}
	return stats, nil
}
