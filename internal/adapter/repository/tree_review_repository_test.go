package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup/internal/domain/entity"
	"meetup/internal/infrastructure/treestore"
	"meetup/pkg/errors"
)

func TestReviewRepositoryPending(t *testing.T) {
	ctx := context.Background()
	repo := NewTreeReviewRepository(treestore.NewMemory())

	items := map[string][]*entity.PendingReviewItem{
		"u1": {{TargetUserID: "u2", ActivityID: "a1", ActivityTitle: "Hike"}},
		"u2": {{TargetUserID: "u1", ActivityID: "a1", ActivityTitle: "Hike"}},
	}
	require.NoError(t, repo.CreatePending(ctx, items))

	pending, err := repo.ListPending(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "u2", pending[0].TargetUserID)
	assert.Equal(t, entity.PendingStatusPending, pending[0].Status)
	assert.NotZero(t, pending[0].Timestamp)

	got, err := repo.GetPending(ctx, "u1", pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ActivityID)

	taken, err := repo.TakePending(ctx, "u1", pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "u2", taken.TargetUserID)
	assert.Equal(t, pending[0].ID, taken.ID)

	_, err = repo.GetPending(ctx, "u1", pending[0].ID)
	assert.True(t, errors.IsNotFound(err))
	_, err = repo.TakePending(ctx, "u1", pending[0].ID)
	assert.True(t, errors.IsNotFound(err), "an item can be taken once")
}

func TestReviewRepositoryTakePendingConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewTreeReviewRepository(treestore.NewMemory())
	require.NoError(t, repo.CreatePending(ctx, map[string][]*entity.PendingReviewItem{
		"u1": {{ID: "p1", TargetUserID: "u2", ActivityID: "a1"}},
	}))

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		taken int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.TakePending(ctx, "u1", "p1")
			if err == nil {
				mu.Lock()
				taken++
				mu.Unlock()
				return
			}
			assert.True(t, errors.IsNotFound(err))
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, taken)
}

func TestReviewRepositoryApplyRating(t *testing.T) {
	ctx := context.Background()
	store := treestore.NewMemory()
	repo := NewTreeReviewRepository(store)
	require.NoError(t, store.Set(ctx, "users/u2/name", "Bob"))

	stats, err := repo.ApplyRating(ctx, "u2", 5)
	require.NoError(t, err)
	assert.Equal(t, &entity.RatingStats{Rating: 5, RatingSum: 5, ReviewCount: 1}, stats)

	stats, err = repo.ApplyRating(ctx, "u2", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(7), stats.RatingSum)
	assert.Equal(t, int64(2), stats.ReviewCount)
	assert.InDelta(t, 3.5, stats.Rating, 0.0001)

	name, err := store.Get(ctx, "users/u2/name")
	require.NoError(t, err)
	assert.Equal(t, "Bob", name)
}

func TestReviewRepositoryApplyRatingConcurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewTreeReviewRepository(treestore.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := repo.ApplyRating(ctx, "u1", 4)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	stats, err := repo.ApplyRating(ctx, "u1", 4)
	require.NoError(t, err)
	assert.Equal(t, int64(11), stats.ReviewCount)
	assert.Equal(t, int64(44), stats.RatingSum)
	assert.InDelta(t, 4.0, stats.Rating, 0.0001)
}

func TestReviewRepositoryReviews(t *testing.T) {
	ctx := context.Background()
	repo := NewTreeReviewRepository(treestore.NewMemory())

	require.NoError(t, repo.CreateReview(ctx, "u2", &entity.UserReview{ReviewerID: "u1", Rating: 4, Timestamp: 10}))
	require.NoError(t, repo.CreateReview(ctx, "u2", &entity.UserReview{ReviewerID: "u3", Rating: 5, Timestamp: 20}))

	reviews, err := repo.ListReviews(ctx, "u2")
	require.NoError(t, err)
	require.Len(t, reviews, 2)
	assert.Equal(t, "u3", reviews[0].ReviewerID)
	assert.NotEmpty(t, reviews[0].ReviewID)
}
