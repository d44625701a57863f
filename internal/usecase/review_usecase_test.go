package usecase

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup/internal/domain/entity"
	"meetup/internal/domain/repository"
	"meetup/pkg/errors"
)

// endedActivity runs an activity with u1, u2 and u3 to its end.
func endedActivity(t *testing.T, env *testEnv) *entity.Activity {
	t.Helper()
	ctx := context.Background()
	env.profile(t, "u1", "Alice")
	env.profile(t, "u2", "Bob")
	env.profile(t, "u3", "Carol")

	activity := env.createActivity(t, "u1", CreateActivityInput{Title: "Hike"})
	for _, id := range []string{"u2", "u3"} {
		_, err := env.activities.JoinActivity(ctx, activity.ID, id)
		require.NoError(t, err)
	}
	require.NoError(t, env.activities.Delete(ctx, activity.ID, entity.DeleteWithNotifications))
	return activity
}

func pendingFor(t *testing.T, env *testEnv, reviewerID, targetID string) *entity.PendingReviewItem {
	t.Helper()
	items, err := env.reviews.ListPendingReviews(context.Background(), reviewerID)
	require.NoError(t, err)
	for _, item := range items {
		if item.TargetUserID == targetID {
			return item
		}
	}
	t.Fatalf("no pending review from %s for %s", reviewerID, targetID)
	return nil
}

func TestOnActivityEndCreatesOrderedPairs(t *testing.T) {
	env := newTestEnv(t)
	activity := &entity.Activity{ID: "a1", Title: "Hike", Participants: map[string]string{"u1": "Alice", "u2": "Bob"}}

	n, err := env.reviews.OnActivityEnd(context.Background(), activity, []string{"u2", "u1", "u1", ""})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	item := pendingFor(t, env, "u1", "u2")
	assert.Equal(t, "Bob", item.TargetName)
	assert.Equal(t, "Hike", item.ActivityTitle)

	n, err = env.reviews.OnActivityEnd(context.Background(), activity, []string{"u1"})
	require.NoError(t, err)
	assert.Zero(t, n, "a lone participant owes nobody")
}

func TestSubmitReviewSettlesLedger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	activity := endedActivity(t, env)
	require.Equal(t, 6, env.pendingTotal(t, "u1", "u2", "u3"))

	first := pendingFor(t, env, "u1", "u2")
	review, err := env.reviews.SubmitReview(ctx, "u1", first.ID, SubmitReviewInput{TargetUserID: "u2", Rating: 5, Comment: "great"})
	require.NoError(t, err)
	assert.Equal(t, "Alice", review.ReviewerName)
	assert.Equal(t, activity.ID, review.ActivityID)
	assert.Equal(t, 5, env.pendingTotal(t, "u1", "u2", "u3"))

	// u1 still owes a review for this activity, so the notices stay
	notifications, err := env.notifications.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, notifications, 2)

	second := pendingFor(t, env, "u1", "u3")
	_, err = env.reviews.SubmitReview(ctx, "u1", second.ID, SubmitReviewInput{Rating: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, env.pendingTotal(t, "u1", "u2", "u3"))

	notifications, err = env.notifications.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, notifications)

	notifications, err = env.notifications.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, notifications, 2)

	bob, err := env.userRepo.GetByID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bob.ReviewCount)
	assert.Equal(t, int64(5), bob.RatingSum)
	assert.InDelta(t, 5.0, bob.Rating, 0.0001)

	reviews, err := env.reviews.ListUserReviews(ctx, "u3")
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	assert.Equal(t, 3, reviews[0].Rating)

	_, err = env.reviews.SubmitReview(ctx, "u1", first.ID, SubmitReviewInput{Rating: 5})
	assert.True(t, errors.IsNotFound(err), "a settled item cannot be submitted twice")
}

func TestSubmitReviewValidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	endedActivity(t, env)
	item := pendingFor(t, env, "u2", "u3")

	tests := []struct {
		name  string
		input SubmitReviewInput
	}{
		{"rating too low", SubmitReviewInput{Rating: 0}},
		{"rating too high", SubmitReviewInput{Rating: 6}},
		{"self review", SubmitReviewInput{TargetUserID: "u2", Rating: 4}},
		{"target mismatch", SubmitReviewInput{TargetUserID: "u1", Rating: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.reviews.SubmitReview(ctx, "u2", item.ID, tt.input)
			assert.True(t, errors.Is(err, errors.CodeBadRequest))
		})
	}

	assert.Equal(t, 6, env.pendingTotal(t, "u1", "u2", "u3"))
}

// lockstepReviewRepo holds every GetPending caller until all of them have
// read the item.
type lockstepReviewRepo struct {
	repository.ReviewRepository
	reads *sync.WaitGroup
}

func (r *lockstepReviewRepo) GetPending(ctx context.Context, reviewerID, itemID string) (*entity.PendingReviewItem, error) {
	item, err := r.ReviewRepository.GetPending(ctx, reviewerID, itemID)
	r.reads.Done()
	r.reads.Wait()
	return item, err
}

func TestSubmitReviewOverlappingSubmitsCountOnce(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	endedActivity(t, env)
	item := pendingFor(t, env, "u1", "u2")

	const submits = 2
	reads := &sync.WaitGroup{}
	reads.Add(submits)
	reviews := NewReviewUseCase(&lockstepReviewRepo{ReviewRepository: env.reviewRepo, reads: reads}, env.userRepo, env.notifications)

	errs := make([]error, submits)
	var wg sync.WaitGroup
	for i := 0; i < submits; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reviews.SubmitReview(ctx, "u1", item.ID, SubmitReviewInput{TargetUserID: "u2", Rating: 5})
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.IsNotFound(err), err)
	}
	assert.Equal(t, 1, succeeded)

	bob, err := env.userRepo.GetByID(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), bob.ReviewCount)
	assert.Equal(t, int64(5), bob.RatingSum)

	written, err := env.reviews.ListUserReviews(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, written, 1)
	assert.Equal(t, 5, env.pendingTotal(t, "u1", "u2", "u3"))
}
