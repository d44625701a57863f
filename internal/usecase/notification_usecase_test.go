package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup/internal/domain/entity"
)

func TestEnqueuePush(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	_, err := env.users.UpsertProfile(ctx, "u1", UpdateProfileInput{Name: "Alice", PushToken: "ExponentPushToken[a]"})
	require.NoError(t, err)

	n := &entity.Notification{Title: "hello", Message: "world", ActivityID: "a1", Kind: entity.NotificationActivityEnded}
	require.NoError(t, env.notifications.Enqueue(ctx, "u1", n))
	require.Equal(t, 1, env.push.count())
	assert.Equal(t, "ExponentPushToken[a]", env.push.sent[0].token)
	assert.Equal(t, map[string]string{
		"notificationId": n.ID,
		"kind":           "activity_ended",
		"activityId":     "a1",
	}, env.push.sent[0].data)

	t.Run("push failure does not fail the enqueue", func(t *testing.T) {
		env.push.err = errPushUnavailable
		require.NoError(t, env.notifications.Enqueue(ctx, "u1", &entity.Notification{Title: "again"}))

		list, err := env.notifications.List(ctx, "u1")
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("users without a device only get the inbox record", func(t *testing.T) {
		before := env.push.count()
		require.NoError(t, env.notifications.Enqueue(ctx, "u2", &entity.Notification{Title: "quiet"}))
		assert.Equal(t, before, env.push.count())
	})
}

func TestRemoveActivityEndRecords(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	records := []*entity.Notification{
		{Title: entity.TitleActivityEnded, ActivityID: "a1", Kind: entity.NotificationActivityEnded},
		{Title: entity.TitleReviewRequested, ActivityID: "a1", Kind: entity.NotificationReviewRequested},
		// written before notifications carried a kind
		{Title: entity.TitleActivityEnded, ActivityID: "a1"},
		{Title: entity.TitleActivityEnded, ActivityID: "a2", Kind: entity.NotificationActivityEnded},
		{Title: "친구 요청", Kind: entity.NotificationFriendRequest},
	}
	for _, n := range records {
		require.NoError(t, env.notificationRepo.Create(ctx, "u1", n))
	}

	removed, err := env.notifications.RemoveActivityEndRecords(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	left, err := env.notifications.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, left, 2)
	for _, n := range left {
		assert.False(t, n.IsActivityEndRecord("a1"))
	}

	removed, err = env.notifications.RemoveActivityEndRecords(ctx, "u1", "a1")
	require.NoError(t, err)
	assert.Zero(t, removed)
}
