package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup/internal/domain/entity"
	"meetup/internal/infrastructure/treestore"
	"meetup/pkg/errors"
)

func TestNotificationRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewTreeNotificationRepository(treestore.NewMemory())

	first := &entity.Notification{Title: "one", Timestamp: 100}
	second := &entity.Notification{Title: "two", Timestamp: 101}
	third := &entity.Notification{Title: "three", Timestamp: 50}
	for _, n := range []*entity.Notification{first, second, third} {
		require.NoError(t, repo.Create(ctx, "u1", n))
		assert.NotEmpty(t, n.ID)
	}

	list, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "two", list[0].Title)
	assert.Equal(t, "three", list[2].Title)

	require.NoError(t, repo.MarkRead(ctx, "u1", first.ID))
	err = repo.MarkRead(ctx, "u1", "missing")
	assert.True(t, errors.IsNotFound(err))

	require.NoError(t, repo.DeleteMany(ctx, "u1", []string{second.ID, third.ID}))
	list, err = repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.ID, list[0].ID)
	assert.True(t, list[0].IsRead)

	require.NoError(t, repo.Delete(ctx, "u1", first.ID))
	list, err = repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, list)
}
