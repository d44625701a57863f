package treestore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup/internal/domain/repository"
)

func TestMemorySetGet(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "activities/a1", map[string]interface{}{
		"title":               "Hike",
		"currentParticipants": 2,
	}))

	v, err := m.Get(ctx, "activities/a1/title")
	require.NoError(t, err)
	assert.Equal(t, "Hike", v)

	v, err = m.Get(ctx, "activities/a1/currentParticipants")
	require.NoError(t, err)
	assert.Equal(t, float64(2), v)

	v, err = m.Get(ctx, "activities/missing")
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestMemoryRemovePrunesEmptyParents(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Set(ctx, "a/b/c", true))
	require.NoError(t, m.Remove(ctx, "a/b/c"))

	v, err := m.Get(ctx, "a")
	require.NoError(t, err)
	assert.Nil(t, v)

	// removing an absent path is a no-op
	assert.NoError(t, m.Remove(ctx, "x/y"))
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "chatRooms/r1/name", "room"))

	err := m.Update(ctx, map[string]interface{}{
		"chatRooms/r1": nil,
		"messages/r1":  nil,
		"users/u1/bio": "hi",
	})
	require.NoError(t, err)

	v, _ := m.Get(ctx, "chatRooms/r1")
	assert.Nil(t, v)
	v, _ = m.Get(ctx, "users/u1/bio")
	assert.Equal(t, "hi", v)

	t.Run("overlapping paths are rejected without writing", func(t *testing.T) {
		err := m.Update(ctx, map[string]interface{}{
			"users/u1":      nil,
			"users/u1/name": "x",
		})
		assert.Error(t, err)

		v, _ := m.Get(ctx, "users/u1/bio")
		assert.Equal(t, "hi", v)
	})
}

func TestMemoryTransaction(t *testing.T) {
	ctx := context.Background()

	t.Run("abort leaves the node untouched", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Set(ctx, "p/u1", "Alice"))

		got, err := m.Transaction(ctx, "p/u1", func(current interface{}) (interface{}, error) {
			return nil, repository.ErrAbortTransaction
		})
		require.NoError(t, err)
		assert.Equal(t, "Alice", got)

		v, _ := m.Get(ctx, "p/u1")
		assert.Equal(t, "Alice", v)
	})

	t.Run("nil result removes the node", func(t *testing.T) {
		m := NewMemory()
		require.NoError(t, m.Set(ctx, "p/u1", "Alice"))

		got, err := m.Transaction(ctx, "p/u1", func(current interface{}) (interface{}, error) {
			return nil, nil
		})
		require.NoError(t, err)
		assert.Nil(t, got)

		v, _ := m.Get(ctx, "p")
		assert.Nil(t, v)
	})

	t.Run("concurrent increments are not lost", func(t *testing.T) {
		m := NewMemory()
		const workers = 20

		var wg sync.WaitGroup
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := m.Transaction(ctx, "counter", func(current interface{}) (interface{}, error) {
					n, _ := current.(float64)
					return n + 1, nil
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		v, _ := m.Get(ctx, "counter")
		assert.Equal(t, float64(workers), v)
	})

	t.Run("write to a sibling does not conflict", func(t *testing.T) {
		m := NewMemory()
		calls := 0
		_, err := m.Transaction(ctx, "a/x", func(current interface{}) (interface{}, error) {
			calls++
			if calls == 1 {
				require.NoError(t, m.Set(ctx, "a/y", 1))
			}
			return "done", nil
		})
		require.NoError(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("write to the same node forces a rerun", func(t *testing.T) {
		m := NewMemory()
		calls := 0
		got, err := m.Transaction(ctx, "a", func(current interface{}) (interface{}, error) {
			calls++
			if calls == 1 {
				require.NoError(t, m.Set(ctx, "a/y", 1))
			}
			node, _ := current.(map[string]interface{})
			if node == nil {
				node = map[string]interface{}{}
			}
			node["x"] = "done"
			return node, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
		assert.Equal(t, map[string]interface{}{"x": "done", "y": float64(1)}, got)
	})
}

func TestMemoryQueryByChild(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "chatRooms/r1", map[string]interface{}{"activityId": "a1"}))
	require.NoError(t, m.Set(ctx, "chatRooms/r2", map[string]interface{}{"activityId": "a2"}))
	require.NoError(t, m.Set(ctx, "chatRooms/r3", map[string]interface{}{"activityId": "a1"}))

	got, err := m.QueryByChild(ctx, "chatRooms", "activityId", "a1")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Contains(t, got, "r1")
	assert.Contains(t, got, "r3")
}

func receive(t *testing.T, ch <-chan repository.ChangeEvent) repository.ChangeEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return repository.ChangeEvent{}
	}
}

func TestMemorySubscribeChildren(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewMemory()
	require.NoError(t, m.Set(ctx, "activities/a1/title", "Hike"))

	events, err := m.Subscribe(ctx, "activities", repository.ModeChildren)
	require.NoError(t, err)

	ev := receive(t, events)
	assert.Equal(t, repository.ChildAdded, ev.Kind)
	assert.Equal(t, "a1", ev.Key)

	require.NoError(t, m.Set(ctx, "activities/a1/currentParticipants", 1))
	ev = receive(t, events)
	assert.Equal(t, repository.ChildChanged, ev.Kind)
	assert.Equal(t, map[string]interface{}{"title": "Hike", "currentParticipants": float64(1)}, ev.Value)

	// writes elsewhere are not reported
	require.NoError(t, m.Set(ctx, "users/u1/name", "Alice"))

	require.NoError(t, m.Remove(ctx, "activities/a1"))
	ev = receive(t, events)
	assert.Equal(t, repository.ChildRemoved, ev.Kind)
	assert.Equal(t, "a1", ev.Key)

	cancel()
	select {
	case _, ok := <-events:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription was not closed")
	}
}

func TestMemorySubscribeValue(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m := NewMemory()

	events, err := m.Subscribe(ctx, "users/u1/rating", repository.ModeValue)
	require.NoError(t, err)

	require.NoError(t, m.Set(ctx, "users/u1", map[string]interface{}{"rating": 4.5}))
	ev := receive(t, events)
	assert.Equal(t, repository.ValueChanged, ev.Kind)
	assert.Equal(t, 4.5, ev.Value)

	require.NoError(t, m.Remove(ctx, "users/u1"))
	ev = receive(t, events)
	assert.Nil(t, ev.Value)
}
