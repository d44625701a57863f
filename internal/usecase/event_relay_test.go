package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetup/internal/domain/entity"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*entity.Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event *entity.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) find(match func(*entity.Event) bool) *entity.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ev := range p.events {
		if match(ev) {
			return ev
		}
	}
	return nil
}

func (p *recordingPublisher) waitFor(t *testing.T, match func(*entity.Event) bool) *entity.Event {
	t.Helper()
	var found *entity.Event
	require.Eventually(t, func() bool {
		found = p.find(match)
		return found != nil
	}, 2*time.Second, 10*time.Millisecond)
	return found
}

func TestEventRelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	env := newTestEnv(t)
	pub := &recordingPublisher{}
	relay := NewEventRelay(env.store, pub)

	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx) }()

	activity := env.createActivity(t, "u1", CreateActivityInput{})
	pub.waitFor(t, func(ev *entity.Event) bool {
		return ev.Type == entity.EventActivityAdded && ev.EntityID == activity.ID
	})

	_, err := env.activities.JoinActivity(ctx, activity.ID, "u2")
	require.NoError(t, err)
	ev := pub.waitFor(t, func(ev *entity.Event) bool {
		if ev.Type != entity.EventParticipantCountChanged || ev.EntityID != activity.ID {
			return false
		}
		a, ok := ev.Data.(*entity.Activity)
		return ok && a.CurrentParticipants == 2
	})
	assert.NotZero(t, ev.Timestamp)

	room := env.activityRoom(t, activity.ID)
	pub.waitFor(t, func(ev *entity.Event) bool {
		return ev.Type == entity.EventChatRoomAdded && ev.ChatRoomID == room.ID
	})

	relay.WatchRoom(room.ID)
	msg, err := env.chat.SendUserMessage(ctx, room.ID, "u2", SendMessageInput{Message: "hi"})
	require.NoError(t, err)
	pub.waitFor(t, func(ev *entity.Event) bool {
		return ev.Type == entity.EventMessageAdded && ev.ChatRoomID == room.ID && ev.EntityID == msg.ID
	})
	relay.UnwatchRoom(room.ID)

	require.NoError(t, env.activities.Delete(ctx, activity.ID, entity.DeleteSilent))
	pub.waitFor(t, func(ev *entity.Event) bool {
		return ev.Type == entity.EventActivityRemoved && ev.EntityID == activity.ID
	})
	pub.waitFor(t, func(ev *entity.Event) bool {
		return ev.Type == entity.EventChatRoomRemoved && ev.ChatRoomID == room.ID
	})

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop")
	}
}
