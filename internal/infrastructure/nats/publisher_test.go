package nats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"meetup/internal/domain/entity"
)

func TestSubject(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"meetup.events", "meetup.events.activity.added"},
		{"meetup.events.", "meetup.events.activity.added"},
		{"", "activity.added"},
	}
	for _, tt := range tests {
		p := NewEventPublisher(nil, tt.prefix)
		assert.Equal(t, tt.want, p.Subject(entity.EventActivityAdded))
	}
}

func TestPublishHonoursCancelledContext(t *testing.T) {
	p := NewEventPublisher(nil, "meetup.events")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, &entity.Event{Type: entity.EventActivityAdded, EntityID: "a1"})
	assert.ErrorIs(t, err, context.Canceled)
}
