package nats

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nats-io/nats.go"

	"meetup/internal/domain/entity"
	"meetup/pkg/logger"
)

// EventPublisher publishes change events on <prefix>.<event type>, e.g.
// meetup.events.activity.added.
type EventPublisher struct {
	nc     *nats.Conn
	prefix string
}

func NewEventPublisher(nc *nats.Conn, prefix string) *EventPublisher {
	return &EventPublisher{
		nc:     nc,
		prefix: strings.TrimSuffix(prefix, "."),
	}
}

func (p *EventPublisher) Subject(eventType entity.EventType) string {
	if p.prefix == "" {
		return string(eventType)
	}
	return p.prefix + "." + string(eventType)
}

func (p *EventPublisher) Publish(ctx context.Context, event *entity.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal event %s: %v", event.Type, err)
		return err
	}

	subject := p.Subject(event.Type)
	if err := p.nc.Publish(subject, data); err != nil {
		logger.WithFields(logger.Fields{"subject": subject, "entityId": event.EntityID}).WithError(err).Error("Failed to publish event")
		return err
	}

	logger.Debug("Published %s for %s", subject, event.EntityID)
	return nil
}
