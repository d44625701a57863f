package usecase

import (
	"context"

	"meetup/internal/domain/entity"
)

// TokenVerifier resolves a bearer token to a user id.
type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (string, error)
}

// EventPublisher receives outbound change events.
type EventPublisher interface {
	Publish(ctx context.Context, event *entity.Event) error
}

// PushSender delivers a device push notification.
type PushSender interface {
	Send(ctx context.Context, pushToken, title, body string, data map[string]string) error
}
