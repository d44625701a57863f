package push

import (
	"context"
	"fmt"

	expo "github.com/oliveroneill/exponent-server-sdk-golang/sdk"

	"meetup/pkg/logger"
)

// ExpoSender delivers notifications through the Expo push service.
type ExpoSender struct {
	client *expo.PushClient
}

func NewExpoSender() *ExpoSender {
	return &ExpoSender{
		client: expo.NewPushClient(nil),
	}
}

func (s *ExpoSender) Send(ctx context.Context, pushToken, title, body string, data map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	token, err := expo.NewExponentPushToken(pushToken)
	if err != nil {
		return fmt.Errorf("invalid expo token: %w", err)
	}

	response, err := s.client.Publish(&expo.PushMessage{
		To:       []expo.ExponentPushToken{token},
		Body:     body,
		Sound:    "default",
		Title:    title,
		Priority: expo.HighPriority,
		Data:     data,
	})
	if err != nil {
		return err
	}
	if err := response.ValidateResponse(); err != nil {
		logger.WithFields(logger.Fields{"to": response.PushMessage.To}).Warn("Expo push rejected")
		return err
	}
	return nil
}
