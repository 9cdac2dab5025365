// README: PushProvider backed by Firebase Cloud Messaging.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"firebase.google.com/go/v4/messaging"
)

// ErrUnregistered means the device token is no longer valid and should be forgotten.
var ErrUnregistered = errors.New("device token unregistered")

type PushProvider interface {
	Send(ctx context.Context, token string, msg Message) error
}

type FCMProvider struct {
	client *messaging.Client
}

func NewFCMProvider(client *messaging.Client) *FCMProvider {
	return &FCMProvider{client: client}
}

func (p *FCMProvider) Send(ctx context.Context, token string, msg Message) error {
	if token == "" {
		return ErrNoToken
	}
	messageID, err := p.client.Send(ctx, buildFCMMessage(token, msg))
	if messaging.IsUnregistered(err) {
		return ErrUnregistered
	}
	if err != nil {
		return fmt.Errorf("sending FCM %s: %w", msg.Kind, err)
	}
	slog.DebugContext(ctx, "FCM sent", "kind", msg.Kind, "message_id", messageID)
	return nil
}

func buildFCMMessage(token string, msg Message) *messaging.Message {
	return &messaging.Message{
		Token: token,
		Data:  msg.Data,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Android: &messaging.AndroidConfig{
			Priority: "high",
		},
	}
}
