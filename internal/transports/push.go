package transports

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
)

// PushTransport delivers notifications through Firebase Cloud Messaging
type PushTransport struct {
	client *messaging.Client
}

// NewPushTransport creates a new PushTransport
func NewPushTransport(client *messaging.Client) *PushTransport {
	return &PushTransport{client: client}
}

// Send delivers one push notification to the recipient device token
func (t *PushTransport) Send(ctx context.Context, recipient, subject, body string) error {
	if recipient == "" {
		return fmt.Errorf("push transport: empty device token")
	}

	msg := &messaging.Message{
		Token: recipient,
		Notification: &messaging.Notification{
			Title: subject,
			Body:  body,
		},
	}

	if _, err := t.client.Send(ctx, msg); err != nil {
		return fmt.Errorf("push transport: fcm send: %w", err)
	}
	return nil
}
