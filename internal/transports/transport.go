// Package transports implements the channel-specific senders the dispatcher
// calls after claiming a queue item. How a recipient address is resolved
// (email, phone, device token) is the dispatcher's job; transports only
// deliver rendered content.
package transports

import "context"

// Transport sends one rendered notification to one recipient address
type Transport interface {
	Send(ctx context.Context, recipient, subject, body string) error
}
