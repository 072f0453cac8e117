package services

import "errors"

// Enqueue-time errors are synchronous and returned to the producer.
// Delivery-time errors are resolved inside the dispatcher's retry state
// machine and never surface to any caller.
var (
	// ErrPreferenceDenied means the recipient has opted out of this
	// trigger/channel combination. Not retried.
	ErrPreferenceDenied = errors.New("recipient preferences deny this notification")

	// ErrRateLimited means the recipient's configured cap is currently
	// exceeded. The pipeline does not auto-retry rate-limited enqueues.
	ErrRateLimited = errors.New("notification rate limit exceeded")
)
