package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// UserEvent is one user interaction flowing through the platform
type UserEvent struct {
	Type       string                 `json:"type"`
	Actor      string                 `json:"actor"`
	Target     string                 `json:"target"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// eventRoute describes the notification a user event produces for its target
type eventRoute struct {
	Trigger  models.Trigger
	Priority models.Priority
	Channels []models.Channel
}

// eventRoutes maps event types to notification routes. Event types absent
// from the table are publish-only: consumers may care, but no notification
// is queued.
var eventRoutes = map[string]eventRoute{
	"favorite_added":         {models.TriggerFavorited, models.PriorityLow, []models.Channel{models.ChannelPush}},
	"mutual_favorite":        {models.TriggerMutualFavorite, models.PriorityHigh, []models.Channel{models.ChannelEmail, models.ChannelPush}},
	"shortlist_added":        {models.TriggerShortlistAdded, models.PriorityLow, []models.Channel{models.ChannelPush}},
	"profile_viewed":         {models.TriggerProfileView, models.PriorityLow, []models.Channel{models.ChannelPush}},
	"message_sent":           {models.TriggerNewMessage, models.PriorityMedium, []models.Channel{models.ChannelSMS, models.ChannelPush}},
	"new_match":              {models.TriggerNewMatch, models.PriorityHigh, []models.Channel{models.ChannelEmail, models.ChannelPush}},
	"pii_requested":          {models.TriggerPIIRequest, models.PriorityHigh, []models.Channel{models.ChannelEmail, models.ChannelSMS}},
	"pii_granted":            {models.TriggerPIIGranted, models.PriorityMedium, []models.Channel{models.ChannelEmail}},
	"pii_rejected":           {models.TriggerPIIDenied, models.PriorityLow, []models.Channel{models.ChannelEmail}},
	"suspicious_login":       {models.TriggerSuspiciousLogin, models.PriorityCritical, []models.Channel{models.ChannelEmail, models.ChannelSMS}},
	"account_status_changed": {models.TriggerAccountStatusChange, models.PriorityCritical, []models.Channel{models.ChannelEmail}},
}

// EventDispatcher turns user events into queued notifications and publishes
// the raw event to Redis pub/sub for other consumers (activity feeds,
// moderation tooling).
type EventDispatcher struct {
	enqueue *EnqueueService
	rdb     *redis.Client
	logger  *zap.Logger
}

// NewEventDispatcher creates a new EventDispatcher
func NewEventDispatcher(enqueue *EnqueueService, rdb *redis.Client, logger *zap.Logger) *EventDispatcher {
	return &EventDispatcher{enqueue: enqueue, rdb: rdb, logger: logger}
}

// Dispatch publishes the event and queues any notification it maps to.
// Preference and rate-limit rejections are expected outcomes here, not
// errors: the event still happened even if nobody gets notified.
func (d *EventDispatcher) Dispatch(ctx context.Context, event UserEvent) error {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if d.rdb != nil {
		if err := d.rdb.Publish(ctx, "events:"+event.Type, payload).Err(); err != nil {
			// Pub/sub is fire-and-forget; the notification path below is
			// the durable one.
			d.logger.Warn("event publish failed", zap.String("type", event.Type), zap.Error(err))
		}
	}

	route, routed := eventRoutes[event.Type]
	if !routed {
		return nil
	}

	// Copy before augmenting: the caller's map is not ours to mutate.
	data := make(map[string]interface{}, len(event.Data)+1)
	for k, v := range event.Data {
		data[k] = v
	}
	if _, exists := data["actor"]; !exists && event.Actor != "" {
		data["actor"] = event.Actor
	}

	_, err = d.enqueue.Enqueue(ctx, &models.EnqueueRequest{
		Username:     event.Target,
		Trigger:      route.Trigger,
		Channels:     route.Channels,
		Priority:     route.Priority,
		TemplateData: data,
	})
	if err != nil {
		if errors.Is(err, ErrPreferenceDenied) || errors.Is(err, ErrRateLimited) {
			d.logger.Info("notification suppressed",
				zap.String("type", event.Type),
				zap.String("target", event.Target),
				zap.Error(err),
			)
			return nil
		}
		return fmt.Errorf("enqueue for event %s: %w", event.Type, err)
	}
	return nil
}
