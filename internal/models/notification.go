package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Channel is a notification delivery medium
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Priority controls delivery urgency. Critical notifications bypass
// quiet hours and digest batching.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Trigger is the categorical reason a notification exists
type Trigger string

const (
	// Profile lifecycle
	TriggerNewProfileCreated   Trigger = "new_profile_created"
	TriggerAccountStatusChange Trigger = "account_status_change"

	// Match-related
	TriggerNewMatch       Trigger = "new_match"
	TriggerMutualFavorite Trigger = "mutual_favorite"
	TriggerShortlistAdded Trigger = "shortlist_added"

	// Profile activity
	TriggerProfileView Trigger = "profile_view"
	TriggerFavorited   Trigger = "favorited"

	// Messaging
	TriggerNewMessage     Trigger = "new_message"
	TriggerMessageRead    Trigger = "message_read"
	TriggerUnreadMessages Trigger = "unread_messages"

	// Privacy / PII
	TriggerPIIRequest  Trigger = "pii_request"
	TriggerPIIGranted  Trigger = "pii_granted"
	TriggerPIIDenied   Trigger = "pii_denied"
	TriggerPIIExpiring Trigger = "pii_expiring"

	// Security
	TriggerSuspiciousLogin Trigger = "suspicious_login"

	// Engagement & digests
	TriggerProfileIncomplete Trigger = "profile_incomplete"
	TriggerWeeklyDigest      Trigger = "weekly_digest"
	TriggerMonthlyDigest     Trigger = "monthly_digest"
)

// BypassTriggers are always permitted regardless of user preferences:
// account-status changes and security alerts must reach the user.
var BypassTriggers = map[Trigger]bool{
	TriggerAccountStatusChange: true,
	TriggerSuspiciousLogin:     true,
}

// DefaultChannels maps each trigger to the channels implicitly allowed when
// the user has no explicit preference for it. Triggers absent from this
// table require an explicit opt-in.
var DefaultChannels = map[Trigger][]Channel{
	TriggerNewProfileCreated:   {ChannelEmail},
	TriggerAccountStatusChange: {ChannelEmail, ChannelSMS},
	TriggerNewMatch:            {ChannelEmail},
	TriggerMutualFavorite:      {ChannelEmail},
	TriggerPIIRequest:          {ChannelEmail},
	TriggerPIIGranted:          {ChannelEmail},
	TriggerPIIDenied:           {ChannelEmail},
	TriggerPIIExpiring:         {ChannelEmail},
	TriggerSuspiciousLogin:     {ChannelEmail, ChannelSMS},
	TriggerWeeklyDigest:        {ChannelEmail},
	TriggerMonthlyDigest:       {ChannelEmail},
}

// Status is the lifecycle state of a queue item
type Status string

const (
	StatusPending    Status = "pending"
	StatusScheduled  Status = "scheduled"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// QueueItem is one dispatch unit in the notification queue (MongoDB).
// A logical event is fanned out into one item per channel so channels can
// be claimed and retried independently.
type QueueItem struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username string             `json:"username" bson:"username"`
	Trigger  Trigger            `json:"trigger" bson:"trigger"`
	Channel  Channel            `json:"channel" bson:"channel"`
	Priority Priority           `json:"priority" bson:"priority"`

	// TemplateData is the variable bag for template substitution; values
	// may be strings, numbers, bools or nested maps.
	TemplateData map[string]interface{} `json:"template_data" bson:"templateData"`

	Status       Status     `json:"status" bson:"status"`
	ScheduledFor *time.Time `json:"scheduled_for,omitempty" bson:"scheduledFor"`
	NextRetryAt  *time.Time `json:"next_retry_at,omitempty" bson:"nextRetryAt,omitempty"`
	Attempts     int        `json:"attempts" bson:"attempts"`

	ProcessingStartedAt *time.Time `json:"processing_started_at,omitempty" bson:"processingStartedAt,omitempty"`
	SentAt              *time.Time `json:"sent_at,omitempty" bson:"sentAt,omitempty"`
	FailedAt            *time.Time `json:"failed_at,omitempty" bson:"failedAt,omitempty"`
	StatusReason        string     `json:"status_reason,omitempty" bson:"statusReason,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// EnqueueRequest is the producer-facing payload for queueing a notification
type EnqueueRequest struct {
	Username     string                 `json:"username" validate:"required"`
	Trigger      Trigger                `json:"trigger" validate:"required"`
	Channels     []Channel              `json:"channels" validate:"required,min=1,dive,oneof=email sms push"`
	Priority     Priority               `json:"priority" validate:"omitempty,oneof=critical high medium low"`
	TemplateData map[string]interface{} `json:"template_data"`
	ScheduledFor *time.Time             `json:"scheduled_for"`
}
