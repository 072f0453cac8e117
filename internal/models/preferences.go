package models

import "time"

// RatePeriod is the rolling window length of a rate-limit rule
type RatePeriod string

const (
	PeriodHourly RatePeriod = "hourly"
	PeriodDaily  RatePeriod = "daily"
	PeriodWeekly RatePeriod = "weekly"
)

// DigestCadence controls how often batched triggers are delivered
type DigestCadence string

const (
	CadenceHourly DigestCadence = "hourly"
	CadenceDaily  DigestCadence = "daily"
	CadenceWeekly DigestCadence = "weekly"
)

// QuietHours is a recipient-configured local-time window during which only
// exempt triggers and critical notifications are delivered immediately.
type QuietHours struct {
	Enabled        bool      `json:"enabled" bson:"enabled"`
	Start          string    `json:"start" bson:"start" validate:"omitempty,len=5"` // "HH:MM" 24h
	End            string    `json:"end" bson:"end" validate:"omitempty,len=5"`
	Timezone       string    `json:"timezone" bson:"timezone"`
	ExemptTriggers []Trigger `json:"exempt_triggers" bson:"exemptTriggers"`
}

// RateLimit caps deliveries on one channel within a rolling period
type RateLimit struct {
	Max    int        `json:"max" bson:"max" validate:"gt=0"`
	Period RatePeriod `json:"period" bson:"period" validate:"oneof=hourly daily weekly"`
}

// SMSRules holds cost and verification constraints for the SMS channel
type SMSRules struct {
	VerifiedUsersOnly bool    `json:"verified_users_only" bson:"verifiedUsersOnly"`
	MinimumMatchScore int     `json:"minimum_match_score" bson:"minimumMatchScore"`
	DailyCostCap      float64 `json:"daily_cost_cap" bson:"dailyCostCap"`
}

// Preferences holds one user's notification configuration (MongoDB).
// Created lazily with defaults on first access.
type Preferences struct {
	Username string `json:"username" bson:"username"`

	// Channels enabled per trigger type. A trigger absent from the map
	// falls back to the DefaultChannels table.
	Channels map[Trigger][]Channel `json:"channels" bson:"channels"`

	// Digest maps a trigger to a batching cadence; triggers absent from
	// the map are delivered instantly.
	Digest map[Trigger]DigestCadence `json:"digest" bson:"digest"`

	QuietHours QuietHours            `json:"quiet_hours" bson:"quietHours"`
	RateLimits map[Channel]RateLimit `json:"rate_limits" bson:"rateLimits"`
	SMS        SMSRules              `json:"sms" bson:"sms"`

	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}

// PreferencesUpdate is a partial patch applied by user-settings endpoints
type PreferencesUpdate struct {
	Channels   map[Trigger][]Channel     `json:"channels,omitempty"`
	Digest     map[Trigger]DigestCadence `json:"digest,omitempty"`
	QuietHours *QuietHours               `json:"quiet_hours,omitempty"`
	RateLimits map[Channel]RateLimit     `json:"rate_limits,omitempty"`
	SMS        *SMSRules                 `json:"sms,omitempty"`
}

// DefaultPreferences returns the configuration applied to users who have
// never touched their notification settings.
func DefaultPreferences(username string) *Preferences {
	now := time.Now().UTC()
	return &Preferences{
		Username: username,
		Channels: map[Trigger][]Channel{
			TriggerNewMatch:    {ChannelEmail, ChannelPush},
			TriggerNewMessage:  {ChannelSMS, ChannelPush},
			TriggerPIIRequest:  {ChannelEmail, ChannelSMS},
			TriggerProfileView: {ChannelPush},
		},
		Digest: map[Trigger]DigestCadence{
			TriggerProfileView:    CadenceDaily,
			TriggerUnreadMessages: CadenceHourly,
		},
		QuietHours: QuietHours{
			Enabled:        true,
			Start:          "22:00",
			End:            "08:00",
			Timezone:       "UTC",
			ExemptTriggers: []Trigger{TriggerPIIRequest, TriggerSuspiciousLogin},
		},
		RateLimits: map[Channel]RateLimit{
			ChannelSMS:   {Max: 5, Period: PeriodDaily},
			ChannelEmail: {Max: 20, Period: PeriodDaily},
		},
		SMS: SMSRules{
			VerifiedUsersOnly: true,
			MinimumMatchScore: 80,
			DailyCostCap:      1.0,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
