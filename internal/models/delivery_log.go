package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeliveryLog is the append-only record of one terminal send (MongoDB).
// Created once per successfully sent queue item; only the open/click
// tracking callbacks mutate it afterwards.
type DeliveryLog struct {
	ID       primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Username string             `json:"username" bson:"username"`
	Trigger  Trigger            `json:"trigger" bson:"trigger"`
	Channel  Channel            `json:"channel" bson:"channel"`
	Priority Priority           `json:"priority" bson:"priority"`

	Subject string  `json:"subject,omitempty" bson:"subject,omitempty"`
	Preview string  `json:"preview,omitempty" bson:"preview,omitempty"` // first 100 chars of body
	Cost    float64 `json:"cost" bson:"cost"`

	SentAt    time.Time  `json:"sent_at" bson:"sentAt"`
	Opened    bool       `json:"opened" bson:"opened"`
	OpenedAt  *time.Time `json:"opened_at,omitempty" bson:"openedAt,omitempty"`
	Clicked   bool       `json:"clicked" bson:"clicked"`
	ClickedAt *time.Time `json:"clicked_at,omitempty" bson:"clickedAt,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
}

// AnalyticsFilter narrows delivery-log aggregation queries
type AnalyticsFilter struct {
	Username  string     `json:"username,omitempty"`
	Trigger   Trigger    `json:"trigger,omitempty"`
	Channel   Channel    `json:"channel,omitempty"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// AnalyticsSummary is the aggregate view over delivery-log entries
type AnalyticsSummary struct {
	TotalSent    int64   `json:"total_sent"`
	TotalOpened  int64   `json:"total_opened"`
	TotalClicked int64   `json:"total_clicked"`
	OpenRate     float64 `json:"open_rate"`
	ClickRate    float64 `json:"click_rate"`
	TotalCost    float64 `json:"total_cost"`
}
