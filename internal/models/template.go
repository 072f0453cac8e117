package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MessageTemplate is an authored template for one (trigger, channel) pair (MongoDB)
type MessageTemplate struct {
	ID      primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Trigger Trigger            `json:"trigger" bson:"trigger"`
	Channel Channel            `json:"channel" bson:"channel"`

	Subject string `json:"subject,omitempty" bson:"subject,omitempty"`
	Body    string `json:"body" bson:"body"`

	// MaxLength truncates the rendered body (SMS segment limits)
	MaxLength int  `json:"max_length,omitempty" bson:"maxLength,omitempty"`
	Active    bool `json:"active" bson:"active"`

	CreatedAt time.Time `json:"created_at" bson:"createdAt"`
	UpdatedAt time.Time `json:"updated_at" bson:"updatedAt"`
}
