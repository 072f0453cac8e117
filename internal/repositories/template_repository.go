package repositories

import (
	"context"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TemplateRepository defines the interface for notification template lookups
type TemplateRepository interface {
	// FindActive returns the active template for a (trigger, channel) pair,
	// or (nil, nil) when none exists and the caller should fall back to a
	// hardcoded per-trigger template.
	FindActive(ctx context.Context, trigger models.Trigger, channel models.Channel) (*models.MessageTemplate, error)
	Upsert(ctx context.Context, tmpl *models.MessageTemplate) error
}

// MongoTemplateRepository implements TemplateRepository for MongoDB
type MongoTemplateRepository struct {
	collection *mongo.Collection
}

// NewMongoTemplateRepository creates a new MongoTemplateRepository
func NewMongoTemplateRepository(db *mongo.Database) *MongoTemplateRepository {
	return &MongoTemplateRepository{collection: db.Collection("notification_templates")}
}

// FindActive retrieves the newest active template for a trigger/channel pair
func (r *MongoTemplateRepository) FindActive(ctx context.Context, trigger models.Trigger, channel models.Channel) (*models.MessageTemplate, error) {
	filter := bson.M{"trigger": trigger, "channel": channel, "active": true}
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})

	var tmpl models.MessageTemplate
	err := r.collection.FindOne(ctx, filter, opts).Decode(&tmpl)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &tmpl, nil
}

// Upsert creates or replaces the template for a trigger/channel pair
func (r *MongoTemplateRepository) Upsert(ctx context.Context, tmpl *models.MessageTemplate) error {
	now := time.Now().UTC()
	tmpl.UpdatedAt = now
	if tmpl.ID.IsZero() {
		tmpl.ID = primitive.NewObjectID()
		tmpl.CreatedAt = now
	}

	filter := bson.M{"trigger": tmpl.Trigger, "channel": tmpl.Channel}
	_, err := r.collection.ReplaceOne(ctx, filter, tmpl, options.Replace().SetUpsert(true))
	return err
}
