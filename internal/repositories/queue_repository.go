package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// QueueRepository defines the interface for notification queue operations.
// The queue collection is the single source of truth for delivery state;
// every mutation here is a targeted atomic update, never a read-then-write
// split across two round trips.
type QueueRepository interface {
	Insert(ctx context.Context, item *models.QueueItem) error
	GetByID(ctx context.Context, id string) (*models.QueueItem, error)
	ListByStatus(ctx context.Context, status models.Status, limit int64) ([]models.QueueItem, error)

	// ClaimNext atomically claims one ready item: status pending/scheduled,
	// scheduledFor and nextRetryAt absent or due. The matched item is moved
	// to processing and processingStartedAt stamped in the same step; the
	// post-update document is returned. (nil, nil) means nothing is ready.
	ClaimNext(ctx context.Context, channel models.Channel, now time.Time) (*models.QueueItem, error)

	MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) error
	MarkRetry(ctx context.Context, id primitive.ObjectID, nextRetryAt time.Time, reason string) error
	MarkFailed(ctx context.Context, id primitive.ObjectID, at time.Time, reason string) error

	// ResetStuckProcessing reclaims items abandoned by a crashed worker:
	// processing items whose processingStartedAt is older than the cutoff
	// return to pending without their attempts count being penalized.
	ResetStuckProcessing(ctx context.Context, olderThan time.Time) (int64, error)
}

// MongoQueueRepository implements QueueRepository for MongoDB
type MongoQueueRepository struct {
	collection *mongo.Collection
}

// NewMongoQueueRepository creates a new MongoQueueRepository
func NewMongoQueueRepository(db *mongo.Database) *MongoQueueRepository {
	return &MongoQueueRepository{collection: db.Collection("notification_queue")}
}

// Insert creates a new queue item in MongoDB
func (r *MongoQueueRepository) Insert(ctx context.Context, item *models.QueueItem) error {
	item.ID = primitive.NewObjectID()
	item.CreatedAt = time.Now().UTC()
	item.UpdatedAt = item.CreatedAt
	_, err := r.collection.InsertOne(ctx, item)
	return err
}

// GetByID retrieves a queue item by ID from MongoDB
func (r *MongoQueueRepository) GetByID(ctx context.Context, id string) (*models.QueueItem, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid queue item ID format: %w", err)
	}

	var item models.QueueItem
	err = r.collection.FindOne(ctx, bson.M{"_id": objID}).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("queue item not found")
		}
		return nil, err
	}
	return &item, nil
}

// ListByStatus retrieves queue items in one lifecycle state, newest first
func (r *MongoQueueRepository) ListByStatus(ctx context.Context, status models.Status, limit int64) ([]models.QueueItem, error) {
	var items []models.QueueItem
	findOptions := options.Find().SetLimit(limit).SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"status": status}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// ClaimNext atomically claims one ready queue item via FindOneAndUpdate.
// Concurrent workers racing on the same item see exactly one winner; the
// losers simply match a different document or none at all.
func (r *MongoQueueRepository) ClaimNext(ctx context.Context, channel models.Channel, now time.Time) (*models.QueueItem, error) {
	filter := bson.M{
		"status": bson.M{"$in": bson.A{models.StatusPending, models.StatusScheduled}},
		"$and": bson.A{
			bson.M{"$or": bson.A{
				bson.M{"scheduledFor": nil},
				bson.M{"scheduledFor": bson.M{"$lte": now}},
			}},
			bson.M{"$or": bson.A{
				bson.M{"nextRetryAt": nil},
				bson.M{"nextRetryAt": bson.M{"$lte": now}},
			}},
		},
	}
	if channel != "" {
		filter["channel"] = channel
	}

	update := bson.M{"$set": bson.M{
		"status":              models.StatusProcessing,
		"processingStartedAt": now,
		"updatedAt":           now,
	}}

	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetSort(bson.D{{Key: "createdAt", Value: 1}})

	var item models.QueueItem
	err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&item)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// MarkSent records a successful delivery. Attempts increment because a
// delivery attempt completed.
func (r *MongoQueueRepository) MarkSent(ctx context.Context, id primitive.ObjectID, at time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"status":    models.StatusSent,
			"sentAt":    at,
			"updatedAt": at,
		},
		"$inc":   bson.M{"attempts": 1},
		"$unset": bson.M{"processingStartedAt": "", "nextRetryAt": ""},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("queue item %s not found", id.Hex())
	}
	return nil
}

// MarkRetry returns a failed item to pending, gated by nextRetryAt
func (r *MongoQueueRepository) MarkRetry(ctx context.Context, id primitive.ObjectID, nextRetryAt time.Time, reason string) error {
	update := bson.M{
		"$set": bson.M{
			"status":       models.StatusPending,
			"nextRetryAt":  nextRetryAt,
			"statusReason": reason,
			"updatedAt":    time.Now().UTC(),
		},
		"$inc":   bson.M{"attempts": 1},
		"$unset": bson.M{"processingStartedAt": ""},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("queue item %s not found", id.Hex())
	}
	return nil
}

// MarkFailed records a terminal delivery failure after retries are exhausted
func (r *MongoQueueRepository) MarkFailed(ctx context.Context, id primitive.ObjectID, at time.Time, reason string) error {
	update := bson.M{
		"$set": bson.M{
			"status":       models.StatusFailed,
			"failedAt":     at,
			"statusReason": reason,
			"updatedAt":    at,
		},
		"$inc":   bson.M{"attempts": 1},
		"$unset": bson.M{"processingStartedAt": ""},
	}
	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("queue item %s not found", id.Hex())
	}
	return nil
}

// ResetStuckProcessing reclaims items stuck in processing. Attempts are left
// untouched: a crashed worker is not a real delivery failure.
func (r *MongoQueueRepository) ResetStuckProcessing(ctx context.Context, olderThan time.Time) (int64, error) {
	filter := bson.M{
		"status":              models.StatusProcessing,
		"processingStartedAt": bson.M{"$lte": olderThan},
	}
	update := bson.M{
		"$set": bson.M{
			"status":       models.StatusPending,
			"statusReason": "reset after stuck processing",
			"updatedAt":    time.Now().UTC(),
		},
		"$unset": bson.M{"processingStartedAt": ""},
	}
	res, err := r.collection.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
