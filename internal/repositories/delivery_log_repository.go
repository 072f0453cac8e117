package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// DeliveryLogRepository defines the interface for the append-only analytics
// record of terminal sends. Entries are written once by the dispatcher;
// only open/click tracking callbacks mutate them afterwards.
type DeliveryLogRepository interface {
	Insert(ctx context.Context, entry *models.DeliveryLog) error

	// CountSince backs the sliding-window rate-limit check
	CountSince(ctx context.Context, username string, channel models.Channel, since time.Time) (int64, error)
	// SumCostSince backs the SMS daily cost cap
	SumCostSince(ctx context.Context, username string, channel models.Channel, since time.Time) (float64, error)

	TrackOpen(ctx context.Context, id string) error
	TrackClick(ctx context.Context, id string) error

	Aggregate(ctx context.Context, filter models.AnalyticsFilter) (*models.AnalyticsSummary, error)
}

// MongoDeliveryLogRepository implements DeliveryLogRepository for MongoDB
type MongoDeliveryLogRepository struct {
	collection *mongo.Collection
}

// NewMongoDeliveryLogRepository creates a new MongoDeliveryLogRepository
func NewMongoDeliveryLogRepository(db *mongo.Database) *MongoDeliveryLogRepository {
	return &MongoDeliveryLogRepository{collection: db.Collection("notification_log")}
}

// Insert creates a new delivery log entry in MongoDB
func (r *MongoDeliveryLogRepository) Insert(ctx context.Context, entry *models.DeliveryLog) error {
	entry.ID = primitive.NewObjectID()
	entry.CreatedAt = time.Now().UTC()
	_, err := r.collection.InsertOne(ctx, entry)
	return err
}

// CountSince counts sends for one user/channel since the window start
func (r *MongoDeliveryLogRepository) CountSince(ctx context.Context, username string, channel models.Channel, since time.Time) (int64, error) {
	return r.collection.CountDocuments(ctx, bson.M{
		"username": username,
		"channel":  channel,
		"sentAt":   bson.M{"$gte": since},
	})
}

// SumCostSince sums delivery cost for one user/channel since the window start
func (r *MongoDeliveryLogRepository) SumCostSince(ctx context.Context, username string, channel models.Channel, since time.Time) (float64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"username": username,
			"channel":  channel,
			"sentAt":   bson.M{"$gte": since},
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":       nil,
			"totalCost": bson.M{"$sum": "$cost"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalCost float64 `bson:"totalCost"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].TotalCost, nil
}

// TrackOpen flips the opened flag on an existing entry
func (r *MongoDeliveryLogRepository) TrackOpen(ctx context.Context, id string) error {
	return r.trackFlag(ctx, id, "opened", "openedAt")
}

// TrackClick flips the clicked flag on an existing entry
func (r *MongoDeliveryLogRepository) TrackClick(ctx context.Context, id string) error {
	return r.trackFlag(ctx, id, "clicked", "clickedAt")
}

func (r *MongoDeliveryLogRepository) trackFlag(ctx context.Context, id, flag, stamp string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid delivery log ID format: %w", err)
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"_id": objID}, bson.M{
		"$set": bson.M{flag: true, stamp: time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("delivery log entry not found")
	}
	return nil
}

// Aggregate computes sent/opened/clicked totals, derived rates and summed
// cost over the filtered entries.
func (r *MongoDeliveryLogRepository) Aggregate(ctx context.Context, filter models.AnalyticsFilter) (*models.AnalyticsSummary, error) {
	match := bson.M{}
	if filter.Username != "" {
		match["username"] = filter.Username
	}
	if filter.Trigger != "" {
		match["trigger"] = filter.Trigger
	}
	if filter.Channel != "" {
		match["channel"] = filter.Channel
	}
	if filter.StartDate != nil || filter.EndDate != nil {
		dateRange := bson.M{}
		if filter.StartDate != nil {
			dateRange["$gte"] = *filter.StartDate
		}
		if filter.EndDate != nil {
			dateRange["$lte"] = *filter.EndDate
		}
		match["sentAt"] = dateRange
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: bson.M{
			"_id":          nil,
			"totalSent":    bson.M{"$sum": 1},
			"totalOpened":  bson.M{"$sum": bson.M{"$cond": bson.A{"$opened", 1, 0}}},
			"totalClicked": bson.M{"$sum": bson.M{"$cond": bson.A{"$clicked", 1, 0}}},
			"totalCost":    bson.M{"$sum": "$cost"},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		TotalSent    int64   `bson:"totalSent"`
		TotalOpened  int64   `bson:"totalOpened"`
		TotalClicked int64   `bson:"totalClicked"`
		TotalCost    float64 `bson:"totalCost"`
	}
	if err = cursor.All(ctx, &results); err != nil {
		return nil, err
	}

	summary := &models.AnalyticsSummary{}
	if len(results) == 0 {
		return summary, nil
	}

	stats := results[0]
	summary.TotalSent = stats.TotalSent
	summary.TotalOpened = stats.TotalOpened
	summary.TotalClicked = stats.TotalClicked
	summary.TotalCost = stats.TotalCost
	if stats.TotalSent > 0 {
		summary.OpenRate = float64(stats.TotalOpened) / float64(stats.TotalSent) * 100
		summary.ClickRate = float64(stats.TotalClicked) / float64(stats.TotalSent) * 100
	}
	return summary, nil
}
