package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/l3v3l-match/backend/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// PreferenceRepository defines the interface for notification preference operations
type PreferenceRepository interface {
	// Get returns the user's preferences, lazily creating defaults on
	// first access.
	Get(ctx context.Context, username string) (*models.Preferences, error)
	Update(ctx context.Context, username string, patch *models.PreferencesUpdate) (*models.Preferences, error)
	Delete(ctx context.Context, username string) error
}

// MongoPreferenceRepository implements PreferenceRepository for MongoDB
type MongoPreferenceRepository struct {
	collection *mongo.Collection
}

// NewMongoPreferenceRepository creates a new MongoPreferenceRepository
func NewMongoPreferenceRepository(db *mongo.Database) *MongoPreferenceRepository {
	return &MongoPreferenceRepository{collection: db.Collection("notification_preferences")}
}

// Get retrieves preferences, inserting defaults when the user has none
func (r *MongoPreferenceRepository) Get(ctx context.Context, username string) (*models.Preferences, error) {
	var prefs models.Preferences
	err := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&prefs)
	if err == nil {
		return &prefs, nil
	}
	if err != mongo.ErrNoDocuments {
		return nil, err
	}

	defaults := models.DefaultPreferences(username)
	if _, err := r.collection.InsertOne(ctx, defaults); err != nil {
		// A concurrent first access may have inserted already; re-read.
		if mongo.IsDuplicateKeyError(err) {
			if rerr := r.collection.FindOne(ctx, bson.M{"username": username}).Decode(&prefs); rerr == nil {
				return &prefs, nil
			}
		}
		return nil, err
	}
	return defaults, nil
}

// Update applies a partial patch and returns the resulting preferences
func (r *MongoPreferenceRepository) Update(ctx context.Context, username string, patch *models.PreferencesUpdate) (*models.Preferences, error) {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Channels != nil {
		set["channels"] = patch.Channels
	}
	if patch.Digest != nil {
		set["digest"] = patch.Digest
	}
	if patch.QuietHours != nil {
		set["quietHours"] = patch.QuietHours
	}
	if patch.RateLimits != nil {
		set["rateLimits"] = patch.RateLimits
	}
	if patch.SMS != nil {
		set["sms"] = patch.SMS
	}

	res, err := r.collection.UpdateOne(ctx, bson.M{"username": username}, bson.M{"$set": set})
	if err != nil {
		return nil, err
	}
	if res.MatchedCount == 0 {
		return nil, fmt.Errorf("preferences not found for %s", username)
	}
	return r.Get(ctx, username)
}

// Delete removes preferences; used only on account deletion
func (r *MongoPreferenceRepository) Delete(ctx context.Context, username string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"username": username})
	return err
}
