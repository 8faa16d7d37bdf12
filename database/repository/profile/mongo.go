package profileRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"veilslot/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ ProfileRepository = (*MongoProfileRepo)(nil)

// MongoProfileRepo implements ProfileRepository using MongoDB.
type MongoProfileRepo struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewMongoProfileRepo creates a new instance of ProfileRepository using MongoDB.
func NewMongoProfileRepo(db *mongo.Database, timeout time.Duration) *MongoProfileRepo {
	return &MongoProfileRepo{coll: db.Collection("client_profiles"), timeout: timeout}
}

// EnsureIndexes creates the unique id index EnsureMinimal's upsert relies on.
func (r *MongoProfileRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	indexModels := []mongo.IndexModel{
		{Keys: bson.D{{Key: "id", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	if _, err := r.coll.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create profile indexes: %w", err)
	}
	return nil
}

func (r *MongoProfileRepo) Exists(ctx context.Context, id string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"id": id}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check profile %s: %w", id, err)
	}
	return n > 0, nil
}

func (r *MongoProfileRepo) EnsureMinimal(ctx context.Context, id, role string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	now := time.Now().UTC()
	update := bson.M{
		"$setOnInsert": models.ClientProfile{
			ID:         id,
			Role:       role,
			TotalSpent: "0",
			CreatedAt:  now,
			UpdatedAt:  now,
		},
	}
	_, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update, options.Update().SetUpsert(true))
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("failed to create profile %s: %w", id, err)
	}
	return nil
}

func (r *MongoProfileRepo) Get(ctx context.Context, id string) (*models.ClientProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var p models.ClientProfile
	if err := r.coll.FindOne(ctx, bson.M{"id": id}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch profile %s: %w", id, err)
	}
	return &p, nil
}

func (r *MongoProfileRepo) UpdateStats(ctx context.Context, id string, totalSessions int64, totalSpent string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	update := bson.M{"$set": bson.M{
		"totalSessions": totalSessions,
		"totalSpent":    totalSpent,
		"updatedAt":     time.Now().UTC(),
	}}
	result, err := r.coll.UpdateOne(ctx, bson.M{"id": id}, update)
	if err != nil {
		return fmt.Errorf("failed to update stats for %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
