// FILE: database/repository/slot/indexes.go
package slotRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the slot and booking collections rely on.
// The unique slotId index is what keeps a second booking row out even if two
// writers somehow pass the conditional flip.
func (r *MongoSlotRepo) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slotIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "providerId", Value: 1}, {Key: "date", Value: 1}},
			Options: options.Index().SetName("provider_date_idx"),
		},
		{
			Keys:    bson.D{{Key: "id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("id_status_idx"),
		},
	}
	if _, err := r.slots.Indexes().CreateMany(ctx, slotIndexes); err != nil {
		return fmt.Errorf("failed to create slot indexes: %w", err)
	}

	bookingIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_id"),
		},
		{
			Keys:    bson.D{{Key: "slotId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_slot"),
		},
		{
			Keys:    bson.D{{Key: "buyerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("buyer_created_idx"),
		},
	}
	if _, err := r.bookings.Indexes().CreateMany(ctx, bookingIndexes); err != nil {
		return fmt.Errorf("failed to create booking indexes: %w", err)
	}
	return nil
}
