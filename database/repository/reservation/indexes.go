package reservationRepo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureIndexes creates the indexes the reservation queries rely on.
func (r *MongoReservationRepo) EnsureIndexes() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	nightIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "room_id", Value: 1}, {Key: "night", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("unique_room_night"),
		},
		{
			Keys:    bson.D{{Key: "reservation_id", Value: 1}},
			Options: options.Index().SetName("reservation_idx"),
		},
	}
	if _, err := r.nightColl.Indexes().CreateMany(ctx, nightIndexes); err != nil {
		return fmt.Errorf("failed to create room night indexes: %w", err)
	}

	roomIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "room_type", Value: 1}, {Key: "room_number", Value: 1}},
			Options: options.Index().SetName("type_number_idx"),
		},
	}
	if _, err := r.roomColl.Indexes().CreateMany(ctx, roomIndexes); err != nil {
		return fmt.Errorf("failed to create room indexes: %w", err)
	}

	reservationIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "payment_status", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("status_expiry_idx"),
		},
	}
	if _, err := r.reservationColl.Indexes().CreateMany(ctx, reservationIndexes); err != nil {
		return fmt.Errorf("failed to create reservation indexes: %w", err)
	}
	return nil
}
