package reservationRepo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"harold/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	roomsCollection        = "rooms"
	reservationsCollection = "reservations"
	roomNightsCollection   = "room_nights"
)

// MongoReservationRepo keeps rooms, reservations and room-nights in three collections.
// Room-night documents use RoomNightKey as _id, so the primary key index is what
// prevents double booking.
type MongoReservationRepo struct {
	roomColl        *mongo.Collection
	reservationColl *mongo.Collection
	nightColl       *mongo.Collection
}

func NewMongoReservationRepo(db *mongo.Database) *MongoReservationRepo {
	return &MongoReservationRepo{
		roomColl:        db.Collection(roomsCollection),
		reservationColl: db.Collection(reservationsCollection),
		nightColl:       db.Collection(roomNightsCollection),
	}
}

func (r *MongoReservationRepo) ListRoomTypes(ctx context.Context) ([]string, error) {
	raw, err := r.roomColl.Distinct(ctx, "room_type", bson.M{})
	if err != nil {
		return nil, fmt.Errorf("list room types: %w", err)
	}
	types := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok && s != "" {
			types = append(types, s)
		}
	}
	sort.Strings(types)
	return types, nil
}

func (r *MongoReservationRepo) FindRoomsByTypes(ctx context.Context, roomTypes []string) ([]models.Room, error) {
	if len(roomTypes) == 0 {
		return nil, nil
	}
	opts := options.Find().SetSort(bson.D{{Key: "room_type", Value: 1}, {Key: "room_number", Value: 1}})
	cursor, err := r.roomColl.Find(ctx, bson.M{"room_type": bson.M{"$in": roomTypes}}, opts)
	if err != nil {
		return nil, fmt.Errorf("find rooms: %w", err)
	}
	defer cursor.Close(ctx)

	var rooms []models.Room
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	return rooms, nil
}

func (r *MongoReservationRepo) FindBookedRoomIDs(ctx context.Context, roomIDs []string, checkIn, checkOut string) (map[string]bool, error) {
	booked := make(map[string]bool)
	if len(roomIDs) == 0 {
		return booked, nil
	}
	// Nights are canonical dates, so string order is date order.
	filter := bson.M{
		"room_id": bson.M{"$in": roomIDs},
		"night":   bson.M{"$gte": checkIn, "$lt": checkOut},
	}
	opts := options.Find().SetProjection(bson.M{"room_id": 1})
	cursor, err := r.nightColl.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find booked nights: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var night models.RoomNight
		if err := cursor.Decode(&night); err != nil {
			return nil, fmt.Errorf("decode room night: %w", err)
		}
		booked[night.RoomID] = true
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate room nights: %w", err)
	}
	return booked, nil
}

func (r *MongoReservationRepo) InsertReservation(ctx context.Context, res *models.Reservation, nights []models.RoomNight) error {
	err := r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		if _, err := r.reservationColl.InsertOne(sc, res); err != nil {
			return fmt.Errorf("insert reservation failed: %w", err)
		}
		docs := make([]interface{}, len(nights))
		for i := range nights {
			docs[i] = nights[i]
		}
		if _, err := r.nightColl.InsertMany(sc, docs); err != nil {
			return fmt.Errorf("insert room nights failed: %w", err)
		}
		return nil
	})
	if isRoomNightConflict(err) {
		return ErrRoomNightTaken
	}
	return err
}

// writeConflictCode is what a transaction gets when a concurrent transaction
// has already written the same room-night _id but not yet committed.
const writeConflictCode = 112

// isRoomNightConflict reports whether a room-night insert lost to another writer,
// either after that writer committed (duplicate key) or before (write conflict).
func isRoomNightConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRoomNightTaken) || mongo.IsDuplicateKeyError(err) {
		return true
	}
	var cmdErr mongo.CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code == writeConflictCode {
		return true
	}
	var writeErr mongo.WriteException
	if errors.As(err, &writeErr) {
		for _, we := range writeErr.WriteErrors {
			if we.Code == writeConflictCode {
				return true
			}
		}
	}
	var bulkErr mongo.BulkWriteException
	if errors.As(err, &bulkErr) {
		for _, we := range bulkErr.WriteErrors {
			if we.Code == writeConflictCode {
				return true
			}
		}
	}
	return false
}

func (r *MongoReservationRepo) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	err := r.reservationColl.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	return &res, nil
}

func (r *MongoReservationRepo) DeletePendingReservation(ctx context.Context, id string) (bool, error) {
	removed := false
	err := r.withTransaction(ctx, func(sc mongo.SessionContext) error {
		del, err := r.reservationColl.DeleteOne(sc, bson.M{"_id": id, "payment_status": models.PaymentPending})
		if err != nil {
			return fmt.Errorf("delete reservation failed: %w", err)
		}
		if del.DeletedCount == 0 {
			return nil
		}
		if _, err := r.nightColl.DeleteMany(sc, bson.M{"reservation_id": id}); err != nil {
			return fmt.Errorf("release room nights failed: %w", err)
		}
		removed = true
		return nil
	})
	return removed, err
}

// SeedRooms inserts the catalogue when the rooms collection is empty.
func (r *MongoReservationRepo) SeedRooms(ctx context.Context, rooms []models.Room) error {
	count, err := r.roomColl.CountDocuments(ctx, bson.M{})
	if err != nil {
		return fmt.Errorf("count rooms: %w", err)
	}
	if count > 0 || len(rooms) == 0 {
		return nil
	}
	docs := make([]interface{}, len(rooms))
	for i := range rooms {
		docs[i] = rooms[i]
	}
	if _, err := r.roomColl.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("seed rooms: %w", err)
	}
	return nil
}

func (r *MongoReservationRepo) withTransaction(ctx context.Context, fn func(sc mongo.SessionContext) error) error {
	client := r.reservationColl.Database().Client()
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("could not start mongo session: %w", err)
	}
	defer sess.EndSession(ctx)

	return mongo.WithSession(ctx, sess, func(sc mongo.SessionContext) error {
		if err := sc.StartTransaction(); err != nil {
			return err
		}
		if err := fn(sc); err != nil {
			_ = sc.AbortTransaction(sc)
			return err
		}
		return sc.CommitTransaction(sc)
	})
}
