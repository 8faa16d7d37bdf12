package slotRepo

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

const (
	slotsCollection    = "available_slots"
	bookingsCollection = "booked_sessions"
	profileCollection  = "client_profiles"
)

var _ SlotRepository = (*MongoSlotRepo)(nil)

// MongoSlotRepo implements SlotRepository on MongoDB.
type MongoSlotRepo struct {
	slots    *mongo.Collection
	bookings *mongo.Collection
	profiles *mongo.Collection
	timeout  time.Duration
}

// NewMongoSlotRepo constructs a MongoDB SlotRepository.
func NewMongoSlotRepo(db *mongo.Database, timeout time.Duration) *MongoSlotRepo {
	return &MongoSlotRepo{
		slots:    db.Collection(slotsCollection),
		bookings: db.Collection(bookingsCollection),
		profiles: db.Collection(profileCollection),
		timeout:  timeout,
	}
}

func (r *MongoSlotRepo) FetchAvailable(ctx context.Context, slotID string) (*models.AvailableSlot, error) {
	return r.findSlot(ctx, bson.M{"id": slotID, "status": models.SlotAvailable})
}

func (r *MongoSlotRepo) GetSlot(ctx context.Context, slotID string) (*models.AvailableSlot, error) {
	return r.findSlot(ctx, bson.M{"id": slotID})
}

func (r *MongoSlotRepo) findSlot(ctx context.Context, filter bson.M) (*models.AvailableSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var slot models.AvailableSlot
	if err := r.slots.FindOne(ctx, filter).Decode(&slot); err != nil {
		return nil, classifyMongo(err, "fetch slot")
	}
	return &slot, nil
}

func (r *MongoSlotRepo) MarkBooked(ctx context.Context, slotID string, res Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"id": slotID, "status": models.SlotAvailable}
	update := bson.M{
		"$set": bson.M{
			"status":        models.SlotBooked,
			"reservationId": res.BookingID,
			"meetingRoomId": res.MeetingRoomID,
			"updatedAt":     time.Now().UTC(),
		},
	}

	result, err := r.slots.UpdateOne(ctx, filter, update)
	if err != nil {
		return classifyMongo(err, "mark slot booked")
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("slot %s is no longer available: %w", slotID, ErrConflict)
	}
	return nil
}

func (r *MongoSlotRepo) ReleaseReservation(ctx context.Context, slotID string, res Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	filter := bson.M{"id": slotID, "status": models.SlotBooked, "reservationId": res.BookingID}
	update := bson.M{
		"$set":   bson.M{"status": models.SlotAvailable, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"reservationId": "", "meetingRoomId": ""},
	}

	result, err := r.slots.UpdateOne(ctx, filter, update)
	if err != nil {
		return classifyMongo(err, "release slot reservation")
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("slot %s is not held by reservation %s: %w", slotID, res.BookingID, ErrConflict)
	}
	return nil
}

// InsertBooking emulates the buyer foreign key the relational schema declares;
// the unique index on slotId carries the one-booking-per-slot guarantee.
func (r *MongoSlotRepo) InsertBooking(ctx context.Context, booking *models.BookedSession) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	n, err := r.profiles.CountDocuments(ctx, bson.M{"id": booking.BuyerID}, options.Count().SetLimit(1))
	if err != nil {
		return classifyMongo(err, "check buyer reference")
	}
	if n == 0 {
		return fmt.Errorf("buyer %s has no profile: %w", booking.BuyerID, ErrConstraint)
	}

	if _, err := r.bookings.InsertOne(ctx, booking); err != nil {
		return classifyMongo(err, "insert booking")
	}
	return nil
}

func (r *MongoSlotRepo) GetBooking(ctx context.Context, bookingID string) (*models.BookedSession, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var booking models.BookedSession
	if err := r.bookings.FindOne(ctx, bson.M{"id": bookingID}).Decode(&booking); err != nil {
		return nil, classifyMongo(err, "fetch booking")
	}
	return &booking, nil
}

func (r *MongoSlotRepo) ListBookingsByBuyer(ctx context.Context, buyerID string) ([]models.BookedSession, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := r.bookings.Find(ctx, bson.M{"buyerId": buyerID}, opts)
	if err != nil {
		return nil, classifyMongo(err, "list bookings")
	}
	defer cursor.Close(ctx)

	bookings := []models.BookedSession{}
	if err := cursor.All(ctx, &bookings); err != nil {
		return nil, classifyMongo(err, "decode bookings")
	}
	return bookings, nil
}

// classifyMongo maps driver errors onto the repository sentinels.
func classifyMongo(err error, op string) error {
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%s: %w: %v", op, ErrConflict, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}
