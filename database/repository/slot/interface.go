// File: database/repository/slot/interface.go
package slotRepo

import (
	"context"
	"errors"

	"veilslot/models"
)

// Failure reasons the orchestrator branches on. Drivers wrap the underlying
// error so errors.Is works against these and the driver message survives.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrConstraint = errors.New("constraint violation")
)

// Reservation is what the conditional flip stamps onto a slot.
type Reservation struct {
	BookingID     string
	MeetingRoomID string
}

// SlotRepository is the row gateway over available slots and booked sessions.
// Every method touches a single row.
type SlotRepository interface {
	// FetchAvailable returns the slot only while its status is available.
	FetchAvailable(ctx context.Context, slotID string) (*models.AvailableSlot, error)
	GetSlot(ctx context.Context, slotID string) (*models.AvailableSlot, error)
	// MarkBooked flips available -> booked and fails with ErrConflict when no row matched.
	MarkBooked(ctx context.Context, slotID string, res Reservation) error
	// ReleaseReservation undoes MarkBooked for the same reservation only.
	ReleaseReservation(ctx context.Context, slotID string, res Reservation) error
	// InsertBooking fails with ErrConflict on a duplicate slot and ErrConstraint on a missing buyer.
	InsertBooking(ctx context.Context, booking *models.BookedSession) error
	GetBooking(ctx context.Context, bookingID string) (*models.BookedSession, error)
	ListBookingsByBuyer(ctx context.Context, buyerID string) ([]models.BookedSession, error)
}
