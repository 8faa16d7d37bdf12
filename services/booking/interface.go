package booking

import (
	"context"
	"time"

	profileRepo "veilslot/database/repository/profile"
	slotRepo "veilslot/database/repository/slot"
	"veilslot/models"

	"go.uber.org/zap"
)

// BookingService reserves slots for buyers and reads back the result.
type BookingService interface {
	BookSlot(ctx context.Context, req models.BookingRequest) (*models.BookingView, error)
	// BookSlotOnce is BookSlot keyed by a caller-chosen idempotency key; a
	// replayed key returns the first result and replayed=true.
	BookSlotOnce(ctx context.Context, key string, req models.BookingRequest) (view *models.BookingView, replayed bool, err error)
	GetBooking(ctx context.Context, bookingID string) (*models.BookedSession, error)
	ListBuyerBookings(ctx context.Context, buyerID string) ([]models.BookedSession, error)
}

// StatsRecorder hands a statistics update to the outbox.
type StatsRecorder interface {
	Enqueue(ctx context.Context, payload models.StatsPayload) error
}

// DefaultBookingService implements BookingService.
type DefaultBookingService struct {
	Slots          slotRepo.SlotRepository
	Profiles       profileRepo.ProfileRepository
	Payments       PaymentVerifier
	StatsQueue     StatsRecorder
	Stats          *StatsUpdater
	Idempotency    IdempotencyStore
	Logger         *zap.Logger
	MeetingBaseURL string
	// WriteTimeout bounds the writes issued after the slot flip, which run
	// detached from the caller's cancellation.
	WriteTimeout time.Duration
	Now          func() time.Time
}

var _ BookingService = (*DefaultBookingService)(nil)

func (s *DefaultBookingService) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *DefaultBookingService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *DefaultBookingService) writeTimeout() time.Duration {
	if s.WriteTimeout <= 0 {
		return 10 * time.Second
	}
	return s.WriteTimeout
}
