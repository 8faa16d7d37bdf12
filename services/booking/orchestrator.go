package booking

import (
	"context"
	"errors"
	"strings"

	profileRepo "veilslot/database/repository/profile"
	slotRepo "veilslot/database/repository/slot"
	"veilslot/models"
	"veilslot/services/identity"
	"veilslot/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookSlot turns an available slot into a booked session for the buyer.
//
// The slot is claimed with a conditional flip before the session is written,
// so two concurrent callers can never both succeed. If the session insert
// fails the claim is released again. Once the flip has been issued the
// remaining writes ignore caller cancellation.
func (s *DefaultBookingService) BookSlot(ctx context.Context, req models.BookingRequest) (*models.BookingView, error) {
	log := s.logger().With(zap.String("slotId", req.SlotID), zap.String("buyerId", req.BuyerID))

	// Step 1: Validate
	if err := validateBookingRequest(&req); err != nil {
		return nil, err
	}

	// Step 2: Fetch the slot while it is still available
	slot, err := s.Slots.FetchAvailable(ctx, req.SlotID)
	if err != nil {
		if errors.Is(err, slotRepo.ErrNotFound) {
			log.Info("slot not available for booking")
			return nil, wrap(ErrSlotUnavailable, err)
		}
		log.Error("failed to fetch slot", zap.Error(err))
		return nil, utils.WrapError(utils.KindUnavailable, err, "failed to fetch slot %s", req.SlotID)
	}

	// Step 3: Derive identifiers
	seed := identity.SlotSeed{
		SlotID:     slot.ID,
		ProviderID: slot.ProviderID,
		Date:       slot.Date,
		StartTime:  slot.StartTime,
	}
	ids := identity.Derive(seed)
	bookingID := uuid.New().String()

	// Step 4: Make sure the buyer profile exists
	if err := s.ensureBuyer(ctx, req.BuyerID); err != nil {
		log.Warn("buyer profile could not be ensured", zap.Error(err))
		return nil, err
	}

	// Step 5: Resolve payment status
	paymentStatus, err := s.resolvePayment(ctx, req)
	if err != nil {
		log.Warn("payment could not be resolved", zap.String("paymentReference", req.PaymentReference), zap.Error(err))
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, utils.WrapError(utils.KindUnavailable, err, "booking request cancelled")
	}

	// From the flip onward the writes run to completion.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.writeTimeout())
	defer cancel()

	// Step 6: Claim the slot
	res := slotRepo.Reservation{BookingID: bookingID, MeetingRoomID: ids.MeetingRoomID}
	if err := s.Slots.MarkBooked(wctx, slot.ID, res); err != nil {
		if errors.Is(err, slotRepo.ErrConflict) || errors.Is(err, slotRepo.ErrNotFound) {
			log.Info("slot was claimed by a concurrent booking")
			return nil, wrap(ErrSlotUnavailable, err)
		}
		log.Error("failed to mark slot booked", zap.Error(err))
		return nil, utils.WrapError(utils.KindUnavailable, err, "failed to reserve slot %s", slot.ID)
	}

	// Step 7: Record the booked session
	now := s.now()
	session := &models.BookedSession{
		ID:               bookingID,
		SlotID:           slot.ID,
		BuyerID:          req.BuyerID,
		ProviderID:       slot.ProviderID,
		Date:             slot.Date,
		StartTime:        slot.StartTime,
		EndTime:          slot.EndTime,
		Duration:         slot.Duration,
		Price:            slot.Price,
		PaymentReference: req.PaymentReference,
		PaymentStatus:    paymentStatus,
		SessionStatus:    models.SessionUpcoming,
		ProofTokenID:     ids.ProofTokenID,
		MeetingRoomID:    ids.MeetingRoomID,
		MeetingLink:      s.meetingLink(ids.MeetingRoomID),
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.Slots.InsertBooking(wctx, session); err != nil {
		insertErr := classifyInsertError(err)
		if rerr := s.Slots.ReleaseReservation(wctx, slot.ID, res); rerr != nil {
			log.Error("booking insert failed and the slot could not be released",
				zap.String("bookingId", bookingID),
				zap.NamedError("insertError", err),
				zap.NamedError("releaseError", rerr))
			return nil, wrap(ErrReconciliationRequired, errors.Join(insertErr, rerr))
		}
		log.Warn("booking insert failed; slot released", zap.String("bookingId", bookingID), zap.Error(err))
		return nil, insertErr
	}

	// Step 8: Update buyer statistics, best effort
	s.recordStats(wctx, session, log)

	log.Info("slot booked", zap.String("bookingId", bookingID))
	return newBookingView(session), nil
}

// GetBooking returns a booked session by id.
func (s *DefaultBookingService) GetBooking(ctx context.Context, bookingID string) (*models.BookedSession, error) {
	if strings.TrimSpace(bookingID) == "" {
		return nil, utils.NewError(utils.KindValidation, "booking id is required")
	}
	b, err := s.Slots.GetBooking(ctx, bookingID)
	if err != nil {
		if errors.Is(err, slotRepo.ErrNotFound) {
			return nil, wrap(ErrBookingNotFound, err)
		}
		return nil, utils.WrapError(utils.KindUnavailable, err, "failed to fetch booking %s", bookingID)
	}
	return b, nil
}

// ListBuyerBookings returns all sessions booked by the buyer, newest first.
func (s *DefaultBookingService) ListBuyerBookings(ctx context.Context, buyerID string) ([]models.BookedSession, error) {
	if strings.TrimSpace(buyerID) == "" {
		return nil, utils.NewError(utils.KindValidation, "buyer id is required")
	}
	list, err := s.Slots.ListBookingsByBuyer(ctx, buyerID)
	if err != nil {
		return nil, utils.WrapError(utils.KindUnavailable, err, "failed to list bookings for %s", buyerID)
	}
	if list == nil {
		list = []models.BookedSession{}
	}
	return list, nil
}

func validateBookingRequest(req *models.BookingRequest) error {
	req.SlotID = strings.TrimSpace(req.SlotID)
	req.BuyerID = strings.TrimSpace(req.BuyerID)
	if req.SlotID == "" {
		return utils.NewError(utils.KindValidation, "slotId is required")
	}
	if req.BuyerID == "" {
		return utils.NewError(utils.KindValidation, "buyerId is required")
	}
	if req.PaymentStatus != "" && !req.PaymentStatus.Valid() {
		return utils.NewError(utils.KindValidation, "unknown payment status %q", req.PaymentStatus)
	}
	return nil
}

func (s *DefaultBookingService) ensureBuyer(ctx context.Context, buyerID string) error {
	if s.Profiles == nil {
		return nil
	}
	if err := s.Profiles.EnsureMinimal(ctx, buyerID, models.RoleClient); err != nil {
		return wrap(ErrBuyerNotLinked, err)
	}
	return nil
}

func (s *DefaultBookingService) resolvePayment(ctx context.Context, req models.BookingRequest) (models.PaymentStatus, error) {
	verifier := s.Payments
	if verifier == nil {
		verifier = StaticVerifier{}
	}
	return verifier.Resolve(ctx, req.PaymentReference, req.PaymentStatus)
}

func (s *DefaultBookingService) meetingLink(roomID string) string {
	if s.MeetingBaseURL == "" {
		return ""
	}
	return strings.TrimRight(s.MeetingBaseURL, "/") + "/" + roomID
}

// recordStats prefers the outbox and falls back to an inline update when the
// queue is unreachable. Failures never reach the caller.
func (s *DefaultBookingService) recordStats(ctx context.Context, b *models.BookedSession, log *zap.Logger) {
	payload := models.StatsPayload{BookingID: b.ID, BuyerID: b.BuyerID, Amount: b.Price}

	if s.StatsQueue != nil {
		err := s.StatsQueue.Enqueue(ctx, payload)
		if err == nil {
			return
		}
		log.Warn("failed to enqueue stats update; applying inline", zap.Error(err))
	}
	if s.Stats == nil {
		return
	}
	if err := s.Stats.Increment(ctx, payload.BuyerID, payload.Amount); err != nil {
		log.Warn("failed to update client statistics", zap.String("bookingId", b.ID), zap.Error(err))
	}
}

func classifyInsertError(err error) error {
	switch {
	case errors.Is(err, slotRepo.ErrConstraint):
		return wrap(ErrBuyerNotLinked, err)
	case errors.Is(err, slotRepo.ErrConflict):
		return wrap(ErrSlotUnavailable, err)
	case errors.Is(err, profileRepo.ErrNotFound):
		return wrap(ErrBuyerNotLinked, err)
	default:
		return utils.WrapError(utils.KindUnavailable, err, "failed to create booking: %v", err)
	}
}

func newBookingView(b *models.BookedSession) *models.BookingView {
	return &models.BookingView{
		BookingID:     b.ID,
		SlotID:        b.SlotID,
		SlotStatus:    models.SlotBooked,
		BuyerID:       b.BuyerID,
		ProviderID:    b.ProviderID,
		Date:          b.Date,
		StartTime:     b.StartTime,
		EndTime:       b.EndTime,
		Duration:      b.Duration,
		Price:         b.Price,
		PaymentStatus: b.PaymentStatus,
		SessionStatus: b.SessionStatus,
		ProofTokenID:  b.ProofTokenID,
		MeetingRoomID: b.MeetingRoomID,
		MeetingLink:   b.MeetingLink,
		CreatedAt:     b.CreatedAt,
	}
}
