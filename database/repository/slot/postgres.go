package slotRepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"veilslot/models"
	"veilslot/utils"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SQLSTATE codes the adapter distinguishes.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const slotColumns = `id, provider_id, date::text, start_time, end_time, duration, price::text, status,
	COALESCE(meeting_room_id, ''), COALESCE(reservation_id, ''), created_at, updated_at`

const bookingColumns = `id, slot_id, buyer_id, provider_id, date::text, start_time, end_time, duration,
	price::text, COALESCE(payment_reference, ''), payment_status, session_status, proof_token_id,
	meeting_room_id, meeting_link, rating, COALESCE(feedback, ''), created_at, updated_at`

var _ SlotRepository = (*PostgresSlotRepo)(nil)

// PostgresSlotRepo implements SlotRepository on PostgreSQL.
type PostgresSlotRepo struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgresSlotRepo constructs a PostgreSQL SlotRepository.
func NewPostgresSlotRepo(pool *pgxpool.Pool, timeout time.Duration) *PostgresSlotRepo {
	return &PostgresSlotRepo{pool: pool, timeout: timeout}
}

func (r *PostgresSlotRepo) FetchAvailable(ctx context.Context, slotID string) (*models.AvailableSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM available_slots WHERE id=$1 AND status=$2`,
		slotID, string(models.SlotAvailable))
	return scanSlot(row)
}

func (r *PostgresSlotRepo) GetSlot(ctx context.Context, slotID string) (*models.AvailableSlot, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+slotColumns+` FROM available_slots WHERE id=$1`, slotID)
	return scanSlot(row)
}

func (r *PostgresSlotRepo) MarkBooked(ctx context.Context, slotID string, res Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
UPDATE available_slots
   SET status=$2, reservation_id=$3, meeting_room_id=$4, updated_at=now()
 WHERE id=$1 AND status=$5`,
		slotID, string(models.SlotBooked), res.BookingID, res.MeetingRoomID, string(models.SlotAvailable))
	if err != nil {
		return classifyPostgres(err, "mark slot booked")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %s is no longer available: %w", slotID, ErrConflict)
	}
	return nil
}

func (r *PostgresSlotRepo) ReleaseReservation(ctx context.Context, slotID string, res Reservation) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tag, err := r.pool.Exec(ctx, `
UPDATE available_slots
   SET status=$2, reservation_id=NULL, meeting_room_id=NULL, updated_at=now()
 WHERE id=$1 AND status=$3 AND reservation_id=$4`,
		slotID, string(models.SlotAvailable), string(models.SlotBooked), res.BookingID)
	if err != nil {
		return classifyPostgres(err, "release slot reservation")
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("slot %s is not held by reservation %s: %w", slotID, res.BookingID, ErrConflict)
	}
	return nil
}

func (r *PostgresSlotRepo) InsertBooking(ctx context.Context, b *models.BookedSession) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.pool.Exec(ctx, `
INSERT INTO booked_sessions (id, slot_id, buyer_id, provider_id, date, start_time, end_time, duration,
	price, payment_reference, payment_status, session_status, proof_token_id, meeting_room_id,
	meeting_link, rating, feedback, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5::text::date,$6,$7,$8,$9::text::numeric,NULLIF($10,''),$11,$12,$13,$14,$15,$16,NULLIF($17,''),$18,$19)`,
		b.ID, b.SlotID, b.BuyerID, b.ProviderID, b.Date, b.StartTime, b.EndTime, b.Duration,
		b.Price, b.PaymentReference, string(b.PaymentStatus), string(b.SessionStatus), b.ProofTokenID,
		b.MeetingRoomID, b.MeetingLink, b.Rating, b.Feedback, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return classifyPostgres(err, "insert booking")
	}
	return nil
}

func (r *PostgresSlotRepo) GetBooking(ctx context.Context, bookingID string) (*models.BookedSession, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	row := r.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM booked_sessions WHERE id=$1`, bookingID)
	return scanBooking(row)
}

func (r *PostgresSlotRepo) ListBookingsByBuyer(ctx context.Context, buyerID string) ([]models.BookedSession, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	rows, err := r.pool.Query(ctx, `SELECT `+bookingColumns+` FROM booked_sessions WHERE buyer_id=$1 ORDER BY created_at DESC`, buyerID)
	if err != nil {
		return nil, classifyPostgres(err, "list bookings")
	}
	defer rows.Close()

	bookings := []models.BookedSession{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, classifyPostgres(err, "list bookings")
	}
	return bookings, nil
}

func scanSlot(row pgx.Row) (*models.AvailableSlot, error) {
	var (
		s      models.AvailableSlot
		status string
	)
	err := row.Scan(&s.ID, &s.ProviderID, &s.Date, &s.StartTime, &s.EndTime, &s.Duration, &s.Price,
		&status, &s.MeetingRoomID, &s.ReservationID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, classifyPostgres(err, "fetch slot")
	}
	s.Status = models.SlotStatus(status)
	s.Price = normalizePrice(s.Price)
	return &s, nil
}

func scanBooking(row pgx.Row) (*models.BookedSession, error) {
	var (
		b                     models.BookedSession
		payment, sessionState string
	)
	err := row.Scan(&b.ID, &b.SlotID, &b.BuyerID, &b.ProviderID, &b.Date, &b.StartTime, &b.EndTime,
		&b.Duration, &b.Price, &b.PaymentReference, &payment, &sessionState, &b.ProofTokenID,
		&b.MeetingRoomID, &b.MeetingLink, &b.Rating, &b.Feedback, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, classifyPostgres(err, "fetch booking")
	}
	b.PaymentStatus = models.PaymentStatus(payment)
	b.SessionStatus = models.SessionStatus(sessionState)
	b.Price = normalizePrice(b.Price)
	return &b, nil
}

// normalizePrice trims NUMERIC(38,9) padding ("5.000000000" -> "5").
func normalizePrice(s string) string {
	units, err := utils.ParsePrice(s)
	if err != nil {
		return s
	}
	return utils.FormatPrice(units)
}

// classifyPostgres maps driver errors onto the repository sentinels.
func classifyPostgres(err error, op string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrConflict, pgErr.Message)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, ErrConstraint, pgErr.Message)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
