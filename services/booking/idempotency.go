package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"veilslot/models"

	"github.com/cespare/xxhash/v2"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

const (
	idempotencyPending = "pending"
	idempotencyPrefix  = "booking:idem:"
)

// IdempotencyRecord is the stored outcome of a keyed request. Fingerprint
// identifies the request body the view was produced for.
type IdempotencyRecord struct {
	Fingerprint string              `json:"fingerprint"`
	View        *models.BookingView `json:"view"`
}

// IdempotencyStore remembers the outcome of keyed booking requests.
type IdempotencyStore interface {
	// Begin claims key. It returns the stored record when the key already
	// completed, ErrRequestInFlight when another request holds it, and
	// (nil, nil) when the caller now owns it.
	Begin(ctx context.Context, key string) (*IdempotencyRecord, error)
	Complete(ctx context.Context, key string, rec IdempotencyRecord) error
	Abort(ctx context.Context, key string) error
}

// RedisIdempotencyStore keeps idempotency records in redis.
type RedisIdempotencyStore struct {
	client     *redis.Client
	ttl        time.Duration
	pendingTTL time.Duration
}

func NewRedisIdempotencyStore(client *redis.Client, ttl time.Duration) *RedisIdempotencyStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotencyStore{client: client, ttl: ttl, pendingTTL: time.Minute}
}

func (s *RedisIdempotencyStore) Begin(ctx context.Context, key string) (*IdempotencyRecord, error) {
	k := idempotencyPrefix + key
	ok, err := s.client.SetNX(ctx, k, idempotencyPending, s.pendingTTL).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if ok {
		return nil, nil
	}

	raw, err := s.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) || raw == idempotencyPending {
		return nil, ErrRequestInFlight
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read idempotency key: %w", err)
	}

	var rec IdempotencyRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("corrupt idempotency record: %w", err)
	}
	if rec.View == nil {
		return nil, errors.New("corrupt idempotency record: no booking view")
	}
	return &rec, nil
}

func (s *RedisIdempotencyStore) Complete(ctx context.Context, key string, rec IdempotencyRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, idempotencyPrefix+key, data, s.ttl).Err()
}

func (s *RedisIdempotencyStore) Abort(ctx context.Context, key string) error {
	return s.client.Del(ctx, idempotencyPrefix+key).Err()
}

// BookSlotOnce runs BookSlot at most once per (buyer, key). An empty key or a
// missing store degrades to a plain BookSlot.
func (s *DefaultBookingService) BookSlotOnce(ctx context.Context, key string, req models.BookingRequest) (*models.BookingView, bool, error) {
	if key == "" || s.Idempotency == nil {
		view, err := s.BookSlot(ctx, req)
		return view, false, err
	}

	scoped := req.BuyerID + ":" + key
	fingerprint := requestFingerprint(req)
	cached, err := s.Idempotency.Begin(ctx, scoped)
	if err != nil {
		if errors.Is(err, ErrRequestInFlight) {
			return nil, false, err
		}
		// Without redis the request is still served, just not deduplicated.
		s.logger().Warn("idempotency store unavailable", zap.Error(err))
		view, err := s.BookSlot(ctx, req)
		return view, false, err
	}
	if cached != nil {
		if cached.Fingerprint != fingerprint {
			return nil, false, ErrIdempotencyMismatch
		}
		return cached.View, true, nil
	}

	view, err := s.BookSlot(ctx, req)
	storeCtx := context.WithoutCancel(ctx)
	if err != nil {
		if aerr := s.Idempotency.Abort(storeCtx, scoped); aerr != nil {
			s.logger().Warn("failed to release idempotency key", zap.Error(aerr))
		}
		return nil, false, err
	}
	if cerr := s.Idempotency.Complete(storeCtx, scoped, IdempotencyRecord{Fingerprint: fingerprint, View: view}); cerr != nil {
		s.logger().Warn("failed to store idempotency record", zap.Error(cerr))
	}
	return view, false, nil
}

// requestFingerprint hashes the fields of req that decide the booking outcome.
func requestFingerprint(req models.BookingRequest) string {
	h := xxhash.New()
	for _, part := range []string{req.SlotID, req.PaymentReference, string(req.PaymentStatus)} {
		_, _ = h.WriteString(part)
		_, _ = h.Write([]byte{0})
	}
	return fmt.Sprintf("%016x", h.Sum64())
}
