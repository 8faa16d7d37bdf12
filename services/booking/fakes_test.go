package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	profileRepo "veilslot/database/repository/profile"
	slotRepo "veilslot/database/repository/slot"
	"veilslot/models"
)

type memProfiles struct {
	mu        sync.Mutex
	rows      map[string]*models.ClientProfile
	ensureErr error
	updateErr error
}

func newMemProfiles() *memProfiles {
	return &memProfiles{rows: map[string]*models.ClientProfile{}}
}

func (m *memProfiles) Exists(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.rows[id]
	return ok, nil
}

func (m *memProfiles) EnsureMinimal(_ context.Context, id, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ensureErr != nil {
		return m.ensureErr
	}
	if _, ok := m.rows[id]; !ok {
		m.rows[id] = &models.ClientProfile{ID: id, Role: role, TotalSpent: "0"}
	}
	return nil
}

func (m *memProfiles) Get(_ context.Context, id string) (*models.ClientProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[id]
	if !ok {
		return nil, profileRepo.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memProfiles) UpdateStats(_ context.Context, id string, sessions int64, spent string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	p, ok := m.rows[id]
	if !ok {
		return profileRepo.ErrNotFound
	}
	p.TotalSessions = sessions
	p.TotalSpent = spent
	return nil
}

type memSlots struct {
	mu       sync.Mutex
	slots    map[string]*models.AvailableSlot
	bookings map[string]*models.BookedSession
	profiles *memProfiles

	insertErr  error
	releaseErr error
	marks      int
}

func newMemSlots(profiles *memProfiles, slots ...models.AvailableSlot) *memSlots {
	m := &memSlots{
		slots:    map[string]*models.AvailableSlot{},
		bookings: map[string]*models.BookedSession{},
		profiles: profiles,
	}
	for i := range slots {
		s := slots[i]
		m.slots[s.ID] = &s
	}
	return m
}

func (m *memSlots) FetchAvailable(_ context.Context, id string) (*models.AvailableSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || s.Status != models.SlotAvailable {
		return nil, slotRepo.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSlots) GetSlot(_ context.Context, id string) (*models.AvailableSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok {
		return nil, slotRepo.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSlots) MarkBooked(_ context.Context, id string, res slotRepo.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.marks++
	s, ok := m.slots[id]
	if !ok || s.Status != models.SlotAvailable {
		return slotRepo.ErrConflict
	}
	s.Status = models.SlotBooked
	s.ReservationID = res.BookingID
	s.MeetingRoomID = res.MeetingRoomID
	return nil
}

func (m *memSlots) ReleaseReservation(_ context.Context, id string, res slotRepo.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.releaseErr != nil {
		return m.releaseErr
	}
	s, ok := m.slots[id]
	if !ok || s.Status != models.SlotBooked || s.ReservationID != res.BookingID {
		return slotRepo.ErrConflict
	}
	s.Status = models.SlotAvailable
	s.ReservationID = ""
	s.MeetingRoomID = ""
	return nil
}

func (m *memSlots) InsertBooking(ctx context.Context, b *models.BookedSession) error {
	if ok, _ := m.profiles.Exists(ctx, b.BuyerID); !ok {
		return slotRepo.ErrConstraint
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	for _, existing := range m.bookings {
		if existing.SlotID == b.SlotID {
			return slotRepo.ErrConflict
		}
	}
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memSlots) GetBooking(_ context.Context, id string) (*models.BookedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, slotRepo.ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memSlots) ListBookingsByBuyer(_ context.Context, buyer string) ([]models.BookedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.BookedSession
	for _, b := range m.bookings {
		if b.BuyerID == buyer {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memSlots) slot(id string) models.AvailableSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.slots[id]
}

func (m *memSlots) bookingCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bookings)
}

type recordingQueue struct {
	mu       sync.Mutex
	payloads []models.StatsPayload
	err      error
}

func (q *recordingQueue) Enqueue(_ context.Context, p models.StatsPayload) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.payloads = append(q.payloads, p)
	return nil
}

type memIdempotency struct {
	mu      sync.Mutex
	entries map[string]IdempotencyRecord
	pending map[string]bool
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{entries: map[string]IdempotencyRecord{}, pending: map[string]bool{}}
}

func (m *memIdempotency) Begin(_ context.Context, key string) (*IdempotencyRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.entries[key]; ok {
		return &rec, nil
	}
	if m.pending[key] {
		return nil, ErrRequestInFlight
	}
	m.pending[key] = true
	return nil, nil
}

func (m *memIdempotency) Complete(_ context.Context, key string, rec IdempotencyRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
	m.entries[key] = rec
	return nil
}

func (m *memIdempotency) Abort(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, key)
	return nil
}

var errStore = errors.New("store offline")

func testSlot(id string) models.AvailableSlot {
	return models.AvailableSlot{
		ID:         id,
		ProviderID: "prov-1",
		Date:       "2026-11-02",
		StartTime:  "09:00",
		EndTime:    "10:00",
		Duration:   60,
		Price:      "1.5",
		Status:     models.SlotAvailable,
	}
}

func newTestService(slots *memSlots, profiles *memProfiles) *DefaultBookingService {
	return &DefaultBookingService{
		Slots:          slots,
		Profiles:       profiles,
		Stats:          NewStatsUpdater(profiles),
		MeetingBaseURL: "https://meet.example.test/",
		WriteTimeout:   time.Second,
	}
}
