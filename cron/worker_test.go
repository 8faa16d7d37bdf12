package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	profileRepo "veilslot/database/repository/profile"
	"veilslot/models"
	"veilslot/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

type incrementCall struct {
	buyer, amount string
}

type fakeIncrementer struct {
	calls []incrementCall
	err   error
}

func (f *fakeIncrementer) Increment(_ context.Context, buyer, amount string) error {
	f.calls = append(f.calls, incrementCall{buyer, amount})
	return f.err
}

func TestHandleStatsTask(t *testing.T) {
	t.Parallel()

	inc := &fakeIncrementer{}
	h := handleStatsTask(inc, zap.NewNop())

	task, _, err := tasks.NewStatsTask(models.StatsPayload{BookingID: "bk", BuyerID: "b", Amount: "2.5"})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("ProcessTask: %v", err)
	}
	if len(inc.calls) != 1 || inc.calls[0] != (incrementCall{"b", "2.5"}) {
		t.Errorf("calls = %+v", inc.calls)
	}
}

func TestHandleStatsTaskErrors(t *testing.T) {
	t.Parallel()

	payload, _ := json.Marshal(models.StatsPayload{BookingID: "bk", BuyerID: "b", Amount: "1"})

	tests := []struct {
		name      string
		payload   []byte
		incErr    error
		wantSkip  bool
		wantError bool
	}{
		{"malformed payload", []byte("{"), nil, true, true},
		{"missing buyer", []byte(`{"bookingId":"bk"}`), nil, true, true},
		{"unknown buyer", payload, fmt.Errorf("load: %w", profileRepo.ErrNotFound), true, true},
		{"transient store failure", payload, errors.New("timeout"), false, true},
	}
	for _, tt := range tests {
		h := handleStatsTask(&fakeIncrementer{err: tt.incErr}, zap.NewNop())
		err := h.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeStatsIncrement, tt.payload))
		if (err != nil) != tt.wantError {
			t.Errorf("%s: err = %v", tt.name, err)
		}
		if errors.Is(err, asynq.SkipRetry) != tt.wantSkip {
			t.Errorf("%s: skip retry = %v, want %v", tt.name, errors.Is(err, asynq.SkipRetry), tt.wantSkip)
		}
	}
}

func TestNewStatsMuxRoutes(t *testing.T) {
	t.Parallel()

	inc := &fakeIncrementer{}
	mux := NewStatsMux(inc, zap.NewNop())
	task, _, _ := tasks.NewStatsTask(models.StatsPayload{BuyerID: "b", Amount: "1"})
	if err := mux.ProcessTask(context.Background(), task); err != nil {
		t.Fatalf("mux.ProcessTask: %v", err)
	}
	if len(inc.calls) != 1 {
		t.Errorf("handler not reached through mux")
	}
}
