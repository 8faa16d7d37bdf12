package tasks

import (
	"encoding/json"
	"testing"

	"veilslot/models"
)

func TestNewStatsTask(t *testing.T) {
	t.Parallel()

	payload := models.StatsPayload{BookingID: "bk-1", BuyerID: "buyer", Amount: "1.5"}
	task, opts, err := NewStatsTask(payload)
	if err != nil {
		t.Fatalf("NewStatsTask: %v", err)
	}
	if task.Type() != TypeStatsIncrement {
		t.Errorf("type = %q", task.Type())
	}

	var got models.StatsPayload
	if err := json.Unmarshal(task.Payload(), &got); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if got != payload {
		t.Errorf("payload = %+v, want %+v", got, payload)
	}
	if len(opts) != 4 {
		t.Errorf("got %d options, want 4 including the task id", len(opts))
	}

	_, opts, _ = NewStatsTask(models.StatsPayload{BuyerID: "b", Amount: "1"})
	if len(opts) != 3 {
		t.Errorf("got %d options without booking id, want 3", len(opts))
	}
}
