package tasks

import (
	"context"
	"encoding/json"
	"time"

	"veilslot/models"

	"github.com/hibiken/asynq"
)

const TypeStatsIncrement = "stats:increment"

// NewStatsTask builds the outbox task for one buyer aggregate update. The
// booking id doubles as the task id so a retried enqueue is not applied twice.
func NewStatsTask(payload models.StatsPayload) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeStatsIncrement, b)
	opts := []asynq.Option{
		asynq.MaxRetry(3),
		asynq.Timeout(30 * time.Second),
		asynq.Retention(24 * time.Hour),
	}
	if payload.BookingID != "" {
		opts = append(opts, asynq.TaskID("stats:"+payload.BookingID))
	}
	return task, opts, nil
}

// StatsQueue enqueues statistics tasks on asynq.
type StatsQueue struct {
	client *asynq.Client
}

func NewStatsQueue(client *asynq.Client) *StatsQueue {
	return &StatsQueue{client: client}
}

func (q *StatsQueue) Enqueue(ctx context.Context, payload models.StatsPayload) error {
	task, opts, err := NewStatsTask(payload)
	if err != nil {
		return err
	}
	_, err = q.client.EnqueueContext(ctx, task, opts...)
	return err
}
