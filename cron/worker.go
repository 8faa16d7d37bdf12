package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"veilslot/config"
	profileRepo "veilslot/database/repository/profile"
	"veilslot/models"
	"veilslot/services/tasks"
	"veilslot/utils"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// StatsIncrementer applies one buyer aggregate update.
type StatsIncrementer interface {
	Increment(ctx context.Context, buyerID, amount string) error
}

// QueueRedisOpt is the asynq connection shared by the API (client) and the worker (server).
func QueueRedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	}
}

// NewStatsMux routes statistics tasks to the updater.
func NewStatsMux(updater StatsIncrementer, logger *zap.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeStatsIncrement, handleStatsTask(updater, logger))
	return mux
}

// RunStatsWorker processes statistics tasks until ctx is cancelled.
func RunStatsWorker(ctx context.Context, updater StatsIncrementer, logger *zap.Logger) error {
	srv := asynq.NewServer(
		QueueRedisOpt(),
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
			Logger: logger.Sugar(),
		},
	)
	mux := NewStatsMux(updater, logger)

	// Watch the queue's redis while the worker runs.
	go monitorRedisConnection(ctx, logger)

	logger.Info("starting stats worker")
	const maxAttempts = 5
	var err error
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = srv.Start(mux); err == nil {
			break
		}
		logger.Warn("failed to start stats worker",
			zap.Int("attempt", attempts), zap.Int("maxAttempts", maxAttempts), zap.Error(err))
		if attempts == maxAttempts {
			return fmt.Errorf("stats worker did not start: %w", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempts*2) * time.Second):
		}
	}

	<-ctx.Done()
	logger.Info("stopping stats worker")
	srv.Shutdown()
	return nil
}

func handleStatsTask(updater StatsIncrementer, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.StatsPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid stats payload", zap.Error(err))
			return fmt.Errorf("invalid stats payload: %v: %w", err, asynq.SkipRetry)
		}
		if p.BuyerID == "" {
			logger.Error("stats payload without buyer", zap.String("bookingId", p.BookingID))
			return fmt.Errorf("stats payload without buyer: %w", asynq.SkipRetry)
		}

		if err := updater.Increment(ctx, p.BuyerID, p.Amount); err != nil {
			if errors.Is(err, profileRepo.ErrNotFound) || errors.Is(err, utils.ErrPriceSyntax) {
				logger.Warn("dropping stats update", zap.String("bookingId", p.BookingID), zap.Error(err))
				return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
			}
			logger.Warn("stats update failed; will retry", zap.String("bookingId", p.BookingID), zap.Error(err))
			return err
		}
		logger.Debug("stats updated", zap.String("bookingId", p.BookingID), zap.String("buyerId", p.BuyerID))
		return nil
	}
}

// monitorRedisConnection pings the queue's Redis periodically to detect failures at runtime.
func monitorRedisConnection(ctx context.Context, logger *zap.Logger) {
	opt := QueueRedisOpt()
	client := redis.NewClient(&redis.Options{Addr: opt.Addr, Password: opt.Password, DB: opt.DB})
	defer client.Close()

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := client.Ping(ctx).Err(); err != nil {
				logger.Warn("queue redis connection lost", zap.Error(err))
			}
		}
	}
}
