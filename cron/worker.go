package cron

import (
	"context"
	"time"

	"harold/services/booking"
	"harold/services/tasks"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// ExpiryWorker consumes reservation expiry tasks.
type ExpiryWorker struct {
	srv    *asynq.Server
	mux    *asynq.ServeMux
	logger *zap.Logger
}

// NewExpiryWorker builds the asynq server; call Start to run it.
func NewExpiryWorker(redisOpts asynq.RedisClientOpt, reservations booking.ReservationService, logger *zap.Logger) *ExpiryWorker {
	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeReservationExpire, HandleReservationExpiry(reservations, logger))

	return &ExpiryWorker{srv: srv, mux: mux, logger: logger}
}

// Start runs the worker in the background, retrying startup with backoff.
func (w *ExpiryWorker) Start() {
	go func() {
		w.logger.Info("Starting reservation expiry worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			err := w.srv.Run(w.mux)
			if err == nil {
				return
			}
			w.logger.Error("Expiry worker failed to start",
				zap.Int("attempt", attempts),
				zap.Int("maxAttempts", maxAttempts),
				zap.Error(err),
			)
			if attempts == maxAttempts {
				w.logger.Fatal("Expiry worker: max retry attempts reached")
			}
			time.Sleep(time.Duration(attempts*2) * time.Second)
		}
	}()
}

// Shutdown stops pulling tasks and waits for running handlers.
func (w *ExpiryWorker) Shutdown() {
	w.srv.Shutdown()
}

// HandleReservationExpiry releases the reservation named in the task.
func HandleReservationExpiry(reservations booking.ReservationService, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		p, err := tasks.ParseReservationExpiry(task)
		if err != nil {
			logger.Warn("Dropping malformed expiry task", zap.Error(err))
			return asynq.SkipRetry
		}

		removed, err := reservations.ExpirePending(ctx, p.ReservationID)
		if err != nil {
			logger.Error("Failed to expire reservation",
				zap.String("reservationId", p.ReservationID),
				zap.Error(err),
			)
			return err
		}
		logger.Debug("Expiry task handled",
			zap.String("reservationId", p.ReservationID),
			zap.Bool("released", removed),
		)
		return nil
	}
}
