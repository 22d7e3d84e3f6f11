package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"harold/models"

	"github.com/hibiken/asynq"
)

const TypeReservationExpire = "reservation:expire"

// NewReservationExpiryTask builds the task that releases an unpaid reservation at fireAt.
func NewReservationExpiryTask(reservationID string, fireAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(models.ReservationExpiryPayload{ReservationID: reservationID})
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeReservationExpire, b)
	opts := []asynq.Option{
		asynq.ProcessAt(fireAt),
		asynq.TaskID("expire:" + reservationID),
		asynq.MaxRetry(5),
	}
	return task, opts, nil
}

// ParseReservationExpiry decodes the task payload.
func ParseReservationExpiry(task *asynq.Task) (models.ReservationExpiryPayload, error) {
	var p models.ReservationExpiryPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid expiry payload: %w", err)
	}
	if p.ReservationID == "" {
		return p, fmt.Errorf("invalid expiry payload: empty reservation id")
	}
	return p, nil
}

// Enqueuer is the slice of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// AsynqExpiryScheduler queues reservation expiry tasks.
type AsynqExpiryScheduler struct {
	client Enqueuer
}

func NewAsynqExpiryScheduler(client Enqueuer) *AsynqExpiryScheduler {
	return &AsynqExpiryScheduler{client: client}
}

func (s *AsynqExpiryScheduler) ScheduleExpiry(ctx context.Context, reservationID string, at time.Time) error {
	task, opts, err := NewReservationExpiryTask(reservationID, at)
	if err != nil {
		return err
	}
	if _, err := s.client.EnqueueContext(ctx, task, opts...); err != nil {
		return fmt.Errorf("enqueue expiry for %s: %w", reservationID, err)
	}
	return nil
}
