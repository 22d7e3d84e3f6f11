package booking

import (
	"context"
	"time"

	"harold/models"
)

// ReservationService turns completed booking dialogues into held rooms.
type ReservationService interface {
	CreateReservation(ctx context.Context, req models.ReservationRequest) (*models.Reservation, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	// ExpirePending releases a reservation still unpaid after its hold window.
	ExpirePending(ctx context.Context, id string) (bool, error)
	ListRoomTypes(ctx context.Context) ([]string, error)
}

// ExpiryScheduler arranges for ExpirePending to run at the given time.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, reservationID string, at time.Time) error
}

// Options tune a reservation service. Zero values fall back to defaults.
type Options struct {
	Currency       string
	ConfirmBaseURL string
	PendingHold    time.Duration
	// MaxAttempts bounds re-selection after losing a race for a room.
	MaxAttempts int
}

func (o Options) withDefaults() Options {
	if o.Currency == "" {
		o.Currency = "myr"
	}
	if o.ConfirmBaseURL == "" {
		o.ConfirmBaseURL = "http://localhost:3000/booking/confirm"
	}
	if o.PendingHold <= 0 {
		o.PendingHold = 30 * time.Minute
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	return o
}
