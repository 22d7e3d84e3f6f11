package cron

import (
	"context"
	"testing"
	"time"

	reservationRepo "harold/database/repository/reservation"
	"harold/models"
	"harold/services/booking"
	"harold/services/tasks"
	"harold/utils/clock"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleReservationExpiry(t *testing.T) {
	repo := reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms())
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	svc := booking.NewReservationService(repo, nil, nil, clock.NewFixed(created), zap.NewNop(), booking.Options{})

	res, err := svc.CreateReservation(context.Background(), models.ReservationRequest{
		SenderID: "m1", SenderType: models.SenderMember,
		CheckInDate: "2025-06-10", CheckOutDate: "2025-06-11", RoomTypes: []string{"suite"},
	})
	require.NoError(t, err)

	later := booking.NewReservationService(repo, nil, nil, clock.NewFixed(created.Add(time.Hour)), zap.NewNop(), booking.Options{})
	task, _, err := tasks.NewReservationExpiryTask(res.ID, res.ExpiresAt)
	require.NoError(t, err)

	require.NoError(t, HandleReservationExpiry(later, zap.NewNop())(context.Background(), task))
	assert.Empty(t, repo.Reservations())
}

func TestHandleReservationExpiry_MalformedSkipsRetry(t *testing.T) {
	repo := reservationRepo.NewMemoryReservationRepo(nil)
	svc := booking.NewReservationService(repo, nil, nil, nil, zap.NewNop(), booking.Options{})

	err := HandleReservationExpiry(svc, zap.NewNop())(context.Background(), asynq.NewTask(tasks.TypeReservationExpire, []byte("nope")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
