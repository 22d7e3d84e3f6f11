package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	reservationRepo "harold/database/repository/reservation"
	"harold/models"
	"harold/utils/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var today = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) CreateIntent(ctx context.Context, reservationID string, amount float64, currency string) (string, error) {
	args := m.Called(ctx, reservationID, amount, currency)
	return args.String(0), args.Error(1)
}

func (m *mockPayments) CancelIntent(ctx context.Context, intentID string) error {
	return m.Called(ctx, intentID).Error(0)
}

type recordingScheduler struct {
	mu    sync.Mutex
	calls map[string]time.Time
}

func (r *recordingScheduler) ScheduleExpiry(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.calls == nil {
		r.calls = make(map[string]time.Time)
	}
	r.calls[id] = at
	return nil
}

type failingInsertRepo struct {
	*reservationRepo.MemoryReservationRepo
	err error
}

func (f failingInsertRepo) InsertReservation(context.Context, *models.Reservation, []models.RoomNight) error {
	return f.err
}

func newTestService(repo reservationRepo.Repository, payments PaymentProvider, sched ExpiryScheduler) *DefaultReservationService {
	return NewReservationService(repo, payments, sched, clock.NewFixed(today), zap.NewNop(), Options{
		Currency:       "myr",
		ConfirmBaseURL: "http://localhost:3000/booking/confirm/",
	})
}

func memberRequest(in, out string, types ...string) models.ReservationRequest {
	return models.ReservationRequest{
		SenderID:     "member-1",
		SenderType:   models.SenderMember,
		CheckInDate:  in,
		CheckOutDate: out,
		RoomTypes:    types,
	}
}

func TestCreateReservation_Member(t *testing.T) {
	repo := reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms())
	sched := &recordingScheduler{}
	svc := newTestService(repo, nil, sched)

	res, err := svc.CreateReservation(context.Background(), memberRequest("2025-06-10", "2025-06-12", "Deluxe  Room"))
	require.NoError(t, err)

	assert.Equal(t, []string{"deluxe room"}, res.RoomTypes)
	assert.Equal(t, []string{"room-201"}, res.RoomIDs)
	assert.Equal(t, 2, res.Nights)
	assert.InDelta(t, 520.0, res.TotalPrice, 0.001)
	assert.Equal(t, models.PaymentPending, res.PaymentStatus)
	assert.Equal(t, "http://localhost:3000/booking/confirm/"+res.ID, res.ConfirmURL)
	assert.Equal(t, today.Add(30*time.Minute), res.ExpiresAt)
	assert.Nil(t, res.Guest)
	assert.Equal(t, res.ExpiresAt, sched.calls[res.ID])

	stored, err := repo.GetReservation(context.Background(), res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.RoomIDs, stored.RoomIDs)
}

func TestCreateReservation_GuestNeedsContact(t *testing.T) {
	svc := newTestService(reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms()), nil, nil)

	req := memberRequest("2025-06-10", "2025-06-12", "suite")
	req.SenderType = models.SenderGuest
	req.Guest = &models.GuestContact{ContactName: "Alice Tan"}

	_, err := svc.CreateReservation(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, CodeMissingField, CodeOf(err))
	assert.Equal(t, []models.Field{models.FieldContactEmail, models.FieldContactNumber}, FieldsOf(err))
}

func TestCreateReservation_InvalidDates(t *testing.T) {
	svc := newTestService(reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms()), nil, nil)
	ctx := context.Background()

	cases := map[string]models.ReservationRequest{
		"checkout before checkin": memberRequest("2025-06-12", "2025-06-10", "suite"),
		"same day":                memberRequest("2025-06-12", "2025-06-12", "suite"),
		"in the past":             memberRequest("2025-05-20", "2025-05-22", "suite"),
		"not a date":              memberRequest("next friday", "2025-06-22", "suite"),
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateReservation(ctx, req)
			assert.Equal(t, CodeInvalidDateRange, CodeOf(err))
		})
	}
}

func TestCreateReservation_CheckInTodayAllowed(t *testing.T) {
	svc := newTestService(reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms()), nil, nil)
	_, err := svc.CreateReservation(context.Background(), memberRequest("2025-06-01", "2025-06-02", "suite"))
	assert.NoError(t, err)
}

func TestCreateReservation_UnknownRoomType(t *testing.T) {
	svc := newTestService(reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms()), nil, nil)

	_, err := svc.CreateReservation(context.Background(), memberRequest("2025-06-10", "2025-06-12", "suite", "penthouse"))
	require.Error(t, err)
	assert.Equal(t, CodeUnknownRoomType, CodeOf(err))

	_, err = svc.CreateReservation(context.Background(), memberRequest("2025-06-10", "2025-06-12"))
	assert.Equal(t, CodeMissingField, CodeOf(err))
}

func TestCreateReservation_NoDoubleBooking(t *testing.T) {
	repo := reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms())
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()

	_, err := svc.CreateReservation(ctx, memberRequest("2025-06-10", "2025-06-13", "suite"))
	require.NoError(t, err)

	_, err = svc.CreateReservation(ctx, memberRequest("2025-06-12", "2025-06-14", "suite"))
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, CodeRoomUnavailable, conflict.Code)

	// Back-to-back stays share no night.
	_, err = svc.CreateReservation(ctx, memberRequest("2025-06-13", "2025-06-15", "suite"))
	assert.NoError(t, err)

	// Standard rooms fill one by one.
	for i := 0; i < 3; i++ {
		_, err := svc.CreateReservation(ctx, memberRequest("2025-07-01", "2025-07-02", "standard room"))
		require.NoError(t, err)
	}
	_, err = svc.CreateReservation(ctx, memberRequest("2025-07-01", "2025-07-02", "standard room"))
	assert.Equal(t, CodeRoomUnavailable, CodeOf(err))
}

func TestCreateReservation_ConcurrentLastSuite(t *testing.T) {
	repo := reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms())
	svc := newTestService(repo, nil, nil)

	const callers = 8
	var wg sync.WaitGroup
	results := make([]error, callers)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = svc.CreateReservation(context.Background(), memberRequest("2025-06-20", "2025-06-22", "suite"))
		}(i)
	}
	close(start)
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.Equal(t, CodeRoomUnavailable, CodeOf(err))
	}
	assert.Equal(t, 1, successes)
	assert.Len(t, repo.Reservations(), 1)
}

func TestCreateReservation_PaymentCanceledWhenInsertFails(t *testing.T) {
	repo := failingInsertRepo{
		MemoryReservationRepo: reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms()),
		err:                   errors.New("disk full"),
	}
	payments := &mockPayments{}
	payments.On("CreateIntent", mock.Anything, mock.Anything, 1200.0, "myr").Return("pi_123", nil).Once()
	payments.On("CancelIntent", mock.Anything, "pi_123").Return(nil).Once()

	svc := newTestService(repo, payments, nil)
	_, err := svc.CreateReservation(context.Background(), memberRequest("2025-06-10", "2025-06-12", "suite"))
	require.Error(t, err)
	assert.Equal(t, ErrorCode(""), CodeOf(err))
	payments.AssertExpectations(t)
}

func TestCreateReservation_RetriesThenGivesUp(t *testing.T) {
	repo := failingInsertRepo{
		MemoryReservationRepo: reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms()),
		err:                   reservationRepo.ErrRoomNightTaken,
	}
	svc := newTestService(repo, nil, nil)

	_, err := svc.CreateReservation(context.Background(), memberRequest("2025-06-10", "2025-06-12", "suite"))
	assert.Equal(t, CodeRoomUnavailable, CodeOf(err))
}

func TestExpirePending(t *testing.T) {
	repo := reservationRepo.NewMemoryReservationRepo(reservationRepo.DefaultRooms())
	svc := newTestService(repo, nil, nil)
	ctx := context.Background()

	res, err := svc.CreateReservation(ctx, memberRequest("2025-06-10", "2025-06-12", "suite"))
	require.NoError(t, err)

	removed, err := svc.ExpirePending(ctx, res.ID)
	require.NoError(t, err)
	assert.False(t, removed, "hold window has not elapsed")

	later := NewReservationService(repo, nil, nil, clock.NewFixed(today.Add(31*time.Minute)), zap.NewNop(), Options{})
	removed, err = later.ExpirePending(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = later.CreateReservation(ctx, memberRequest("2025-06-10", "2025-06-12", "suite"))
	assert.NoError(t, err, "expired hold frees the suite")

	removed, err = later.ExpirePending(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestQuoteStay(t *testing.T) {
	rooms := []models.Room{{PricePerNight: 99.99}, {PricePerNight: 150}}
	assert.InDelta(t, 749.97, QuoteStay(rooms, 3), 0.0001)
	assert.Equal(t, []string{"2025-02-27", "2025-02-28", "2025-03-01"},
		stayNights(time.Date(2025, 2, 27, 0, 0, 0, 0, time.UTC), time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)))
}
