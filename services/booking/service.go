package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	reservationRepo "harold/database/repository/reservation"
	"harold/models"
	"harold/utils/clock"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type DefaultReservationService struct {
	repo      reservationRepo.Repository
	payments  PaymentProvider
	scheduler ExpiryScheduler
	clock     clock.Clock
	logger    *zap.Logger
	opts      Options
}

// NewReservationService wires the service. payments and scheduler may be nil.
func NewReservationService(
	repo reservationRepo.Repository,
	payments PaymentProvider,
	scheduler ExpiryScheduler,
	clk clock.Clock,
	logger *zap.Logger,
	opts Options,
) *DefaultReservationService {
	if payments == nil {
		payments = NoopPaymentProvider{}
	}
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultReservationService{
		repo:      repo,
		payments:  payments,
		scheduler: scheduler,
		clock:     clk,
		logger:    logger,
		opts:      opts.withDefaults(),
	}
}

type stay struct {
	checkIn  time.Time
	checkOut time.Time
	nights   []string
}

func (s *DefaultReservationService) CreateReservation(ctx context.Context, req models.ReservationRequest) (*models.Reservation, error) {
	st, err := s.validateStay(req)
	if err != nil {
		return nil, err
	}
	roomTypes := models.NormalizeRoomTypes(req.RoomTypes)
	if len(roomTypes) == 0 {
		return nil, missingFields(models.FieldRoomTypes)
	}
	guest, err := validateSender(req)
	if err != nil {
		return nil, err
	}

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		rooms, err := s.selectRooms(ctx, roomTypes, req.CheckInDate, req.CheckOutDate)
		if err != nil {
			return nil, err
		}

		res := s.newReservation(req, guest, roomTypes, rooms, st)
		res.PaymentIntentID, err = s.payments.CreateIntent(ctx, res.ID, res.TotalPrice, res.Currency)
		if err != nil {
			return nil, fmt.Errorf("open payment for reservation: %w", err)
		}

		err = s.repo.InsertReservation(ctx, res, roomNights(res, st.nights))
		if err == nil {
			s.scheduleExpiry(ctx, res)
			s.logger.Info("Reservation created",
				zap.String("reservationId", res.ID),
				zap.String("senderId", res.SenderID),
				zap.Strings("roomIds", res.RoomIDs),
				zap.String("checkIn", res.CheckInDate),
				zap.String("checkOut", res.CheckOutDate),
				zap.Float64("total", res.TotalPrice),
			)
			return res, nil
		}

		s.cancelPayment(res)
		if !errors.Is(err, reservationRepo.ErrRoomNightTaken) {
			return nil, fmt.Errorf("insert reservation: %w", err)
		}
		s.logger.Debug("Lost room race, reselecting",
			zap.Int("attempt", attempt),
			zap.Strings("roomTypes", roomTypes),
		)
	}
	return nil, roomUnavailable(roomTypes)
}

func (s *DefaultReservationService) validateStay(req models.ReservationRequest) (stay, error) {
	var missing []models.Field
	if strings.TrimSpace(req.CheckInDate) == "" {
		missing = append(missing, models.FieldCheckInDate)
	}
	if strings.TrimSpace(req.CheckOutDate) == "" {
		missing = append(missing, models.FieldCheckOutDate)
	}
	if len(missing) > 0 {
		return stay{}, missingFields(missing...)
	}

	checkIn, err := time.Parse(models.DateLayout, req.CheckInDate)
	if err != nil {
		return stay{}, invalidDates("check-in date is not a valid date", models.FieldCheckInDate)
	}
	checkOut, err := time.Parse(models.DateLayout, req.CheckOutDate)
	if err != nil {
		return stay{}, invalidDates("check-out date is not a valid date", models.FieldCheckOutDate)
	}
	if !checkOut.After(checkIn) {
		return stay{}, invalidDates("check-out must be after check-in")
	}
	if req.CheckInDate < clock.Today(s.clock) {
		return stay{}, invalidDates("check-in date is in the past")
	}
	return stay{checkIn: checkIn, checkOut: checkOut, nights: stayNights(checkIn, checkOut)}, nil
}

func validateSender(req models.ReservationRequest) (*models.GuestContact, error) {
	switch req.SenderType {
	case models.SenderMember:
		return nil, nil
	case models.SenderGuest:
		var missing []models.Field
		g := req.Guest
		if g == nil {
			g = &models.GuestContact{}
		}
		if strings.TrimSpace(g.ContactName) == "" {
			missing = append(missing, models.FieldContactName)
		}
		if strings.TrimSpace(g.ContactEmail) == "" {
			missing = append(missing, models.FieldContactEmail)
		}
		if strings.TrimSpace(g.ContactNumber) == "" {
			missing = append(missing, models.FieldContactNumber)
		}
		if len(missing) > 0 {
			return nil, missingFields(missing...)
		}
		return g, nil
	default:
		return nil, &ValidationError{Code: CodeMissingField, Message: fmt.Sprintf("unknown sender type %q", req.SenderType)}
	}
}

// selectRooms picks, per requested type, the lowest-numbered room with no booked
// night in the stay.
func (s *DefaultReservationService) selectRooms(ctx context.Context, roomTypes []string, checkIn, checkOut string) ([]models.Room, error) {
	candidates, err := s.repo.FindRoomsByTypes(ctx, roomTypes)
	if err != nil {
		return nil, fmt.Errorf("find rooms: %w", err)
	}
	byType := make(map[string][]models.Room, len(roomTypes))
	ids := make([]string, 0, len(candidates))
	for _, room := range candidates {
		byType[room.RoomType] = append(byType[room.RoomType], room)
		ids = append(ids, room.ID)
	}

	var unknown []string
	for _, t := range roomTypes {
		if len(byType[t]) == 0 {
			unknown = append(unknown, t)
		}
	}
	if len(unknown) > 0 {
		return nil, unknownRoomTypes(unknown)
	}

	booked, err := s.repo.FindBookedRoomIDs(ctx, ids, checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("check room availability: %w", err)
	}

	selected := make([]models.Room, 0, len(roomTypes))
	var full []string
	for _, t := range roomTypes {
		found := false
		for _, room := range byType[t] {
			if !booked[room.ID] {
				selected = append(selected, room)
				found = true
				break
			}
		}
		if !found {
			full = append(full, t)
		}
	}
	if len(full) > 0 {
		return nil, roomUnavailable(full)
	}
	return selected, nil
}

func (s *DefaultReservationService) newReservation(
	req models.ReservationRequest,
	guest *models.GuestContact,
	roomTypes []string,
	rooms []models.Room,
	st stay,
) *models.Reservation {
	now := s.clock.Now()
	id := uuid.New().String()
	roomIDs := make([]string, len(rooms))
	for i, r := range rooms {
		roomIDs[i] = r.ID
	}
	return &models.Reservation{
		ID:            id,
		SenderID:      req.SenderID,
		SenderType:    req.SenderType,
		Guest:         guest,
		RoomIDs:       roomIDs,
		RoomTypes:     roomTypes,
		CheckInDate:   req.CheckInDate,
		CheckOutDate:  req.CheckOutDate,
		Nights:        len(st.nights),
		TotalPrice:    QuoteStay(rooms, len(st.nights)),
		Currency:      s.opts.Currency,
		PaymentStatus: models.PaymentPending,
		ConfirmURL:    strings.TrimRight(s.opts.ConfirmBaseURL, "/") + "/" + id,
		CreatedAt:     now,
		ExpiresAt:     now.Add(s.opts.PendingHold),
	}
}

func roomNights(res *models.Reservation, nights []string) []models.RoomNight {
	out := make([]models.RoomNight, 0, len(res.RoomIDs)*len(nights))
	for _, roomID := range res.RoomIDs {
		for _, night := range nights {
			out = append(out, models.RoomNight{
				ID:            models.RoomNightKey(roomID, night),
				RoomID:        roomID,
				Night:         night,
				ReservationID: res.ID,
			})
		}
	}
	return out
}

func (s *DefaultReservationService) scheduleExpiry(ctx context.Context, res *models.Reservation) {
	if s.scheduler == nil {
		return
	}
	if err := s.scheduler.ScheduleExpiry(ctx, res.ID, res.ExpiresAt); err != nil {
		// The reservation stands; an operator can release it by hand.
		s.logger.Error("Failed to schedule reservation expiry",
			zap.String("reservationId", res.ID),
			zap.Error(err),
		)
	}
}

func (s *DefaultReservationService) cancelPayment(res *models.Reservation) {
	if res.PaymentIntentID == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.payments.CancelIntent(ctx, res.PaymentIntentID); err != nil {
		s.logger.Warn("Failed to cancel payment intent",
			zap.String("intentId", res.PaymentIntentID),
			zap.Error(err),
		)
	}
}

func (s *DefaultReservationService) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	return s.repo.GetReservation(ctx, id)
}

func (s *DefaultReservationService) ExpirePending(ctx context.Context, id string) (bool, error) {
	res, err := s.repo.GetReservation(ctx, id)
	if errors.Is(err, reservationRepo.ErrReservationNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if res.PaymentStatus != models.PaymentPending || s.clock.Now().Before(res.ExpiresAt) {
		return false, nil
	}
	removed, err := s.repo.DeletePendingReservation(ctx, id)
	if err != nil {
		return false, fmt.Errorf("release reservation %s: %w", id, err)
	}
	if removed {
		s.cancelPayment(res)
		s.logger.Info("Pending reservation expired", zap.String("reservationId", id))
	}
	return removed, nil
}

func (s *DefaultReservationService) ListRoomTypes(ctx context.Context) ([]string, error) {
	return s.repo.ListRoomTypes(ctx)
}
