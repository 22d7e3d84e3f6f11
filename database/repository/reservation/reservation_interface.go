package reservationRepo

import (
	"context"
	"errors"

	"harold/models"
)

var (
	// ErrRoomNightTaken means another reservation already holds one of the room-nights.
	ErrRoomNightTaken = errors.New("room night already reserved")
	// ErrReservationNotFound is returned by lookups for unknown ids.
	ErrReservationNotFound = errors.New("reservation not found")
)

// Repository stores rooms, reservations and the per-night occupancy of rooms.
type Repository interface {
	// ListRoomTypes returns every distinct room type, sorted.
	ListRoomTypes(ctx context.Context) ([]string, error)
	// FindRoomsByTypes returns rooms of the given types ordered by type then room number.
	FindRoomsByTypes(ctx context.Context, roomTypes []string) ([]models.Room, error)
	// FindBookedRoomIDs returns which of roomIDs have at least one night in [checkIn, checkOut) taken.
	FindBookedRoomIDs(ctx context.Context, roomIDs []string, checkIn, checkOut string) (map[string]bool, error)
	// InsertReservation writes the reservation and its room-nights atomically.
	// It returns ErrRoomNightTaken if any room-night already exists.
	InsertReservation(ctx context.Context, res *models.Reservation, nights []models.RoomNight) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	// DeletePendingReservation removes a reservation that is still pending and frees
	// its room-nights. It reports whether anything was removed.
	DeletePendingReservation(ctx context.Context, id string) (bool, error)
}
