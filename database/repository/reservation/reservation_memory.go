package reservationRepo

import (
	"context"
	"sort"
	"sync"

	"harold/models"
)

// MemoryReservationRepo is a process-local Repository for development and tests.
type MemoryReservationRepo struct {
	mu           sync.Mutex
	rooms        []models.Room
	reservations map[string]models.Reservation
	nights       map[string]models.RoomNight
}

func NewMemoryReservationRepo(rooms []models.Room) *MemoryReservationRepo {
	sorted := append([]models.Room(nil), rooms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].RoomType != sorted[j].RoomType {
			return sorted[i].RoomType < sorted[j].RoomType
		}
		return sorted[i].RoomNumber < sorted[j].RoomNumber
	})
	return &MemoryReservationRepo{
		rooms:        sorted,
		reservations: make(map[string]models.Reservation),
		nights:       make(map[string]models.RoomNight),
	}
}

func (m *MemoryReservationRepo) ListRoomTypes(_ context.Context) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	seen := make(map[string]bool)
	var types []string
	for _, room := range m.rooms {
		if !seen[room.RoomType] {
			seen[room.RoomType] = true
			types = append(types, room.RoomType)
		}
	}
	sort.Strings(types)
	return types, nil
}

func (m *MemoryReservationRepo) FindRoomsByTypes(_ context.Context, roomTypes []string) ([]models.Room, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(roomTypes))
	for _, t := range roomTypes {
		wanted[t] = true
	}
	var rooms []models.Room
	for _, room := range m.rooms {
		if wanted[room.RoomType] {
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

func (m *MemoryReservationRepo) FindBookedRoomIDs(_ context.Context, roomIDs []string, checkIn, checkOut string) (map[string]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	wanted := make(map[string]bool, len(roomIDs))
	for _, id := range roomIDs {
		wanted[id] = true
	}
	booked := make(map[string]bool)
	for _, n := range m.nights {
		if wanted[n.RoomID] && n.Night >= checkIn && n.Night < checkOut {
			booked[n.RoomID] = true
		}
	}
	return booked, nil
}

func (m *MemoryReservationRepo) InsertReservation(_ context.Context, res *models.Reservation, nights []models.RoomNight) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, n := range nights {
		if _, taken := m.nights[n.ID]; taken {
			return ErrRoomNightTaken
		}
	}
	for _, n := range nights {
		m.nights[n.ID] = n
	}
	m.reservations[res.ID] = *res
	return nil
}

func (m *MemoryReservationRepo) GetReservation(_ context.Context, id string) (*models.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	return &res, nil
}

func (m *MemoryReservationRepo) DeletePendingReservation(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	res, ok := m.reservations[id]
	if !ok || res.PaymentStatus != models.PaymentPending {
		return false, nil
	}
	delete(m.reservations, id)
	for key, n := range m.nights {
		if n.ReservationID == id {
			delete(m.nights, key)
		}
	}
	return true, nil
}

// Reservations returns a snapshot of stored reservations.
func (m *MemoryReservationRepo) Reservations() []models.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]models.Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		out = append(out, r)
	}
	return out
}
