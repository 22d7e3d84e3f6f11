package reservationRepo

import (
	"context"
	"errors"
	"fmt"

	"harold/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresReservationRepo is the relational twin of MongoReservationRepo.
// The (room_id, night) primary key of room_nights prevents double booking.
type PostgresReservationRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresReservationRepo(pool *pgxpool.Pool) *PostgresReservationRepo {
	return &PostgresReservationRepo{pool: pool}
}

func (r *PostgresReservationRepo) ListRoomTypes(ctx context.Context) ([]string, error) {
	const query = `SELECT DISTINCT room_type FROM rooms ORDER BY room_type`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list room types: %w", err)
	}
	types, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan room types: %w", err)
	}
	return types, nil
}

func (r *PostgresReservationRepo) FindRoomsByTypes(ctx context.Context, roomTypes []string) ([]models.Room, error) {
	if len(roomTypes) == 0 {
		return nil, nil
	}
	const query = `
SELECT id, room_number, room_name, room_type, price_per_night
FROM rooms
WHERE room_type = ANY($1)
ORDER BY room_type, room_number`
	rows, err := r.pool.Query(ctx, query, roomTypes)
	if err != nil {
		return nil, fmt.Errorf("find rooms: %w", err)
	}
	defer rows.Close()

	var rooms []models.Room
	for rows.Next() {
		var room models.Room
		if err := rows.Scan(&room.ID, &room.RoomNumber, &room.RoomName, &room.RoomType, &room.PricePerNight); err != nil {
			return nil, fmt.Errorf("scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate rooms: %w", rows.Err())
	}
	return rooms, nil
}

func (r *PostgresReservationRepo) FindBookedRoomIDs(ctx context.Context, roomIDs []string, checkIn, checkOut string) (map[string]bool, error) {
	booked := make(map[string]bool)
	if len(roomIDs) == 0 {
		return booked, nil
	}
	const query = `
SELECT DISTINCT room_id
FROM room_nights
WHERE room_id = ANY($1)
  AND night >= $2::text::date
  AND night < $3::text::date`
	rows, err := r.pool.Query(ctx, query, roomIDs, checkIn, checkOut)
	if err != nil {
		return nil, fmt.Errorf("find booked nights: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("scan booked nights: %w", err)
	}
	for _, id := range ids {
		booked[id] = true
	}
	return booked, nil
}

func (r *PostgresReservationRepo) InsertReservation(ctx context.Context, res *models.Reservation, nights []models.RoomNight) error {
	return withTx(ctx, r.pool, func(ctx context.Context) error {
		tx := txFromContext(ctx)

		const insertReservation = `
INSERT INTO reservations (
	id, sender_id, sender_type, contact_name, contact_email, contact_number,
	room_ids, room_types, check_in, check_out, nights, total_price, currency,
	payment_status, payment_intent_id, confirm_url, created_at, expires_at
) VALUES (
	$1, $2, $3, $4, $5, $6,
	$7, $8, $9::text::date, $10::text::date, $11, $12, $13,
	$14, NULLIF($15, ''), $16, $17, $18
)`
		var name, email, number *string
		if res.Guest != nil {
			name, email, number = &res.Guest.ContactName, &res.Guest.ContactEmail, &res.Guest.ContactNumber
		}
		_, err := tx.Exec(ctx, insertReservation,
			res.ID, res.SenderID, string(res.SenderType), name, email, number,
			res.RoomIDs, res.RoomTypes, res.CheckInDate, res.CheckOutDate, res.Nights, res.TotalPrice, res.Currency,
			res.PaymentStatus, res.PaymentIntentID, res.ConfirmURL, res.CreatedAt, res.ExpiresAt,
		)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}

		const insertNight = `INSERT INTO room_nights (room_id, night, reservation_id) VALUES ($1, $2::text::date, $3)`
		for _, n := range nights {
			if _, err := tx.Exec(ctx, insertNight, n.RoomID, n.Night, n.ReservationID); err != nil {
				if isUniqueViolation(err) {
					return ErrRoomNightTaken
				}
				return fmt.Errorf("insert room night: %w", err)
			}
		}
		return nil
	})
}

func (r *PostgresReservationRepo) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	const query = `
SELECT id, sender_id, sender_type, contact_name, contact_email, contact_number,
	room_ids, room_types, check_in::text, check_out::text, nights, total_price, currency,
	payment_status, COALESCE(payment_intent_id, ''), confirm_url, created_at, expires_at
FROM reservations
WHERE id = $1`

	var res models.Reservation
	var senderType string
	var name, email, number *string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&res.ID, &res.SenderID, &senderType, &name, &email, &number,
		&res.RoomIDs, &res.RoomTypes, &res.CheckInDate, &res.CheckOutDate, &res.Nights, &res.TotalPrice, &res.Currency,
		&res.PaymentStatus, &res.PaymentIntentID, &res.ConfirmURL, &res.CreatedAt, &res.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrReservationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get reservation: %w", err)
	}
	res.SenderType = models.SenderType(senderType)
	if name != nil {
		res.Guest = &models.GuestContact{ContactName: *name, ContactEmail: deref(email), ContactNumber: deref(number)}
	}
	return &res, nil
}

func (r *PostgresReservationRepo) DeletePendingReservation(ctx context.Context, id string) (bool, error) {
	// room_nights rows go with the reservation through ON DELETE CASCADE.
	const stmt = `DELETE FROM reservations WHERE id = $1 AND payment_status = $2`
	tag, err := r.pool.Exec(ctx, stmt, id, models.PaymentPending)
	if err != nil {
		return false, fmt.Errorf("delete reservation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// SeedRooms inserts the catalogue rows that do not exist yet.
func (r *PostgresReservationRepo) SeedRooms(ctx context.Context, rooms []models.Room) error {
	const stmt = `
INSERT INTO rooms (id, room_number, room_name, room_type, price_per_night)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO NOTHING`
	return withTx(ctx, r.pool, func(ctx context.Context) error {
		tx := txFromContext(ctx)
		for _, room := range rooms {
			if _, err := tx.Exec(ctx, stmt, room.ID, room.RoomNumber, room.RoomName, room.RoomType, room.PricePerNight); err != nil {
				return fmt.Errorf("seed room %s: %w", room.ID, err)
			}
		}
		return nil
	})
}

type txKey struct{}

func withTx(ctx context.Context, pool *pgxpool.Pool, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	txCtx := context.WithValue(ctx, txKey{}, tx)
	if err := fn(txCtx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func txFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(txKey{}).(pgx.Tx)
	return tx
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
