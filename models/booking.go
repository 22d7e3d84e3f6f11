package models

import "time"

// PaymentStatus values of a reservation.
const (
	PaymentPending = "pending"
)

// Reservation is a room hold created by the chatbot, awaiting out-of-band payment.
type Reservation struct {
	ID              string        `bson:"_id" json:"id"`                                            // Unique reservation/session identifier (UUID)
	SenderID        string        `bson:"sender_id" json:"sender_id"`                               // Member id or guest id that asked for it
	SenderType      SenderType    `bson:"sender_type" json:"sender_type"`                           // "member" or "guest"
	Guest           *GuestContact `bson:"guest,omitempty" json:"guest,omitempty"`                   // Only for guests
	RoomIDs         []string      `bson:"room_ids" json:"room_ids"`                                 // Underlying rooms held
	RoomTypes       []string      `bson:"room_types" json:"room_types"`                             // Requested types, normalized
	CheckInDate     string        `bson:"check_in" json:"check_in"`                                 // "YYYY-MM-DD", inclusive
	CheckOutDate    string        `bson:"check_out" json:"check_out"`                               // "YYYY-MM-DD", exclusive
	Nights          int           `bson:"nights" json:"nights"`                                     // Whole nights, >= 1
	TotalPrice      float64       `bson:"total_price" json:"total_price"`                           // Sum of nightly rates x nights
	Currency        string        `bson:"currency" json:"currency"`                                 // ISO currency code
	PaymentStatus   string        `bson:"payment_status" json:"payment_status"`                     // "pending" on creation
	PaymentIntentID string        `bson:"payment_intent_id,omitempty" json:"payment_intent_id,omitempty"` // Stripe intent, when enabled
	ConfirmURL      string        `bson:"confirm_url" json:"confirm_url"`                           // Link the client follows to pay
	CreatedAt       time.Time     `bson:"created_at" json:"created_at"`
	ExpiresAt       time.Time     `bson:"expires_at" json:"expires_at"` // End of the pending hold window
}

// GuestContact is the contact bundle a guest must leave with a reservation.
type GuestContact struct {
	ContactName   string `bson:"contact_name" json:"contact_name"`
	ContactEmail  string `bson:"contact_email" json:"contact_email"`
	ContactNumber string `bson:"contact_number" json:"contact_number"`
}

// ReservationRequest is the complete set of booking fields handed to the reservation service.
type ReservationRequest struct {
	SenderID     string
	SenderType   SenderType
	CheckInDate  string
	CheckOutDate string
	RoomTypes    []string
	Guest        *GuestContact
}

// ReservationRequestFrom builds a request out of accumulated dialogue entities.
func ReservationRequestFrom(senderID string, sender SenderType, e BookingEntities) ReservationRequest {
	req := ReservationRequest{
		SenderID:     senderID,
		SenderType:   sender,
		CheckInDate:  e.CheckInDate,
		CheckOutDate: e.CheckOutDate,
		RoomTypes:    NormalizeRoomTypes(e.RoomTypes),
	}
	if sender == SenderGuest {
		req.Guest = &GuestContact{
			ContactName:   e.ContactName,
			ContactEmail:  e.ContactEmail,
			ContactNumber: e.ContactNumber,
		}
	}
	return req
}

// RoomNight marks one room as taken for one night. Its key is unique per (room, night).
type RoomNight struct {
	ID            string `bson:"_id" json:"id"`
	RoomID        string `bson:"room_id" json:"room_id"`
	Night         string `bson:"night" json:"night"` // "YYYY-MM-DD"
	ReservationID string `bson:"reservation_id" json:"reservation_id"`
}

// RoomNightKey is the unique key of a room-night record.
func RoomNightKey(roomID, night string) string {
	return roomID + "|" + night
}

// ReservationExpiryPayload is the task body for releasing an unpaid reservation.
type ReservationExpiryPayload struct {
	ReservationID string `json:"reservationId"`
}
