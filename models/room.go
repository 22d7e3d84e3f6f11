package models

// Room is a bookable unit of a given type.
type Room struct {
	ID            string  `bson:"_id" json:"id"`
	RoomNumber    string  `bson:"room_number" json:"room_number"`
	RoomName      string  `bson:"room_name" json:"room_name"`
	RoomType      string  `bson:"room_type" json:"room_type"` // lower-case, e.g. "deluxe room"
	PricePerNight float64 `bson:"price_per_night" json:"price_per_night"`
}
