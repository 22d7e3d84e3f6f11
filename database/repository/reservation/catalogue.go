package reservationRepo

import "harold/models"

// DefaultRooms is the catalogue seeded into an empty store.
func DefaultRooms() []models.Room {
	return []models.Room{
		{ID: "room-101", RoomNumber: "101", RoomName: "Garden Standard", RoomType: "standard room", PricePerNight: 180},
		{ID: "room-102", RoomNumber: "102", RoomName: "Garden Standard", RoomType: "standard room", PricePerNight: 180},
		{ID: "room-103", RoomNumber: "103", RoomName: "Garden Standard", RoomType: "standard room", PricePerNight: 180},
		{ID: "room-201", RoomNumber: "201", RoomName: "City Deluxe", RoomType: "deluxe room", PricePerNight: 260},
		{ID: "room-202", RoomNumber: "202", RoomName: "City Deluxe", RoomType: "deluxe room", PricePerNight: 260},
		{ID: "room-301", RoomNumber: "301", RoomName: "Twin Executive", RoomType: "executive room", PricePerNight: 320},
		{ID: "room-401", RoomNumber: "401", RoomName: "Family Suite", RoomType: "family suite", PricePerNight: 450},
		{ID: "room-501", RoomNumber: "501", RoomName: "Harold Suite", RoomType: "suite", PricePerNight: 600},
	}
}
