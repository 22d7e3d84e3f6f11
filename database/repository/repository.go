package repository

import (
	faqRepo "harold/database/repository/faq"
	reservationRepo "harold/database/repository/reservation"
)

// Re-export the reservation Repository interface and constructors.
type ReservationRepository = reservationRepo.Repository

var (
	NewMongoReservationRepo    = reservationRepo.NewMongoReservationRepo
	NewPostgresReservationRepo = reservationRepo.NewPostgresReservationRepo
	NewMemoryReservationRepo   = reservationRepo.NewMemoryReservationRepo
)

// Re-export the FAQRepository interface and constructor.
type FAQRepository = faqRepo.FAQRepository

var NewMongoFAQRepo = faqRepo.NewMongoFAQRepo
