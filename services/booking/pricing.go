package booking

import (
	"math"
	"time"

	"harold/models"
)

// QuoteStay returns the total for holding rooms for the given number of nights.
func QuoteStay(rooms []models.Room, nights int) float64 {
	total := 0.0
	for _, r := range rooms {
		total += r.PricePerNight * float64(nights)
	}
	return math.Round(total*100) / 100
}

// stayNights lists every night of [checkIn, checkOut) as YYYY-MM-DD.
func stayNights(checkIn, checkOut time.Time) []string {
	var nights []string
	for d := checkIn; d.Before(checkOut); d = d.AddDate(0, 0, 1) {
		nights = append(nights, d.Format(models.DateLayout))
	}
	return nights
}
