package ai

import (
	"testing"
	"time"

	"harold/models"

	"github.com/stretchr/testify/assert"
)

func TestConfirmationText_UsesHoldWindow(t *testing.T) {
	created := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	cases := []struct {
		hold time.Duration
		want string
	}{
		{30 * time.Minute, "within 30 minutes"},
		{1 * time.Minute, "within 1 minute"},
		{2 * time.Hour, "within 2 hours"},
		{90 * time.Minute, "within 90 minutes"},
		{0, "soon"},
	}
	for _, tc := range cases {
		t.Run(tc.want, func(t *testing.T) {
			res := &models.Reservation{
				RoomTypes:    []string{"deluxe room"},
				CheckInDate:  "2025-06-10",
				CheckOutDate: "2025-06-12",
				Nights:       2,
				Currency:     "myr",
				CreatedAt:    created,
				ExpiresAt:    created.Add(tc.hold),
			}
			assert.Contains(t, confirmationText(res), "payment "+tc.want+" to confirm")
		})
	}
}
