package ai

import (
	"context"
	"errors"
	"testing"
	"time"

	"harold/models"
	"harold/utils/clock"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

var testToday = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type staticRooms []string

func (s staticRooms) ListRoomTypes(context.Context) ([]string, error) { return s, nil }

type mockStructured struct {
	mock.Mock
}

func (m *mockStructured) ExtractStructured(ctx context.Context, text string) (map[string]any, error) {
	args := m.Called(ctx, text)
	fields, _ := args.Get(0).(map[string]any)
	return fields, args.Error(1)
}

func newTestExtractor(fallback StructuredExtractor) *Extractor {
	return NewExtractor(staticRooms{"standard room", "deluxe room", "executive room", "family suite", "suite"}, fallback, clock.NewFixed(testToday), nil)
}

func TestExtract_OneShotGuestSentence(t *testing.T) {
	x := newTestExtractor(nil)

	got := x.Extract(context.Background(),
		"I want to book a deluxe room from 2025-06-10 to 2025-06-12. My name is John Tan, email john@example.com, phone 012-345 6789",
		models.SenderGuest, models.FieldNone)

	assert.Equal(t, models.BookingEntities{
		CheckInDate:   "2025-06-10",
		CheckOutDate:  "2025-06-12",
		RoomTypes:     []string{"deluxe room"},
		ContactName:   "John Tan",
		ContactEmail:  "john@example.com",
		ContactNumber: "012-345 6789",
	}, got)
	assert.Empty(t, got.Missing(models.SenderGuest))
}

func TestExtract_MemberGetsNoContactFields(t *testing.T) {
	x := newTestExtractor(nil)

	got := x.Extract(context.Background(), "My name is John Tan, email john@example.com", models.SenderMember, models.FieldNone)

	assert.Empty(t, got.ContactName)
	assert.Empty(t, got.ContactEmail)
	assert.Empty(t, got.ContactNumber)
}

func TestExtract_SingleDateFollowsPrompt(t *testing.T) {
	x := newTestExtractor(nil)
	ctx := context.Background()

	asIn := x.Extract(ctx, "2025-06-12", models.SenderMember, models.FieldNone)
	assert.Equal(t, "2025-06-12", asIn.CheckInDate)
	assert.Empty(t, asIn.CheckOutDate)

	asOut := x.Extract(ctx, "2025-06-12 please", models.SenderMember, models.FieldCheckOutDate)
	assert.Empty(t, asOut.CheckInDate)
	assert.Equal(t, "2025-06-12", asOut.CheckOutDate)
}

func TestExtract_DateForms(t *testing.T) {
	x := newTestExtractor(nil)
	tests := []struct {
		text string
		want string
	}{
		{"10/06/2025", "2025-06-10"},
		{"10-6-2025", "2025-06-10"},
		{"the 10th of June 2025", "2025-06-10"},
		{"June 10, 2025", "2025-06-10"},
		{"tomorrow", "2025-06-02"},
		{"day after tomorrow", "2025-06-03"},
		{"2025-02-30", "2025-02-30"},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := x.Extract(context.Background(), tt.text, models.SenderMember, models.FieldCheckInDate)
			assert.Equal(t, tt.want, got.CheckInDate)
		})
	}
}

func TestExtract_InvalidDayIsNotPresent(t *testing.T) {
	x := newTestExtractor(nil)

	got := x.Extract(context.Background(), "from 2025-02-30 to 2025-03-02", models.SenderMember, models.FieldNone)

	assert.Equal(t, "2025-02-30", got.CheckInDate)
	assert.False(t, got.Has(models.FieldCheckInDate))
	assert.True(t, got.Has(models.FieldCheckOutDate))
}

func TestExtract_RoomTypesLongestPhraseInTextOrder(t *testing.T) {
	x := newTestExtractor(nil)

	got := x.Extract(context.Background(), "A Suite and two family suites, plus a standard room", models.SenderMember, models.FieldNone)

	assert.Equal(t, []string{"suite", "family suite", "standard room"}, got.RoomTypes)
}

func TestExtract_Names(t *testing.T) {
	x := newTestExtractor(nil)
	ctx := context.Background()
	tests := []struct {
		name      string
		text      string
		expecting models.Field
		want      string
	}{
		{"cue phrase", "hello, my name is Siti Aminah and I need a room", models.FieldNone, "Siti Aminah"},
		{"strict cue skips lowercase", "i am looking for a room", models.FieldNone, ""},
		{"capitalized cue", "I'm Ahmad Faiz", models.FieldNone, "Ahmad Faiz"},
		{"bare reply when asked", "Jane Doe", models.FieldContactName, "Jane Doe"},
		{"bare reply when not asked", "Jane Doe", models.FieldNone, ""},
		{"capital pair when asked", "Sure, it's Jane Doe.", models.FieldContactName, "Jane Doe"},
		{"room type is not a name", "Family Suite", models.FieldContactName, ""},
		{"confirmation is not a name", "yes", models.FieldContactName, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := x.Extract(ctx, tt.text, models.SenderGuest, tt.expecting)
			assert.Equal(t, tt.want, got.ContactName)
		})
	}
}

func TestExtract_PhoneNotTakenFromDates(t *testing.T) {
	x := newTestExtractor(nil)

	got := x.Extract(context.Background(), "checking in 10/06/2025, call me on +1 555-123-4567", models.SenderGuest, models.FieldNone)

	assert.Equal(t, "2025-06-10", got.CheckInDate)
	assert.Equal(t, "+1 555-123-4567", got.ContactNumber)
}

func TestExtract_FallbackFillsGapsAndIgnoresBadShapes(t *testing.T) {
	fb := new(mockStructured)
	fb.On("ExtractStructured", mock.Anything, "somewhere mid june, the big one").Return(map[string]any{
		"checkInDate":  "10 June 2025",
		"checkOutDate": 42,
		"roomTypes":    []any{"Deluxe Room", "castle", 7},
		"contactEmail": "not an email",
	}, nil)
	x := newTestExtractor(fb)

	got := x.Extract(context.Background(), "somewhere mid june, the big one", models.SenderGuest, models.FieldNone)

	assert.Equal(t, "2025-06-10", got.CheckInDate)
	assert.Empty(t, got.CheckOutDate)
	assert.Equal(t, []string{"deluxe room"}, got.RoomTypes)
	assert.Empty(t, got.ContactEmail)
	fb.AssertExpectations(t)
}

func TestExtract_FallbackErrorIsTolerated(t *testing.T) {
	fb := new(mockStructured)
	fb.On("ExtractStructured", mock.Anything, mock.Anything).Return(nil, errors.New("quota exceeded"))
	x := newTestExtractor(fb)

	got := x.Extract(context.Background(), "something vague", models.SenderMember, models.FieldNone)

	assert.True(t, got.Empty())
}

func TestExtract_FallbackSkippedWhenPatternsSuffice(t *testing.T) {
	fb := new(mockStructured)
	x := newTestExtractor(fb)

	got := x.Extract(context.Background(), "a suite from 2025-06-10 to 2025-06-12", models.SenderMember, models.FieldNone)

	assert.Equal(t, []string{"suite"}, got.RoomTypes)
	fb.AssertNotCalled(t, "ExtractStructured", mock.Anything, mock.Anything)
}

func TestNormalizeDate(t *testing.T) {
	assert.Equal(t, "2025-06-10", NormalizeDate("2025-06-10", testToday))
	assert.Equal(t, "2025-06-10", NormalizeDate(" 10/06/2025 ", testToday))
	assert.Equal(t, "2025-06-10", NormalizeDate("Jun 10, 2025", testToday))
	assert.Equal(t, "2025-06-02", NormalizeDate("tomorrow", testToday))
	assert.Equal(t, "next week", NormalizeDate("next week", testToday))
	assert.Empty(t, NormalizeDate("  ", testToday))
}
