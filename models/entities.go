package models

import (
	"strings"
	"time"
)

// Field names one slot of the booking dialogue.
type Field int

const (
	// FieldNone means no particular field is being asked for.
	FieldNone Field = -1

	FieldCheckInDate Field = iota - 1
	FieldCheckOutDate
	FieldRoomTypes
	FieldContactName
	FieldContactEmail
	FieldContactNumber
)

// DateLayout is the canonical calendar-date form used across the system.
const DateLayout = "2006-01-02"

var fieldKeys = [...]string{
	FieldCheckInDate:   "checkInDate",
	FieldCheckOutDate:  "checkOutDate",
	FieldRoomTypes:     "roomTypes",
	FieldContactName:   "contactName",
	FieldContactEmail:  "contactEmail",
	FieldContactNumber: "contactNumber",
}

// Key returns the storage/wire name of the field.
func (f Field) Key() string {
	if int(f) < 0 || int(f) >= len(fieldKeys) {
		return ""
	}
	return fieldKeys[f]
}

func (f Field) String() string { return f.Key() }

// FieldByKey is the inverse of Key.
func FieldByKey(key string) (Field, bool) {
	for i, k := range fieldKeys {
		if k == key {
			return Field(i), true
		}
	}
	return 0, false
}

var (
	memberFields = []Field{FieldCheckInDate, FieldCheckOutDate, FieldRoomTypes}
	guestFields  = []Field{FieldCheckInDate, FieldCheckOutDate, FieldRoomTypes, FieldContactName, FieldContactEmail, FieldContactNumber}
)

// RequiredFields returns the declared collection order for a sender type.
func RequiredFields(sender SenderType) []Field {
	if sender == SenderMember {
		return memberFields
	}
	return guestFields
}

// BookingEntities accumulates booking slots across the turns of one conversation.
type BookingEntities struct {
	CheckInDate   string   `json:"checkInDate,omitempty"`
	CheckOutDate  string   `json:"checkOutDate,omitempty"`
	RoomTypes     []string `json:"roomTypes,omitempty"`
	ContactName   string   `json:"contactName,omitempty"`
	ContactEmail  string   `json:"contactEmail,omitempty"`
	ContactNumber string   `json:"contactNumber,omitempty"`
}

// Value returns the raw scalar value of a field; room types are joined with ", ".
func (e BookingEntities) Value(f Field) string {
	switch f {
	case FieldCheckInDate:
		return e.CheckInDate
	case FieldCheckOutDate:
		return e.CheckOutDate
	case FieldRoomTypes:
		return strings.Join(e.RoomTypes, ", ")
	case FieldContactName:
		return e.ContactName
	case FieldContactEmail:
		return e.ContactEmail
	case FieldContactNumber:
		return e.ContactNumber
	}
	return ""
}

// Set assigns a scalar field. Room types are set through SetRoomTypes.
func (e *BookingEntities) Set(f Field, v string) {
	switch f {
	case FieldCheckInDate:
		e.CheckInDate = v
	case FieldCheckOutDate:
		e.CheckOutDate = v
	case FieldRoomTypes:
		e.SetRoomTypes([]string{v})
	case FieldContactName:
		e.ContactName = v
	case FieldContactEmail:
		e.ContactEmail = v
	case FieldContactNumber:
		e.ContactNumber = v
	}
}

// Clear empties a field.
func (e *BookingEntities) Clear(f Field) {
	if f == FieldRoomTypes {
		e.RoomTypes = nil
		return
	}
	e.Set(f, "")
}

// SetRoomTypes stores the normalized form of types.
func (e *BookingEntities) SetRoomTypes(types []string) {
	e.RoomTypes = NormalizeRoomTypes(types)
}

// Has reports whether a field is present after normalization.
func (e BookingEntities) Has(f Field) bool {
	switch f {
	case FieldCheckInDate:
		return IsCanonicalDate(e.CheckInDate)
	case FieldCheckOutDate:
		return IsCanonicalDate(e.CheckOutDate)
	case FieldRoomTypes:
		return len(NormalizeRoomTypes(e.RoomTypes)) > 0
	default:
		return strings.TrimSpace(e.Value(f)) != ""
	}
}

// Missing lists the required fields still absent, in declared order.
func (e BookingEntities) Missing(sender SenderType) []Field {
	var missing []Field
	for _, f := range RequiredFields(sender) {
		if !e.Has(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

// Empty reports whether no field carries any value at all.
func (e BookingEntities) Empty() bool {
	for f := range fieldKeys {
		if strings.TrimSpace(e.Value(Field(f))) != "" {
			return false
		}
	}
	return true
}

// Known returns the present fields in declared order.
func (e BookingEntities) Known() []Field {
	var known []Field
	for f := range fieldKeys {
		if e.Has(Field(f)) {
			known = append(known, Field(f))
		}
	}
	return known
}

// IsCanonicalDate reports whether s is a valid YYYY-MM-DD calendar date.
func IsCanonicalDate(s string) bool {
	if len(s) != len(DateLayout) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// NormalizeRoomTypes lower-cases, trims, collapses inner whitespace and
// de-duplicates while keeping first-seen order.
func NormalizeRoomTypes(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(types))
	out := make([]string, 0, len(types))
	for _, t := range types {
		n := strings.Join(strings.Fields(strings.ToLower(t)), " ")
		if n == "" {
			continue
		}
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
