package ai

import "harold/models"

// MergeEntities folds a fresh extraction into the saved record. A saved field is
// only replaced when it is not present (empty, or a date that never parsed) and
// the extraction carries a value. Room types are the union of both lists, saved
// order first.
func MergeEntities(saved, extracted models.BookingEntities) models.BookingEntities {
	merged := saved
	for f := models.FieldCheckInDate; f <= models.FieldContactNumber; f++ {
		if f == models.FieldRoomTypes {
			continue
		}
		if saved.Has(f) {
			continue
		}
		if v := extracted.Value(f); v != "" {
			merged.Set(f, v)
		}
	}
	merged.RoomTypes = models.NormalizeRoomTypes(append(append([]string(nil), saved.RoomTypes...), extracted.RoomTypes...))
	return merged
}
