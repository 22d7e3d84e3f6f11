package booking

import (
	"errors"
	"fmt"
	"strings"

	"harold/models"
)

// ErrorCode classifies a reservation failure.
type ErrorCode string

const (
	CodeInvalidDateRange ErrorCode = "InvalidDateRange"
	CodeUnknownRoomType  ErrorCode = "UnknownRoomType"
	CodeMissingField     ErrorCode = "MissingField"
	CodeRoomUnavailable  ErrorCode = "RoomUnavailable"
)

// ValidationError is returned when the request itself cannot be honoured.
// Fields lists the offending booking fields, in declared order.
type ValidationError struct {
	Code    ErrorCode
	Message string
	Fields  []models.Field
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ConflictError is returned when every candidate room of a requested type is taken.
type ConflictError struct {
	Code      ErrorCode
	Message   string
	RoomTypes []string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func invalidDates(msg string, fields ...models.Field) error {
	if len(fields) == 0 {
		fields = []models.Field{models.FieldCheckInDate, models.FieldCheckOutDate}
	}
	return &ValidationError{Code: CodeInvalidDateRange, Message: msg, Fields: fields}
}

func missingFields(fields ...models.Field) error {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key()
	}
	return &ValidationError{
		Code:    CodeMissingField,
		Message: "missing " + strings.Join(keys, ", "),
		Fields:  fields,
	}
}

func unknownRoomTypes(types []string) error {
	return &ValidationError{
		Code:    CodeUnknownRoomType,
		Message: "no rooms of type " + strings.Join(types, ", "),
		Fields:  []models.Field{models.FieldRoomTypes},
	}
}

func roomUnavailable(types []string) error {
	return &ConflictError{
		Code:      CodeRoomUnavailable,
		Message:   "no free room of type " + strings.Join(types, ", "),
		RoomTypes: types,
	}
}

// CodeOf returns the reservation error code carried by err, or "" for
// storage and upstream failures.
func CodeOf(err error) ErrorCode {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code
	}
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// FieldsOf returns the fields a ValidationError points at.
func FieldsOf(err error) []models.Field {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Fields
	}
	return nil
}
