package models

import (
	"strings"
	"time"
)

// Intent is the classified purpose of a conversation.
type Intent string

const (
	IntentBooking       Intent = "booking"
	IntentChangeBooking Intent = "change_booking"
	IntentCancel        Intent = "cancel"
	IntentComplaint     Intent = "complaint"
	IntentChat          Intent = "chat"
	IntentGreeting      Intent = "greeting"
	IntentGoodbye       Intent = "goodbye"
	IntentCheckStatus   Intent = "check_status"
	IntentNone          Intent = "none"
)

var knownIntents = map[Intent]struct{}{
	IntentBooking:       {},
	IntentChangeBooking: {},
	IntentCancel:        {},
	IntentComplaint:     {},
	IntentChat:          {},
	IntentGreeting:      {},
	IntentGoodbye:       {},
	IntentCheckStatus:   {},
	IntentNone:          {},
}

// ParseIntent maps a classifier label onto the fixed intent set.
// Unknown labels collapse to IntentNone.
func ParseIntent(label string) Intent {
	i := Intent(strings.ToLower(strings.TrimSpace(label)))
	if _, ok := knownIntents[i]; ok {
		return i
	}
	return IntentNone
}

// SenderType distinguishes authenticated members from anonymous guests.
type SenderType string

const (
	SenderMember SenderType = "member"
	SenderGuest  SenderType = "guest"
)

func (s SenderType) Valid() bool {
	return s == SenderMember || s == SenderGuest
}

// ConversationState is the persisted cursor of a conversation's active flow.
type ConversationState struct {
	Intent    Intent    `json:"intent"`
	Step      int       `json:"step"` // index into the sender's required-field list; meaningless for IntentNone
	UpdatedAt time.Time `json:"updatedAt"`
}

// Active reports whether the state belongs to a running flow.
func (s *ConversationState) Active() bool {
	return s != nil && s.Intent != "" && s.Intent != IntentNone
}
