package ai

import (
	"context"
	"errors"
	"iter"

	"harold/models"
)

var (
	// ErrInvalidTurn is returned for blank text, blank ids or an unknown sender type.
	ErrInvalidTurn = errors.New("invalid turn")
	// ErrConversationBusy is returned when another turn of the same conversation
	// holds the conversation lock for longer than the wait budget.
	ErrConversationBusy = errors.New("conversation busy")
)

// Generator streams generated text for a prompt. Implementations never fail:
// upstream errors and timeouts surface as a canned apology chunk.
type Generator interface {
	Stream(ctx context.Context, prompt string) iter.Seq[string]
}

// IntentClassifier labels a turn.
type IntentClassifier interface {
	Classify(ctx context.Context, text string) (models.Intent, error)
}

// StructuredExtractor is the best-effort text-to-fields fallback. Values are
// returned raw; callers validate them.
type StructuredExtractor interface {
	ExtractStructured(ctx context.Context, text string) (map[string]any, error)
}

// FAQMatch is the best FAQ for a question and its similarity in [0, 1].
type FAQMatch struct {
	FAQ   models.FAQ
	Score float64
}

// FAQSearcher finds the closest curated answer.
type FAQSearcher interface {
	Search(ctx context.Context, question string) (FAQMatch, bool)
}

// ReservationCreator is the part of the reservation service the dialogue drives.
type ReservationCreator interface {
	CreateReservation(ctx context.Context, req models.ReservationRequest) (*models.Reservation, error)
	ListRoomTypes(ctx context.Context) ([]string, error)
}

// ContextStore persists per-conversation dialogue state, entities and history.
type ContextStore interface {
	// LoadState returns nil when no flow is active.
	LoadState(ctx context.Context, conversationID string) (*models.ConversationState, error)
	SaveState(ctx context.Context, conversationID string, state models.ConversationState) error
	// LoadEntities drops fields whose persisted form is corrupt.
	LoadEntities(ctx context.Context, conversationID string) (models.BookingEntities, error)
	// SaveEntities writes only the fields present in e; other stored fields are kept.
	SaveEntities(ctx context.Context, conversationID string, e models.BookingEntities) error
	ClearEntityFields(ctx context.Context, conversationID string, fields ...models.Field) error
	// Clear deletes state and entities.
	Clear(ctx context.Context, conversationID string) error

	AppendHistory(ctx context.Context, conversationID string, msgs ...models.ChatMessage) error
	History(ctx context.Context, conversationID string) ([]models.ChatMessage, error)

	// Lock takes the per-conversation advisory lock. It returns ErrConversationBusy
	// when the lock stays held past the wait budget.
	Lock(ctx context.Context, conversationID string) (unlock func(), err error)
}
