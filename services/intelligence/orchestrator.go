package ai

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"time"

	"harold/models"
	"harold/services/booking"
	"harold/utils/clock"

	"go.uber.org/zap"
)

// Turn is one inbound user message.
type Turn struct {
	ConversationID string
	SenderID       string
	SenderType     models.SenderType
	Text           string
	// Context is history supplied by the client; used when the store has none.
	Context []models.ChatMessage
}

// Reply is the outcome of a turn. All state changes are already committed when
// Advance returns; iterating Stream only renders text. Stream is single-use: it
// yields non-empty chunks with isFinal=false, then exactly one ("", true).
type Reply struct {
	Intent      models.Intent
	Handover    bool
	Reservation *models.Reservation
	Stream      iter.Seq2[string, bool]
}

// EntityExtractor pulls booking fields from one utterance.
type EntityExtractor interface {
	Extract(ctx context.Context, text string, sender models.SenderType, expecting models.Field) models.BookingEntities
}

// Orchestrator runs the booking dialogue and answers everything else from the FAQ.
type Orchestrator struct {
	store        ContextStore
	extractor    EntityExtractor
	classifier   IntentClassifier
	generator    Generator
	faq          FAQSearcher
	reservations ReservationCreator
	clock        clock.Clock
	logger       *zap.Logger
	faqMinScore  float64
}

// OrchestratorDeps groups the collaborators. Generator and FAQ may be nil: canned
// text replaces generation and every question goes to the fallback.
type OrchestratorDeps struct {
	Store        ContextStore
	Extractor    EntityExtractor
	Classifier   IntentClassifier
	Generator    Generator
	FAQ          FAQSearcher
	Reservations ReservationCreator
	Clock        clock.Clock
	Logger       *zap.Logger
	FAQMinScore  float64
}

func NewOrchestrator(deps OrchestratorDeps) *Orchestrator {
	o := &Orchestrator{
		store:        deps.Store,
		extractor:    deps.Extractor,
		classifier:   deps.Classifier,
		generator:    deps.Generator,
		faq:          deps.FAQ,
		reservations: deps.Reservations,
		clock:        deps.Clock,
		logger:       deps.Logger,
		faqMinScore:  deps.FAQMinScore,
	}
	if o.classifier == nil {
		o.classifier = KeywordClassifier{}
	}
	if o.clock == nil {
		o.clock = clock.NewSystem()
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	if o.faqMinScore <= 0 {
		o.faqMinScore = 0.5
	}
	return o
}

func validateTurn(t Turn) (Turn, error) {
	t.Text = strings.TrimSpace(t.Text)
	t.ConversationID = strings.TrimSpace(t.ConversationID)
	t.SenderID = strings.TrimSpace(t.SenderID)
	if t.Text == "" || t.ConversationID == "" || t.SenderID == "" || !t.SenderType.Valid() {
		return t, ErrInvalidTurn
	}
	return t, nil
}

// Advance handles one turn. It returns ErrInvalidTurn for malformed input and
// ErrConversationBusy when a previous turn of the conversation is still running.
// Storage failures do not surface as errors; the reply apologizes instead.
func (o *Orchestrator) Advance(ctx context.Context, turn Turn) (*Reply, error) {
	turn, err := validateTurn(turn)
	if err != nil {
		return nil, err
	}
	log := o.logger.With(zap.String("conversationId", turn.ConversationID))

	unlock, err := o.store.Lock(ctx, turn.ConversationID)
	if errors.Is(err, ErrConversationBusy) {
		turnsTotal.WithLabelValues(string(models.IntentNone), "busy").Inc()
		return nil, err
	}
	if err != nil {
		log.Error("Failed to lock conversation", zap.Error(err))
		return o.storageFailure(ctx, turn, models.IntentNone), nil
	}
	defer unlock()

	if IsHandoverRequest(turn.Text) {
		return o.handover(ctx, turn, log), nil
	}

	state, err := o.store.LoadState(ctx, turn.ConversationID)
	if err != nil {
		log.Error("Failed to load conversation state", zap.Error(err))
		return o.storageFailure(ctx, turn, models.IntentNone), nil
	}
	if state.Active() && state.Intent == models.IntentBooking {
		return o.bookingTurn(ctx, turn, state, log), nil
	}

	intent, err := o.classifier.Classify(ctx, turn.Text)
	if err != nil {
		intent = classifyByKeywords(turn.Text)
	}
	if intent == models.IntentBooking {
		return o.bookingTurn(ctx, turn, nil, log), nil
	}
	return o.answer(ctx, turn, intent, log), nil
}

func (o *Orchestrator) handover(ctx context.Context, turn Turn, log *zap.Logger) *Reply {
	if err := o.store.Clear(ctx, turn.ConversationID); err != nil {
		log.Error("Failed to clear conversation on handover", zap.Error(err))
	}
	turnsTotal.WithLabelValues(string(models.IntentNone), "handover").Inc()
	log.Info("Conversation handed over to a human agent")

	reply := o.reply(ctx, turn, models.IntentNone, o.render(ctx, handoverPrompt(), handoverText))
	reply.Handover = true
	return reply
}

// bookingTurn is one step of the slot-filling flow. state is nil when the flow
// starts on this turn.
func (o *Orchestrator) bookingTurn(ctx context.Context, turn Turn, state *models.ConversationState, log *zap.Logger) *Reply {
	required := models.RequiredFields(turn.SenderType)
	expecting := models.FieldNone

	var saved models.BookingEntities
	if state == nil {
		// A new flow never inherits entities left by an expired or abandoned one.
		if err := o.store.Clear(ctx, turn.ConversationID); err != nil {
			log.Error("Failed to reset conversation", zap.Error(err))
			return o.storageFailure(ctx, turn, models.IntentBooking)
		}
	} else {
		if state.Step >= 0 && state.Step < len(required) {
			expecting = required[state.Step]
		}
		var err error
		saved, err = o.store.LoadEntities(ctx, turn.ConversationID)
		if err != nil {
			log.Error("Failed to load booking entities", zap.Error(err))
			return o.storageFailure(ctx, turn, models.IntentBooking)
		}
	}

	extracted := o.extractor.Extract(ctx, turn.Text, turn.SenderType, expecting)
	merged := MergeEntities(saved, extracted)
	if err := o.store.SaveEntities(ctx, turn.ConversationID, merged); err != nil {
		log.Error("Failed to save booking entities", zap.Error(err))
		return o.storageFailure(ctx, turn, models.IntentBooking)
	}

	missing := merged.Missing(turn.SenderType)
	if len(missing) > 0 {
		next := missing[0]
		if err := o.saveStep(ctx, turn, required, next); err != nil {
			log.Error("Failed to save conversation state", zap.Error(err))
			return o.storageFailure(ctx, turn, models.IntentBooking)
		}
		var roomTypes []string
		if next == models.FieldRoomTypes {
			roomTypes = o.roomTypes(ctx, log)
		}
		log.Debug("Asking for booking field",
			zap.String("field", next.Key()),
			zap.Bool("reask", next == expecting),
		)
		turnsTotal.WithLabelValues(string(models.IntentBooking), "prompt").Inc()
		return o.reply(ctx, turn, models.IntentBooking, o.render(ctx,
			bookingPrompt(next, merged, roomTypes, turn.Text),
			bookingQuestion(next, merged, roomTypes),
		))
	}

	// Everything is known: mark the flow as confirming so a failed attempt resumes here.
	if err := o.store.SaveState(ctx, turn.ConversationID, models.ConversationState{
		Intent:    models.IntentBooking,
		Step:      len(required),
		UpdatedAt: o.clock.Now(),
	}); err != nil {
		log.Error("Failed to save conversation state", zap.Error(err))
		return o.storageFailure(ctx, turn, models.IntentBooking)
	}
	return o.reserve(ctx, turn, merged, log)
}

func (o *Orchestrator) saveStep(ctx context.Context, turn Turn, required []models.Field, next models.Field) error {
	return o.store.SaveState(ctx, turn.ConversationID, models.ConversationState{
		Intent:    models.IntentBooking,
		Step:      slices.Index(required, next),
		UpdatedAt: o.clock.Now(),
	})
}

func (o *Orchestrator) reserve(ctx context.Context, turn Turn, entities models.BookingEntities, log *zap.Logger) *Reply {
	req := models.ReservationRequestFrom(turn.SenderID, turn.SenderType, entities)
	res, err := o.reservations.CreateReservation(ctx, req)
	if err == nil {
		if err := o.store.Clear(ctx, turn.ConversationID); err != nil {
			log.Error("Failed to clear conversation after reservation", zap.Error(err))
		}
		reservationOutcomes.WithLabelValues("created").Inc()
		turnsTotal.WithLabelValues(string(models.IntentBooking), "reserved").Inc()
		log.Info("Booking dialogue completed", zap.String("reservationId", res.ID))

		reply := o.reply(ctx, turn, models.IntentBooking, concat(chunkText(confirmationText(res)), single(res.ConfirmURL)))
		reply.Reservation = res
		return reply
	}

	code := booking.CodeOf(err)
	if code == "" {
		reservationOutcomes.WithLabelValues("error").Inc()
		log.Error("Reservation failed", zap.Error(err))
		return o.storageFailure(ctx, turn, models.IntentBooking)
	}
	reservationOutcomes.WithLabelValues(string(code)).Inc()
	turnsTotal.WithLabelValues(string(models.IntentBooking), "rejected").Inc()
	log.Info("Reservation rejected", zap.String("code", string(code)), zap.String("reason", err.Error()))

	required := models.RequiredFields(turn.SenderType)
	var text string
	var drop []models.Field
	var next models.Field
	switch code {
	case booking.CodeInvalidDateRange:
		drop = []models.Field{models.FieldCheckInDate, models.FieldCheckOutDate}
		next = models.FieldCheckInDate
		text = invalidDatesText()
	case booking.CodeUnknownRoomType:
		drop = []models.Field{models.FieldRoomTypes}
		next = models.FieldRoomTypes
		text = unknownRoomTypeText(entities.RoomTypes, o.roomTypes(ctx, log))
	case booking.CodeMissingField:
		drop = booking.FieldsOf(err)
		next = models.FieldCheckInDate
		if len(drop) > 0 {
			next = drop[0]
		}
		text = missingFieldText(next)
	default:
		// RoomUnavailable ends this attempt.
		if err := o.store.Clear(ctx, turn.ConversationID); err != nil {
			log.Error("Failed to clear conversation after conflict", zap.Error(err))
		}
		return o.reply(ctx, turn, models.IntentBooking,
			chunkText(roomUnavailableText(entities.RoomTypes, entities.CheckInDate, entities.CheckOutDate)))
	}

	if err := o.store.ClearEntityFields(ctx, turn.ConversationID, drop...); err != nil {
		log.Error("Failed to drop rejected booking fields", zap.Error(err))
		return o.storageFailure(ctx, turn, models.IntentBooking)
	}
	if err := o.saveStep(ctx, turn, required, next); err != nil {
		log.Error("Failed to save conversation state", zap.Error(err))
		return o.storageFailure(ctx, turn, models.IntentBooking)
	}
	return o.reply(ctx, turn, models.IntentBooking, chunkText(text))
}

// answer handles every turn outside the booking flow. Nothing is persisted except history.
func (o *Orchestrator) answer(ctx context.Context, turn Turn, intent models.Intent, log *zap.Logger) *Reply {
	history, err := o.store.History(ctx, turn.ConversationID)
	if err != nil {
		log.Warn("Failed to load history", zap.Error(err))
	}
	if len(history) == 0 {
		history = turn.Context
	}

	if o.faq != nil {
		if match, ok := o.faq.Search(ctx, turn.Text); ok && match.Score >= o.faqMinScore {
			log.Debug("FAQ matched", zap.String("question", match.FAQ.Question), zap.Float64("score", match.Score))
			turnsTotal.WithLabelValues(string(intent), "faq").Inc()
			return o.reply(ctx, turn, intent, o.render(ctx, faqPrompt(history, match, turn.Text), match.FAQ.Answer))
		}
	}

	switch intent {
	case models.IntentGreeting:
		turnsTotal.WithLabelValues(string(intent), "greeting").Inc()
		return o.reply(ctx, turn, intent, o.render(ctx, greetingPrompt(history, turn.Text), greetingText))
	case models.IntentGoodbye:
		turnsTotal.WithLabelValues(string(intent), "goodbye").Inc()
		return o.reply(ctx, turn, intent, o.render(ctx, goodbyePrompt(turn.Text), goodbyeText))
	}
	turnsTotal.WithLabelValues(string(intent), "fallback").Inc()
	return o.reply(ctx, turn, intent, o.render(ctx, fallbackPrompt(), fallbackText))
}

func (o *Orchestrator) roomTypes(ctx context.Context, log *zap.Logger) []string {
	types, err := o.reservations.ListRoomTypes(ctx)
	if err != nil {
		log.Warn("Failed to list room types", zap.Error(err))
		return nil
	}
	return types
}

func (o *Orchestrator) storageFailure(ctx context.Context, turn Turn, intent models.Intent) *Reply {
	turnsTotal.WithLabelValues(string(intent), "error").Inc()
	return o.reply(ctx, turn, intent, chunkText(storageFailureText))
}

// render streams generated text for prompt, or canned when no generator is configured.
func (o *Orchestrator) render(ctx context.Context, prompt, canned string) iter.Seq[string] {
	if o.generator == nil {
		return chunkText(canned)
	}
	return o.generator.Stream(ctx, prompt)
}

func (o *Orchestrator) reply(ctx context.Context, turn Turn, intent models.Intent, body iter.Seq[string]) *Reply {
	return &Reply{Intent: intent, Stream: o.frames(ctx, turn, body)}
}

// frames wraps body into the chunk/final protocol. Whatever was rendered is
// appended to the history together with the user message, even if the consumer
// stops early.
func (o *Orchestrator) frames(ctx context.Context, turn Turn, body iter.Seq[string]) iter.Seq2[string, bool] {
	return func(yield func(string, bool) bool) {
		var rendered strings.Builder
		defer func() { o.remember(ctx, turn, rendered.String()) }()

		for chunk := range body {
			if chunk == "" {
				continue
			}
			rendered.WriteString(chunk)
			if !yield(chunk, false) {
				return
			}
		}
		yield("", true)
	}
}

func (o *Orchestrator) remember(ctx context.Context, turn Turn, answer string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	now := o.clock.Now()
	msgs := []models.ChatMessage{{Role: models.RoleUser, Content: turn.Text, At: now}}
	if answer != "" {
		msgs = append(msgs, models.ChatMessage{Role: models.RoleAssistant, Content: answer, At: now})
	}
	if err := o.store.AppendHistory(ctx, turn.ConversationID, msgs...); err != nil {
		o.logger.Warn("Failed to append history",
			zap.String("conversationId", turn.ConversationID),
			zap.Error(err),
		)
	}
}
