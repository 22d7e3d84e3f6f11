package ai

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"harold/models"
	"harold/utils/clock"

	"go.uber.org/zap"
)

// DefaultRoomVocabulary is matched even when the catalogue cannot be read.
var DefaultRoomVocabulary = []string{
	"deluxe room",
	"standard room",
	"family suite",
	"honeymoon suite",
	"single room",
	"double room",
	"twin room",
	"executive suite",
	"presidential suite",
}

var (
	emailRe = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	phoneRe = regexp.MustCompile(`(?:\+?\d{1,3}[\s-]?)?\(?\d{3}\)?[\s-]?\d{3,4}[\s-]?\d{3,4}`)
	// Cue phrases that introduce a name. Group 1 is the cue, group 2 the words after it.
	nameCueRe     = regexp.MustCompile(`(?i)\b(my name is|name is|name:|i am|i'm|this is)\s+([A-Za-z][A-Za-z'.-]*(?:\s+[A-Za-z][A-Za-z'.-]*){0,3})`)
	capitalPairRe = regexp.MustCompile(`\b([A-Z][a-z]+)\s+([A-Z][a-z]+)\b`)
	bareNameRe    = regexp.MustCompile(`^[A-Za-z][A-Za-z'.-]*(?:\s+[A-Za-z][A-Za-z'.-]*){0,3}$`)
)

var nameStopWords = map[string]bool{
	"and": true, "from": true, "with": true, "my": true, "email": true, "phone": true,
	"number": true, "looking": true, "here": true, "staying": true, "booking": true,
	"to": true, "for": true, "interested": true, "checking": true, "at": true, "on": true,
	"the": true, "a": true, "an": true, "i": true, "want": true, "would": true, "like": true,
	"book": true, "need": true, "in": true, "please": true, "thanks": true, "thank": true,
	"yes": true, "no": true, "ok": true, "okay": true, "sure": true, "hi": true, "hello": true,
}

// RoomTypeLister supplies the room vocabulary.
type RoomTypeLister interface {
	ListRoomTypes(ctx context.Context) ([]string, error)
}

// Extractor pulls booking fields out of a single utterance. Pattern matching runs
// first; the structured fallback fills dates and room types it left empty.
type Extractor struct {
	rooms    RoomTypeLister
	fallback StructuredExtractor
	clock    clock.Clock
	logger   *zap.Logger
}

// NewExtractor builds an Extractor. rooms and fallback may be nil.
func NewExtractor(rooms RoomTypeLister, fallback StructuredExtractor, clk clock.Clock, logger *zap.Logger) *Extractor {
	if clk == nil {
		clk = clock.NewSystem()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{rooms: rooms, fallback: fallback, clock: clk, logger: logger}
}

// Extract returns the fields found in text. Contact fields are only extracted for
// guests. expecting names the field the previous prompt asked for, or FieldNone.
func (x *Extractor) Extract(ctx context.Context, text string, sender models.SenderType, expecting models.Field) models.BookingEntities {
	var e models.BookingEntities
	today := x.clock.Now()
	vocab := x.vocabulary(ctx)

	dates := findDates(text, today)
	x.assignDates(&e, dates, expecting)

	e.RoomTypes = matchRoomTypes(text, vocab)

	if sender == models.SenderGuest {
		rest := maskSpans(text, dates)
		if m := emailRe.FindString(rest); m != "" {
			e.ContactEmail = m
			rest = strings.ReplaceAll(rest, m, " ")
		}
		if m := phoneRe.FindString(rest); m != "" {
			e.ContactNumber = strings.TrimSpace(m)
		}
		e.ContactName = findName(rest, vocab, expecting == models.FieldContactName)
	}

	if x.fallback != nil && x.needsFallback(e, expecting) {
		x.applyFallback(ctx, &e, text, sender, vocab, expecting)
	}
	return e
}

func (x *Extractor) assignDates(e *models.BookingEntities, dates []dateHit, expecting models.Field) {
	switch {
	case len(dates) == 0:
	case len(dates) == 1 && expecting == models.FieldCheckOutDate:
		e.CheckOutDate = dates[0].value
	default:
		e.CheckInDate = dates[0].value
		for _, d := range dates[1:] {
			if d.value != e.CheckInDate {
				e.CheckOutDate = d.value
				break
			}
		}
	}
}

func (x *Extractor) vocabulary(ctx context.Context) []string {
	vocab := append([]string(nil), DefaultRoomVocabulary...)
	if x.rooms != nil {
		types, err := x.rooms.ListRoomTypes(ctx)
		if err != nil {
			x.logger.Warn("Room vocabulary unavailable, using defaults", zap.Error(err))
		}
		vocab = append(vocab, types...)
	}
	return models.NormalizeRoomTypes(vocab)
}

// needsFallback reports whether a date or room-type slot the dialogue still
// cares about came back empty.
func (x *Extractor) needsFallback(e models.BookingEntities, expecting models.Field) bool {
	switch expecting {
	case models.FieldNone:
		return e.CheckInDate == "" || len(e.RoomTypes) == 0
	case models.FieldCheckInDate, models.FieldCheckOutDate:
		return e.CheckInDate == "" && e.CheckOutDate == ""
	case models.FieldRoomTypes:
		return len(e.RoomTypes) == 0
	}
	return false
}

func (x *Extractor) applyFallback(
	ctx context.Context,
	e *models.BookingEntities,
	text string,
	sender models.SenderType,
	vocab []string,
	expecting models.Field,
) {
	fields, err := x.fallback.ExtractStructured(ctx, text)
	if err != nil {
		x.logger.Debug("Structured extraction unavailable", zap.Error(err))
		return
	}
	today := x.clock.Now()

	if e.CheckInDate == "" && e.CheckOutDate == "" {
		in := NormalizeDate(stringField(fields, "checkInDate"), today)
		out := NormalizeDate(stringField(fields, "checkOutDate"), today)
		if in != "" && out == "" && expecting == models.FieldCheckOutDate {
			in, out = "", in
		}
		e.CheckInDate, e.CheckOutDate = in, out
	}

	if len(e.RoomTypes) == 0 {
		var found []string
		for _, candidate := range listField(fields, "roomTypes") {
			found = append(found, matchRoomTypes(candidate, vocab)...)
		}
		e.RoomTypes = models.NormalizeRoomTypes(found)
	}

	if sender != models.SenderGuest {
		return
	}
	if e.ContactName == "" {
		if name := strings.TrimSpace(stringField(fields, "contactName")); bareNameRe.MatchString(name) {
			e.ContactName = name
		}
	}
	if e.ContactEmail == "" {
		e.ContactEmail = emailRe.FindString(stringField(fields, "contactEmail"))
	}
	if e.ContactNumber == "" {
		e.ContactNumber = strings.TrimSpace(phoneRe.FindString(stringField(fields, "contactNumber")))
	}
}

// stringField reads a string value; any other shape counts as absent.
func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return s
}

// listField accepts either a JSON array of strings or a single string.
func listField(fields map[string]any, key string) []string {
	switch v := fields[key].(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return v
	}
	return nil
}

// matchRoomTypes finds vocabulary phrases in text, longest phrase first so that
// "family suite" is not also read as "suite". Results follow text order.
func matchRoomTypes(text string, vocab []string) []string {
	words := tokenize(text)
	if len(words) == 0 {
		return nil
	}
	terms := append([]string(nil), vocab...)
	sort.SliceStable(terms, func(i, j int) bool {
		return len(strings.Fields(terms[i])) > len(strings.Fields(terms[j]))
	})

	type hit struct {
		pos  int
		term string
	}
	var hits []hit
	used := make([]bool, len(words))
	for _, term := range terms {
		tw := strings.Fields(term)
		for i := 0; i+len(tw) <= len(words); i++ {
			if !phraseAt(words, used, i, tw) {
				continue
			}
			for k := i; k < i+len(tw); k++ {
				used[k] = true
			}
			hits = append(hits, hit{pos: i, term: term})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.term)
	}
	return models.NormalizeRoomTypes(out)
}

func phraseAt(words []string, used []bool, i int, phrase []string) bool {
	for k, w := range phrase {
		if used[i+k] {
			return false
		}
		got := words[i+k]
		last := k == len(phrase)-1
		if got != w && !(last && got == w+"s") {
			return false
		}
	}
	return true
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// maskSpans blanks out the given spans so later patterns do not read dates as phone numbers.
func maskSpans(text string, spans []dateHit) string {
	b := []byte(text)
	for _, s := range spans {
		for i := s.start; i < s.end; i++ {
			b[i] = ' '
		}
	}
	return string(b)
}

// findName looks for a cue phrase first. When the dialogue is asking for the
// name it also accepts a capitalized pair, or the whole reply if it is just a few words.
func findName(text string, vocab []string, asking bool) string {
	for _, m := range nameCueRe.FindAllStringSubmatch(text, -1) {
		cue := strings.ToLower(m[1])
		strict := cue == "i am" || cue == "i'm" || cue == "this is"
		if name := takeNameWords(m[2], strict); name != "" {
			return name
		}
	}
	if !asking {
		return ""
	}
	for _, m := range capitalPairRe.FindAllStringSubmatch(text, -1) {
		if isNameCandidate(m[0], vocab) {
			return m[0]
		}
	}
	bare := strings.TrimFunc(strings.TrimSpace(text), func(r rune) bool { return unicode.IsPunct(r) })
	if bareNameRe.MatchString(bare) && isNameCandidate(bare, vocab) {
		return bare
	}
	return ""
}

// takeNameWords keeps the leading words of s up to the first stop word. In strict
// mode every word must be capitalized.
func takeNameWords(s string, strict bool) string {
	var kept []string
	for _, w := range strings.Fields(s) {
		w = strings.Trim(w, ".,;:!?")
		if w == "" || nameStopWords[strings.ToLower(w)] {
			break
		}
		if strict && !unicode.IsUpper([]rune(w)[0]) {
			break
		}
		kept = append(kept, w)
	}
	return strings.Join(kept, " ")
}

func isNameCandidate(s string, vocab []string) bool {
	for _, w := range tokenize(s) {
		if nameStopWords[w] || isMonthWord(w) {
			return false
		}
	}
	return len(matchRoomTypes(s, append(vocab, "room", "suite"))) == 0
}

func isMonthWord(w string) bool {
	m, ok := lookupMonth(w)
	return ok && strings.HasPrefix(strings.ToLower(m.String()), w)
}
