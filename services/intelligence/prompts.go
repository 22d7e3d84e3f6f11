package ai

import (
	"fmt"
	"iter"
	"strings"
	"time"

	"harold/models"
)

const persona = "You are Harold, a polite and professional hotel assistant."

var fieldQuestions = map[models.Field]string{
	models.FieldCheckInDate:   "your check-in date",
	models.FieldCheckOutDate:  "your check-out date",
	models.FieldRoomTypes:     "the type of room you would like",
	models.FieldContactName:   "your full name",
	models.FieldContactEmail:  "your email address",
	models.FieldContactNumber: "a contact phone number",
}

var fieldLabels = map[models.Field]string{
	models.FieldCheckInDate:   "check-in",
	models.FieldCheckOutDate:  "check-out",
	models.FieldRoomTypes:     "room type",
	models.FieldContactName:   "name",
	models.FieldContactEmail:  "email",
	models.FieldContactNumber: "phone",
}

// knownSummary renders the present fields as "check-in: 2025-09-10, room type: suite".
func knownSummary(e models.BookingEntities) string {
	var parts []string
	for _, f := range e.Known() {
		parts = append(parts, fieldLabels[f]+": "+e.Value(f))
	}
	return strings.Join(parts, ", ")
}

func bookingPrompt(next models.Field, known models.BookingEntities, roomTypes []string, userText string) string {
	var b strings.Builder
	b.WriteString(persona)
	b.WriteString(" You are helping a customer book a room.\n\n")
	fmt.Fprintf(&b, "What to ask next: %s\n", fieldQuestions[next])
	fmt.Fprintf(&b, "User's last input: %q\n", userText)
	if summary := knownSummary(known); summary != "" {
		fmt.Fprintf(&b, "So far I have collected: %s\n", summary)
	}
	if next == models.FieldRoomTypes && len(roomTypes) > 0 {
		fmt.Fprintf(&b, "Room types we offer: %s\n", strings.Join(roomTypes, ", "))
	}
	if next == models.FieldCheckInDate || next == models.FieldCheckOutDate {
		b.WriteString("Ask for the date in YYYY-MM-DD form.\n")
	}
	fmt.Fprintf(&b, `
Your task:
1. Politely ask for: %s
2. If the user provided relevant information in their last message, acknowledge it briefly
3. Ask one question only and keep it short
`, fieldQuestions[next])
	return b.String()
}

func bookingQuestion(next models.Field, known models.BookingEntities, roomTypes []string) string {
	var b strings.Builder
	if summary := knownSummary(known); summary != "" {
		fmt.Fprintf(&b, "Thanks! So far I have %s. ", summary)
	}
	fmt.Fprintf(&b, "Could you tell me %s", fieldQuestions[next])
	switch next {
	case models.FieldCheckInDate, models.FieldCheckOutDate:
		b.WriteString(" (YYYY-MM-DD)?")
	case models.FieldRoomTypes:
		if len(roomTypes) > 0 {
			fmt.Fprintf(&b, "? We offer: %s.", strings.Join(roomTypes, ", "))
		} else {
			b.WriteString("?")
		}
	default:
		b.WriteString("?")
	}
	return b.String()
}

func handoverPrompt() string {
	return persona + `

The user has requested to speak with a human agent.

Your task:
- Politely acknowledge the request.
- Clearly inform the user that they are being transferred to a customer service representative.
- Keep the reply short (1-2 sentences).
`
}

const handoverText = "OK, I'm transferring you to our customer service team, please wait..."

func faqPrompt(history []models.ChatMessage, match FAQMatch, question string) string {
	return fmt.Sprintf(`%s

Always respond using the most relevant retrieved FAQ answer when available.
If the user greets you in their first message, introduce yourself as Harold. Do not repeat your name afterwards unless asked.
Keep replies polite, helpful, and concise.

Conversation so far:
%s

Relevant FAQ:
Q: %s
A: %s

User Question: %q
`, persona, renderHistory(history), match.FAQ.Question, match.FAQ.Answer, question)
}

func greetingPrompt(history []models.ChatMessage, question string) string {
	return fmt.Sprintf(`%s

Conversation so far:
%s

The user said: %q
Greet them warmly, introduce yourself as Harold if this is the start of the conversation, and ask how you can help. One or two sentences.
`, persona, renderHistory(history), question)
}

const greetingText = "Hello! I'm Harold, your hotel assistant. How can I help you today?"

func goodbyePrompt(question string) string {
	return fmt.Sprintf("%s\n\nThe user said: %q\nSay a short, warm goodbye.\n", persona, question)
}

const goodbyeText = "Goodbye! Have a great day!"

func fallbackPrompt() string {
	return "Write a professional and polite fallback response for a hotel chatbot. " +
		"The response should acknowledge that it cannot find an exact answer, apologize politely, " +
		"and offer to connect the user with a customer service agent for further assistance."
}

const fallbackText = "I'm sorry, I couldn't find an exact answer to that. Would you like me to connect you with a customer service agent?"

func renderHistory(history []models.ChatMessage) string {
	if len(history) == 0 {
		return "(no previous messages)"
	}
	var b strings.Builder
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func confirmationText(res *models.Reservation) string {
	return fmt.Sprintf(
		"Your booking is reserved! I've held %s from %s to %s (%d night%s) for a total of %.2f %s. "+
			"Please complete your payment %s to confirm it: ",
		strings.Join(res.RoomTypes, ", "), res.CheckInDate, res.CheckOutDate,
		res.Nights, plural(res.Nights), res.TotalPrice, strings.ToUpper(res.Currency),
		paymentDeadline(res),
	)
}

// paymentDeadline describes the pending hold, e.g. "within 30 minutes".
func paymentDeadline(res *models.Reservation) string {
	hold := res.ExpiresAt.Sub(res.CreatedAt).Round(time.Minute)
	switch {
	case hold <= 0:
		return "soon"
	case hold%time.Hour == 0:
		h := int(hold / time.Hour)
		return fmt.Sprintf("within %d hour%s", h, plural(h))
	default:
		m := int(hold / time.Minute)
		return fmt.Sprintf("within %d minute%s", m, plural(m))
	}
}

func invalidDatesText() string {
	return "Those dates don't work for a booking: check-out has to be after check-in, and check-in can't be in the past. What date would you like to check in (YYYY-MM-DD)?"
}

func unknownRoomTypeText(requested, offered []string) string {
	if len(offered) == 0 {
		return fmt.Sprintf("Sorry, we don't have %s. Which room type would you like instead?", strings.Join(requested, ", "))
	}
	return fmt.Sprintf("Sorry, we don't have %s. We offer: %s. Which would you like?",
		strings.Join(requested, ", "), strings.Join(offered, ", "))
}

func missingFieldText(f models.Field) string {
	return fmt.Sprintf("I still need %s to finish your booking. Could you share it?", fieldQuestions[f])
}

func roomUnavailableText(types []string, checkIn, checkOut string) string {
	return fmt.Sprintf("Sorry, there is no %s available from %s to %s. Feel free to start a new booking with different dates or another room type.",
		strings.Join(types, ", "), checkIn, checkOut)
}

const storageFailureText = "Sorry, I couldn't process that just now. Please send your last message again in a moment."

// BusyText is sent when a turn arrives while the previous one is still running.
const BusyText = "I'm still working on your previous message, one moment please."

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// chunkText splits text into word-sized pieces, keeping the separating spaces.
func chunkText(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, piece := range strings.SplitAfter(text, " ") {
			if piece == "" {
				continue
			}
			if !yield(piece) {
				return
			}
		}
	}
}

// concat streams each sequence in turn.
func concat(seqs ...iter.Seq[string]) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, seq := range seqs {
			for s := range seq {
				if !yield(s) {
					return
				}
			}
		}
	}
}

func single(s string) iter.Seq[string] {
	return func(yield func(string) bool) { yield(s) }
}
