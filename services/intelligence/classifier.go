package ai

import (
	"context"
	"strings"

	"harold/models"
)

type intentRule struct {
	intent  models.Intent
	words   []string // whole-word matches
	phrases []string // substring matches
}

// Checked in order: "cancel my booking" must not be read as a booking.
var intentRules = []intentRule{
	{intent: models.IntentCancel, words: []string{"cancel", "cancellation"}},
	{intent: models.IntentChangeBooking, words: []string{"change", "reschedule", "modify", "postpone", "extend"}},
	{intent: models.IntentCheckStatus, words: []string{"status"}, phrases: []string{"booking id", "my booking", "my reservation", "order id"}},
	{intent: models.IntentComplaint, words: []string{"complaint", "complain", "dirty", "broken", "noisy", "rude", "terrible", "awful", "refund"}, phrases: []string{"not working"}},
	{intent: models.IntentBooking, words: []string{"book", "booking", "reserve", "reservation"}, phrases: []string{"a room", "stay from", "stay at"}},
	{intent: models.IntentGoodbye, words: []string{"bye", "goodbye", "cya"}, phrases: []string{"see you", "that's all", "thats all"}},
	{intent: models.IntentGreeting, words: []string{"hi", "hello", "hey", "hiya", "greetings"}, phrases: []string{"good morning", "good afternoon", "good evening"}},
}

// KeywordClassifier is the offline intent classifier.
type KeywordClassifier struct{}

func (KeywordClassifier) Classify(_ context.Context, text string) (models.Intent, error) {
	return classifyByKeywords(text), nil
}

func classifyByKeywords(text string) models.Intent {
	lower := strings.ToLower(text)
	words := make(map[string]bool)
	for _, w := range tokenize(lower) {
		words[w] = true
	}
	for _, rule := range intentRules {
		for _, w := range rule.words {
			if words[w] {
				return rule.intent
			}
		}
		for _, p := range rule.phrases {
			if strings.Contains(lower, p) {
				return rule.intent
			}
		}
	}
	return models.IntentChat
}

var handoverPhrases = []string{
	"human",
	"customer service",
	"real people",
	"agent",
	"transfer to manual",
	"real agent",
	"real human",
	"real assistant",
}

// IsHandoverRequest reports whether the user asked for a person.
func IsHandoverRequest(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range handoverPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
