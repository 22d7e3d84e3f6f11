package ai

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"

	"harold/models"
)

var faqStopWords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "do": true, "does": true,
	"you": true, "your": true, "i": true, "me": true, "my": true, "we": true, "of": true,
	"to": true, "for": true, "in": true, "on": true, "at": true, "and": true, "or": true,
	"can": true, "what": true, "there": true, "it": true, "be": true, "with": true, "have": true,
	"please": true, "any": true, "how": true,
}

// FAQLister loads the curated FAQs.
type FAQLister interface {
	ListFAQs(ctx context.Context) ([]models.FAQ, error)
}

type faqEntry struct {
	faq    models.FAQ
	vector map[string]float64
	norm   float64
}

// BagOfWordsSearcher scores questions by cosine similarity of term counts.
type BagOfWordsSearcher struct {
	source  FAQLister
	entries atomic.Pointer[[]faqEntry]
}

func NewBagOfWordsSearcher(source FAQLister) *BagOfWordsSearcher {
	s := &BagOfWordsSearcher{source: source}
	s.entries.Store(&[]faqEntry{})
	return s
}

// Load replaces the index with the current FAQ set. It returns the number indexed.
func (s *BagOfWordsSearcher) Load(ctx context.Context) (int, error) {
	faqs, err := s.source.ListFAQs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load faqs: %w", err)
	}
	entries := make([]faqEntry, 0, len(faqs))
	for _, f := range faqs {
		vec := termVector(f.Question)
		if len(vec) == 0 {
			continue
		}
		entries = append(entries, faqEntry{faq: f, vector: vec, norm: vectorNorm(vec)})
	}
	s.entries.Store(&entries)
	return len(entries), nil
}

func (s *BagOfWordsSearcher) Search(_ context.Context, question string) (FAQMatch, bool) {
	q := termVector(question)
	if len(q) == 0 {
		return FAQMatch{}, false
	}
	qNorm := vectorNorm(q)

	var best FAQMatch
	found := false
	for _, e := range *s.entries.Load() {
		dot := 0.0
		for term, w := range q {
			dot += w * e.vector[term]
		}
		score := dot / (qNorm * e.norm)
		if !found || score > best.Score {
			best = FAQMatch{FAQ: e.faq, Score: score}
			found = true
		}
	}
	return best, found
}

func termVector(text string) map[string]float64 {
	vec := make(map[string]float64)
	for _, w := range tokenize(text) {
		if faqStopWords[w] {
			continue
		}
		vec[stem(w)]++
	}
	return vec
}

// stem strips a plural "s" so "rooms" and "room" meet.
func stem(w string) string {
	if len(w) > 3 && w[len(w)-1] == 's' && w[len(w)-2] != 's' {
		return w[:len(w)-1]
	}
	return w
}

func vectorNorm(v map[string]float64) float64 {
	sum := 0.0
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}
