// File: services/intelligence/geminiClient.go
package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"harold/models"

	genai "github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// UnavailableText is streamed when generation fails or times out.
const UnavailableText = "Sorry, our AI service is temporarily unavailable. Please try again later."

const extractionInstruction = `You extract hotel booking details from one guest message.
Reply with a single JSON object with these keys, using null for anything not stated:
"checkInDate" and "checkOutDate" as YYYY-MM-DD, "roomTypes" as an array of room type names,
"contactName", "contactEmail", "contactNumber" as strings.`

const classifyInstruction = `Classify the hotel guest message into exactly one label:
booking, change_booking, cancel, complaint, chat, greeting, goodbye, check_status.
Reply with the label only.`

// GeminiClient backs Generator, StructuredExtractor and IntentClassifier with Gemini.
type GeminiClient struct {
	client    *genai.Client
	chat      *genai.GenerativeModel
	extractor *genai.GenerativeModel
	labeler   *genai.GenerativeModel
	timeout   time.Duration
	logger    *zap.Logger
}

func NewGeminiClient(ctx context.Context, apiKey, modelName string, timeout time.Duration, logger *zap.Logger) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	chat := client.GenerativeModel(modelName)
	chat.SetTemperature(0.4)

	extractor := client.GenerativeModel(modelName)
	extractor.SetTemperature(0)
	extractor.ResponseMIMEType = "application/json"
	extractor.SystemInstruction = genai.NewUserContent(genai.Text(extractionInstruction))

	labeler := client.GenerativeModel(modelName)
	labeler.SetTemperature(0)
	labeler.SetMaxOutputTokens(8)
	labeler.SystemInstruction = genai.NewUserContent(genai.Text(classifyInstruction))

	return &GeminiClient{
		client:    client,
		chat:      chat,
		extractor: extractor,
		labeler:   labeler,
		timeout:   timeout,
		logger:    logger,
	}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

// Stream yields text chunks as Gemini produces them. On failure before any
// text it yields UnavailableText instead.
func (g *GeminiClient) Stream(ctx context.Context, prompt string) iter.Seq[string] {
	return func(yield func(string) bool) {
		ctx, cancel := context.WithTimeout(ctx, g.timeout)
		defer cancel()

		start := time.Now()
		status := "ok"
		defer func() {
			llmLatency.WithLabelValues("stream", status).Observe(time.Since(start).Seconds())
		}()

		it := g.chat.GenerateContentStream(ctx, genai.Text(prompt))
		emitted := false
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				break
			}
			if err != nil {
				status = "error"
				g.logger.Warn("Gemini stream failed", zap.Error(err), zap.Bool("partial", emitted))
				if !emitted {
					yield(UnavailableText)
				}
				return
			}
			for _, chunk := range responseText(resp) {
				if chunk == "" {
					continue
				}
				emitted = true
				if !yield(chunk) {
					status = "abandoned"
					return
				}
			}
		}
		if !emitted {
			status = "empty"
			yield(UnavailableText)
		}
	}
}

func (g *GeminiClient) ExtractStructured(ctx context.Context, text string) (map[string]any, error) {
	raw, err := g.generate(ctx, "extract", g.extractor, text)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &fields); err != nil {
		return nil, fmt.Errorf("structured extraction returned malformed JSON: %w", err)
	}
	return fields, nil
}

func (g *GeminiClient) Classify(ctx context.Context, text string) (models.Intent, error) {
	raw, err := g.generate(ctx, "classify", g.labeler, text)
	if err != nil {
		return models.IntentNone, err
	}
	label := strings.Trim(strings.TrimSpace(raw), `".`)
	return models.ParseIntent(label), nil
}

func (g *GeminiClient) generate(ctx context.Context, call string, model *genai.GenerativeModel, text string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(text))
	status := "ok"
	if err != nil {
		status = "error"
	}
	llmLatency.WithLabelValues(call, status).Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("gemini %s error: %w", call, err)
	}
	return strings.Join(responseText(resp), ""), nil
}

func responseText(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	var out []string
	for _, part := range resp.Candidates[0].Content.Parts {
		if textPart, ok := part.(genai.Text); ok {
			out = append(out, string(textPart))
		}
	}
	return out
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// FallbackClassifier tries the primary classifier and falls back to keywords
// when it fails or cannot decide.
type FallbackClassifier struct {
	Primary IntentClassifier
	Logger  *zap.Logger
}

func (f FallbackClassifier) Classify(ctx context.Context, text string) (models.Intent, error) {
	if f.Primary != nil {
		intent, err := f.Primary.Classify(ctx, text)
		if err == nil && intent != models.IntentNone {
			return intent, nil
		}
		if err != nil && f.Logger != nil {
			f.Logger.Debug("Intent classifier unavailable, using keywords", zap.Error(err))
		}
	}
	return classifyByKeywords(text), nil
}
