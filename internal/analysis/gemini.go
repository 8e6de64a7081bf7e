package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"abyssal/internal/logging"
	"abyssal/internal/state"
)

// DefaultGeminiModel balances latency against quality; analysis runs on
// every user message so fast matters more than deep.
const DefaultGeminiModel = "gemini-2.0-flash"

// GeminiConfig configures the Gemini-backed analyzer.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// GeminiAnalyzer calls the Gemini API for personality analysis.
type GeminiAnalyzer struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiAnalyzer builds the analyzer. An empty API key is a caller
// error here; callers treat missing credentials as "feature disabled" and
// fall back to the static analyzer instead.
func NewGeminiAnalyzer(cfg GeminiConfig) (*GeminiAnalyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	model := cfg.Model
	if model == "" {
		model = DefaultGeminiModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiAnalyzer{client: client, model: model, timeout: timeout}, nil
}

// geminiVerdict is the JSON shape the model is asked to return.
type geminiVerdict struct {
	ConfidenceDelta int    `json:"confidenceDelta"`
	Thoughtfulness  int    `json:"thoughtfulness"`
	Adventurousness int    `json:"adventurousness"`
	Engagement      int    `json:"engagement"`
	Curiosity       int    `json:"curiosity"`
	Superficiality  int    `json:"superficiality"`
	Reasoning       string `json:"reasoning"`
	SuggestedMood   string `json:"suggestedMood"`
}

// Analyze sends the message and snapshot context to Gemini and parses the
// structured verdict. Any failure returns the neutral fallback and a nil
// error: the collaborator contract is that errors do not escape.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, text string, snapshot *state.Session) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	log := logging.Get(logging.CategoryAnalysis)

	prompt := buildPrompt(text, snapshot)
	contents := []*genai.Content{
		genai.NewContentFromText(prompt, genai.RoleUser),
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		log.Warnw("analysis call failed, using neutral fallback", "err", err)
		return Neutral(snapshot), nil
	}

	raw := resp.Text()
	var verdict geminiVerdict
	if err := json.Unmarshal([]byte(stripFences(raw)), &verdict); err != nil {
		log.Warnw("unparsable analysis output, using neutral fallback", "err", err)
		return Neutral(snapshot), nil
	}

	return Bound(Result{
		ConfidenceDelta: verdict.ConfidenceDelta,
		Traits: state.Profile{
			Thoughtfulness:  verdict.Thoughtfulness,
			Adventurousness: verdict.Adventurousness,
			Engagement:      verdict.Engagement,
			Curiosity:       verdict.Curiosity,
			Superficiality:  verdict.Superficiality,
		},
		Reasoning:     verdict.Reasoning,
		SuggestedMood: verdict.SuggestedMood,
	}), nil
}

func buildPrompt(text string, snapshot *state.Session) string {
	var b strings.Builder
	b.WriteString("You are scoring one message a visitor sent to Mira, a deep-sea researcher persona.\n")
	b.WriteString("Return ONLY a JSON object with integer fields confidenceDelta (-10..15), ")
	b.WriteString("thoughtfulness, adventurousness, engagement, curiosity, superficiality (each 0..100), ")
	b.WriteString("a short string field reasoning, and an optional string field suggestedMood.\n\n")
	fmt.Fprintf(&b, "Current confidence: %d (%s). Messages so far: %d.\n",
		snapshot.Confidence, snapshot.Mood(), snapshot.MessageCount())
	fmt.Fprintf(&b, "Visitor message: %q\n", text)
	b.WriteString("Reward genuine curiosity and reflection; penalize hostility and one-word dismissals.\n")
	return b.String()
}

// stripFences removes a markdown code fence if the model wrapped its JSON
// despite the response MIME type.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		if i := strings.LastIndex(s, "```"); i >= 0 {
			s = s[:i]
		}
	}
	return strings.TrimSpace(s)
}
