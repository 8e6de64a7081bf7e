package analysis

import (
	"context"
	"strings"
	"unicode/utf8"

	"abyssal/internal/state"
)

// StaticAnalyzer scores messages with deterministic heuristics. It is the
// offline mode when no API key is configured, and the fixture analyzer in
// tests. Deterministic: identical input always yields identical output.
type StaticAnalyzer struct{}

// NewStaticAnalyzer returns the heuristic analyzer.
func NewStaticAnalyzer() *StaticAnalyzer { return &StaticAnalyzer{} }

var (
	warmWords    = []string{"wonder", "beautiful", "tell me", "how do you", "what is it like", "curious", "amazing", "love"}
	hostileWords = []string{"stupid", "boring", "fake", "shut up", "whatever", "who cares"}
	depthWords   = []string{"why", "feel", "alone", "afraid", "dream", "miss", "remember"}
)

// Analyze scores the message from its surface features.
func (a *StaticAnalyzer) Analyze(_ context.Context, text string, snapshot *state.Session) (Result, error) {
	lower := strings.ToLower(strings.TrimSpace(text))
	length := utf8.RuneCountInString(lower)

	delta := 0
	engagement := 40
	thoughtfulness := 40
	curiosity := 40
	superficiality := 50

	if strings.ContainsRune(lower, '?') {
		delta += 6
		curiosity += 25
	}
	for _, w := range warmWords {
		if strings.Contains(lower, w) {
			delta += 4
			engagement += 15
			break
		}
	}
	for _, w := range depthWords {
		if strings.Contains(lower, w) {
			delta += 3
			thoughtfulness += 25
			superficiality -= 20
			break
		}
	}
	for _, w := range hostileWords {
		if strings.Contains(lower, w) {
			delta -= 8
			engagement -= 20
			break
		}
	}

	switch {
	case length < 4:
		delta -= 2
		superficiality += 20
	case length > 80:
		delta += 2
		thoughtfulness += 10
	}

	reasoning := "Surface reading only: question marks, warmth and depth cues, message length."

	return Bound(Result{
		ConfidenceDelta: delta,
		Traits: state.Profile{
			Thoughtfulness:  thoughtfulness,
			Adventurousness: snapshot.Profile.Adventurousness,
			Engagement:      engagement,
			Curiosity:       curiosity,
			Superficiality:  superficiality,
		},
		Reasoning: reasoning,
	}), nil
}
