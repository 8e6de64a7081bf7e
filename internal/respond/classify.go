// Package respond maps session state and a lightweight classification of
// the user's input onto hand-authored response content. Lookup only, no
// side effects; the streaming protocol treats this package as a static
// content collaborator.
package respond

import (
	"strings"
	"unicode/utf8"
)

// InputType is the coarse classification of a user message.
type InputType string

const (
	InputGreeting  InputType = "greeting"
	InputQuestion  InputType = "question"
	InputStatement InputType = "statement"
	InputFarewell  InputType = "farewell"
)

// Depth grades how much of themselves the user put into the message.
type Depth string

const (
	DepthShallow    Depth = "shallow"
	DepthReflective Depth = "reflective"
	DepthDeep       Depth = "deep"
)

// Classification pairs the two axes the library is keyed on.
type Classification struct {
	Type  InputType `json:"type"`
	Depth Depth     `json:"depth"`
}

var greetings = []string{"hello", "hi", "hey", "good morning", "good evening", "anyone there"}
var farewells = []string{"bye", "goodbye", "good night", "see you", "farewell", "i have to go"}
var deepCues = []string{"afraid", "alone", "feel", "dream", "miss", "love", "die", "dark", "why are you"}

// Classify is deterministic and rule-based. It never errors; anything
// unrecognized is a statement.
func Classify(text string) Classification {
	lower := strings.ToLower(strings.TrimSpace(text))
	length := utf8.RuneCountInString(lower)

	c := Classification{Type: InputStatement, Depth: DepthShallow}

	for _, g := range greetings {
		if strings.HasPrefix(lower, g) {
			c.Type = InputGreeting
		}
	}
	for _, f := range farewells {
		if strings.HasPrefix(lower, f) {
			c.Type = InputFarewell
		}
	}
	if strings.ContainsRune(lower, '?') {
		c.Type = InputQuestion
	}

	switch {
	case length >= 120:
		c.Depth = DepthDeep
	case length >= 40:
		c.Depth = DepthReflective
	}
	for _, cue := range deepCues {
		if strings.Contains(lower, cue) {
			c.Depth = DepthDeep
			break
		}
	}
	return c
}
