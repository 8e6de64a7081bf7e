// Package analysis wraps the personality-analysis collaborator: raw user
// text plus a session snapshot in, a bounded confidence delta and trait
// readout back. Failures never cross this boundary; every error path
// degrades to the neutral fallback.
package analysis

import (
	"context"

	"abyssal/internal/state"
)

// Delta bounds for a normal analysis. The interrupt penalty lives outside
// this range and is applied by the engine, not the analyzer.
const (
	DeltaMin = -10
	DeltaMax = 15
)

// Result is the analyzer output after bounding.
type Result struct {
	ConfidenceDelta int
	Traits          state.Profile
	Reasoning       string
	SuggestedMood   string
}

// Analyzer produces an analysis for one user message. Implementations must
// be safe for concurrent use across sessions.
type Analyzer interface {
	Analyze(ctx context.Context, text string, snapshot *state.Session) (Result, error)
}

// Neutral is the documented fallback when analysis fails: zero delta and
// the snapshot's existing traits, surfaced to the user only as an absence
// of delta.
func Neutral(snapshot *state.Session) Result {
	return Result{
		ConfidenceDelta: 0,
		Traits:          snapshot.Profile,
	}
}

// Bound forces the result into the documented ranges. Applied defensively
// to every provider output.
func Bound(r Result) Result {
	if r.ConfidenceDelta < DeltaMin {
		r.ConfidenceDelta = DeltaMin
	}
	if r.ConfidenceDelta > DeltaMax {
		r.ConfidenceDelta = DeltaMax
	}
	r.Traits = r.Traits.Clamped()
	return r
}
