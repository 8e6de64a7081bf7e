// Package session implements per-conversation stream identity, the
// interrupt tracker, and the in-memory session registry.
package session

import (
	"sync"

	"abyssal/internal/logging"
)

// Phase is the coarse stream state.
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseStreaming   Phase = "streaming"
	PhaseCompleted   Phase = "completed"
	PhaseInterrupted Phase = "interrupted"
	PhaseErrored     Phase = "errored"
)

// Tracker holds per-conversation stream bookkeeping: which stream is
// active, which single stream id (if any) has been interrupted, and the
// line-position counters an interrupt needs to compute a clean truncation.
//
// Interrupt state is scoped to exactly one stream id at a time. Storing a
// boolean here is the regression this structure exists to prevent: stream
// N+1 must never inherit stream N's interrupted status.
type Tracker struct {
	mu sync.Mutex

	nextStreamID   int64
	activeStreamID int64 // 0 when idle
	phase          Phase

	// interruptedID is the single interrupted stream id; 0 means none.
	// Marking a new id overwrites the old one.
	interruptedID int64

	// Line bookkeeping for the active response.
	currentLineID string
	lineIDs       []string
	revealedLen   int
	totalLen      int
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{phase: PhaseIdle}
}

// NextStreamID allocates a strictly increasing stream id, starting at 1.
func (t *Tracker) NextStreamID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.nextStreamID++
	return t.nextStreamID
}

// StartSession records the new active stream. A newly started stream
// supersedes whatever was active before; there is no queueing.
func (t *Tracker) StartSession(streamID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeStreamID = streamID
	t.phase = PhaseStreaming
	t.currentLineID = ""
	t.lineIDs = nil
	t.revealedLen = 0
	t.totalLen = 0
	logging.Get(logging.CategorySession).Debugw("session start", "stream", streamID)
}

// EndSession clears the active stream and returns the tracker to idle.
func (t *Tracker) EndSession() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.activeStreamID = 0
	t.phase = PhaseIdle
}

// Complete marks the active stream finished.
func (t *Tracker) Complete(streamID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.activeStreamID == streamID {
		t.phase = PhaseCompleted
		t.activeStreamID = 0
	}
}

// Fail marks the active stream errored.
func (t *Tracker) Fail(streamID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.activeStreamID == streamID {
		t.phase = PhaseErrored
		t.activeStreamID = 0
	}
}

// MarkInterrupted records the cancelled stream id. Single slot: marking a
// new id replaces the previous one so interrupt state never leaks across
// more than one stream boundary.
func (t *Tracker) MarkInterrupted(streamID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interruptedID = streamID
	if t.activeStreamID == streamID {
		t.phase = PhaseInterrupted
	}
	logging.Get(logging.CategorySession).Debugw("interrupt marked", "stream", streamID)
}

// WasInterrupted is the side-effect-free check late continuations use to
// self-suppress. Exact id match only.
func (t *Tracker) WasInterrupted(streamID int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.interruptedID != 0 && t.interruptedID == streamID
}

// ClearInterruptState resets interrupt tracking. Called when a new
// user-initiated interaction begins.
func (t *Tracker) ClearInterruptState() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.interruptedID = 0
}

// ActiveStreamID returns the current stream id, 0 when idle.
func (t *Tracker) ActiveStreamID() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeStreamID
}

// Phase returns the coarse state.
func (t *Tracker) State() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// BeginLine records a new content line receiving character animation.
func (t *Tracker) BeginLine(lineID string, totalLen int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.currentLineID = lineID
	t.lineIDs = append(t.lineIDs, lineID)
	t.revealedLen = 0
	t.totalLen = totalLen
}

// AdvanceLine updates how much of the current line the client has shown.
func (t *Tracker) AdvanceLine(revealed int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if revealed > t.revealedLen {
		t.revealedLen = revealed
	}
}

// Truncation describes where an interrupt cut the current line.
type Truncation struct {
	LineID      string
	RevealedLen int
	TotalLen    int
	LineIDs     []string
}

// Truncation returns the clean cut point for the in-progress line so an
// interrupt neither drops nor duplicates partial text.
func (t *Tracker) Truncation() Truncation {
	t.mu.Lock()
	defer t.mu.Unlock()
	ids := make([]string, len(t.lineIDs))
	copy(ids, t.lineIDs)
	cut := t.revealedLen
	if cut > t.totalLen {
		cut = t.totalLen
	}
	return Truncation{
		LineID:      t.currentLineID,
		RevealedLen: cut,
		TotalLen:    t.totalLen,
		LineIDs:     ids,
	}
}
