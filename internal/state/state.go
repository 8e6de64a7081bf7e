// Package state holds the mutable session record the protocol negotiates
// over: Mira's confidence in the user, the interaction profile, and the
// append-only memory log. Everything here is plain bookkeeping; the only
// rule that matters is that confidence and traits stay inside [0,100] no
// matter what upstream hands us.
package state

// Confidence bounds. Deltas arrive pre-bounded from the analyzer but the
// clamp is enforced on every mutation anyway.
const (
	ConfidenceMin = 0
	ConfidenceMax = 100

	// DefaultConfidence seeds a fresh session at the neutral midpoint.
	DefaultConfidence = 50
)

// Mood is a view over confidence, never stored independently.
type Mood string

const (
	MoodSuspicious Mood = "suspicious" // [0,20)
	MoodGuarded    Mood = "guarded"    // [20,40)
	MoodCurious    Mood = "curious"    // [40,60)
	MoodOpen       Mood = "open"       // [60,80)
	MoodTrusting   Mood = "trusting"   // [80,100]
)

// Profile holds the five interaction-style traits. Each recomputation
// replaces the whole set; traits are never accumulated across turns.
type Profile struct {
	Thoughtfulness  int `json:"thoughtfulness"`
	Adventurousness int `json:"adventurousness"`
	Engagement      int `json:"engagement"`
	Curiosity       int `json:"curiosity"`
	Superficiality  int `json:"superficiality"`
}

// Clamped returns a copy with every trait forced into [0,100].
func (p Profile) Clamped() Profile {
	return Profile{
		Thoughtfulness:  clamp(p.Thoughtfulness),
		Adventurousness: clamp(p.Adventurousness),
		Engagement:      clamp(p.Engagement),
		Curiosity:       clamp(p.Curiosity),
		Superficiality:  clamp(p.Superficiality),
	}
}

// NeutralProfile is the trait set a new session starts with.
func NeutralProfile() Profile {
	return Profile{
		Thoughtfulness:  50,
		Adventurousness: 50,
		Engagement:      50,
		Curiosity:       50,
		Superficiality:  50,
	}
}

// Session is the single mutable record per conversation. It is owned by one
// in-flight interaction at a time; the engine serializes access.
type Session struct {
	ID              string   `json:"id"`
	Confidence      int      `json:"confidence"`
	Profile         Profile  `json:"profile"`
	Memories        Memories `json:"memories"`
	HasFoundKindred bool     `json:"hasFoundKindred"`

	// interruptCount backs sequential interruptNumber tags on interrupt
	// memories. Not serialized independently; recomputable from Memories.
	interruptCount int
}

// NewSession returns a session seeded at neutral confidence and traits.
func NewSession(id string) *Session {
	return &Session{
		ID:         id,
		Confidence: DefaultConfidence,
		Profile:    NeutralProfile(),
	}
}

// Mood derives the current mood label from confidence alone.
func (s *Session) Mood() Mood {
	return MoodFor(s.Confidence)
}

// MoodFor maps a confidence value to its tier. Pure function; identical
// input always yields identical output.
func MoodFor(confidence int) Mood {
	switch {
	case confidence < 20:
		return MoodSuspicious
	case confidence < 40:
		return MoodGuarded
	case confidence < 60:
		return MoodCurious
	case confidence < 80:
		return MoodOpen
	default:
		return MoodTrusting
	}
}

// ApplyDelta mutates confidence by d and clamps the result to [0,100].
// Returns the new confidence.
func (s *Session) ApplyDelta(d int) int {
	s.Confidence = clamp(s.Confidence + d)
	return s.Confidence
}

// SetProfile replaces the trait set wholesale, clamping each value.
func (s *Session) SetProfile(p Profile) {
	s.Profile = p.Clamped()
}

// MarkKindred sets the one-way kindred latch. It is never cleared.
func (s *Session) MarkKindred() {
	s.HasFoundKindred = true
}

// AppendMemory appends a record to the memory log. The log is append-only;
// insertion order is significant for derived counts.
func (s *Session) AppendMemory(m Memory) {
	s.Memories = append(s.Memories, m)
}

// NextInterruptNumber returns the sequential counter for the next interrupt
// memory, starting at 1.
func (s *Session) NextInterruptNumber() int {
	s.interruptCount++
	return s.interruptCount
}

// MessageCount counts response memories only, excluding tool calls and
// interrupts.
func (s *Session) MessageCount() int {
	n := 0
	for _, m := range s.Memories {
		if m.Kind() == MemoryResponse {
			n++
		}
	}
	return n
}

// Snapshot returns a deep copy safe to hand to an asynchronous analysis
// call while the original keeps mutating.
func (s *Session) Snapshot() *Session {
	cp := *s
	cp.Memories = make(Memories, len(s.Memories))
	copy(cp.Memories, s.Memories)
	return &cp
}

func clamp(v int) int {
	if v < ConfidenceMin {
		return ConfidenceMin
	}
	if v > ConfidenceMax {
		return ConfidenceMax
	}
	return v
}

// Clamp bounds an arbitrary value into the confidence range. Exported for
// callers that bound deltas before display.
func Clamp(v int) int { return clamp(v) }
