package protocol

import "abyssal/internal/state"

// Metrics mirrors the five profile traits in analysis payloads.
type Metrics struct {
	Thoughtfulness  int `json:"thoughtfulness"`
	Adventurousness int `json:"adventurousness"`
	Engagement      int `json:"engagement"`
	Curiosity       int `json:"curiosity"`
	Superficiality  int `json:"superficiality"`
}

// MetricsFromProfile converts the state representation.
func MetricsFromProfile(p state.Profile) Metrics {
	return Metrics{
		Thoughtfulness:  p.Thoughtfulness,
		Adventurousness: p.Adventurousness,
		Engagement:      p.Engagement,
		Curiosity:       p.Curiosity,
		Superficiality:  p.Superficiality,
	}
}

// Profile converts back to the state representation.
func (m Metrics) Profile() state.Profile {
	return state.Profile{
		Thoughtfulness:  m.Thoughtfulness,
		Adventurousness: m.Adventurousness,
		Engagement:      m.Engagement,
		Curiosity:       m.Curiosity,
		Superficiality:  m.Superficiality,
	}
}

// ResponseStart is the RESPONSE_START payload: the provisional delta the
// client may display eagerly while text is still streaming.
type ResponseStart struct {
	// StreamID identifies the interaction for interrupt requests.
	StreamID        int64    `json:"stream_id"`
	ConfidenceDelta int      `json:"confidenceDelta"`
	Metrics         *Metrics `json:"metrics,omitempty"`
}

// TextMessageStart opens a message group.
type TextMessageStart struct {
	MessageID string `json:"message_id"`
}

// TextContent is one chunk of a message group.
type TextContent struct {
	Chunk      string `json:"chunk"`
	ChunkIndex int    `json:"chunk_index"`
}

// TextMessageEnd closes a message group.
type TextMessageEnd struct {
	TotalChunks int `json:"total_chunks"`
}

// PatchOp is one JSON-Patch-shaped replace operation.
type PatchOp struct {
	Op    string `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// StateDelta is the advisory partial update. It must never be the sole
// source of a confidence value the client relies on.
type StateDelta struct {
	Version    string    `json:"version"`
	Timestamp  int64     `json:"timestamp"`
	Operations []PatchOp `json:"operations"`
}

// AnalysisComplete is the advisory analysis readout.
type AnalysisComplete struct {
	Reasoning       string  `json:"reasoning"`
	Metrics         Metrics `json:"metrics"`
	ConfidenceDelta int     `json:"confidenceDelta"`
	SuggestedMood   string  `json:"suggestedMood,omitempty"`
}

// ResponsePayload is the opaque response content attached to terminal
// events: the narrative text plus presentation tags and optional art.
type ResponsePayload struct {
	Text string   `json:"text"`
	Tags []string `json:"tags,omitempty"`
	Art  string   `json:"art,omitempty"`
}

// ResponseComplete is the authoritative terminal payload. UpdatedState is
// the full post-mutation session; the client commits confidence from here
// and nowhere else.
type ResponseComplete struct {
	UpdatedState *state.Session  `json:"updatedState"`
	Response     ResponsePayload `json:"response"`
}

// ResponseInterrupted is the terminal payload for a cancelled stream. The
// truncation describes the clean cut so the client neither drops nor
// duplicates partial text.
type ResponseInterrupted struct {
	UpdatedState    *state.Session `json:"updatedState"`
	InterruptNumber int            `json:"interruptNumber"`
	TruncatedText   string         `json:"truncatedText"`
	CutPosition     int            `json:"cutPosition"`
}

// ErrorPayload carries a machine-readable failure. Recoverable tells the
// client whether retrying the same logical interaction is worthwhile.
type ErrorPayload struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Recoverable bool   `json:"recoverable"`
}

// Error codes used by the engine.
const (
	ErrCodeAnalysis = "analysis_failed"
	ErrCodeStream   = "stream_failed"
	ErrCodeInternal = "internal"
)
