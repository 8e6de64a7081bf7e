// Package protocol defines the wire envelope and typed payloads for the
// streaming session protocol. One JSON envelope per transport frame; the
// sequencer in internal/stream owns ordering and identity stamping.
package protocol

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// SchemaVersion is stamped on every envelope.
const SchemaVersion = "1.0.0"

// EventType enumerates the envelope types.
type EventType string

const (
	// EventResponseStart carries the provisional delta and metrics as soon
	// as analysis returns, before any content streaming.
	EventResponseStart EventType = "RESPONSE_START"

	// EventTextMessageStart opens a message group and establishes its
	// message_id. Chunks parent to the opening envelope's event id.
	EventTextMessageStart EventType = "TEXT_MESSAGE_START"

	// EventTextContent carries one chunk of a message group.
	EventTextContent EventType = "TEXT_CONTENT"

	// EventTextMessageEnd closes a message group with its chunk total.
	EventTextMessageEnd EventType = "TEXT_MESSAGE_END"

	// EventStateDelta is an advisory JSON-Patch-shaped partial update.
	// Never authoritative for confidence.
	EventStateDelta EventType = "STATE_DELTA"

	// EventAnalysisComplete is the advisory analysis readout: reasoning,
	// metrics, delta, optional suggested mood.
	EventAnalysisComplete EventType = "ANALYSIS_COMPLETE"

	// EventResponseComplete is the single authoritative terminal event for
	// a non-interrupted interaction. Clients commit confidence only from
	// its updatedState payload.
	EventResponseComplete EventType = "RESPONSE_COMPLETE"

	// EventResponseInterrupted is the terminal variant for a client
	// cancellation. Authoritative like RESPONSE_COMPLETE.
	EventResponseInterrupted EventType = "RESPONSE_INTERRUPTED"

	// EventError carries a machine-readable failure. Emitting it does not
	// by itself terminate the stream; the caller decides.
	EventError EventType = "ERROR"
)

// Terminal reports whether t closes a stream.
func (t EventType) Terminal() bool {
	return t == EventResponseComplete || t == EventResponseInterrupted
}

// Envelope is the wire entity. SequenceNumber is per-stream monotonic from
// 0 with no gaps; ParentEventID links chunk events to their opener, forming
// a shallow causality tree for client-side correlation.
type Envelope struct {
	EventID        string          `json:"event_id"`
	SchemaVersion  string          `json:"schema_version"`
	Type           EventType       `json:"type"`
	Timestamp      int64           `json:"timestamp"`
	SequenceNumber int             `json:"sequence_number"`
	ParentEventID  string          `json:"parent_event_id,omitempty"`
	Data           json.RawMessage `json:"data"`
}

// NewEventID allocates a collision-resistant envelope id: millisecond
// timestamp plus a random suffix. No global registry.
func NewEventID() string {
	var suffix [4]byte
	if _, err := rand.Read(suffix[:]); err != nil {
		// crypto/rand failing is a broken platform; fall back to the
		// timestamp alone rather than panicking mid-stream.
		return fmt.Sprintf("evt_%d", time.Now().UnixNano())
	}
	return fmt.Sprintf("evt_%d_%s", time.Now().UnixMilli(), hex.EncodeToString(suffix[:]))
}

// Encode marshals a payload struct into the envelope Data field.
func Encode(payload any) (json.RawMessage, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}
