package stream

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"abyssal/internal/protocol"
)

// SSESink writes envelopes as Server-Sent Events: one JSON object per
// data: frame, flushed immediately. No binary framing.
type SSESink struct {
	mu sync.Mutex
	w  http.ResponseWriter
	f  http.Flusher
}

// NewSSESink prepares a ResponseWriter for event streaming and returns the
// sink. Fails if the writer cannot flush.
func NewSSESink(w http.ResponseWriter) (*SSESink, error) {
	f, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("response writer does not support streaming")
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	f.Flush()
	return &SSESink{w: w, f: f}, nil
}

// Send writes one envelope frame and flushes.
func (s *SSESink) Send(env protocol.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	s.f.Flush()
	return nil
}

// CaptureSink records envelopes in order. Used by tests and by the
// in-process offline client.
type CaptureSink struct {
	mu     sync.Mutex
	events []protocol.Envelope
}

func (c *CaptureSink) Send(env protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, env)
	return nil
}

// Events returns a copy of everything sent so far.
func (c *CaptureSink) Events() []protocol.Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]protocol.Envelope, len(c.events))
	copy(out, c.events)
	return out
}
