// Package stream implements the event sequencer: the single writer that
// assigns sequence numbers and event ids to protocol envelopes and pushes
// them to a transport sink in call order. There is no reordering buffer;
// ordering is guaranteed by the order of Emit calls within one stream.
package stream

import (
	"fmt"
	"time"

	"abyssal/internal/logging"
	"abyssal/internal/protocol"
)

// Sink delivers one envelope per transport frame. Implementations write
// immediately; the sequencer never buffers.
type Sink interface {
	Send(env protocol.Envelope) error
}

// Sequencer produces the totally ordered envelope series for one stream.
// It is owned by a single logical stream handler; no concurrent callers.
type Sequencer struct {
	streamID int64
	sink     Sink
	seq      int
	closed   bool
}

// NewSequencer binds a sequencer to a stream id and sink. Sequence numbers
// start at 0.
func NewSequencer(streamID int64, sink Sink) *Sequencer {
	return &Sequencer{streamID: streamID, sink: sink}
}

// StreamID returns the bound stream identity.
func (s *Sequencer) StreamID() int64 { return s.streamID }

// nextSequence returns the next sequence number: 0,1,2,... with no gaps or
// repeats for the lifetime of this stream.
func (s *Sequencer) nextSequence() int {
	n := s.seq
	s.seq++
	return n
}

// Emit stamps identity, sequence and timestamp onto a payload and writes
// the envelope to the sink immediately. Returns the envelope as written so
// callers can parent later events to its id.
func (s *Sequencer) Emit(t protocol.EventType, payload any, parentEventID string) (protocol.Envelope, error) {
	if s.closed {
		return protocol.Envelope{}, fmt.Errorf("stream %d: emit after terminal event", s.streamID)
	}

	data, err := protocol.Encode(payload)
	if err != nil {
		return protocol.Envelope{}, err
	}

	env := protocol.Envelope{
		EventID:        protocol.NewEventID(),
		SchemaVersion:  protocol.SchemaVersion,
		Type:           t,
		Timestamp:      time.Now().UnixMilli(),
		SequenceNumber: s.nextSequence(),
		ParentEventID:  parentEventID,
		Data:           data,
	}

	if err := s.sink.Send(env); err != nil {
		return env, fmt.Errorf("stream %d: send %s: %w", s.streamID, t, err)
	}

	if t.Terminal() {
		s.closed = true
	}

	logging.Get(logging.CategoryStream).Debugw("emit",
		"stream", s.streamID, "type", t, "seq", env.SequenceNumber)
	return env, nil
}

// EmitError writes an ERROR envelope. It does not terminate the stream by
// itself; the caller decides whether a terminal event follows.
func (s *Sequencer) EmitError(code, message string, recoverable bool) error {
	_, err := s.Emit(protocol.EventError, protocol.ErrorPayload{
		Code:        code,
		Message:     message,
		Recoverable: recoverable,
	}, "")
	return err
}

// Closed reports whether a terminal event has been emitted.
func (s *Sequencer) Closed() bool { return s.closed }
