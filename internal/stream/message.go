package stream

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"abyssal/internal/protocol"
)

// DefaultChunkSize is the target rune length of one TEXT_CONTENT chunk.
const DefaultChunkSize = 48

// MessageWriter emits one start / N-chunks / end triplet. Every distinct
// text message in an interaction gets its own triplet; chunks parent to
// the opening envelope.
type MessageWriter struct {
	seq         *Sequencer
	messageID   string
	openEventID string
	chunks      int
	ended       bool
}

// BeginMessage opens a message group and emits TEXT_MESSAGE_START.
func (s *Sequencer) BeginMessage() (*MessageWriter, error) {
	id := uuid.NewString()
	env, err := s.Emit(protocol.EventTextMessageStart, protocol.TextMessageStart{MessageID: id}, "")
	if err != nil {
		return nil, err
	}
	return &MessageWriter{seq: s, messageID: id, openEventID: env.EventID}, nil
}

// MessageID returns the group's message id.
func (m *MessageWriter) MessageID() string { return m.messageID }

// Chunk emits one TEXT_CONTENT envelope parented to the opener.
func (m *MessageWriter) Chunk(text string) error {
	if m.ended {
		return nil
	}
	_, err := m.seq.Emit(protocol.EventTextContent, protocol.TextContent{
		Chunk:      text,
		ChunkIndex: m.chunks,
	}, m.openEventID)
	if err != nil {
		return err
	}
	m.chunks++
	return nil
}

// End closes the group with the chunk total. Idempotent: an interrupted
// handler can call End on an already-closed group without emitting twice.
func (m *MessageWriter) End() error {
	if m.ended {
		return nil
	}
	m.ended = true
	_, err := m.seq.Emit(protocol.EventTextMessageEnd, protocol.TextMessageEnd{
		TotalChunks: m.chunks,
	}, m.openEventID)
	return err
}

// Ended reports whether the group has been closed.
func (m *MessageWriter) Ended() bool { return m.ended }

// Chunks returns how many content chunks have been emitted.
func (m *MessageWriter) Chunks() int { return m.chunks }

// SplitChunks breaks text into chunks of at most size runes, preferring
// word boundaries. Empty text yields no chunks.
func SplitChunks(text string, size int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}

	var chunks []string
	var b strings.Builder
	count := 0
	for _, word := range strings.SplitAfter(text, " ") {
		wl := utf8.RuneCountInString(word)
		if count > 0 && count+wl > size {
			chunks = append(chunks, b.String())
			b.Reset()
			count = 0
		}
		b.WriteString(word)
		count += wl
	}
	if b.Len() > 0 {
		chunks = append(chunks, b.String())
	}
	return chunks
}
