package ux

import (
	"encoding/json"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"abyssal/internal/protocol"
	"abyssal/internal/state"
)

func env(t *testing.T, typ protocol.EventType, payload any) protocol.Envelope {
	t.Helper()
	data, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return protocol.Envelope{
		EventID:       "evt_test",
		SchemaVersion: protocol.SchemaVersion,
		Type:          typ,
		Data:          data,
	}
}

func apply(t *testing.T, m Model, e protocol.Envelope) Model {
	t.Helper()
	m.streaming = true
	m.stream = &Stream{events: make(chan protocol.Envelope), done: make(chan struct{})}
	next, _ := m.handleEnvelope(e)
	return next.(Model)
}

func TestAdvisoryEventsDoNotCommitConfidence(t *testing.T) {
	m := NewModel(NewClient("http://localhost:0"), nil)
	if m.confidence != state.DefaultConfidence {
		t.Fatalf("seed confidence = %d", m.confidence)
	}

	m = apply(t, m, env(t, protocol.EventStateDelta, protocol.StateDelta{
		Operations: []protocol.PatchOp{{Op: "replace", Path: "/confidence", Value: 99}},
	}))
	m = apply(t, m, env(t, protocol.EventAnalysisComplete, protocol.AnalysisComplete{ConfidenceDelta: 15}))

	if m.confidence != state.DefaultConfidence {
		t.Errorf("advisory events moved confidence to %d", m.confidence)
	}
}

func TestTerminalEventCommitsConfidence(t *testing.T) {
	m := NewModel(NewClient("http://localhost:0"), nil)

	sess := state.NewSession("s")
	sess.ApplyDelta(12)
	m = apply(t, m, env(t, protocol.EventResponseComplete, protocol.ResponseComplete{UpdatedState: sess}))

	if m.confidence != state.DefaultConfidence+12 {
		t.Errorf("confidence = %d, want %d", m.confidence, state.DefaultConfidence+12)
	}
	if m.streaming {
		t.Error("streaming should end at terminal event")
	}
}

func TestInterruptedEventCommitsAndMarks(t *testing.T) {
	m := NewModel(NewClient("http://localhost:0"), nil)

	sess := state.NewSession("s")
	sess.ApplyDelta(-15)
	m = apply(t, m, env(t, protocol.EventResponseInterrupted, protocol.ResponseInterrupted{
		UpdatedState:    sess,
		InterruptNumber: 1,
	}))

	if m.confidence != state.DefaultConfidence-15 {
		t.Errorf("confidence = %d, want %d", m.confidence, state.DefaultConfidence-15)
	}
	if !m.interrupted {
		t.Error("interrupted flag not set")
	}
}

func TestGroupAccumulatesChunks(t *testing.T) {
	m := NewModel(NewClient("http://localhost:0"), nil)

	m = apply(t, m, env(t, protocol.EventTextMessageStart, protocol.TextMessageStart{MessageID: "m1"}))
	m = apply(t, m, env(t, protocol.EventTextContent, protocol.TextContent{Chunk: "the water ", ChunkIndex: 0}))
	m = apply(t, m, env(t, protocol.EventTextContent, protocol.TextContent{Chunk: "remembers", ChunkIndex: 1}))
	m = apply(t, m, env(t, protocol.EventTextMessageEnd, protocol.TextMessageEnd{TotalChunks: 2}))

	if m.current == nil {
		t.Fatal("no current group")
	}
	if got := string(m.current.buf); got != "the water remembers" {
		t.Errorf("buffer = %q", got)
	}
	if !m.current.done {
		t.Error("group not marked done after message end")
	}
}

func TestResponseStartRecordsStreamID(t *testing.T) {
	m := NewModel(NewClient("http://localhost:0"), nil)
	m = apply(t, m, env(t, protocol.EventResponseStart, protocol.ResponseStart{StreamID: 9}))
	if m.streamID != 9 {
		t.Errorf("streamID = %d, want 9", m.streamID)
	}
}

func TestSessionStatusNamesStation(t *testing.T) {
	m := NewModel(NewClient("http://localhost:0"), nil)

	next, _ := m.Update(sessionMsg{id: "sess_1"})
	m = next.(Model)

	if len(m.history) == 0 {
		t.Fatal("no status line after session open")
	}
	got := m.history[len(m.history)-1].text
	if !strings.Contains(got, "Meridian-6") {
		t.Errorf("status %q does not name station Meridian-6", got)
	}
}

var _ tea.Model = Model{}
