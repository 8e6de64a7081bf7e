// Package engine orchestrates one interaction: it drives the analysis
// collaborator, the event sequencer and the session tracker through the
// contractual event order, and owns the reconciliation rule that exactly
// one authoritative terminal event mutates client-visible state.
package engine

import (
	"context"
	"fmt"
	"unicode/utf8"

	"abyssal/internal/analysis"
	"abyssal/internal/logging"
	"abyssal/internal/protocol"
	"abyssal/internal/respond"
	"abyssal/internal/session"
	"abyssal/internal/state"
	"abyssal/internal/stream"
	"abyssal/internal/tools"
)

// InterruptPenalty is the one-time confidence hit for cutting Mira off.
// Deliberately outside the normal analysis delta range.
const InterruptPenalty = -15

// kindredThreshold is the post-mutation confidence at which a deep message
// sets the one-way kindred latch.
const kindredThreshold = 85

// Engine wires the collaborators for the interaction paths.
type Engine struct {
	analyzer analysis.Analyzer
	library  *respond.Library
	registry *tools.Registry

	// chunkSize overrides the default content chunk length when positive.
	chunkSize int
}

// New builds an engine. All collaborators are required.
func New(a analysis.Analyzer, lib *respond.Library, reg *tools.Registry) *Engine {
	return &Engine{analyzer: a, library: lib, registry: reg}
}

// SetChunkSize overrides the text chunk length. Used by tests and the
// offline client.
func (e *Engine) SetChunkSize(n int) { e.chunkSize = n }

// HandleMessage runs the full streaming path for one user message. The
// entry mutex is held for the whole interaction: the session record is
// single-writer, and the analysis call is the only suspension point.
//
// Event order per the protocol contract: RESPONSE_START, rapport triplet,
// narrative triplet(s), STATE_DELTA (advisory), ANALYSIS_COMPLETE
// (advisory), then exactly one terminal RESPONSE_COMPLETE carrying the
// authoritative post-mutation state.
func (e *Engine) HandleMessage(ctx context.Context, entry *session.Entry, text string, sink stream.Sink) error {
	entry.Mu.Lock()
	defer entry.Mu.Unlock()

	tracker := entry.Tracker
	sess := entry.State

	// A new user-initiated interaction resets interrupt tracking so a
	// stale mark can never suppress this stream.
	tracker.ClearInterruptState()
	streamID := tracker.NextStreamID()
	tracker.StartSession(streamID)

	seq := stream.NewSequencer(streamID, sink)
	log := logging.Get(logging.CategoryEngine)

	// The only suspension point. The snapshot keeps the analyzer off the
	// live record.
	result, err := e.analyzer.Analyze(ctx, text, sess.Snapshot())
	if err != nil {
		// Analyzers fall back internally; this is a second net.
		log.Warnw("analyzer error past boundary, using neutral", "err", err)
		result = analysis.Neutral(sess)
	}
	result = analysis.Bound(result)

	// A cancellation may have landed while analysis ran.
	if tracker.WasInterrupted(streamID) {
		return e.finishInterrupted(seq, tracker, sess, nil, "")
	}

	if _, err := seq.Emit(protocol.EventResponseStart, protocol.ResponseStart{
		StreamID:        streamID,
		ConfidenceDelta: result.ConfidenceDelta,
		Metrics:         metricsPtr(result.Traits),
	}, ""); err != nil {
		return e.failStream(seq, tracker, streamID, err)
	}

	// Rapport bar: its own start/chunks/end triplet, reflecting the
	// provisional (not yet committed) confidence.
	bar := respond.RapportBar(state.Clamp(sess.Confidence + result.ConfidenceDelta))
	if _, err := e.streamText(seq, tracker, bar); err != nil {
		return e.failStream(seq, tracker, streamID, err)
	}

	// Narrative reply.
	cls := respond.Classify(text)
	reply := e.library.Select(sess, cls)

	mw, interrupted, err := e.streamTextInterruptible(seq, tracker, streamID, reply.Text)
	if err != nil {
		return e.failStream(seq, tracker, streamID, err)
	}
	if interrupted {
		return e.finishInterrupted(seq, tracker, sess, mw, reply.Text)
	}

	// Advisory partial update: trait display only, never the confidence
	// value a client may rely on.
	if _, err := seq.Emit(protocol.EventStateDelta, protocol.StateDelta{
		Version:   protocol.SchemaVersion,
		Timestamp: state.Now(),
		Operations: []protocol.PatchOp{
			{Op: "replace", Path: "/profile", Value: protocol.MetricsFromProfile(result.Traits)},
		},
	}, ""); err != nil {
		return e.failStream(seq, tracker, streamID, err)
	}

	if _, err := seq.Emit(protocol.EventAnalysisComplete, protocol.AnalysisComplete{
		Reasoning:       result.Reasoning,
		Metrics:         protocol.MetricsFromProfile(result.Traits),
		ConfidenceDelta: result.ConfidenceDelta,
		SuggestedMood:   result.SuggestedMood,
	}, ""); err != nil {
		return e.failStream(seq, tracker, streamID, err)
	}

	// Late cancellation between the advisory events and the commit still
	// yields an interrupt consequence, never a silent drop.
	if tracker.WasInterrupted(streamID) {
		return e.finishInterrupted(seq, tracker, sess, nil, reply.Text)
	}

	// Single authoritative mutation.
	sess.ApplyDelta(result.ConfidenceDelta)
	sess.SetProfile(result.Traits)
	if cls.Depth == respond.DepthDeep && sess.Confidence >= kindredThreshold {
		sess.MarkKindred()
	}
	sess.AppendMemory(state.ResponseMemory{
		UserText:     text,
		ResponseText: reply.Text,
		Delta:        result.ConfidenceDelta,
		Timestamp:    state.Now(),
	})

	if _, err := seq.Emit(protocol.EventResponseComplete, protocol.ResponseComplete{
		UpdatedState: sess,
		Response: protocol.ResponsePayload{
			Text: reply.Text,
			Tags: reply.Tags,
			Art:  reply.Art,
		},
	}, ""); err != nil {
		tracker.Fail(streamID)
		return err
	}

	tracker.Complete(streamID)
	return nil
}

// HandleToolCall runs the abbreviated path: no text streaming, a fixed
// increment by action name, a tool_call memory, one terminal event.
func (e *Engine) HandleToolCall(ctx context.Context, entry *session.Entry, name string, args map[string]any, sink stream.Sink) error {
	entry.Mu.Lock()
	defer entry.Mu.Unlock()

	tracker := entry.Tracker
	sess := entry.State

	tracker.ClearInterruptState()
	streamID := tracker.NextStreamID()
	tracker.StartSession(streamID)

	seq := stream.NewSequencer(streamID, sink)

	if tool := e.registry.Get(name); tool != nil {
		if err := tool.ValidateArgs(args); err != nil {
			// Validation failure terminates with a recoverable ERROR and
			// no state mutation.
			_ = seq.EmitError(protocol.ErrCodeInternal, err.Error(), true)
			tracker.Fail(streamID)
			return err
		}
	}

	boost := e.registry.Boost(name)
	sess.ApplyDelta(boost)
	sess.AppendMemory(state.ToolCallMemory{
		Tool:      name,
		Boost:     boost,
		Timestamp: state.Now(),
	})

	ack := fmt.Sprintf("The station hums as %s engages.", name)
	if art := e.library.Art("anglerfish"); art != "" && name == "sonar_zoom" {
		ack = "The sonar narrows. Something with a lure drifts through the cone."
	}

	if _, err := seq.Emit(protocol.EventResponseComplete, protocol.ResponseComplete{
		UpdatedState: sess,
		Response:     protocol.ResponsePayload{Text: ack, Tags: []string{"tool"}},
	}, ""); err != nil {
		tracker.Fail(streamID)
		return err
	}

	tracker.Complete(streamID)
	return nil
}

// Interrupt records a client cancellation for a stream and the client's
// reported reveal position. The in-flight handler observes the mark at its
// next emission boundary and closes the stream with the interrupt
// consequence; a late mark for an already-finished stream only updates
// bookkeeping.
func (e *Engine) Interrupt(entry *session.Entry, streamID int64, revealedLen int) {
	entry.Tracker.AdvanceLine(revealedLen)
	entry.Tracker.MarkInterrupted(streamID)
}

// streamText emits one full triplet for text, honoring the engine chunk
// size. Returns the writer for inspection.
func (e *Engine) streamText(seq *stream.Sequencer, tracker *session.Tracker, text string) (*stream.MessageWriter, error) {
	mw, err := seq.BeginMessage()
	if err != nil {
		return nil, err
	}
	tracker.BeginLine(mw.MessageID(), utf8.RuneCountInString(text))
	for _, chunk := range stream.SplitChunks(text, e.chunkSize) {
		if err := mw.Chunk(chunk); err != nil {
			return mw, err
		}
	}
	return mw, mw.End()
}

// streamTextInterruptible is streamText with a cancellation check before
// every chunk. On interrupt it stops emitting content but still closes the
// open group cleanly, returning interrupted=true.
func (e *Engine) streamTextInterruptible(seq *stream.Sequencer, tracker *session.Tracker, streamID int64, text string) (*stream.MessageWriter, bool, error) {
	mw, err := seq.BeginMessage()
	if err != nil {
		return nil, false, err
	}
	tracker.BeginLine(mw.MessageID(), utf8.RuneCountInString(text))

	for _, chunk := range stream.SplitChunks(text, e.chunkSize) {
		if tracker.WasInterrupted(streamID) {
			return mw, true, mw.End()
		}
		if err := mw.Chunk(chunk); err != nil {
			return mw, false, err
		}
	}
	return mw, false, mw.End()
}

// finishInterrupted closes out a cancelled stream: close any dangling
// message group, apply the one-time penalty, append the interrupt memory,
// and emit the terminal interrupt variant. The stream always closes.
func (e *Engine) finishInterrupted(seq *stream.Sequencer, tracker *session.Tracker, sess *state.Session, open *stream.MessageWriter, fullText string) error {
	if open != nil && !open.Ended() {
		if err := open.End(); err != nil {
			return err
		}
	}

	cut := tracker.Truncation()
	truncated := truncateRunes(fullText, cut.RevealedLen)

	sess.ApplyDelta(InterruptPenalty)
	n := sess.NextInterruptNumber()
	sess.AppendMemory(state.InterruptMemory{
		InterruptNumber: n,
		TruncatedText:   truncated,
		CutPosition:     cut.RevealedLen,
		Timestamp:       state.Now(),
	})

	_, err := seq.Emit(protocol.EventResponseInterrupted, protocol.ResponseInterrupted{
		UpdatedState:    sess,
		InterruptNumber: n,
		TruncatedText:   truncated,
		CutPosition:     cut.RevealedLen,
	}, "")
	if err != nil {
		return err
	}
	tracker.EndSession()
	return nil
}

// failStream surfaces a mid-stream failure as a terminal ERROR so the
// stream never hangs un-terminated.
func (e *Engine) failStream(seq *stream.Sequencer, tracker *session.Tracker, streamID int64, cause error) error {
	if !seq.Closed() {
		_ = seq.EmitError(protocol.ErrCodeStream, cause.Error(), false)
	}
	tracker.Fail(streamID)
	return cause
}

func metricsPtr(p state.Profile) *protocol.Metrics {
	m := protocol.MetricsFromProfile(p)
	return &m
}

func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if n >= len(runes) {
		return s
	}
	return string(runes[:n])
}
