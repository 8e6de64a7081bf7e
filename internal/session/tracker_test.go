package session

import "testing"

func TestNextStreamIDStrictlyIncreasing(t *testing.T) {
	tr := NewTracker()
	prev := int64(0)
	for i := 0; i < 100; i++ {
		id := tr.NextStreamID()
		if id <= prev {
			t.Fatalf("stream id %d not greater than %d", id, prev)
		}
		prev = id
	}
}

func TestInterruptSingleSlotOverwrite(t *testing.T) {
	tr := NewTracker()

	tr.MarkInterrupted(7)
	if !tr.WasInterrupted(7) {
		t.Fatal("stream 7 should be interrupted")
	}
	if tr.WasInterrupted(8) {
		t.Fatal("stream 8 must not inherit stream 7's interrupt")
	}

	// Marking a new id overwrites the old one.
	tr.MarkInterrupted(9)
	if tr.WasInterrupted(7) {
		t.Error("stream 7 should no longer be interrupted after overwrite")
	}
	if !tr.WasInterrupted(9) {
		t.Error("stream 9 should be interrupted")
	}
}

func TestClearInterruptState(t *testing.T) {
	tr := NewTracker()
	tr.MarkInterrupted(3)
	tr.ClearInterruptState()
	if tr.WasInterrupted(3) {
		t.Error("interrupt state should be cleared")
	}
	if tr.WasInterrupted(0) {
		t.Error("zero id must never read as interrupted")
	}
}

func TestPhaseTransitions(t *testing.T) {
	tr := NewTracker()
	if tr.State() != PhaseIdle {
		t.Fatalf("new tracker phase %s", tr.State())
	}

	id := tr.NextStreamID()
	tr.StartSession(id)
	if tr.State() != PhaseStreaming || tr.ActiveStreamID() != id {
		t.Fatalf("after start: phase=%s active=%d", tr.State(), tr.ActiveStreamID())
	}

	tr.Complete(id)
	if tr.State() != PhaseCompleted || tr.ActiveStreamID() != 0 {
		t.Fatalf("after complete: phase=%s active=%d", tr.State(), tr.ActiveStreamID())
	}

	id2 := tr.NextStreamID()
	tr.StartSession(id2)
	tr.MarkInterrupted(id2)
	if tr.State() != PhaseInterrupted {
		t.Fatalf("after interrupt: phase=%s", tr.State())
	}

	id3 := tr.NextStreamID()
	tr.StartSession(id3)
	tr.Fail(id3)
	if tr.State() != PhaseErrored {
		t.Fatalf("after fail: phase=%s", tr.State())
	}
}

func TestStartSessionSupersedes(t *testing.T) {
	tr := NewTracker()
	tr.StartSession(1)
	tr.StartSession(2)
	if tr.ActiveStreamID() != 2 {
		t.Errorf("active stream %d, want 2", tr.ActiveStreamID())
	}
	// Completing the superseded stream must not clear the new one.
	tr.Complete(1)
	if tr.ActiveStreamID() != 2 {
		t.Errorf("superseded complete cleared active stream")
	}
}

func TestLineBookkeepingAndTruncation(t *testing.T) {
	tr := NewTracker()
	tr.StartSession(tr.NextStreamID())

	tr.BeginLine("line-1", 20)
	tr.AdvanceLine(5)
	tr.BeginLine("line-2", 40)
	tr.AdvanceLine(11)
	tr.AdvanceLine(9) // regressions ignored

	cut := tr.Truncation()
	if cut.LineID != "line-2" {
		t.Errorf("cut line %q, want line-2", cut.LineID)
	}
	if cut.RevealedLen != 11 {
		t.Errorf("revealed %d, want 11", cut.RevealedLen)
	}
	if cut.TotalLen != 40 {
		t.Errorf("total %d, want 40", cut.TotalLen)
	}
	if len(cut.LineIDs) != 2 {
		t.Errorf("line ids %v", cut.LineIDs)
	}

	// Revealed can never exceed total.
	tr.AdvanceLine(500)
	if got := tr.Truncation().RevealedLen; got != 40 {
		t.Errorf("overrun revealed %d, want clamped 40", got)
	}
}

func TestStartSessionResetsLines(t *testing.T) {
	tr := NewTracker()
	tr.StartSession(1)
	tr.BeginLine("a", 10)
	tr.StartSession(2)
	if cut := tr.Truncation(); cut.LineID != "" || len(cut.LineIDs) != 0 {
		t.Errorf("line bookkeeping leaked across streams: %+v", cut)
	}
}
