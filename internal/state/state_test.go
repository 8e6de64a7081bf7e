package state

import "testing"

func TestApplyDeltaClamps(t *testing.T) {
	tests := []struct {
		name  string
		start int
		delta int
		want  int
	}{
		{"normal positive", 50, 12, 62},
		{"normal negative", 50, -10, 40},
		{"clamp high", 98, 8, 100},
		{"clamp low", 5, -10, 0},
		{"clamp exact top", 90, 10, 100},
		{"zero delta", 33, 0, 33},
		{"interrupt penalty clamps", 10, -15, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewSession("s")
			s.Confidence = tt.start
			if got := s.ApplyDelta(tt.delta); got != tt.want {
				t.Errorf("ApplyDelta(%d) from %d = %d, want %d", tt.delta, tt.start, got, tt.want)
			}
			if s.Confidence != tt.want {
				t.Errorf("stored confidence = %d, want %d", s.Confidence, tt.want)
			}
		})
	}
}

func TestMoodTiers(t *testing.T) {
	tests := []struct {
		confidence int
		want       Mood
	}{
		{0, MoodSuspicious},
		{10, MoodSuspicious},
		{19, MoodSuspicious},
		{20, MoodGuarded},
		{39, MoodGuarded},
		{40, MoodCurious},
		{59, MoodCurious},
		{60, MoodOpen},
		{79, MoodOpen},
		{80, MoodTrusting},
		{90, MoodTrusting},
		{100, MoodTrusting},
	}

	for _, tt := range tests {
		if got := MoodFor(tt.confidence); got != tt.want {
			t.Errorf("MoodFor(%d) = %s, want %s", tt.confidence, got, tt.want)
		}
	}

	// Pure function: same input, same output, and Session.Mood agrees.
	s := NewSession("s")
	s.Confidence = 40
	if s.Mood() != MoodFor(40) {
		t.Error("Session.Mood disagrees with MoodFor")
	}
	if MoodFor(40) != MoodFor(40) {
		t.Error("MoodFor is not deterministic")
	}
}

func TestSetProfileClamps(t *testing.T) {
	s := NewSession("s")
	s.SetProfile(Profile{
		Thoughtfulness:  120,
		Adventurousness: -5,
		Engagement:      100,
		Curiosity:       0,
		Superficiality:  55,
	})

	want := Profile{Thoughtfulness: 100, Adventurousness: 0, Engagement: 100, Curiosity: 0, Superficiality: 55}
	if s.Profile != want {
		t.Errorf("profile = %+v, want %+v", s.Profile, want)
	}
}

func TestMessageCountFiltersKinds(t *testing.T) {
	s := NewSession("s")
	const (
		nTools      = 3
		nResponses  = 4
		nInterrupts = 2
	)
	for i := 0; i < nTools; i++ {
		s.AppendMemory(ToolCallMemory{Tool: "sonar_zoom", Boost: 5, Timestamp: Now()})
	}
	for i := 0; i < nResponses; i++ {
		s.AppendMemory(ResponseMemory{UserText: "hello", ResponseText: "...", Timestamp: Now()})
	}
	for i := 0; i < nInterrupts; i++ {
		s.AppendMemory(InterruptMemory{InterruptNumber: s.NextInterruptNumber(), Timestamp: Now()})
	}

	if got := len(s.Memories); got != nTools+nResponses+nInterrupts {
		t.Errorf("memories length = %d, want %d", got, nTools+nResponses+nInterrupts)
	}
	if got := s.MessageCount(); got != nResponses {
		t.Errorf("MessageCount() = %d, want %d", got, nResponses)
	}
}

func TestKindredLatchIsOneWay(t *testing.T) {
	s := NewSession("s")
	if s.HasFoundKindred {
		t.Fatal("new session should not start kindred")
	}
	s.MarkKindred()
	if !s.HasFoundKindred {
		t.Fatal("MarkKindred did not set latch")
	}
}

func TestSnapshotIsIndependent(t *testing.T) {
	s := NewSession("s")
	s.AppendMemory(ResponseMemory{UserText: "a"})
	snap := s.Snapshot()

	s.ApplyDelta(10)
	s.AppendMemory(ResponseMemory{UserText: "b"})

	if snap.Confidence != DefaultConfidence {
		t.Errorf("snapshot confidence mutated: %d", snap.Confidence)
	}
	if len(snap.Memories) != 1 {
		t.Errorf("snapshot memories mutated: %d entries", len(snap.Memories))
	}
}
