package state

import (
	"encoding/json"
	"testing"
)

func TestMemoriesRoundTrip(t *testing.T) {
	ms := Memories{
		ResponseMemory{UserText: "what is this?", ResponseText: "a station", Delta: 12, Timestamp: 1700000000000},
		ToolCallMemory{Tool: "sonar_zoom", Boost: 5, Timestamp: 1700000000001},
		InterruptMemory{InterruptNumber: 1, TruncatedText: "I was say", CutPosition: 9, Timestamp: 1700000000002},
	}

	data, err := json.Marshal(ms)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var back Memories
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if len(back) != 3 {
		t.Fatalf("got %d memories, want 3", len(back))
	}

	r, ok := back[0].(ResponseMemory)
	if !ok {
		t.Fatalf("memory 0 decoded as %T, want ResponseMemory", back[0])
	}
	if r.Delta != 12 || r.UserText != "what is this?" {
		t.Errorf("response memory fields lost: %+v", r)
	}

	tc, ok := back[1].(ToolCallMemory)
	if !ok {
		t.Fatalf("memory 1 decoded as %T, want ToolCallMemory", back[1])
	}
	if tc.Tool != "sonar_zoom" || tc.Boost != 5 {
		t.Errorf("tool memory fields lost: %+v", tc)
	}

	iv, ok := back[2].(InterruptMemory)
	if !ok {
		t.Fatalf("memory 2 decoded as %T, want InterruptMemory", back[2])
	}
	if iv.InterruptNumber != 1 || iv.CutPosition != 9 {
		t.Errorf("interrupt memory fields lost: %+v", iv)
	}
}

func TestMemoriesWireHasDiscriminant(t *testing.T) {
	ms := Memories{ToolCallMemory{Tool: "ping_sonar"}}
	data, err := json.Marshal(ms)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var raw []map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("unmarshal raw: %v", err)
	}
	if raw[0]["type"] != "tool_call" {
		t.Errorf("wire discriminant = %v, want tool_call", raw[0]["type"])
	}
}

func TestMemoriesUnknownTypeRejected(t *testing.T) {
	var ms Memories
	err := json.Unmarshal([]byte(`[{"type":"dream"}]`), &ms)
	if err == nil {
		t.Fatal("expected error for unknown memory type")
	}
}

func TestSessionJSONRoundTrip(t *testing.T) {
	s := NewSession("abc")
	s.ApplyDelta(13)
	s.MarkKindred()
	s.AppendMemory(ResponseMemory{UserText: "hi"})

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var back Session
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if back.Confidence != 63 || !back.HasFoundKindred || len(back.Memories) != 1 {
		t.Errorf("session round trip lost fields: %+v", back)
	}
}
