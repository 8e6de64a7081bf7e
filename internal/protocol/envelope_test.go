package protocol

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	data, err := Encode(TextContent{Chunk: "the pressure gauge flickers", ChunkIndex: 2})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	tests := []struct {
		name string
		env  Envelope
	}{
		{
			name: "with parent",
			env: Envelope{
				EventID:        NewEventID(),
				SchemaVersion:  SchemaVersion,
				Type:           EventTextContent,
				Timestamp:      1700000000123,
				SequenceNumber: 4,
				ParentEventID:  "evt_1700000000000_aabbccdd",
				Data:           data,
			},
		},
		{
			name: "without parent",
			env: Envelope{
				EventID:        NewEventID(),
				SchemaVersion:  SchemaVersion,
				Type:           EventResponseComplete,
				Timestamp:      1700000000456,
				SequenceNumber: 9,
				Data:           data,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := json.Marshal(tt.env)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}

			var back Envelope
			if err := json.Unmarshal(raw, &back); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if diff := cmp.Diff(tt.env, back); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}

			// Absent parent must be absent on the wire, not empty.
			hasParent := strings.Contains(string(raw), "parent_event_id")
			if hasParent != (tt.env.ParentEventID != "") {
				t.Errorf("parent_event_id presence = %v, want %v", hasParent, tt.env.ParentEventID != "")
			}
		})
	}
}

func TestNewEventIDUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id := NewEventID()
		if !strings.HasPrefix(id, "evt_") {
			t.Fatalf("id %q missing prefix", id)
		}
		if seen[id] {
			t.Fatalf("duplicate event id %q", id)
		}
		seen[id] = true
	}
}

func TestTerminalTypes(t *testing.T) {
	if !EventResponseComplete.Terminal() || !EventResponseInterrupted.Terminal() {
		t.Error("completion variants must be terminal")
	}
	for _, et := range []EventType{EventResponseStart, EventTextContent, EventStateDelta, EventAnalysisComplete, EventError} {
		if et.Terminal() {
			t.Errorf("%s must not be terminal", et)
		}
	}
}

func TestMetricsProfileConversion(t *testing.T) {
	m := Metrics{Thoughtfulness: 70, Adventurousness: 20, Engagement: 55, Curiosity: 90, Superficiality: 10}
	if got := MetricsFromProfile(m.Profile()); got != m {
		t.Errorf("conversion not symmetric: %+v != %+v", got, m)
	}
}
