package state

import (
	"encoding/json"
	"fmt"
	"time"
)

// MemoryKind discriminates memory records on the wire.
type MemoryKind string

const (
	MemoryResponse  MemoryKind = "response"
	MemoryToolCall  MemoryKind = "tool_call"
	MemoryInterrupt MemoryKind = "interrupt"
)

// Memory is one interaction record. Each kind carries only its own fields;
// a flat record with optional fields is exactly the shape this replaces.
type Memory interface {
	Kind() MemoryKind
}

// ResponseMemory records a completed user message exchange.
type ResponseMemory struct {
	UserText     string `json:"userText"`
	ResponseText string `json:"responseText"`
	Delta        int    `json:"delta"`
	Timestamp    int64  `json:"timestamp"`
}

func (ResponseMemory) Kind() MemoryKind { return MemoryResponse }

// ToolCallMemory records a station action invocation.
type ToolCallMemory struct {
	Tool      string `json:"tool"`
	Boost     int    `json:"boost"`
	Timestamp int64  `json:"timestamp"`
}

func (ToolCallMemory) Kind() MemoryKind { return MemoryToolCall }

// InterruptMemory records a client cancellation, including where the cut
// landed so the transcript can show a clean truncation.
type InterruptMemory struct {
	InterruptNumber int    `json:"interruptNumber"`
	TruncatedText   string `json:"truncatedText"`
	CutPosition     int    `json:"cutPosition"`
	Timestamp       int64  `json:"timestamp"`
}

func (InterruptMemory) Kind() MemoryKind { return MemoryInterrupt }

// Memories is the append-only memory log with tagged JSON encoding.
type Memories []Memory

func (ms Memories) MarshalJSON() ([]byte, error) {
	out := make([]json.RawMessage, 0, len(ms))
	for _, m := range ms {
		body, err := json.Marshal(m)
		if err != nil {
			return nil, err
		}
		// Inline the discriminant into the record object.
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, err
		}
		tag, _ := json.Marshal(m.Kind())
		fields["type"] = tag
		merged, err := json.Marshal(fields)
		if err != nil {
			return nil, err
		}
		out = append(out, merged)
	}
	return json.Marshal(out)
}

func (ms *Memories) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := make(Memories, 0, len(raw))
	for _, r := range raw {
		var head struct {
			Type MemoryKind `json:"type"`
		}
		if err := json.Unmarshal(r, &head); err != nil {
			return err
		}
		var m Memory
		switch head.Type {
		case MemoryResponse:
			var v ResponseMemory
			if err := json.Unmarshal(r, &v); err != nil {
				return err
			}
			m = v
		case MemoryToolCall:
			var v ToolCallMemory
			if err := json.Unmarshal(r, &v); err != nil {
				return err
			}
			m = v
		case MemoryInterrupt:
			var v InterruptMemory
			if err := json.Unmarshal(r, &v); err != nil {
				return err
			}
			m = v
		default:
			return fmt.Errorf("unknown memory type %q", head.Type)
		}
		parsed = append(parsed, m)
	}
	*ms = parsed
	return nil
}

// Now returns the current wall clock in milliseconds since epoch, the
// timestamp unit used throughout the wire format.
func Now() int64 {
	return time.Now().UnixMilli()
}
