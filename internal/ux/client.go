// Package ux implements the terminal chat client: an HTTP/SSE client for
// the abyssal server and a bubbletea model that renders the stream.
package ux

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"abyssal/internal/logging"
	"abyssal/internal/protocol"
	"abyssal/internal/state"
)

// Client talks to an abyssal server.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at baseURL. Streaming requests
// carry no client-side timeout; the per-call context bounds them.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{},
	}
}

// BaseURL returns the server base URL this client targets.
func (c *Client) BaseURL() string { return c.baseURL }

// CreateSession opens a fresh session and returns its id.
func (c *Client) CreateSession(ctx context.Context) (string, error) {
	resp, err := c.postJSON(ctx, "/api/session", nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		return "", statusError(resp)
	}

	var out struct {
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode session response: %w", err)
	}
	return out.SessionID, nil
}

// Session fetches the current state of a session.
func (c *Client) Session(ctx context.Context, id string) (*state.Session, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/session/"+id, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var sess state.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &sess, nil
}

// Stream is a live SSE event stream. Events arrive on Events until the
// server closes the connection or a terminal event is emitted; after the
// channel closes, Err reports any transport failure.
type Stream struct {
	events chan protocol.Envelope
	err    error
	done   chan struct{}
}

// Events returns the envelope channel. It is closed when the stream ends.
func (s *Stream) Events() <-chan protocol.Envelope { return s.events }

// Err returns the transport error, if any, once Events is closed.
func (s *Stream) Err() error {
	<-s.done
	return s.err
}

// Chat sends a user message and returns the resulting event stream.
func (c *Client) Chat(ctx context.Context, sessionID, message string) (*Stream, error) {
	return c.openStream(ctx, "/api/chat", map[string]any{
		"session_id": sessionID,
		"message":    message,
	})
}

// CallTool invokes a station instrument and returns its event stream.
func (c *Client) CallTool(ctx context.Context, sessionID, tool string, args map[string]any) (*Stream, error) {
	return c.openStream(ctx, "/api/tool", map[string]any{
		"session_id": sessionID,
		"tool":       tool,
		"args":       args,
	})
}

// Interrupt asks the server to cut the identified stream short.
// revealedLen is how many runes of the current line the client has shown.
func (c *Client) Interrupt(ctx context.Context, sessionID string, streamID int64, revealedLen int) error {
	resp, err := c.postJSON(ctx, "/api/interrupt", map[string]any{
		"session_id":   sessionID,
		"stream_id":    streamID,
		"revealed_len": revealedLen,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		return statusError(resp)
	}
	return nil
}

// Tools lists the station instruments the server exposes.
func (c *Client) Tools(ctx context.Context) ([]ToolInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tools", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(resp)
	}

	var out struct {
		Tools []ToolInfo `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode tools: %w", err)
	}
	return out.Tools, nil
}

// ToolInfo is the discovery view of a station instrument.
type ToolInfo struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	HasSideEffects bool   `json:"has_side_effects"`
}

func (c *Client) openStream(ctx context.Context, path string, body any) (*Stream, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, statusError(resp)
	}

	st := &Stream{
		events: make(chan protocol.Envelope, 16),
		done:   make(chan struct{}),
	}
	go st.readLoop(resp.Body)
	return st, nil
}

// readLoop parses SSE frames off the wire: one JSON envelope per data
// line, events separated by blank lines.
func (s *Stream) readLoop(body io.ReadCloser) {
	defer close(s.done)
	defer close(s.events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			// Frame boundary; envelopes are single-line so nothing buffers.
		case strings.HasPrefix(line, "data: "):
			payload := strings.TrimPrefix(line, "data: ")
			var env protocol.Envelope
			if err := json.Unmarshal([]byte(payload), &env); err != nil {
				logging.Get(logging.CategoryUX).Warnf("malformed envelope: %v", err)
				continue
			}
			s.events <- env
		case strings.HasPrefix(line, ":"):
			// Comment keep-alive.
		}
	}

	if err := scanner.Err(); err != nil {
		s.err = err
	}
}

func (c *Client) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.http.Do(req)
}

func statusError(resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(data))
	if msg == "" {
		msg = resp.Status
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
}

// WaitHealthy polls the tools endpoint until the server answers or the
// context expires. Used by the chat command when it spawns its own server.
func (c *Client) WaitHealthy(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if _, err := c.Tools(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
