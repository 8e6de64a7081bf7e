package ux

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"abyssal/internal/protocol"
	"abyssal/internal/respond"
	"abyssal/internal/state"
)

const (
	// revealStep is how many runes each tick uncovers. Slow enough to read
	// as typing, fast enough not to drag.
	revealStep     = 3
	revealInterval = 25 * time.Millisecond
)

// Messages for tea updates.
type (
	envelopeMsg     protocol.Envelope
	streamClosedMsg struct{ err error }
	revealTickMsg   time.Time
	sessionMsg      struct {
		id      string
		resumed bool
		err     error
	}
)

type chatLine struct {
	role string // "you", "mira", "status", "error", "art"
	text string
}

// group accumulates one message group as its chunks arrive, revealing
// runes gradually.
type group struct {
	buf   []rune
	shown int
	done  bool
}

// Model is the interactive chat model.
type Model struct {
	client *Client
	prefs  *PreferencesManager
	styles Styles

	textinput textinput.Model
	viewport  viewport.Model
	spinner   spinner.Model

	sessionID string
	history   []chatLine

	// Streaming state for the in-flight interaction.
	stream      *Stream
	streamID    int64
	streaming   bool
	interrupted bool
	current     *group

	// Committed state: written only from terminal events.
	confidence int
	kindred    bool

	interruptCount int

	width  int
	height int
	ready  bool
	err    error
}

// NewModel creates the chat model against the given server client.
// prefs may be nil; the model then keeps no state between runs.
func NewModel(client *Client, prefs *PreferencesManager) Model {
	styles := DefaultStyles()

	ti := textinput.New()
	ti.Placeholder = "Say something... (Esc interrupts, Ctrl+C leaves)"
	ti.Focus()
	ti.Prompt = "│ "
	ti.CharLimit = 4000
	ti.Width = 80
	ti.PromptStyle = styles.Prompt

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = styles.Spinner

	vp := viewport.New(80, 20)

	return Model{
		client:     client,
		prefs:      prefs,
		styles:     styles,
		textinput:  ti,
		viewport:   vp,
		spinner:    sp,
		confidence: state.DefaultConfidence,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textinput.Blink,
		m.spinner.Tick,
		m.openSession(),
	)
}

func (m Model) openSession() tea.Cmd {
	return func() tea.Msg {
		// A remembered session id resumes the previous conversation; the
		// server resurrects unknown ids as fresh sessions, so this never
		// fails harder than starting over.
		if m.prefs != nil {
			if last := m.prefs.Get().LastSessionID; last != "" {
				return sessionMsg{id: last, resumed: true}
			}
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		id, err := m.client.CreateSession(ctx)
		return sessionMsg{id: id, err: err}
	}
}

// waitForEvent blocks on the stream until the next envelope or closure.
func waitForEvent(st *Stream) tea.Cmd {
	return func() tea.Msg {
		env, ok := <-st.Events()
		if !ok {
			return streamClosedMsg{err: st.Err()}
		}
		return envelopeMsg(env)
	}
}

func revealTick() tea.Cmd {
	return tea.Tick(revealInterval, func(t time.Time) tea.Msg {
		return revealTickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
		spCmd tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC:
			if m.prefs != nil && m.sessionID != "" {
				m.prefs.RecordSession(m.client.BaseURL(), m.sessionID, m.interruptCount)
				_ = m.prefs.Save()
			}
			return m, tea.Quit

		case tea.KeyEsc:
			if m.streaming && !m.interrupted {
				return m, m.sendInterrupt()
			}
			return m, nil

		case tea.KeyEnter:
			if !m.streaming && m.sessionID != "" {
				return m.handleSubmit()
			}
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 4
		m.textinput.Width = msg.Width - 4
		m.ready = true
		m.refreshViewport()

	case sessionMsg:
		if msg.err != nil {
			m.err = msg.err
			m.history = append(m.history, chatLine{role: "error", text: "cannot reach the station: " + msg.err.Error()})
		} else {
			m.sessionID = msg.id
			text := "link established with research station Meridian-6"
			if msg.resumed {
				text = "link re-established; mira remembers you"
			}
			m.history = append(m.history, chatLine{role: "status", text: text})
		}
		m.refreshViewport()

	case envelopeMsg:
		return m.handleEnvelope(protocol.Envelope(msg))

	case streamClosedMsg:
		m.streaming = false
		m.stream = nil
		m.flushCurrent()
		if msg.err != nil {
			m.history = append(m.history, chatLine{role: "error", text: "connection dropped: " + msg.err.Error()})
		}
		m.refreshViewport()
		return m, nil

	case revealTickMsg:
		if m.current != nil && m.current.shown < len(m.current.buf) {
			m.current.shown += revealStep
			if m.current.shown > len(m.current.buf) {
				m.current.shown = len(m.current.buf)
			}
			m.refreshViewport()
		}
		if m.current != nil && m.current.done && m.current.shown >= len(m.current.buf) {
			m.flushCurrent()
			m.refreshViewport()
		}
		if m.streaming || m.current != nil {
			return m, revealTick()
		}
		return m, nil

	case spinner.TickMsg:
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, spCmd
	}

	m.textinput, tiCmd = m.textinput.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)
	return m, tea.Batch(tiCmd, vpCmd, spCmd)
}

func (m Model) handleSubmit() (tea.Model, tea.Cmd) {
	text := strings.TrimSpace(m.textinput.Value())
	if text == "" {
		return m, nil
	}
	m.textinput.Reset()

	if cmd, handled := m.handleSlashCommand(text); handled {
		return m, cmd
	}

	m.history = append(m.history, chatLine{role: "you", text: text})
	m.refreshViewport()

	st, err := m.client.Chat(context.Background(), m.sessionID, text)
	if err != nil {
		m.history = append(m.history, chatLine{role: "error", text: err.Error()})
		m.refreshViewport()
		return m, nil
	}

	m.stream = st
	m.streaming = true
	m.interrupted = false
	m.streamID = 0
	m.current = nil
	return m, tea.Batch(waitForEvent(st), revealTick())
}

// handleSlashCommand intercepts /tools and /tool invocations.
func (m *Model) handleSlashCommand(text string) (tea.Cmd, bool) {
	if !strings.HasPrefix(text, "/") {
		return nil, false
	}
	fields := strings.Fields(text)
	switch fields[0] {
	case "/tools":
		tools, err := m.client.Tools(context.Background())
		if err != nil {
			m.history = append(m.history, chatLine{role: "error", text: err.Error()})
		} else {
			for _, t := range tools {
				m.history = append(m.history, chatLine{role: "status", text: fmt.Sprintf("%s — %s", t.Name, t.Description)})
			}
		}
		m.refreshViewport()
		return nil, true

	case "/tool":
		if len(fields) < 2 {
			m.history = append(m.history, chatLine{role: "error", text: "usage: /tool <name> [key=value ...]"})
			m.refreshViewport()
			return nil, true
		}
		args := map[string]any{}
		for _, kv := range fields[2:] {
			if k, v, ok := strings.Cut(kv, "="); ok {
				args[k] = v
			}
		}
		st, err := m.client.CallTool(context.Background(), m.sessionID, fields[1], args)
		if err != nil {
			m.history = append(m.history, chatLine{role: "error", text: err.Error()})
			m.refreshViewport()
			return nil, true
		}
		m.stream = st
		m.streaming = true
		m.interrupted = false
		m.current = nil
		m.refreshViewport()
		return tea.Batch(waitForEvent(st), revealTick()), true
	}

	m.history = append(m.history, chatLine{role: "error", text: "unknown command " + fields[0]})
	m.refreshViewport()
	return nil, true
}

func (m Model) sendInterrupt() tea.Cmd {
	sessionID, streamID := m.sessionID, m.streamID
	revealed := 0
	if m.current != nil {
		revealed = m.current.shown
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// The terminal RESPONSE_INTERRUPTED arrives on the open stream;
		// nothing to do here beyond firing the request.
		_ = m.client.Interrupt(ctx, sessionID, streamID, revealed)
		return nil
	}
}

func (m Model) handleEnvelope(env protocol.Envelope) (tea.Model, tea.Cmd) {
	switch env.Type {
	case protocol.EventResponseStart:
		var p protocol.ResponseStart
		if json.Unmarshal(env.Data, &p) == nil {
			m.streamID = p.StreamID
		}

	case protocol.EventTextMessageStart:
		m.flushCurrent()
		m.current = &group{}

	case protocol.EventTextContent:
		var p protocol.TextContent
		if json.Unmarshal(env.Data, &p) == nil && m.current != nil {
			m.current.buf = append(m.current.buf, []rune(p.Chunk)...)
		}

	case protocol.EventTextMessageEnd:
		if m.current != nil {
			m.current.done = true
		}

	case protocol.EventStateDelta, protocol.EventAnalysisComplete:
		// Advisory only. Rendered state waits for the terminal event.

	case protocol.EventResponseComplete:
		var p protocol.ResponseComplete
		if json.Unmarshal(env.Data, &p) == nil && p.UpdatedState != nil {
			m.commitState(p.UpdatedState)
			if p.Response.Art != "" {
				m.history = append(m.history, chatLine{role: "art", text: p.Response.Art})
			}
		}
		m.streaming = false

	case protocol.EventResponseInterrupted:
		var p protocol.ResponseInterrupted
		if json.Unmarshal(env.Data, &p) == nil && p.UpdatedState != nil {
			m.commitState(p.UpdatedState)
		}
		m.interrupted = true
		m.interruptCount++
		m.streaming = false
		m.flushCurrent()
		m.history = append(m.history, chatLine{role: "status", text: "mira falls silent mid-sentence."})

	case protocol.EventError:
		var p protocol.ErrorPayload
		if json.Unmarshal(env.Data, &p) == nil {
			m.history = append(m.history, chatLine{role: "error", text: p.Message})
		}
		m.streaming = false
	}

	m.refreshViewport()
	// Keep draining until the server closes the stream, even past the
	// terminal event, so the close is observed and the stream released.
	if m.stream != nil {
		return m, waitForEvent(m.stream)
	}
	return m, nil
}

// commitState applies authoritative session state from a terminal event.
func (m *Model) commitState(sess *state.Session) {
	m.confidence = sess.Confidence
	m.kindred = sess.HasFoundKindred
}

// flushCurrent moves the in-progress group into history, fully revealed.
func (m *Model) flushCurrent() {
	if m.current == nil {
		return
	}
	text := strings.TrimSpace(string(m.current.buf))
	if text != "" {
		role := "mira"
		if strings.HasPrefix(text, "rapport ") {
			role = "status"
		}
		m.history = append(m.history, chatLine{role: role, text: text})
	}
	m.current = nil
}

func (m *Model) refreshViewport() {
	var b strings.Builder
	for _, line := range m.history {
		b.WriteString(m.renderLine(line))
		b.WriteByte('\n')
	}
	if m.current != nil && m.current.shown > 0 {
		shown := string(m.current.buf[:m.current.shown])
		b.WriteString(m.styles.MiraLine.Render("mira: " + shown))
		b.WriteByte('\n')
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m *Model) renderLine(line chatLine) string {
	switch line.role {
	case "you":
		return m.styles.UserLine.Render("you:  " + line.text)
	case "mira":
		return m.styles.MiraLine.Render("mira: " + line.text)
	case "art":
		return m.styles.Art.Render(line.text)
	case "error":
		return m.styles.ErrorLine.Render("! " + line.text)
	default:
		return m.styles.Status.Render("· " + line.text)
	}
}

func (m Model) View() string {
	if !m.ready {
		return "diving...\n"
	}

	title := m.styles.Title.Render("ABYSSAL · research station Meridian-6")
	rapport := m.styles.Rapport.Render(respond.RapportBar(m.confidence))
	if m.kindred {
		rapport += m.styles.Rapport.Render("  ◆ kindred")
	}

	status := ""
	if m.streaming {
		status = " " + m.spinner.View() + " mira is speaking (Esc to cut in)"
	}

	return fmt.Sprintf("%s  %s%s\n%s\n%s\n", title, rapport, status, m.viewport.View(), m.textinput.View())
}
