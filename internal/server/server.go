// Package server is the thin HTTP wrapper around the engine: request
// validation, the SSE endpoints, tool discovery, and the global rate
// limiter. Malformed requests are rejected before any stream opens and
// never enter the protocol's error taxonomy.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"abyssal/internal/engine"
	"abyssal/internal/logging"
	"abyssal/internal/session"
	"abyssal/internal/stream"
	"abyssal/internal/tools"
)

// maxMessageLen bounds incoming user text. Longer payloads are rejected
// as malformed.
const maxMessageLen = 4000

// Server wires the engine and session registry behind HTTP handlers.
type Server struct {
	engine   *engine.Engine
	sessions *session.Registry
	registry *tools.Registry
	limiter  *Limiter

	httpServer *http.Server
}

// Config holds the server wiring options.
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	// RateRPS/RateBurst configure the global limiter; RPS <= 0 disables
	// rate limiting entirely.
	RateRPS   float64
	RateBurst int
}

// New builds a server around an engine.
func New(cfg Config, eng *engine.Engine, sessions *session.Registry, reg *tools.Registry) *Server {
	s := &Server{
		engine:   eng,
		sessions: sessions,
		registry: reg,
		limiter:  NewLimiter(cfg.RateRPS, cfg.RateBurst),
	}
	s.httpServer = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.Handler(),
		ReadTimeout: cfg.ReadTimeout,
		// WriteTimeout stays zero: SSE streams outlive any fixed bound,
		// and stream termination is the engine's always-terminate rule.
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler returns the route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", s.handleCreateSession)
	mux.HandleFunc("GET /api/session/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/chat", s.limited(s.handleChat))
	mux.HandleFunc("POST /api/tool", s.limited(s.handleTool))
	mux.HandleFunc("POST /api/interrupt", s.handleInterrupt)
	mux.HandleFunc("GET /api/tools", s.handleTools)
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	log := logging.Get(logging.CategoryServer)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infow("listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

type chatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if len(req.Message) > maxMessageLen {
		writeError(w, http.StatusBadRequest, "message too long")
		return
	}

	entry := s.sessions.GetOrCreate(req.SessionID)

	sink, err := stream.NewSSESink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.engine.HandleMessage(r.Context(), entry, req.Message, sink); err != nil {
		// The stream is already open; the engine has emitted its terminal
		// ERROR. Nothing more to send here.
		logging.Get(logging.CategoryServer).Warnw("chat stream failed", "err", err)
	}
}

type toolRequest struct {
	SessionID string         `json:"session_id"`
	Tool      string         `json:"tool"`
	Args      map[string]any `json:"args"`
}

func (s *Server) handleTool(w http.ResponseWriter, r *http.Request) {
	var req toolRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Tool == "" {
		writeError(w, http.StatusBadRequest, "tool is required")
		return
	}

	entry := s.sessions.GetOrCreate(req.SessionID)

	sink, err := stream.NewSSESink(w)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := s.engine.HandleToolCall(r.Context(), entry, req.Tool, req.Args, sink); err != nil {
		logging.Get(logging.CategoryServer).Warnw("tool stream failed", "tool", req.Tool, "err", err)
	}
}

type interruptRequest struct {
	SessionID   string `json:"session_id"`
	StreamID    int64  `json:"stream_id"`
	RevealedLen int    `json:"revealed_len"`
}

func (s *Server) handleInterrupt(w http.ResponseWriter, r *http.Request) {
	var req interruptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.SessionID == "" || req.StreamID <= 0 {
		writeError(w, http.StatusBadRequest, "session_id and stream_id are required")
		return
	}

	entry := s.sessions.Get(req.SessionID)
	if entry == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}

	s.engine.Interrupt(entry, req.StreamID, req.RevealedLen)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	id, entry := s.sessions.Create()
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": id,
		"state":      entry.State,
	})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	entry := s.sessions.Get(r.PathValue("id"))
	if entry == nil {
		writeError(w, http.StatusNotFound, "unknown session")
		return
	}
	entry.Mu.Lock()
	defer entry.Mu.Unlock()
	writeJSON(w, http.StatusOK, entry.State)
}

func (s *Server) handleTools(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": s.registry.All()})
}

// limited wraps a handler with the global rate limiter.
func (s *Server) limited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Get(logging.CategoryServer).Warnw("write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
