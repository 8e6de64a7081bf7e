package session

import (
	"sync"

	"github.com/google/uuid"

	"abyssal/internal/state"
)

// Entry pairs one conversation's state with its tracker and the mutex that
// enforces the single-writer rule.
type Entry struct {
	// Mu serializes interactions against this session. The engine holds it
	// for the synchronous bookkeeping on either side of the analysis call.
	Mu sync.Mutex

	State   *state.Session
	Tracker *Tracker
}

// Registry is the in-memory session store. Sessions live for the process
// lifetime; there is no persistence layer by design.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Entry)}
}

// Create allocates a fresh session and returns its id.
func (r *Registry) Create() (string, *Entry) {
	id := uuid.NewString()
	e := &Entry{
		State:   state.NewSession(id),
		Tracker: NewTracker(),
	}
	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()
	return id, e
}

// Get returns the entry for id, or nil.
func (r *Registry) Get(id string) *Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// GetOrCreate returns the entry for id, lazily creating it when the id is
// unknown (client-seeded sessions).
func (r *Registry) GetOrCreate(id string) *Entry {
	if id == "" {
		_, e := r.Create()
		return e
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		return e
	}
	e := &Entry{
		State:   state.NewSession(id),
		Tracker: NewTracker(),
	}
	r.sessions[id] = e
	return e
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
