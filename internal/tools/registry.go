package tools

import (
	"fmt"
	"sort"
	"sync"

	"abyssal/internal/logging"
)

// DefaultBoost is the increment for actions not in the registry. Unknown
// actions are tolerated rather than rejected; poking at the station is
// mild engagement either way.
const DefaultBoost = 1

// Registry holds the station actions. Thread-safe; registration may happen
// at runtime.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds a tool. Duplicate names are an error.
func (r *Registry) Register(tool *Tool) error {
	if err := tool.Validate(); err != nil {
		return fmt.Errorf("invalid tool: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.tools[tool.Name]; exists {
		return fmt.Errorf("%w: %s", ErrToolAlreadyRegistered, tool.Name)
	}
	r.tools[tool.Name] = tool

	logging.Get(logging.CategoryTools).Debugw("registered tool", "name", tool.Name, "boost", tool.ConfidenceBoost)
	return nil
}

// MustRegister registers and panics on error. For static init-time setup.
func (r *Registry) MustRegister(tool *Tool) {
	if err := r.Register(tool); err != nil {
		panic(fmt.Sprintf("failed to register tool %s: %v", tool.Name, err))
	}
}

// Get returns a tool by name, or nil.
func (r *Registry) Get(name string) *Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Boost returns the fixed increment for an action name. Unknown actions
// default to DefaultBoost.
func (r *Registry) Boost(name string) int {
	if t := r.Get(name); t != nil {
		return t.ConfidenceBoost
	}
	return DefaultBoost
}

// All returns every registered tool sorted by name, for the discovery
// listing.
func (r *Registry) All() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Count returns the number of registered tools.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}
