package respond

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"abyssal/internal/logging"
	"abyssal/internal/state"
)

//go:embed content/responses.yaml
var embeddedContent []byte

// Response is the opaque payload handed to the protocol layer.
type Response struct {
	Text string   `yaml:"text" json:"text"`
	Tags []string `yaml:"tags" json:"tags,omitempty"`
	Art  string   `yaml:"art" json:"art,omitempty"`
}

// contentFile is the YAML layout of a response library.
type contentFile struct {
	// Moods maps mood tier -> input type -> variant list. Depth selects
	// within the variants when tagged; otherwise variants rotate.
	Moods map[string]map[string][]Response `yaml:"moods"`

	// Kindred is the special branch gated by hasFoundKindred.
	Kindred []Response `yaml:"kindred"`

	// Fallback is used when a lookup has no authored variant.
	Fallback Response `yaml:"fallback"`

	// Art holds named ASCII pieces referenced by responses and tools.
	Art map[string]string `yaml:"art"`
}

// Library is the hand-authored response lookup. Defaults are embedded;
// an optional directory override is hot-reloaded via fsnotify.
type Library struct {
	mu      sync.RWMutex
	content contentFile

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewLibrary loads the embedded defaults.
func NewLibrary() (*Library, error) {
	var c contentFile
	if err := yaml.Unmarshal(embeddedContent, &c); err != nil {
		return nil, fmt.Errorf("parse embedded content: %w", err)
	}
	return &Library{content: c, done: make(chan struct{})}, nil
}

// LoadDir replaces the library from responses.yaml inside dir.
func (l *Library) LoadDir(dir string) error {
	path := filepath.Join(dir, "responses.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read content override: %w", err)
	}
	var c contentFile
	if err := yaml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse content override: %w", err)
	}
	l.mu.Lock()
	l.content = c
	l.mu.Unlock()
	logging.Get(logging.CategoryContent).Infow("content library loaded", "path", path)
	return nil
}

// Watch hot-reloads the directory override on change until Close.
func (l *Library) Watch(dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	l.watcher = w

	go func() {
		log := logging.Get(logging.CategoryContent)
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if filepath.Base(ev.Name) != "responses.yaml" {
					continue
				}
				if err := l.LoadDir(dir); err != nil {
					log.Warnw("content reload failed, keeping previous library", "err", err)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				log.Warnw("content watcher error", "err", err)
			case <-l.done:
				return
			}
		}
	}()
	return nil
}

// Close stops the watcher, if any.
func (l *Library) Close() {
	close(l.done)
	if l.watcher != nil {
		l.watcher.Close()
	}
}

// Select returns the authored response for the session's current mood and
// the input classification. Variants rotate on message count so repeat
// visitors do not read the same line twice in a row. The kindred branch
// wins once the latch is set and the input runs deep.
func (l *Library) Select(s *state.Session, c Classification) Response {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if s.HasFoundKindred && c.Depth == DepthDeep && len(l.content.Kindred) > 0 {
		return l.content.Kindred[s.MessageCount()%len(l.content.Kindred)]
	}

	mood := string(s.Mood())
	if byType, ok := l.content.Moods[mood]; ok {
		variants := byType[string(c.Type)]
		if len(variants) == 0 {
			variants = byType[string(InputStatement)]
		}
		if len(variants) > 0 {
			r := variants[s.MessageCount()%len(variants)]
			return l.resolveArt(r)
		}
	}
	return l.resolveArt(l.content.Fallback)
}

// Art returns a named ASCII piece, or empty.
func (l *Library) Art(name string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.content.Art[name]
}

// resolveArt swaps an art reference ("@name") for the named piece.
func (l *Library) resolveArt(r Response) Response {
	if len(r.Art) > 1 && r.Art[0] == '@' {
		if piece, ok := l.content.Art[r.Art[1:]]; ok {
			r.Art = piece
		}
	}
	return r
}
