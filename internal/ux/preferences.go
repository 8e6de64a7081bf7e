package ux

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// PreferencesVersion is the current schema version for preferences.json.
const PreferencesVersion = "1.0"

// Preferences is the client-side state persisted between chat sessions.
// Server-side session state lives on the server; this only remembers how
// to get back to it.
type Preferences struct {
	Version string `json:"version"`

	// ServerURL is the last server the client talked to.
	ServerURL string `json:"server_url,omitempty"`

	// LastSessionID lets the client resume the previous conversation.
	LastSessionID string `json:"last_session_id,omitempty"`

	// Stats tracks local usage.
	Stats UsageStats `json:"stats"`
}

// UsageStats tracks local interaction counts.
type UsageStats struct {
	ChatCount      int    `json:"chat_count"`
	InterruptCount int    `json:"interrupt_count"`
	LastSession    string `json:"last_session,omitempty"`
}

// PreferencesManager handles loading and saving preferences.
type PreferencesManager struct {
	mu    sync.RWMutex
	path  string
	prefs *Preferences
}

// NewPreferencesManager stores preferences under dir. An empty dir
// resolves to ~/.abyssal.
func NewPreferencesManager(dir string) *PreferencesManager {
	if dir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			dir = filepath.Join(home, ".abyssal")
		} else {
			dir = ".abyssal"
		}
	}
	return &PreferencesManager{
		path: filepath.Join(dir, "preferences.json"),
	}
}

// Load reads preferences from disk, creating defaults if not exists.
// A stale or unreadable file is replaced with defaults rather than
// blocking the chat.
func (pm *PreferencesManager) Load() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	data, err := os.ReadFile(pm.path)
	if err != nil {
		if os.IsNotExist(err) {
			pm.prefs = DefaultPreferences()
			return nil
		}
		return fmt.Errorf("read preferences: %w", err)
	}

	var prefs Preferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		pm.prefs = DefaultPreferences()
		return nil
	}
	if prefs.Version != PreferencesVersion {
		// Schema changed; keep only fields that still mean the same thing.
		migrated := DefaultPreferences()
		migrated.ServerURL = prefs.ServerURL
		migrated.LastSessionID = prefs.LastSessionID
		prefs = *migrated
	}

	pm.prefs = &prefs
	return nil
}

// Save writes preferences to disk.
func (pm *PreferencesManager) Save() error {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	if pm.prefs == nil {
		pm.prefs = DefaultPreferences()
	}

	if err := os.MkdirAll(filepath.Dir(pm.path), 0o755); err != nil {
		return fmt.Errorf("create preferences directory: %w", err)
	}

	data, err := json.MarshalIndent(pm.prefs, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal preferences: %w", err)
	}
	if err := os.WriteFile(pm.path, data, 0o644); err != nil {
		return fmt.Errorf("write preferences: %w", err)
	}
	return nil
}

// Get returns the current preferences.
func (pm *PreferencesManager) Get() *Preferences {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	if pm.prefs == nil {
		return DefaultPreferences()
	}
	p := *pm.prefs
	return &p
}

// RecordSession stores the session id and bumps the chat counter.
func (pm *PreferencesManager) RecordSession(serverURL, sessionID string, interrupts int) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	if pm.prefs == nil {
		pm.prefs = DefaultPreferences()
	}
	pm.prefs.ServerURL = serverURL
	pm.prefs.LastSessionID = sessionID
	pm.prefs.Stats.ChatCount++
	pm.prefs.Stats.InterruptCount += interrupts
	pm.prefs.Stats.LastSession = time.Now().UTC().Format(time.RFC3339)
}

// DefaultPreferences returns the initial schema.
func DefaultPreferences() *Preferences {
	return &Preferences{Version: PreferencesVersion}
}
