// Package logging provides category-tagged loggers for abyssal, backed by
// zap. Categories map to named loggers so log output can be filtered per
// subsystem.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category names a subsystem logger.
type Category string

const (
	CategoryServer   Category = "server"
	CategorySession  Category = "session"
	CategoryStream   Category = "stream"
	CategoryEngine   Category = "engine"
	CategoryAnalysis Category = "analysis"
	CategoryContent  Category = "content"
	CategoryTools    Category = "tools"
	CategoryUX       Category = "ux"
)

var (
	mu      sync.RWMutex
	root    *zap.Logger
	sugared = make(map[Category]*zap.SugaredLogger)
)

// Init builds the root logger. level is a zap level string ("debug",
// "info", ...); dev selects the development encoder. Safe to call more
// than once; later calls replace the root and drop cached children.
func Init(level string, dev bool) error {
	var cfg zap.Config
	if dev {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if level != "" {
		lvl, err := zapcore.ParseLevel(level)
		if err != nil {
			return err
		}
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := cfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return err
	}

	mu.Lock()
	root = logger
	sugared = make(map[Category]*zap.SugaredLogger)
	mu.Unlock()
	return nil
}

// Get returns the sugared logger for a category. Before Init it returns a
// no-op logger so library code never has to nil-check.
func Get(cat Category) *zap.SugaredLogger {
	mu.RLock()
	if l, ok := sugared[cat]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := sugared[cat]; ok {
		return l
	}
	base := root
	if base == nil {
		base = zap.NewNop()
	}
	l := base.Named(string(cat)).Sugar()
	sugared[cat] = l
	return l
}

// Sync flushes buffered log entries. Called on shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if root != nil {
		_ = root.Sync()
	}
}
