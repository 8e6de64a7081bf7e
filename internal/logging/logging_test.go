package logging

import "testing"

func TestGetBeforeInitIsNoop(t *testing.T) {
	l := Get(CategoryStream)
	if l == nil {
		t.Fatal("Get returned nil before Init")
	}
	// Must not panic.
	l.Debugw("noop", "k", "v")
}

func TestInitAndGet(t *testing.T) {
	if err := Init("debug", true); err != nil {
		t.Fatalf("Init: %v", err)
	}
	defer Sync()

	a := Get(CategoryEngine)
	b := Get(CategoryEngine)
	if a != b {
		t.Error("Get should cache per-category loggers")
	}
	if Get(CategorySession) == a {
		t.Error("categories should get distinct loggers")
	}
}

func TestInitBadLevel(t *testing.T) {
	if err := Init("shouty", false); err == nil {
		t.Fatal("expected error for bad level")
	}
}
