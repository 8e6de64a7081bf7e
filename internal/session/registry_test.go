package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateAndGet(t *testing.T) {
	r := NewRegistry()
	id, e := r.Create()
	require.NotNil(t, e)
	require.NotEmpty(t, id)

	assert.Same(t, e, r.Get(id))
	assert.Nil(t, r.Get("unknown"))
	assert.Equal(t, 1, r.Len())
}

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry()

	a := r.GetOrCreate("client-seeded")
	require.NotNil(t, a)
	assert.Same(t, a, r.GetOrCreate("client-seeded"))

	b := r.GetOrCreate("")
	require.NotNil(t, b)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryEntrySeeded(t *testing.T) {
	r := NewRegistry()
	_, e := r.Create()
	assert.Equal(t, 50, e.State.Confidence)
	assert.Equal(t, PhaseIdle, e.Tracker.State())
}
