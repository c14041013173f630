package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestRegistry(ttl time.Duration) (*Registry, *clock) {
	c := &clock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	r := NewRegistry(ttl, func() *Session { return New(Deps{}) })
	r.now = c.now
	return r, c
}

func TestRegistryCreateGetDelete(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)

	s := r.Create()
	got, ok := r.Get(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = r.Get("  ")
	assert.False(t, ok)
	_, ok = r.Get("missing")
	assert.False(t, ok)

	assert.True(t, r.Delete(s.ID()))
	assert.False(t, r.Delete(s.ID()))
	_, ok = r.Get(s.ID())
	assert.False(t, ok)
}

func TestRegistryExpiry(t *testing.T) {
	r, c := newTestRegistry(time.Minute)
	idle := r.Create()
	active := r.Create()

	c.t = c.t.Add(40 * time.Second)
	_, ok := r.Get(active.ID())
	require.True(t, ok)

	c.t = c.t.Add(40 * time.Second)
	_, ok = r.Get(idle.ID())
	assert.False(t, ok, "idle session should expire")
	assert.Equal(t, 1, r.Len())

	_, ok = r.Get(active.ID())
	assert.True(t, ok, "use extends the lifetime")

	c.t = c.t.Add(2 * time.Minute)
	assert.Equal(t, 1, r.Cleanup())
	assert.Equal(t, 0, r.Len())
}

func TestRegistryWithoutTTL(t *testing.T) {
	r, c := newTestRegistry(0)
	s := r.Create()
	c.t = c.t.Add(24 * time.Hour)

	assert.Equal(t, 0, r.Cleanup())
	_, ok := r.Get(s.ID())
	assert.True(t, ok)
}

func TestRegistryCleanupLoop(t *testing.T) {
	r, _ := newTestRegistry(time.Minute)
	assert.Equal(t, 30*time.Second, r.cleanupInterval())

	r.StartCleanup()
	r.StartCleanup()
	r.StopCleanup()
	r.StopCleanup()
}
