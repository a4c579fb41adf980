package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"syntego/internal/log"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func TestLRUCache_GetSet(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())
}

func TestLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUCache[int](2, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	_, ok := c.Get("b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 2, c.Size())
	assert.Equal(t, 1, c.Stats().Evictions)
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute, WithClock(clock.Now))
	c.Set("a", 1)
	c.Set("b", 2)

	clock.Advance(30 * time.Second)
	c.Set("b", 3) // refreshes b

	clock.Advance(45 * time.Second)
	_, ok := c.Get("a")
	assert.False(t, ok)

	v, ok := c.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 3, v)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, c.CleanExpired())
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](0, time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	assert.Equal(t, 0, c.Size())

	c.Set("b", 2)
	c.Purge()
	_, ok := c.Get("b")
	assert.False(t, ok)
}

func TestManager_CleanNow(t *testing.T) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	a := NewLRUCache[int](10, time.Second, WithClock(clock.Now))
	b := NewLRUCache[int](10, time.Hour, WithClock(clock.Now))
	a.Set("x", 1)
	b.Set("y", 2)

	m := NewManager(log.New(log.DefaultConfig()))
	m.Register(a)
	m.Register(b)

	clock.Advance(time.Minute)
	assert.Equal(t, 1, m.CleanNow())

	m.StartCleanup(context.Background(), time.Hour)
	m.Stop()
}
