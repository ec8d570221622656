package cache

import (
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestCache[V any](ttl time.Duration, max int) (*Cache[V], *clock) {
	clk := &clock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[V](ttl, max)
	c.now = clk.now
	return c, clk
}

func TestCache_SetAndGet(t *testing.T) {
	c, _ := newTestCache[string](time.Minute, 0)

	c.Set("key1", "value1")
	val, exists := c.Get("key1")
	assert.True(t, exists)
	assert.Equal(t, "value1", val)

	val, exists = c.Get("nonexistent")
	assert.False(t, exists)
	assert.Empty(t, val)
}

func TestCache_Expiry(t *testing.T) {
	c, clk := newTestCache[[]float32](time.Minute, 0)
	c.Set("v", []float32{1, 2})

	clk.t = clk.t.Add(59 * time.Second)
	_, ok := c.Get("v")
	assert.True(t, ok)

	clk.t = clk.t.Add(2 * time.Second)
	_, ok = c.Get("v")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_EvictsSoonestExpiryWhenFull(t *testing.T) {
	c, clk := newTestCache[int](time.Minute, 2)

	c.Set("a", 1)
	clk.t = clk.t.Add(time.Second)
	c.Set("b", 2)
	clk.t = clk.t.Add(time.Second)
	c.Set("c", 3)

	_, okA := c.Get("a")
	_, okB := c.Get("b")
	_, okC := c.Get("c")
	assert.False(t, okA)
	assert.True(t, okB)
	assert.True(t, okC)
	assert.Equal(t, 2, c.Len())
}

func TestCache_OverwriteDoesNotEvict(t *testing.T) {
	c, _ := newTestCache[int](time.Minute, 2)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("a", 10)

	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
	assert.Equal(t, 2, c.Len())
}

func TestCache_DeleteAndClear(t *testing.T) {
	c := New[string](time.Minute, 0)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New[int](time.Minute, 50)
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := strconv.Itoa((n * j) % 80)
				c.Set(key, j)
				c.Get(key)
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 50)
}
