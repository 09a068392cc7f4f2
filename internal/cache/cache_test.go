package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUGetSet(t *testing.T) {
	c := NewLRU(1024)

	_, ok := c.Get(Key{Path: "b", Block: 0})
	assert.False(t, ok)

	c.Set(Key{Path: "b", Block: 0}, []byte("hello"))
	got, ok := c.Get(Key{Path: "b", Block: 0})
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got)

	hits, misses := c.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestLRUEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRU(32)

	c.Set(Key{Path: "b", Block: 0}, make([]byte, 16))
	c.Set(Key{Path: "b", Block: 1}, make([]byte, 16))

	// Touch block 0 so block 1 is the eviction candidate.
	_, ok := c.Get(Key{Path: "b", Block: 0})
	require.True(t, ok)

	c.Set(Key{Path: "b", Block: 2}, make([]byte, 16))

	_, ok = c.Get(Key{Path: "b", Block: 0})
	assert.True(t, ok)
	_, ok = c.Get(Key{Path: "b", Block: 1})
	assert.False(t, ok, "cold block evicted")
	assert.LessOrEqual(t, c.Size(), int64(32))
}

func TestLRUInvalidateByPath(t *testing.T) {
	c := NewLRU(1024)
	c.Set(Key{Path: "a", Block: 0}, []byte("x"))
	c.Set(Key{Path: "a", Block: 1}, []byte("y"))
	c.Set(Key{Path: "b", Block: 0}, []byte("z"))

	c.Invalidate(func(k Key) bool { return k.Path == "a" })

	_, ok := c.Get(Key{Path: "a", Block: 0})
	assert.False(t, ok)
	_, ok = c.Get(Key{Path: "a", Block: 1})
	assert.False(t, ok)
	_, ok = c.Get(Key{Path: "b", Block: 0})
	assert.True(t, ok)
}
