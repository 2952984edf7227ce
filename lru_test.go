package txcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLRUTierBound(t *testing.T) {
	lru := newLRUTier[string, int](2)

	lru.set("a", 1)
	lru.set("b", 2)
	_, evicted := lru.set("c", 3)

	assert.True(t, evicted)
	assert.LessOrEqual(t, lru.len(), 2)
}

func TestLRUTierEvictsOldestOnOverflow(t *testing.T) {
	lru := newLRUTier[string, int](2)

	lru.set("k1", 1)
	lru.set("k2", 2)
	evictedKey, evicted := lru.set("k3", 3)

	assert.True(t, evicted)
	assert.Equal(t, "k1", evictedKey)

	_, ok := lru.get("k1")
	assert.False(t, ok)

	v2, ok := lru.get("k2")
	assert.True(t, ok)
	assert.Equal(t, 2, v2)
}

func TestLRUTierReinsertionMovesToTail(t *testing.T) {
	lru := newLRUTier[string, int](2)

	lru.set("a", 1)
	lru.set("b", 2)
	lru.set("a", 10) // re-insertion: moves "a" to the tail

	evictedKey, evicted := lru.set("c", 3)

	assert.True(t, evicted)
	assert.Equal(t, "b", evictedKey, "b should be oldest after a was re-inserted")

	v, ok := lru.get("a")
	assert.True(t, ok)
	assert.Equal(t, 10, v)
}

func TestLRUTierZeroCapacityIsANoOp(t *testing.T) {
	lru := newLRUTier[string, int](0)

	evictedKey, evicted := lru.set("a", 1)

	assert.True(t, evicted)
	assert.Equal(t, "a", evictedKey)
	assert.Equal(t, 0, lru.len())
}

func TestLRUTierDeleteAndEntriesOrder(t *testing.T) {
	lru := newLRUTier[string, int](10)

	lru.set("a", 1)
	lru.set("b", 2)
	lru.set("c", 3)

	assert.True(t, lru.delete("b"))
	assert.False(t, lru.delete("b"))

	var keys []string
	lru.entries(func(k string, _ int) bool {
		keys = append(keys, k)
		return true
	})

	assert.Equal(t, []string{"a", "c"}, keys)
}
