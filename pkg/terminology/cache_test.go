package terminology

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTLLRUCache_SetGet(t *testing.T) {
	cache := newTTLLRUCache(time.Minute, 10)

	_, ok := cache.get("snomed", "fever")
	assert.False(t, ok)

	want := []Candidate{{Code: "386661006", DisplayName: "Fever"}}
	cache.set("snomed", "fever", want)

	got, ok := cache.get("snomed", "fever")
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestTTLLRUCache_Expiry(t *testing.T) {
	cache := newTTLLRUCache(time.Millisecond, 10)
	cache.set("snomed", "fever", []Candidate{{Code: "386661006"}})

	time.Sleep(5 * time.Millisecond)

	_, ok := cache.get("snomed", "fever")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.len())
}

func TestTTLLRUCache_EvictsLeastRecentlyUsed(t *testing.T) {
	cache := newTTLLRUCache(time.Minute, 2)

	cache.set("snomed", "a", []Candidate{{Code: "a"}})
	cache.set("snomed", "b", []Candidate{{Code: "b"}})

	// Touch "a" so "b" becomes the least recently used entry.
	_, _ = cache.get("snomed", "a")

	cache.set("snomed", "c", []Candidate{{Code: "c"}})

	_, aOK := cache.get("snomed", "a")
	_, bOK := cache.get("snomed", "b")
	_, cOK := cache.get("snomed", "c")

	assert.True(t, aOK)
	assert.False(t, bOK, "least recently used entry should have been evicted")
	assert.True(t, cOK)
	assert.Equal(t, 2, cache.len())
}
