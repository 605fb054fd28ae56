package context_cache

import (
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	summarizer_models "github.com/codectx/codectx/code_summarizer/models"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	cache, err := NewCache(CacheConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	return cache
}

func testKey() CacheKey {
	return CacheKey{
		ContentHash: "aaaa1111",
		PromptHash:  "bbbb2222",
		BackendID:   "heuristic:v1",
	}
}

func testEntry(path string) CacheEntry {
	return CacheEntry{
		Path: path,
		Summary: summarizer_models.Summary{
			Summary: "Summarizes " + path,
			Role:    summarizer_models.RoleLibrary,
		},
		ApproxTokens: 12,
	}
}

func TestCache_MissThenHit(t *testing.T) {
	cache := newTestCache(t)
	key := testKey()

	_, hit, err := cache.Lookup(key)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Store(key, testEntry("src/a.go")))

	entry, hit, err := cache.Lookup(key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, key, entry.Key)
	assert.Equal(t, "src/a.go", entry.Path)
	assert.Equal(t, "Summarizes src/a.go", entry.Summary.Summary)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestCache_StoreIsIdempotent(t *testing.T) {
	cache := newTestCache(t)
	key := testKey()

	require.NoError(t, cache.Store(key, testEntry("first.go")))
	// A second store under the same key is a no-op, not an overwrite.
	require.NoError(t, cache.Store(key, testEntry("second.go")))

	entry, hit, err := cache.Lookup(key)
	require.NoError(t, err)
	require.True(t, hit)
	assert.Equal(t, "first.go", entry.Path)
	assert.Equal(t, 1, cache.Stats().TotalEntries)
}

func TestCache_KeyComponentsInvalidate(t *testing.T) {
	cache := newTestCache(t)
	base := testKey()
	require.NoError(t, cache.Store(base, testEntry("x.go")))

	variants := []CacheKey{
		{ContentHash: "changed", PromptHash: base.PromptHash, BackendID: base.BackendID},
		{ContentHash: base.ContentHash, PromptHash: "changed", BackendID: base.BackendID},
		{ContentHash: base.ContentHash, PromptHash: base.PromptHash, BackendID: "ollama:llama3.1"},
	}
	for _, variant := range variants {
		_, hit, err := cache.Lookup(variant)
		require.NoError(t, err)
		assert.False(t, hit, "changed key component must miss: %+v", variant)
	}

	_, hit, err := cache.Lookup(base)
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	cache := newTestCache(t)
	key := testKey()
	require.NoError(t, cache.Store(key, testEntry("x.go")))

	// Truncate the stored entry to garbage.
	require.NoError(t, os.WriteFile(cache.entryPath(key), []byte("{not json"), 0644))

	_, hit, err := cache.Lookup(key)
	assert.False(t, hit)
	require.Error(t, err)

	var cacheErr *CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, CacheStoreCorrupt, cacheErr.Reason)

	stats := cache.Stats()
	assert.Equal(t, 1, stats.Corrupt)
}

func TestCache_KeyMismatchIsCorrupt(t *testing.T) {
	cache := newTestCache(t)
	stored := testKey()
	require.NoError(t, cache.Store(stored, testEntry("x.go")))

	// Copy the valid entry file under a different key's address.
	other := CacheKey{ContentHash: "cccc3333", PromptHash: stored.PromptHash, BackendID: stored.BackendID}
	data, err := os.ReadFile(cache.entryPath(stored))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(cache.entryPath(other), data, 0644))

	_, hit, err := cache.Lookup(other)
	assert.False(t, hit)

	var cacheErr *CacheError
	require.True(t, errors.As(err, &cacheErr))
	assert.Equal(t, CacheStoreCorrupt, cacheErr.Reason)
}

func TestCache_Clear(t *testing.T) {
	cache := newTestCache(t)
	keyA := testKey()
	keyB := CacheKey{ContentHash: "other", PromptHash: "other", BackendID: "heuristic:v1"}
	require.NoError(t, cache.Store(keyA, testEntry("a.go")))
	require.NoError(t, cache.Store(keyB, testEntry("b.go")))

	require.NoError(t, cache.Clear())

	_, hit, err := cache.Lookup(keyA)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 0, cache.countEntries())

	// Clearing an already-empty store succeeds.
	require.NoError(t, cache.Clear())
}

func TestCache_StatsTrackTokensSaved(t *testing.T) {
	cache := newTestCache(t)
	key := testKey()
	require.NoError(t, cache.Store(key, testEntry("x.go")))

	for i := 0; i < 3; i++ {
		_, hit, err := cache.Lookup(key)
		require.NoError(t, err)
		require.True(t, hit)
	}
	_, _, _ = cache.Lookup(CacheKey{ContentHash: "nope"})

	stats := cache.Stats()
	assert.Equal(t, 3, stats.Hits)
	assert.Equal(t, 1, stats.Misses)
	assert.Equal(t, 36, stats.TokensSaved)
}

func TestCacheKey_IDStable(t *testing.T) {
	key := testKey()
	assert.Equal(t, key.ID(), key.ID())
	assert.NotEqual(t, key.ID(), CacheKey{ContentHash: "zz"}.ID())
	assert.Len(t, key.ID(), 32)
}
