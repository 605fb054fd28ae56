package context_cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/zeebo/xxh3"

	summarizer_models "github.com/codectx/codectx/code_summarizer/models"
	"github.com/codectx/codectx/utils"
)

// CacheKey is the composite fingerprint a summary is addressed by. An
// entry is valid for a file iff all three components match the file's
// current state; a key mismatch is the invalidation signal, there is no
// separate dirty bit.
type CacheKey struct {
	ContentHash string `json:"content_hash"`
	PromptHash  string `json:"prompt_hash"`
	BackendID   string `json:"backend_id"`
}

// ID derives the entry file name for a key.
func (k CacheKey) ID() string {
	h := xxh3.Hash128([]byte(k.ContentHash + "\x00" + k.PromptHash + "\x00" + k.BackendID)).Bytes()
	return fmt.Sprintf("%x", h)
}

// CacheEntry is a stored summary. Entries are written once per key and
// never mutated in place; a changed input produces a new key.
type CacheEntry struct {
	Key          CacheKey                  `json:"key"`
	Path         string                    `json:"path"`
	Summary      summarizer_models.Summary `json:"summary"`
	ApproxTokens int                       `json:"approx_tokens"`
	CreatedAt    time.Time                 `json:"created_at"`
}

// CacheStats tracks lookup performance for status reporting.
type CacheStats struct {
	Hits         int `json:"hits"`
	Misses       int `json:"misses"`
	Corrupt      int `json:"corrupt"`
	TokensSaved  int `json:"tokens_saved"`
	TotalEntries int `json:"total_entries"`
}

// StoreMeta is persisted alongside the entries for the status report.
type StoreMeta struct {
	EntryCount  int       `json:"entry_count"`
	LastUpdated time.Time `json:"last_updated"`
}

// CacheError reason codes.
const (
	CacheStoreCorrupt    = "STORE_CORRUPT"
	CacheStoreUnwritable = "STORE_UNWRITABLE"
)

// CacheError reports a store-level failure. A corrupt entry is reported
// to the caller and treated as a miss; the run proceeds, slower.
type CacheError struct {
	Reason string
	Path   string
	Err    error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s: %s", e.Path, e.Reason)
}

func (e *CacheError) Unwrap() error { return e.Err }

const metaFileName = "meta.json"

// CacheConfig carries the store location explicitly.
type CacheConfig struct {
	Dir string
}

// Cache is a content-addressed store of file summaries, one JSON file per
// key under the cache directory. The read path is safe for concurrent
// lookups; writes are serialized through a cross-process file lock.
type Cache struct {
	dir   string
	flock *flock.Flock

	mu    sync.Mutex
	stats CacheStats
}

// NewCache opens (creating if needed) the store at cfg.Dir.
func NewCache(cfg CacheConfig) (*Cache, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = ".context-cache"
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, &CacheError{Reason: CacheStoreUnwritable, Path: dir, Err: err}
	}
	return &Cache{
		dir:   dir,
		flock: flock.New(filepath.Join(dir, ".lock")),
	}, nil
}

// Dir exposes the store directory.
func (c *Cache) Dir() string { return c.dir }

// Lookup retrieves the entry for key. The second return value reports a
// hit; a non-nil error with a miss means the stored entry was corrupt.
func (c *Cache) Lookup(key CacheKey) (CacheEntry, bool, error) {
	path := c.entryPath(key)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			c.recordMiss()
			return CacheEntry{}, false, nil
		}
		c.recordMiss()
		return CacheEntry{}, false, &CacheError{Reason: CacheStoreCorrupt, Path: path, Err: err}
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.recordCorrupt()
		return CacheEntry{}, false, &CacheError{Reason: CacheStoreCorrupt, Path: path, Err: err}
	}
	if entry.Key != key {
		// Addressing collision or tampered file; safer to resummarize.
		c.recordCorrupt()
		return CacheEntry{}, false, &CacheError{Reason: CacheStoreCorrupt, Path: path, Err: fmt.Errorf("stored key does not match lookup key")}
	}

	c.recordHit(entry.ApproxTokens)
	return entry, true, nil
}

// Store persists entry under key. Storing an already-present key is a
// no-op: keys are derived from content, so an existing entry is the same
// entry. Each write is atomic (temp file + rename) and serialized with
// other writers through the store lock.
func (c *Cache) Store(key CacheKey, entry CacheEntry) error {
	entry.Key = key
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	if err := c.flock.Lock(); err != nil {
		return &CacheError{Reason: CacheStoreUnwritable, Path: c.dir, Err: err}
	}
	defer c.flock.Unlock()

	path := c.entryPath(key)
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	if err := utils.AtomicWriteFile(path, data, 0644); err != nil {
		return &CacheError{Reason: CacheStoreUnwritable, Path: path, Err: err}
	}
	return c.writeMeta()
}

// Clear removes all entries and the store metadata. The generated output
// document lives outside the store and is never touched.
func (c *Cache) Clear() error {
	if err := c.flock.Lock(); err != nil {
		return &CacheError{Reason: CacheStoreUnwritable, Path: c.dir, Err: err}
	}
	defer c.flock.Unlock()

	files, err := os.ReadDir(c.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.dir, f.Name())); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove cache entry %s: %w", f.Name(), err)
		}
	}
	return nil
}

// Stats returns lookup counters plus the current entry count.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	stats := c.stats
	c.mu.Unlock()
	stats.TotalEntries = c.countEntries()
	return stats
}

// Meta loads the persisted store metadata, recomputing it when absent.
func (c *Cache) Meta() StoreMeta {
	data, err := os.ReadFile(filepath.Join(c.dir, metaFileName))
	if err == nil {
		var meta StoreMeta
		if json.Unmarshal(data, &meta) == nil {
			return meta
		}
	}
	return StoreMeta{EntryCount: c.countEntries()}
}

func (c *Cache) entryPath(key CacheKey) string {
	return filepath.Join(c.dir, key.ID()+".json")
}

func (c *Cache) countEntries() int {
	files, err := os.ReadDir(c.dir)
	if err != nil {
		return 0
	}
	count := 0
	for _, f := range files {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") || f.Name() == metaFileName {
			continue
		}
		count++
	}
	return count
}

func (c *Cache) writeMeta() error {
	meta := StoreMeta{
		EntryCount:  c.countEntries(),
		LastUpdated: time.Now().UTC(),
	}
	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode store meta: %w", err)
	}
	return utils.AtomicWriteFile(filepath.Join(c.dir, metaFileName), data, 0644)
}

func (c *Cache) recordHit(tokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Hits++
	c.stats.TokensSaved += tokens
}

func (c *Cache) recordMiss() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Misses++
}

func (c *Cache) recordCorrupt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Misses++
	c.stats.Corrupt++
}
