package fundamentals

import (
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/rxtech-lab/argo-equity/pkg/errors"
)

// cacheTTL is how long a fetched record set stays fresh. Stale entries are
// refetched on the next accessor call rather than served.
const cacheTTL = 24 * time.Hour

// cacheEntry is the envelope around one symbol's unfiltered record set, both
// in memory and on disk.
type cacheEntry[T any] struct {
	Data        T     `json:"data"`
	TimestampMS int64 `json:"timestamp_ms"`
}

// ttlCache maps symbols to timestamped record sets and mirrors itself to a
// single JSON file. An empty path keeps the cache memory only.
type ttlCache[T any] struct {
	mu      sync.Mutex
	path    string
	entries map[string]cacheEntry[T]
}

func newTTLCache[T any](path string) *ttlCache[T] {
	return &ttlCache[T]{
		mu:      sync.Mutex{},
		path:    path,
		entries: make(map[string]cacheEntry[T]),
	}
}

// get returns the cached records for symbol if they are younger than the TTL.
func (c *ttlCache[T]) get(symbol string, now time.Time) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[symbol]
	if !ok || now.UnixMilli()-entry.TimestampMS > cacheTTL.Milliseconds() {
		var zero T

		return zero, false
	}

	return entry.Data, true
}

// put stores the full unfiltered record set for symbol, stamped at now.
func (c *ttlCache[T]) put(symbol string, data T, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[symbol] = cacheEntry[T]{
		Data:        data,
		TimestampMS: now.UnixMilli(),
	}
}

// load reads the cache file into memory. A missing file leaves the cache
// empty and is not an error.
func (c *ttlCache[T]) load() error {
	if c.path == "" {
		return nil
	}

	raw, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return errors.Wrapf(errors.ErrCodeCacheCorrupted, err, "failed to read fundamentals cache %s", c.path)
	}

	entries := make(map[string]cacheEntry[T])
	if err := json.Unmarshal(raw, &entries); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheCorrupted, err, "failed to decode fundamentals cache %s", c.path)
	}

	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()

	return nil
}

// save mirrors the cache to disk. Persistence is best effort by contract, so
// callers log the returned error instead of failing the request.
func (c *ttlCache[T]) save() error {
	if c.path == "" {
		return nil
	}

	c.mu.Lock()
	raw, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.Unlock()

	if err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to encode fundamentals cache %s", c.path)
	}

	if err := os.WriteFile(c.path, raw, 0o644); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to write fundamentals cache %s", c.path)
	}

	return nil
}
