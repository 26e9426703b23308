// Package cache stores generated Go source on disk, keyed by a hash of the
// template source and the compiler options that produced it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// IndexVersion is bumped whenever generated output changes shape, so stale
// entries from older compilers are ignored
const IndexVersion = "lumen-1"

// Cache is a size-bounded, LRU-evicted artifact cache
type Cache struct {
	mu      sync.Mutex
	dir     string
	index   *Index
	maxSize int64
	maxAge  time.Duration
	stats   Stats
}

// Index is persisted as index.json in the cache directory
type Index struct {
	Version string            `json:"version"`
	Entries map[string]*Entry `json:"entries"`
	Updated time.Time         `json:"updated"`
}

// Entry describes one cached artifact
type Entry struct {
	Key         string    `json:"key"`
	Path        string    `json:"path"`
	Size        int64     `json:"size"`
	Hash        string    `json:"hash"`
	Created     time.Time `json:"created"`
	LastAccess  time.Time `json:"lastAccess"`
	AccessCount int       `json:"accessCount"`
	Source      string    `json:"source,omitempty"`
}

// Stats reports cache activity since New
type Stats struct {
	Hits       int64
	Misses     int64
	Evictions  int64
	TotalSize  int64
	EntryCount int
}

// Config configures a Cache
type Config struct {
	Dir     string
	MaxSize int64         // 0 means unbounded
	MaxAge  time.Duration // 0 means entries never expire
}

// DefaultConfig returns the per-user cache under the OS cache directory
func DefaultConfig() Config {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return Config{
		Dir:     filepath.Join(dir, "lumen"),
		MaxSize: 256 << 20,
		MaxAge:  7 * 24 * time.Hour,
	}
}

// New opens or creates the cache in cfg.Dir
func New(cfg Config) (*Cache, error) {
	if cfg.Dir == "" {
		cfg = DefaultConfig()
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	c := &Cache{
		dir:     cfg.Dir,
		maxSize: cfg.MaxSize,
		maxAge:  cfg.MaxAge,
	}
	if err := c.loadIndex(); err != nil {
		return nil, err
	}
	return c, nil
}

// Dir returns the cache directory
func (c *Cache) Dir() string {
	return c.dir
}

// Get returns the artifact stored under key
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.isExpired(entry) {
		c.removeLocked(key, entry)
		c.stats.Misses++
		return nil, false
	}

	data, err := os.ReadFile(entry.Path)
	if err != nil || hash(data) != entry.Hash {
		// missing or corrupt on disk
		c.removeLocked(key, entry)
		c.stats.Misses++
		return nil, false
	}

	entry.LastAccess = time.Now()
	entry.AccessCount++
	c.stats.Hits++
	return data, true
}

// Put stores data under key, evicting least recently used entries when the
// cache would exceed its size limit
func (c *Cache) Put(key string, data []byte) error {
	return c.PutWithSource(key, data, "")
}

// PutWithSource is Put recording the template path the artifact came from
func (c *Cache) PutWithSource(key string, data []byte, source string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if old, ok := c.index.Entries[key]; ok {
		c.removeLocked(key, old)
	}
	c.evictLocked(int64(len(data)))

	path := filepath.Join(c.dir, key+".go.cache")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	now := time.Now()
	c.index.Entries[key] = &Entry{
		Key:        key,
		Path:       path,
		Size:       int64(len(data)),
		Hash:       hash(data),
		Created:    now,
		LastAccess: now,
		Source:     source,
	}
	c.stats.TotalSize += int64(len(data))
	c.stats.EntryCount = len(c.index.Entries)
	return c.saveIndexLocked()
}

// Delete removes key from the cache
func (c *Cache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.index.Entries[key]
	if !ok {
		return nil
	}
	c.removeLocked(key, entry)
	return c.saveIndexLocked()
}

// InvalidateSource removes every entry generated from the given template path
func (c *Cache) InvalidateSource(source string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := 0
	for key, entry := range c.index.Entries {
		if entry.Source == source {
			c.removeLocked(key, entry)
			n++
		}
	}
	if n == 0 {
		return 0, nil
	}
	return n, c.saveIndexLocked()
}

// Clear removes every entry
func (c *Cache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, entry := range c.index.Entries {
		c.removeLocked(key, entry)
	}
	return c.saveIndexLocked()
}

// Flush persists the index, including access times updated by Get
func (c *Cache) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saveIndexLocked()
}

// Stats returns a snapshot of the cache statistics
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Key derives a cache key from the template source and every option that
// influences the generated output. Options are hashed in the order given.
func Key(source []byte, options ...string) string {
	h := sha256.New()
	h.Write([]byte(IndexVersion))
	h.Write([]byte{0})
	h.Write(source)
	for _, o := range options {
		h.Write([]byte{0})
		h.Write([]byte(o))
	}
	return hex.EncodeToString(h.Sum(nil))[:32]
}

func (c *Cache) loadIndex() error {
	c.index = &Index{Version: IndexVersion, Entries: make(map[string]*Entry)}

	data, err := os.ReadFile(filepath.Join(c.dir, "index.json"))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read cache index: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil || idx.Version != IndexVersion || idx.Entries == nil {
		// unreadable or written by another version; start over
		return nil
	}
	c.index = &idx
	for _, e := range idx.Entries {
		c.stats.TotalSize += e.Size
	}
	c.stats.EntryCount = len(idx.Entries)
	return nil
}

func (c *Cache) saveIndexLocked() error {
	c.index.Updated = time.Now()
	data, err := json.MarshalIndent(c.index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache index: %w", err)
	}
	return os.WriteFile(filepath.Join(c.dir, "index.json"), data, 0644)
}

func (c *Cache) isExpired(e *Entry) bool {
	return c.maxAge > 0 && time.Since(e.Created) > c.maxAge
}

func (c *Cache) evictLocked(needed int64) {
	if c.maxSize <= 0 {
		return
	}
	for c.stats.TotalSize+needed > c.maxSize && len(c.index.Entries) > 0 {
		var oldestKey string
		var oldest *Entry
		for key, e := range c.index.Entries {
			if oldest == nil || e.LastAccess.Before(oldest.LastAccess) {
				oldestKey, oldest = key, e
			}
		}
		c.removeLocked(oldestKey, oldest)
		c.stats.Evictions++
	}
}

func (c *Cache) removeLocked(key string, e *Entry) {
	if err := os.Remove(e.Path); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "Warning: failed to remove cache file %s: %v\n", e.Path, err)
	}
	delete(c.index.Entries, key)
	c.stats.TotalSize -= e.Size
	c.stats.EntryCount = len(c.index.Entries)
}

func hash(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
