package cache

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newCache(t *testing.T, cfg Config) *Cache {
	t.Helper()
	if cfg.Dir == "" {
		cfg.Dir = t.TempDir()
	}
	c, err := New(cfg)
	if err != nil {
		t.Fatalf("Failed to create cache: %v", err)
	}
	return c
}

func TestCache_GetPut(t *testing.T) {
	cache := newCache(t, Config{MaxSize: 1 << 20, MaxAge: time.Hour})

	key := Key([]byte("<template><p>{x}</p></template>"), "views")
	data := []byte("package views\n")

	if err := cache.Put(key, data); err != nil {
		t.Fatalf("Failed to put data: %v", err)
	}

	retrieved, found := cache.Get(key)
	if !found {
		t.Fatal("Data not found in cache")
	}
	if !bytes.Equal(retrieved, data) {
		t.Errorf("Retrieved data doesn't match: got %s, want %s", retrieved, data)
	}

	if _, found := cache.Get("non-existent"); found {
		t.Error("Found non-existent key")
	}

	stats := cache.Stats()
	if stats.Hits != 1 || stats.Misses != 1 {
		t.Errorf("Expected 1 hit and 1 miss, got %+v", stats)
	}
	if stats.TotalSize != int64(len(data)) || stats.EntryCount != 1 {
		t.Errorf("Unexpected size accounting: %+v", stats)
	}
}

func TestCache_Overwrite(t *testing.T) {
	cache := newCache(t, Config{})

	cache.Put("k", []byte("first"))
	cache.Put("k", []byte("second value"))

	data, found := cache.Get("k")
	if !found || string(data) != "second value" {
		t.Errorf("Get after overwrite = %q, %v", data, found)
	}
	if stats := cache.Stats(); stats.TotalSize != int64(len("second value")) || stats.EntryCount != 1 {
		t.Errorf("Overwrite left stale accounting: %+v", stats)
	}
}

func TestCache_Delete(t *testing.T) {
	cache := newCache(t, Config{})

	cache.Put("key", []byte("data"))
	if err := cache.Delete("key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, found := cache.Get("key"); found {
		t.Error("Deleted key still present")
	}
	if err := cache.Delete("key"); err != nil {
		t.Errorf("Deleting a missing key should not fail: %v", err)
	}
}

func TestCache_EvictionLRU(t *testing.T) {
	cache := newCache(t, Config{MaxSize: 100})

	cache.Put("key1", bytes.Repeat([]byte("a"), 40))
	time.Sleep(10 * time.Millisecond)
	cache.Put("key2", bytes.Repeat([]byte("b"), 40))
	time.Sleep(10 * time.Millisecond)

	// key1 becomes more recent than key2
	cache.Get("key1")
	time.Sleep(10 * time.Millisecond)

	cache.Put("key3", bytes.Repeat([]byte("c"), 40))

	_, found1 := cache.Get("key1")
	_, found2 := cache.Get("key2")
	_, found3 := cache.Get("key3")

	if !found1 {
		t.Error("key1 was evicted but shouldn't have been")
	}
	if found2 {
		t.Error("key2 was not evicted but should have been")
	}
	if !found3 {
		t.Error("key3 not found")
	}
	if stats := cache.Stats(); stats.Evictions != 1 {
		t.Errorf("Expected 1 eviction, got %d", stats.Evictions)
	}
}

func TestCache_Expiration(t *testing.T) {
	cache := newCache(t, Config{MaxAge: 50 * time.Millisecond})

	cache.Put("key", []byte("data"))
	if _, found := cache.Get("key"); !found {
		t.Fatal("Fresh entry not found")
	}

	time.Sleep(100 * time.Millisecond)

	if _, found := cache.Get("key"); found {
		t.Error("Expired entry still returned")
	}
	if stats := cache.Stats(); stats.EntryCount != 0 {
		t.Errorf("Expired entry not removed: %+v", stats)
	}
}

func TestCache_CorruptEntry(t *testing.T) {
	cache := newCache(t, Config{})

	cache.Put("key", []byte("package views\n"))
	path := filepath.Join(cache.Dir(), "key.go.cache")
	if err := os.WriteFile(path, []byte("tampered"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, found := cache.Get("key"); found {
		t.Error("Corrupt entry returned")
	}
}

func TestCache_InvalidateSource(t *testing.T) {
	cache := newCache(t, Config{})

	cache.PutWithSource("a1", []byte("1"), "views/a.lumen.html")
	cache.PutWithSource("a2", []byte("2"), "views/a.lumen.html")
	cache.PutWithSource("b1", []byte("3"), "views/b.lumen.html")

	n, err := cache.InvalidateSource("views/a.lumen.html")
	if err != nil {
		t.Fatalf("InvalidateSource failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Invalidated %d entries, want 2", n)
	}
	if _, found := cache.Get("b1"); !found {
		t.Error("Unrelated entry was invalidated")
	}
}

func TestCache_Clear(t *testing.T) {
	cache := newCache(t, Config{})

	for i := 0; i < 5; i++ {
		cache.Put(fmt.Sprintf("key%d", i), []byte("data"))
	}
	if err := cache.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	stats := cache.Stats()
	if stats.EntryCount != 0 || stats.TotalSize != 0 {
		t.Errorf("Cache not empty after Clear: %+v", stats)
	}

	files, _ := filepath.Glob(filepath.Join(cache.Dir(), "*.go.cache"))
	if len(files) != 0 {
		t.Errorf("Clear left %d files behind", len(files))
	}
}

func TestCache_Concurrent(t *testing.T) {
	cache := newCache(t, Config{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				key := fmt.Sprintf("key-%d-%d", id, j)
				data := []byte(key)
				if err := cache.Put(key, data); err != nil {
					t.Errorf("Put failed: %v", err)
					return
				}
				if got, found := cache.Get(key); !found || !bytes.Equal(got, data) {
					t.Errorf("Get(%s) = %q, %v", key, got, found)
				}
			}
		}(i)
	}
	wg.Wait()

	if stats := cache.Stats(); stats.EntryCount != 100 {
		t.Errorf("Expected 100 entries, got %d", stats.EntryCount)
	}
}

func TestKey(t *testing.T) {
	src := []byte("<template></template>")

	if Key(src, "views") != Key(src, "views") {
		t.Error("Key is not deterministic")
	}
	if Key(src, "views") == Key(src, "pages") {
		t.Error("Options do not influence the key")
	}
	if Key(src, "a", "bc") == Key(src, "ab", "c") {
		t.Error("Option boundaries are ambiguous")
	}
	if Key(src) == Key([]byte("<template> </template>")) {
		t.Error("Source does not influence the key")
	}
	if len(Key(src)) != 32 {
		t.Errorf("Key length = %d, want 32", len(Key(src)))
	}
}

func TestCache_Persistence(t *testing.T) {
	dir := t.TempDir()

	cache1 := newCache(t, Config{Dir: dir})
	cache1.Put("persistent-key", []byte("persistent-data"))

	cache2 := newCache(t, Config{Dir: dir})
	data, found := cache2.Get("persistent-key")
	if !found {
		t.Fatal("Persistent data not found after restart")
	}
	if string(data) != "persistent-data" {
		t.Errorf("Persistent data corrupted: got %s", data)
	}
	if stats := cache2.Stats(); stats.TotalSize != int64(len("persistent-data")) {
		t.Errorf("Size not restored from index: %+v", stats)
	}
}

func TestCache_VersionMismatch(t *testing.T) {
	dir := t.TempDir()
	index := `{"version":"old","entries":{"k":{"key":"k","path":"x","size":1}}}`
	if err := os.WriteFile(filepath.Join(dir, "index.json"), []byte(index), 0644); err != nil {
		t.Fatal(err)
	}

	cache := newCache(t, Config{Dir: dir})
	if stats := cache.Stats(); stats.EntryCount != 0 {
		t.Errorf("Index from another version was loaded: %+v", stats)
	}
}
