// Package cache stores basemap tiles so panning the map does not re-fetch
// them from the upstream providers. COG raster bodies are deliberately never
// cached: every raster load re-fetches from the network.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// TileCache is a two-level basemap tile cache: an LRU in memory, backed by
// files on disk that survive restarts. Disk entries older than the TTL are
// pruned at startup.
type TileCache struct {
	baseDir    string
	ttl        time.Duration
	mem        *lru.Cache[string, []byte]
	mu         sync.Mutex // guards disk writes for the same key
	memHits    int64
	diskHits   int64
	misses     int64
	statsMu    sync.Mutex
}

// NewTileCache creates a tile cache holding up to memEntries tiles in memory
// under baseDir, with the given time-to-live for disk entries.
func NewTileCache(baseDir string, memEntries int, ttl time.Duration) (*TileCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	mem, err := lru.New[string, []byte](memEntries)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	c := &TileCache{
		baseDir: baseDir,
		ttl:     ttl,
		mem:     mem,
	}

	// A failed prune only means stale files stick around longer.
	if removed, err := c.pruneExpired(); err != nil {
		log.Printf("[TileCache] prune failed: %v", err)
	} else if removed > 0 {
		log.Printf("[TileCache] pruned %d expired tiles", removed)
	}

	return c, nil
}

// Key builds the cache key for one provider tile.
func Key(provider string, z, x, y int) string {
	return fmt.Sprintf("%s/%d/%d/%d", provider, z, x, y)
}

// Get retrieves a tile, trying memory before disk.
func (c *TileCache) Get(key string) ([]byte, bool) {
	if data, ok := c.mem.Get(key); ok {
		c.count(&c.memHits)
		return data, true
	}

	path := c.filePath(key)
	info, err := os.Stat(path)
	if err != nil || time.Since(info.ModTime()) > c.ttl {
		c.count(&c.misses)
		return nil, false
	}

	data, err := os.ReadFile(path)
	if err != nil {
		c.count(&c.misses)
		return nil, false
	}

	c.mem.Add(key, data)
	c.count(&c.diskHits)
	return data, true
}

// Set stores a tile in both levels. Disk write failures are returned but the
// memory entry stays usable.
func (c *TileCache) Set(key string, data []byte) error {
	c.mem.Add(key, data)

	path := c.filePath(key)
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// filePath hashes the key into a fanned-out file path to avoid filesystem
// limits on directory size.
func (c *TileCache) filePath(key string) string {
	hash := sha256.Sum256([]byte(key))
	hashStr := hex.EncodeToString(hash[:])
	return filepath.Join(c.baseDir, hashStr[:2], hashStr+".tile")
}

// pruneExpired removes disk entries older than the TTL.
func (c *TileCache) pruneExpired() (int, error) {
	removed := 0
	err := filepath.Walk(c.baseDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip unreadable entries, keep walking
		}
		if info.IsDir() || filepath.Ext(path) != ".tile" {
			return nil
		}
		if time.Since(info.ModTime()) > c.ttl {
			if os.Remove(path) == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}

// Stats returns hit/miss counters since startup.
func (c *TileCache) Stats() (memHits, diskHits, misses int64) {
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return c.memHits, c.diskHits, c.misses
}

func (c *TileCache) count(counter *int64) {
	c.statsMu.Lock()
	*counter++
	c.statsMu.Unlock()
}

// Clear drops both cache levels.
func (c *TileCache) Clear() error {
	c.mem.Purge()

	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return fmt.Errorf("failed to read cache directory: %w", err)
	}
	for _, entry := range entries {
		os.RemoveAll(filepath.Join(c.baseDir, entry.Name()))
	}
	return nil
}
