package cache

import (
	"bytes"
	"os"
	"testing"
	"time"
)

func newTestCache(t *testing.T, ttl time.Duration) *TileCache {
	t.Helper()
	c, err := NewTileCache(t.TempDir(), 16, ttl)
	if err != nil {
		t.Fatalf("NewTileCache() error: %v", err)
	}
	return c
}

func TestSetGetRoundTrip(t *testing.T) {
	c := newTestCache(t, time.Hour)

	key := Key("street", 3, 4, 2)
	data := []byte("tile bytes")
	if err := c.Set(key, data); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	got, ok := c.Get(key)
	if !ok || !bytes.Equal(got, data) {
		t.Errorf("Get() = %v, %v, want stored data", got, ok)
	}
}

func TestGetMiss(t *testing.T) {
	c := newTestCache(t, time.Hour)
	if _, ok := c.Get(Key("street", 1, 0, 0)); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestDiskSurvivesMemoryEviction(t *testing.T) {
	dir := t.TempDir()
	c, err := NewTileCache(dir, 16, time.Hour)
	if err != nil {
		t.Fatalf("NewTileCache() error: %v", err)
	}

	key := Key("terrain", 5, 10, 11)
	if err := c.Set(key, []byte("persisted")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	// A fresh cache instance over the same directory sees the entry.
	c2, err := NewTileCache(dir, 16, time.Hour)
	if err != nil {
		t.Fatalf("NewTileCache() error: %v", err)
	}
	got, ok := c2.Get(key)
	if !ok || string(got) != "persisted" {
		t.Errorf("Get() after restart = %q, %v, want persisted entry", got, ok)
	}
}

func TestExpiredEntriesArePruned(t *testing.T) {
	dir := t.TempDir()
	c, err := NewTileCache(dir, 16, 50*time.Millisecond)
	if err != nil {
		t.Fatalf("NewTileCache() error: %v", err)
	}

	key := Key("satellite", 2, 1, 1)
	if err := c.Set(key, []byte("short lived")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}

	time.Sleep(80 * time.Millisecond)

	// Disk lookup honors the TTL even before pruning runs.
	c.mem.Purge()
	if _, ok := c.Get(key); ok {
		t.Error("expected expired disk entry to miss")
	}

	// A restart prunes the expired file.
	if _, err := NewTileCache(dir, 16, 50*time.Millisecond); err != nil {
		t.Fatalf("NewTileCache() error: %v", err)
	}
	if _, err := os.Stat(c.filePath(key)); !os.IsNotExist(err) {
		t.Error("expected expired file to be removed at startup")
	}
}

func TestClear(t *testing.T) {
	c := newTestCache(t, time.Hour)

	key := Key("street", 1, 1, 1)
	if err := c.Set(key, []byte("x")); err != nil {
		t.Fatalf("Set() error: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear() error: %v", err)
	}
	if _, ok := c.Get(key); ok {
		t.Error("expected cleared cache to miss")
	}
}
