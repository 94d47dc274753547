package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")

	got, err := LoadSettingsFrom(path)
	if err != nil {
		t.Fatalf("LoadSettingsFrom() error: %v", err)
	}
	want := DefaultSettings()
	if got.DefaultBasemap != want.DefaultBasemap || got.DefaultOpacity != want.DefaultOpacity {
		t.Errorf("defaults not applied: got %+v", got)
	}
	if got.SkipStartupLoad {
		t.Error("auto-load must be enabled by default")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	settings := DefaultSettings()
	settings.BaseURL = "https://mirror.example.com/cog/"
	settings.DefaultBasemap = "terrain"
	settings.SkipStartupLoad = true

	if err := SaveSettingsTo(path, settings); err != nil {
		t.Fatalf("SaveSettingsTo() error: %v", err)
	}

	got, err := LoadSettingsFrom(path)
	if err != nil {
		t.Fatalf("LoadSettingsFrom() error: %v", err)
	}
	if got.BaseURL != settings.BaseURL {
		t.Errorf("BaseURL = %s, want %s", got.BaseURL, settings.BaseURL)
	}
	if got.DefaultBasemap != "terrain" || !got.SkipStartupLoad {
		t.Errorf("round trip lost fields: %+v", got)
	}
}

func TestLoadMergesMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"defaultBasemap": "satellite"}`), 0644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	got, err := LoadSettingsFrom(path)
	if err != nil {
		t.Fatalf("LoadSettingsFrom() error: %v", err)
	}
	if got.DefaultBasemap != "satellite" {
		t.Errorf("DefaultBasemap = %s, want satellite", got.DefaultBasemap)
	}
	if got.CacheMemTiles != DefaultSettings().CacheMemTiles {
		t.Errorf("CacheMemTiles = %d, want default", got.CacheMemTiles)
	}
	if got.DefaultOpacity != DefaultSettings().DefaultOpacity {
		t.Errorf("DefaultOpacity = %v, want default", got.DefaultOpacity)
	}
}

func TestValidate(t *testing.T) {
	s := DefaultSettings()
	if err := s.Validate(); err != nil {
		t.Errorf("Validate() on defaults: %v", err)
	}

	s.DefaultOpacity = 1.5
	if err := s.Validate(); err == nil {
		t.Error("expected error for opacity above 1")
	}

	s = DefaultSettings()
	s.DownloadPath = ""
	if err := s.Validate(); err == nil {
		t.Error("expected error for empty download path")
	}
}
