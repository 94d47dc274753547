package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Settings are the persistent user preferences of the viewer.
type Settings struct {
	// BaseURL overrides the catalog's raster host. Empty means the
	// built-in default host.
	BaseURL string `json:"baseURL,omitempty"`

	// Map defaults
	DefaultBasemap string  `json:"defaultBasemap"`
	DefaultOpacity float64 `json:"defaultOpacity"`

	// SkipStartupLoad disables the automatic load of the first catalog
	// variable at startup. The auto-load matches the behavior users
	// expect from the hosted viewer, so it is on unless disabled here.
	SkipStartupLoad bool `json:"skipStartupLoad"`

	// Basemap tile cache
	CacheMemTiles int `json:"cacheMemTiles"`
	CacheTTLDays  int `json:"cacheTTLDays"`

	// Export target directory
	DownloadPath string `json:"downloadPath"`
}

// DefaultSettings returns the viewer defaults
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()

	return &Settings{
		DefaultBasemap:  "street",
		DefaultOpacity:  0.75,
		SkipStartupLoad: false,
		CacheMemTiles:   512,
		CacheTTLDays:    30,
		DownloadPath:    filepath.Join(homeDir, "Downloads", "climate-viewer"),
	}
}

// SettingsPath returns the OS-specific settings file path.
func SettingsPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".climate-viewer", "settings", "settings.json")
}

// LoadSettings loads user settings from the default path.
func LoadSettings() (*Settings, error) {
	return LoadSettingsFrom(SettingsPath())
}

// LoadSettingsFrom loads settings from an explicit path, returning defaults
// when the file does not exist and merging defaults into missing fields.
func LoadSettingsFrom(path string) (*Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultSettings(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read settings file: %w", err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings: %w", err)
	}

	defaults := DefaultSettings()
	if settings.DefaultBasemap == "" {
		settings.DefaultBasemap = defaults.DefaultBasemap
	}
	if settings.DefaultOpacity <= 0 || settings.DefaultOpacity > 1 {
		settings.DefaultOpacity = defaults.DefaultOpacity
	}
	if settings.CacheMemTiles <= 0 {
		settings.CacheMemTiles = defaults.CacheMemTiles
	}
	if settings.CacheTTLDays <= 0 {
		settings.CacheTTLDays = defaults.CacheTTLDays
	}
	if settings.DownloadPath == "" {
		settings.DownloadPath = defaults.DownloadPath
	}

	return &settings, nil
}

// SaveSettings writes settings to the default path.
func SaveSettings(settings *Settings) error {
	return SaveSettingsTo(SettingsPath(), settings)
}

// SaveSettingsTo writes settings to an explicit path.
func SaveSettingsTo(path string, settings *Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	return nil
}

// Validate checks settings a frontend hands back before saving.
func (s *Settings) Validate() error {
	if s.DefaultOpacity <= 0 || s.DefaultOpacity > 1 {
		return fmt.Errorf("default opacity must be in (0, 1], got %v", s.DefaultOpacity)
	}
	if s.CacheMemTiles <= 0 {
		return fmt.Errorf("cache size must be positive")
	}
	if s.CacheTTLDays <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if s.DownloadPath == "" {
		return fmt.Errorf("download path cannot be empty")
	}
	return nil
}
