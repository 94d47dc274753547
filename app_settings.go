package main

import (
	"log"

	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"climate-viewer/internal/config"
)

// GetSettings returns current user settings
func (a *App) GetSettings() (*config.Settings, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Return a copy to prevent external modifications
	settingsCopy := *a.settings
	return &settingsCopy, nil
}

// SaveSettings saves user settings to disk and updates app state
func (a *App) SaveSettings(settings *config.Settings) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if err := settings.Validate(); err != nil {
		return err
	}

	if err := config.SaveSettings(settings); err != nil {
		return err
	}

	a.settings = settings

	// Note: cache and base URL settings require app restart to take effect
	log.Printf("Settings saved. Cache settings will apply on next restart.")

	return nil
}

// GetSettingsPath returns the OS-specific settings file path
func (a *App) GetSettingsPath() string {
	return config.SettingsPath()
}

// SelectDownloadFolder opens a folder picker dialog for the export directory
func (a *App) SelectDownloadFolder() (string, error) {
	path, err := wailsRuntime.OpenDirectoryDialog(a.ctx, wailsRuntime.OpenDialogOptions{
		Title:            "Select Export Folder",
		DefaultDirectory: a.settings.DownloadPath,
	})
	if err != nil {
		return "", err
	}

	if path != "" {
		a.mu.Lock()
		a.settings.DownloadPath = path
		if err := config.SaveSettings(a.settings); err != nil {
			log.Printf("Failed to persist export folder: %v", err)
		}
		a.mu.Unlock()
	}

	return path, nil
}
