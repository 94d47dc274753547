package main

import (
	"context"
	"errors"
	"fmt"
	"image/png"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	wailsRuntime "github.com/wailsapp/wails/v2/pkg/runtime"

	"climate-viewer/internal/basemap"
	"climate-viewer/internal/cache"
	"climate-viewer/internal/catalog"
	"climate-viewer/internal/cog"
	"climate-viewer/internal/config"
	"climate-viewer/internal/handlers/tileserver"
	"climate-viewer/internal/naming"
	"climate-viewer/internal/overlay"
	"climate-viewer/internal/raster"
	"climate-viewer/internal/viewer"
	"climate-viewer/pkg/geotiff"

	"github.com/posthog/posthog-go"
)

// CatalogInfo describes the selectable datasets for the frontend.
type CatalogInfo struct {
	Variables []string `json:"variables"`
	StartYear int      `json:"startYear"`
	EndYear   int      `json:"endYear"`
	BaseURL   string   `json:"baseURL"`
}

// App struct
type App struct {
	ctx        context.Context
	settings   *config.Settings
	catalog    *catalog.Catalog
	cogClient  *cog.Client
	tileCache  *cache.TileCache
	tileServer *tileserver.Server
	session    *viewer.Session
	phClient   posthog.Client
	devMode    bool
	mu         sync.Mutex
}

// NewApp creates a new App application struct
func NewApp() *App {
	// Load user settings
	settings, err := config.LoadSettings()
	if err != nil {
		log.Printf("Failed to load settings, using defaults: %v", err)
		settings = config.DefaultSettings()
	}
	log.Printf("Settings loaded from: %s", config.SettingsPath())

	// Initialize basemap tile cache with settings
	homeDir, _ := os.UserHomeDir()
	cacheDir := filepath.Join(homeDir, ".climate-viewer", "cache", "tiles")
	ttl := time.Duration(settings.CacheTTLDays) * 24 * time.Hour
	tileCache, err := cache.NewTileCache(cacheDir, settings.CacheMemTiles, ttl)
	if err != nil {
		log.Printf("Failed to initialize tile cache: %v", err)
		tileCache = nil // Continue without cache
	} else {
		log.Printf("Tile cache initialized at %s (%d in-memory tiles, TTL %d days)",
			cacheDir, settings.CacheMemTiles, settings.CacheTTLDays)
	}

	return &App{
		settings:  settings,
		catalog:   catalog.New(settings.BaseURL),
		cogClient: cog.NewClient(),
		tileCache: tileCache,
		phClient:  newAnalyticsClient(),
	}
}

// startup is called when the app starts
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx

	// Create export directory if it doesn't exist
	os.MkdirAll(a.settings.DownloadPath, 0755)

	// Start local tile server
	a.tileServer = tileserver.NewServer(ctx, a.tileCache, nil)
	if err := a.tileServer.Start(); err != nil {
		wailsRuntime.LogError(ctx, fmt.Sprintf("Failed to start tile server: %v", err))
	}

	renderer := overlay.NewImageRenderer(a.tileServer)
	manager := overlay.NewManager(renderer, a.fitViewport)
	a.session = viewer.NewSession(a.catalog, a.cogClient, geotiff.NewDecoder(), manager, &eventSurface{app: a})

	if err := a.session.SetOpacity(a.settings.DefaultOpacity); err != nil {
		log.Printf("Failed to apply default opacity: %v", err)
	}
	if err := a.session.SetBasemap(a.settings.DefaultBasemap); err != nil {
		log.Printf("Failed to attach default basemap: %v", err)
	}

	// Track app start
	a.TrackEvent("app_started", map[string]interface{}{
		"version": a.GetAppVersion(),
		"os":      goruntime.GOOS,
		"arch":    goruntime.GOARCH,
	})

	if !a.settings.SkipStartupLoad {
		go func() {
			if _, err := a.loadAndNotify(catalog.Selection{}); err != nil {
				log.Printf("Startup load failed: %v", err)
			}
		}()
	}
}

// shutdown cleans up resources
func (a *App) shutdown(ctx context.Context) {
	if a.phClient != nil {
		a.phClient.Close()
	}
}

// fitViewport asks the frontend map to fit an extent.
func (a *App) fitViewport(b raster.Bounds) {
	wailsRuntime.EventsEmit(a.ctx, "fit-bounds", b)
}

// eventSurface forwards basemap attach/detach to the frontend map. The
// webview owns the actual layer objects; the events carry everything it
// needs to build them against the loopback tile server.
type eventSurface struct {
	app *App
}

func (s *eventSurface) AttachBasemap(p basemap.Provider) error {
	wailsRuntime.EventsEmit(s.app.ctx, "basemap-attached", map[string]interface{}{
		"id":          p.ID,
		"name":        p.Name,
		"urlTemplate": s.app.tileServer.URL() + "/basemap/" + p.ID + "/{z}/{x}/{y}",
		"maxZoom":     p.MaxZoom,
		"attribution": p.Attribution,
	})
	return nil
}

func (s *eventSurface) DetachBasemap(id string) error {
	wailsRuntime.EventsEmit(s.app.ctx, "basemap-detached", id)
	return nil
}

// GetAppVersion returns the current application version
func (a *App) GetAppVersion() string {
	return AppVersion
}

// GetCatalog returns the selectable variables and time range
func (a *App) GetCatalog() CatalogInfo {
	return CatalogInfo{
		Variables: a.catalog.Variables(),
		StartYear: a.catalog.StartYear(),
		EndYear:   a.catalog.EndYear(),
		BaseURL:   a.catalog.BaseURL(),
	}
}

// GetBasemaps returns the selectable background tile layers
func (a *App) GetBasemaps() []basemap.Provider {
	return basemap.Providers
}

// GetTileServerURL returns the loopback tile server base URL
func (a *App) GetTileServerURL() string {
	return a.tileServer.URL()
}

// GetViewerState returns a snapshot of the session state
func (a *App) GetViewerState() viewer.State {
	return a.session.State()
}

// LoadRaster fetches, decodes and displays the raster for a selection.
// Empty fields fall back to the catalog defaults.
func (a *App) LoadRaster(sel catalog.Selection) (*viewer.LoadResult, error) {
	return a.loadAndNotify(sel)
}

// loadAndNotify runs a load and mirrors its lifecycle to the frontend as
// events, so the loading indicator works for both user loads and the
// startup load.
func (a *App) loadAndNotify(sel catalog.Selection) (*viewer.LoadResult, error) {
	sel = a.catalog.Normalize(sel)
	wailsRuntime.EventsEmit(a.ctx, "load-started", sel)

	result, err := a.session.Load(a.ctx, sel)
	if err != nil {
		if errors.Is(err, overlay.ErrStale) {
			// A newer load owns the display; no user-visible failure.
			return nil, err
		}

		kind, url := "", ""
		var loadErr *viewer.LoadError
		if errors.As(err, &loadErr) {
			kind, url = string(loadErr.Kind), loadErr.URL
		}
		wailsRuntime.EventsEmit(a.ctx, "load-failed", map[string]interface{}{
			"selection": sel,
			"kind":      kind,
			"url":       url,
			"error":     err.Error(),
		})
		a.TrackEvent("raster_load_failed", map[string]interface{}{
			"variable": sel.Variable,
			"kind":     kind,
		})
		return nil, err
	}

	wailsRuntime.EventsEmit(a.ctx, "load-finished", result)
	a.TrackEvent("raster_loaded", map[string]interface{}{
		"variable": result.Selection.Variable,
		"year":     result.Selection.Year,
		"month":    result.Selection.Month,
		"bands":    result.Bands,
	})
	return result, nil
}

// CheckAvailability probes the remote host for a selection without
// downloading it
func (a *App) CheckAvailability(sel catalog.Selection) cog.Availability {
	url := a.catalog.ResourceURL(sel)
	return a.cogClient.Probe(a.ctx, url)
}

// SetOverlayOpacity updates the displayed overlay's opacity
func (a *App) SetOverlayOpacity(opacity float64) error {
	return a.session.SetOpacity(opacity)
}

// SetBasemap switches the background tile layer
func (a *App) SetBasemap(id string) error {
	if err := a.session.SetBasemap(id); err != nil {
		return err
	}
	a.TrackEvent("basemap_changed", map[string]interface{}{"basemap": id})
	return nil
}

// InspectPixel reports the raster values under a map click. Found is false
// when no raster is loaded or the click misses it.
func (a *App) InspectPixel(lon, lat float64) viewer.InspectResult {
	return a.session.Inspect(lon, lat)
}

// ExportRaster writes the displayed raster to the download directory as a
// georeferenced TIFF or a PNG and returns the file path.
func (a *App) ExportRaster(format string) (string, error) {
	r := a.session.CurrentRaster()
	if r == nil {
		return "", fmt.Errorf("no raster loaded")
	}

	img, err := overlay.RenderImage(r)
	if err != nil {
		return "", fmt.Errorf("failed to render export image: %w", err)
	}

	format = strings.ToLower(format)
	ext := "tif"
	if format == "png" {
		ext = "png"
	}

	sel := a.session.State().Selection
	name := naming.ExportFilename(sel.Variable, sel.Year, sel.Month, ext, uuid.NewString(), time.Now())
	path := filepath.Join(a.settings.DownloadPath, name)

	if err := os.MkdirAll(a.settings.DownloadPath, 0755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create export file: %w", err)
	}
	defer f.Close()

	switch format {
	case "png":
		err = png.Encode(f, img)
	default:
		var tags map[uint16]interface{}
		if r.Bounds.Valid() {
			tags = geotiff.GeoTags(r.Bounds, img.Bounds().Dx(), img.Bounds().Dy())
		}
		err = geotiff.Encode(f, img, tags)
	}
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}

	a.TrackEvent("raster_exported", map[string]interface{}{
		"variable": sel.Variable,
		"format":   ext,
	})
	log.Printf("Exported %s", path)
	return path, nil
}

// OpenDownloadFolder opens the export folder in the system file manager
func (a *App) OpenDownloadFolder() error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", a.settings.DownloadPath)
	case "windows":
		cmd = exec.Command("explorer", a.settings.DownloadPath)
	default: // Linux and others
		cmd = exec.Command("xdg-open", a.settings.DownloadPath)
	}
	return cmd.Start()
}
