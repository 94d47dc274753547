// Package tileserver runs the loopback HTTP server behind the webview map:
// it proxies basemap tiles through the tile cache and serves the currently
// published raster overlay.
package tileserver

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"climate-viewer/internal/basemap"
	"climate-viewer/internal/cache"
	"climate-viewer/internal/raster"
)

const (
	// UserAgent sent to the upstream tile providers
	UserAgent = "ClimateViewer/1.0 (+https://climateviewer.earth)"

	// maxUpstreamFetches caps concurrent tile fetches per provider policy
	// (OSM asks for no more than 2 parallel connections).
	maxUpstreamFetches = 2
)

// publishedOverlay is the currently visible overlay snapshot.
type publishedOverlay struct {
	pngData []byte
	bounds  raster.Bounds
	opacity float64
	version int64
}

// Server manages the loopback tile and overlay HTTP server.
type Server struct {
	ctx        context.Context
	httpClient *http.Client
	tileCache  *cache.TileCache
	providers  []basemap.Provider
	sem        *semaphore.Weighted
	serverURL  string

	mu      sync.RWMutex
	overlay *publishedOverlay
}

// NewServer creates a tile server instance. providers defaults to the fixed
// basemap set when nil (tests inject their own).
func NewServer(ctx context.Context, tileCache *cache.TileCache, providers []basemap.Provider) *Server {
	if providers == nil {
		providers = basemap.Providers
	}

	return &Server{
		ctx: ctx,
		httpClient: &http.Client{
			Timeout:   30 * time.Second,
			Transport: &http.Transport{Proxy: http.ProxyFromEnvironment},
		},
		tileCache: tileCache,
		providers: providers,
		sem:       semaphore.NewWeighted(maxUpstreamFetches),
	}
}

// URL returns the server base URL once Start has succeeded.
func (s *Server) URL() string {
	return s.serverURL
}

// corsMiddleware adds CORS headers for the webview origin. On macOS/Linux
// Wails loads from wails://wails, which requires them.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Start binds the server to a random loopback port and begins serving.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/basemap/", s.handleBasemapTile)
	mux.HandleFunc("/overlay/current.png", s.handleOverlayImage)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("failed to start tile server: %w", err)
	}

	port := listener.Addr().(*net.TCPAddr).Port
	s.serverURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	log.Printf("[TileServer] started on %s", s.serverURL)

	server := &http.Server{
		Handler: corsMiddleware(mux),
	}

	go func() {
		if err := server.Serve(listener); err != nil {
			log.Printf("[TileServer] stopped: %v", err)
		}
	}()

	return nil
}

// Handler returns the routed handler, for tests that serve via httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/basemap/", s.handleBasemapTile)
	mux.HandleFunc("/overlay/current.png", s.handleOverlayImage)
	return corsMiddleware(mux)
}

// handleBasemapTile serves /basemap/{provider}/{z}/{x}/{y}, consulting the
// cache before the upstream provider.
func (s *Server) handleBasemapTile(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/basemap/"), "/")
	if len(parts) != 4 {
		http.Error(w, "expected /basemap/{provider}/{z}/{x}/{y}", http.StatusBadRequest)
		return
	}

	provider, ok := s.providerByID(parts[0])
	if !ok {
		http.Error(w, "unknown basemap provider", http.StatusNotFound)
		return
	}

	z, errZ := strconv.Atoi(parts[1])
	x, errX := strconv.Atoi(parts[2])
	y, errY := strconv.Atoi(parts[3])
	if errZ != nil || errX != nil || errY != nil {
		http.Error(w, "tile coordinates must be integers", http.StatusBadRequest)
		return
	}
	if err := provider.ValidateTile(z, x, y); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	key := cache.Key(provider.ID, z, x, y)
	if s.tileCache != nil {
		if data, ok := s.tileCache.Get(key); ok {
			writeTile(w, data)
			return
		}
	}

	data, err := s.fetchUpstream(r.Context(), provider, z, x, y)
	if err != nil {
		log.Printf("[TileServer] upstream fetch failed: %v", err)
		http.Error(w, "upstream tile fetch failed", http.StatusBadGateway)
		return
	}

	if s.tileCache != nil {
		if err := s.tileCache.Set(key, data); err != nil {
			log.Printf("[TileServer] cache write failed: %v", err)
		}
	}

	writeTile(w, data)
}

func (s *Server) providerByID(id string) (basemap.Provider, bool) {
	for _, p := range s.providers {
		if p.ID == id {
			return p, true
		}
	}
	return basemap.Provider{}, false
}

// fetchUpstream downloads one tile, bounded by the fetch semaphore.
func (s *Server) fetchUpstream(ctx context.Context, p basemap.Provider, z, x, y int) ([]byte, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("fetch cancelled: %w", err)
	}
	defer s.sem.Release(1)

	url := p.TileURL(z, x, y)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch tile %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tile request %s failed with status %d", url, resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

func writeTile(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.Write(data)
}

// handleOverlayImage serves the published overlay PNG.
func (s *Server) handleOverlayImage(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	ov := s.overlay
	s.mu.RUnlock()

	if ov == nil {
		http.Error(w, "no overlay loaded", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	// The frontend appends ?v={version}; versions never repeat.
	w.Header().Set("Cache-Control", "no-store")
	w.Write(ov.pngData)
}

// PublishOverlay makes a rendered overlay the one the server serves. It
// implements overlay.Publisher.
func (s *Server) PublishOverlay(pngData []byte, bounds raster.Bounds, opacity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	version := int64(1)
	if s.overlay != nil {
		version = s.overlay.version + 1
	}
	s.overlay = &publishedOverlay{
		pngData: pngData,
		bounds:  bounds,
		opacity: opacity,
		version: version,
	}
	return nil
}

// UpdateOverlayOpacity changes the published opacity in place.
func (s *Server) UpdateOverlayOpacity(opacity float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.overlay == nil {
		return fmt.Errorf("no overlay published")
	}
	s.overlay.opacity = opacity
	return nil
}

// RemoveOverlay unpublishes the overlay.
func (s *Server) RemoveOverlay() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.overlay = nil
	return nil
}

// OverlayState reports the published overlay's bounds, opacity and version
// for the frontend, ok false when none is published.
func (s *Server) OverlayState() (bounds raster.Bounds, opacity float64, version int64, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.overlay == nil {
		return raster.Bounds{}, 0, 0, false
	}
	return s.overlay.bounds, s.overlay.opacity, s.overlay.version, true
}
