// Package viewer owns the per-window session state: the active selection,
// the displayed overlay, the attached basemap and the opacity. All state
// transitions go through Session methods, so they are testable without a
// running webview.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"
	"sync"

	"climate-viewer/internal/basemap"
	"climate-viewer/internal/catalog"
	"climate-viewer/internal/cog"
	"climate-viewer/internal/overlay"
	"climate-viewer/internal/raster"
)

// Fetcher is the remote raster access the session needs. *cog.Client
// implements it.
type Fetcher interface {
	Probe(ctx context.Context, url string) cog.Availability
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// MapSurface attaches and detaches basemap layers on the map.
type MapSurface interface {
	AttachBasemap(p basemap.Provider) error
	DetachBasemap(id string) error
}

// LoadErrorKind classifies load failures for user-facing reporting.
type LoadErrorKind string

const (
	// ErrKindSelection marks a selection the catalog does not contain.
	ErrKindSelection LoadErrorKind = "selection"
	// ErrKindUnavailable marks a resource the availability probe reported
	// as inaccessible.
	ErrKindUnavailable LoadErrorKind = "unavailable"
	// ErrKindNotFound marks a 404 from the raster host.
	ErrKindNotFound LoadErrorKind = "not-found"
	// ErrKindNetwork marks transport failures and non-404 error statuses.
	ErrKindNetwork LoadErrorKind = "network"
	// ErrKindDecode marks bytes the decoder rejected.
	ErrKindDecode LoadErrorKind = "decode"
	// ErrKindDisplay marks render or attach failures after a good decode.
	ErrKindDisplay LoadErrorKind = "display"
)

// LoadError is a classified load failure carrying the resource URL.
type LoadError struct {
	Kind LoadErrorKind
	URL  string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load failed (%s) for %s: %v", e.Kind, e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// LoadResult describes a completed load.
type LoadResult struct {
	Selection     catalog.Selection `json:"selection"`
	URL           string            `json:"url"`
	Width         int               `json:"width"`
	Height        int               `json:"height"`
	Bands         int               `json:"bands"`
	Bounds        raster.Bounds     `json:"bounds"`
	AcceptsRanges bool              `json:"acceptsRanges"`
}

// InspectResult is a per-pixel lookup. Found is false when no raster is
// loaded or the coordinate falls outside it; that is not an error.
type InspectResult struct {
	Lon    float64   `json:"lon"`
	Lat    float64   `json:"lat"`
	Values []float64 `json:"values"`
	Found  bool      `json:"found"`
}

// State is a snapshot of the session for the frontend.
type State struct {
	Selection  catalog.Selection `json:"selection"`
	Basemap    string            `json:"basemap"`
	Opacity    float64           `json:"opacity"`
	Loading    bool              `json:"loading"`
	HasOverlay bool              `json:"hasOverlay"`
}

// Session holds the mutable viewer state and coordinates loads.
type Session struct {
	catalog  *catalog.Catalog
	fetcher  Fetcher
	decoder  raster.Decoder
	overlays *overlay.Manager
	surface  MapSurface

	mu        sync.Mutex
	selection catalog.Selection
	attached  map[string]bool
	opacity   float64
	inflight  int
}

// NewSession creates a session around an overlay manager and map surface.
// The initial selection is the catalog default; no basemap is attached yet.
func NewSession(cat *catalog.Catalog, fetcher Fetcher, decoder raster.Decoder, overlays *overlay.Manager, surface MapSurface) *Session {
	return &Session{
		catalog:   cat,
		fetcher:   fetcher,
		decoder:   decoder,
		overlays:  overlays,
		surface:   surface,
		selection: cat.Normalize(catalog.Selection{}),
		attached:  make(map[string]bool),
		opacity:   0.75,
	}
}

// Catalog returns the catalog the session selects from.
func (s *Session) Catalog() *catalog.Catalog {
	return s.catalog
}

// State returns a snapshot of the current session state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	view, _ := s.overlays.Current()
	bm := ""
	for id := range s.attached {
		bm = id
	}
	return State{
		Selection:  s.selection,
		Basemap:    bm,
		Opacity:    s.opacity,
		Loading:    s.inflight > 0,
		HasOverlay: view != nil,
	}
}

// Load fetches, decodes and displays the raster for a selection. Empty
// selection fields fall back to the catalog defaults. A newer Load issued
// while this one is in flight wins; the stale result is discarded and
// overlay.ErrStale is returned.
func (s *Session) Load(ctx context.Context, sel catalog.Selection) (*LoadResult, error) {
	sel = s.catalog.Normalize(sel)
	url := s.catalog.ResourceURL(sel)

	if !s.catalog.HasVariable(sel.Variable) {
		return nil, &LoadError{Kind: ErrKindSelection, URL: url,
			Err: fmt.Errorf("unknown variable %q", sel.Variable)}
	}

	token := s.overlays.NewToken()
	s.beginLoad()
	defer s.endLoad()

	log.Printf("[Viewer] loading %s", url)

	avail := s.fetcher.Probe(ctx, url)
	if !avail.Retrievable {
		return nil, &LoadError{Kind: ErrKindUnavailable, URL: url,
			Err: errors.New("resource reported inaccessible")}
	}

	data, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, &LoadError{Kind: classifyFetchError(err), URL: url, Err: err}
	}

	r, err := s.decoder.Decode(data)
	if err != nil {
		return nil, &LoadError{Kind: ErrKindDecode, URL: url, Err: err}
	}

	s.mu.Lock()
	opacity := s.opacity
	s.mu.Unlock()

	if err := s.overlays.Replace(token, r, opacity); err != nil {
		if errors.Is(err, overlay.ErrStale) {
			log.Printf("[Viewer] discarding stale load of %s", url)
			return nil, err
		}
		return nil, &LoadError{Kind: ErrKindDisplay, URL: url, Err: err}
	}

	s.mu.Lock()
	s.selection = sel
	s.mu.Unlock()

	return &LoadResult{
		Selection:     sel,
		URL:           url,
		Width:         r.Width,
		Height:        r.Height,
		Bands:         len(r.Bands),
		Bounds:        r.Bounds,
		AcceptsRanges: avail.AcceptsRanges,
	}, nil
}

func classifyFetchError(err error) LoadErrorKind {
	var statusErr *cog.StatusError
	if errors.As(err, &statusErr) {
		if statusErr.StatusCode == http.StatusNotFound {
			return ErrKindNotFound
		}
	}
	return ErrKindNetwork
}

func (s *Session) beginLoad() {
	s.mu.Lock()
	s.inflight++
	s.mu.Unlock()
}

func (s *Session) endLoad() {
	s.mu.Lock()
	s.inflight--
	s.mu.Unlock()
}

// Inspect reports the raster values under a geographic coordinate. With no
// raster loaded, or a coordinate outside the raster, it reports Found false
// and no error.
func (s *Session) Inspect(lon, lat float64) InspectResult {
	result := InspectResult{Lon: lon, Lat: lat}

	view, r := s.overlays.Current()
	if view == nil {
		return result
	}

	if values, ok := view.ValueAt(lon, lat); ok {
		result.Values = values
		result.Found = true
		return result
	}
	if r != nil {
		if sample, ok := r.SampleAt(lon, lat); ok {
			result.Values = sample.Values
			result.Found = true
		}
	}
	return result
}

// CurrentRaster returns the displayed raster, nil when none is loaded.
func (s *Session) CurrentRaster() *raster.Raster {
	_, r := s.overlays.Current()
	return r
}

// SetBasemap detaches every attached base layer and attaches the named one.
func (s *Session) SetBasemap(id string) error {
	provider, ok := basemap.ByID(id)
	if !ok {
		return fmt.Errorf("unknown basemap %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for attached := range s.attached {
		if err := s.surface.DetachBasemap(attached); err != nil {
			log.Printf("[Viewer] failed to detach basemap %s: %v (continuing)", attached, err)
		}
		delete(s.attached, attached)
	}

	if err := s.surface.AttachBasemap(provider); err != nil {
		return fmt.Errorf("failed to attach basemap %s: %w", id, err)
	}
	s.attached[id] = true
	return nil
}

// AttachedBasemaps returns the IDs of the attached base layers, sorted.
// At most one entry after any successful SetBasemap.
func (s *Session) AttachedBasemaps() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.attached))
	for id := range s.attached {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SetOpacity stores the overlay opacity and applies it to the displayed
// overlay, if any. Values are clamped to [0, 1].
func (s *Session) SetOpacity(opacity float64) error {
	if opacity < 0 {
		opacity = 0
	}
	if opacity > 1 {
		opacity = 1
	}

	s.mu.Lock()
	s.opacity = opacity
	s.mu.Unlock()

	return s.overlays.SetOpacity(opacity)
}

// Opacity returns the stored overlay opacity.
func (s *Session) Opacity() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opacity
}
