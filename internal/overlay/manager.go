package overlay

import (
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"climate-viewer/internal/raster"
)

// ErrStale marks a load completion that lost to a more recently requested
// load. The result is discarded; this is not a failure the user sees.
var ErrStale = errors.New("load superseded by a newer request")

// ViewportFitter adjusts the map viewport to an extent.
type ViewportFitter func(b raster.Bounds)

// Manager holds the currently displayed overlay and its raster. The two are
// replaced together: once Replace returns successfully the new pair is
// current, and no intermediate state is observable through Current.
type Manager struct {
	renderer Renderer
	fit      ViewportFitter

	// latest is the most recently issued load token. Completions carrying
	// an older token are discarded, so the newest requested load always
	// wins regardless of network completion order.
	latest atomic.Uint64

	mu      sync.Mutex
	current View
	raster  *raster.Raster
}

// NewManager creates an overlay manager. fit may be nil when no viewport
// adjustment is wanted.
func NewManager(renderer Renderer, fit ViewportFitter) *Manager {
	return &Manager{renderer: renderer, fit: fit}
}

// NewToken issues the token for a starting load. Issuing a token invalidates
// every earlier token.
func (m *Manager) NewToken() uint64 {
	return m.latest.Add(1)
}

// Replace swaps the displayed overlay for the given raster. The previous
// view is detached first; detach failures are logged and do not abort the
// swap. Returns ErrStale when a newer token has been issued since.
func (m *Manager) Replace(token uint64, r *raster.Raster, opacity float64) error {
	if token != m.latest.Load() {
		return ErrStale
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// Re-check under the lock: a newer load may have swapped while this
	// one waited.
	if token != m.latest.Load() {
		return ErrStale
	}

	view, err := m.renderer.Render(r, opacity)
	if err != nil {
		return fmt.Errorf("failed to render overlay: %w", err)
	}

	if m.current != nil {
		if err := m.current.Detach(); err != nil {
			log.Printf("[Overlay] failed to detach previous overlay: %v (continuing)", err)
		}
	}

	if err := view.Attach(); err != nil {
		// The old view is already gone; do not pretend it is current.
		m.current = nil
		m.raster = nil
		return fmt.Errorf("failed to attach overlay: %w", err)
	}

	m.current = view
	m.raster = r
	m.fitViewport(view, r)
	return nil
}

// fitViewport adjusts the map to the new overlay. Bounds come from the view
// when it can provide them, from the raster's recorded extent otherwise.
// Neither being usable leaves the viewport unchanged.
func (m *Manager) fitViewport(view View, r *raster.Raster) {
	if m.fit == nil {
		return
	}

	b, err := view.Bounds()
	if err != nil {
		log.Printf("[Overlay] view bounds unavailable: %v, using raster extent", err)
		b = r.Bounds
	}
	if !b.Valid() {
		log.Printf("[Overlay] no usable bounds, viewport unchanged")
		return
	}

	m.fit(b)
}

// SetOpacity updates the opacity of the displayed overlay, if any.
func (m *Manager) SetOpacity(opacity float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return nil
	}
	return m.current.SetOpacity(opacity)
}

// Current returns the displayed view and its raster, both nil when nothing
// is loaded.
func (m *Manager) Current() (View, *raster.Raster) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current, m.raster
}

// Clear detaches the displayed overlay.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.current == nil {
		return
	}
	if err := m.current.Detach(); err != nil {
		log.Printf("[Overlay] failed to detach overlay: %v", err)
	}
	m.current = nil
	m.raster = nil
}
