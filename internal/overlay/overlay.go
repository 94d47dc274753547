// Package overlay owns the displayed raster layer: rendering a decoded
// raster into a view, swapping the single attached view, and keeping the
// viewport in sync with the raster extent.
package overlay

import "climate-viewer/internal/raster"

// View is one displayable overlay. Exactly one view is attached at a time;
// the manager enforces that.
type View interface {
	// Attach makes the view visible on the map.
	Attach() error

	// Detach removes the view from the map.
	Detach() error

	// SetOpacity updates the opacity of an attached view in place.
	SetOpacity(opacity float64) error

	// Bounds returns the geographic extent of the view. An error means the
	// extent could not be determined from the view itself; callers fall
	// back to the raster's recorded extent.
	Bounds() (raster.Bounds, error)

	// ValueAt reports the per-band sample values at a geographic
	// coordinate, false when the coordinate is outside the view.
	ValueAt(lon, lat float64) ([]float64, bool)
}

// Renderer turns a decoded raster into a view. The production renderer
// publishes a rendered PNG to the loopback tile server; tests use a stub.
type Renderer interface {
	Render(r *raster.Raster, opacity float64) (View, error)
}
