package raster

import (
	"fmt"
	"math"
)

// Bounds is a geographic extent in degrees.
type Bounds struct {
	MinLon float64 `json:"minLon"`
	MinLat float64 `json:"minLat"`
	MaxLon float64 `json:"maxLon"`
	MaxLat float64 `json:"maxLat"`
}

// Valid reports whether the extent spans a non-empty area.
func (b Bounds) Valid() bool {
	return b.MaxLon > b.MinLon && b.MaxLat > b.MinLat
}

// Raster is a decoded grid of sampled values with a geographic extent.
// A raster is replaced wholesale on each successful load and never mutated
// in place.
type Raster struct {
	Bounds Bounds

	// Width and Height are the pixel dimensions of every band.
	Width  int
	Height int

	// PixelWidth and PixelHeight are the per-pixel spacing in degrees.
	// Both are positive; rows run north to south from Bounds.MaxLat.
	PixelWidth  float64
	PixelHeight float64

	// Bands holds one flat row-major sample array per band.
	Bands [][]float64

	// NoData is the sentinel marking missing samples, if the source
	// declared one.
	NoData *float64
}

// Sample is the per-band value set at one pixel.
type Sample struct {
	Col    int       `json:"col"`
	Row    int       `json:"row"`
	Values []float64 `json:"values"`
}

// Validate checks the structural invariants of a decoded raster.
func (r *Raster) Validate() error {
	if r.Width <= 0 || r.Height <= 0 {
		return fmt.Errorf("invalid raster dimensions %dx%d", r.Width, r.Height)
	}
	if len(r.Bands) == 0 {
		return fmt.Errorf("raster has no bands")
	}
	for i, band := range r.Bands {
		if len(band) != r.Width*r.Height {
			return fmt.Errorf("band %d has %d samples, want %d", i, len(band), r.Width*r.Height)
		}
	}
	return nil
}

// SampleAt resolves a geographic coordinate to the pixel that contains it and
// returns the per-band values there. The second return value is false when
// the coordinate falls outside the raster or the raster has no usable
// georeferencing; out-of-range lookups are not an error.
func (r *Raster) SampleAt(lon, lat float64) (Sample, bool) {
	if !r.Bounds.Valid() || r.PixelWidth <= 0 || r.PixelHeight <= 0 {
		return Sample{}, false
	}

	col := int(math.Floor((lon - r.Bounds.MinLon) / r.PixelWidth))
	row := int(math.Floor((r.Bounds.MaxLat - lat) / r.PixelHeight))

	if col < 0 || col >= r.Width || row < 0 || row >= r.Height {
		return Sample{}, false
	}

	idx := row*r.Width + col
	values := make([]float64, len(r.Bands))
	for i, band := range r.Bands {
		if idx >= len(band) {
			return Sample{}, false
		}
		values[i] = band[idx]
	}

	return Sample{Col: col, Row: row, Values: values}, true
}

// IsNoData reports whether a sample value matches the raster's no-data
// sentinel.
func (r *Raster) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return r.NoData != nil && v == *r.NoData
}

// BandRange returns the minimum and maximum valid sample of one band,
// ignoring no-data values. ok is false when the band holds no valid sample.
func (r *Raster) BandRange(band int) (min, max float64, ok bool) {
	if band < 0 || band >= len(r.Bands) {
		return 0, 0, false
	}

	min = math.Inf(1)
	max = math.Inf(-1)
	for _, v := range r.Bands[band] {
		if r.IsNoData(v) {
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		ok = true
	}
	if !ok {
		return 0, 0, false
	}
	return min, max, true
}
