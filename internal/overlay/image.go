package overlay

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	xdraw "golang.org/x/image/draw"

	"climate-viewer/internal/raster"
)

// maxRenderDim caps the rendered overlay size; larger rasters are scaled
// down before PNG encoding.
const maxRenderDim = 2048

// Publisher is where rendered overlays become visible. The loopback tile
// server implements it; the webview map displays whatever it serves.
type Publisher interface {
	PublishOverlay(pngData []byte, bounds raster.Bounds, opacity float64) error
	UpdateOverlayOpacity(opacity float64) error
	RemoveOverlay() error
}

// ImageRenderer renders rasters into PNG overlays: single-band rasters
// through the data color ramp, rasters with three or more bands as true
// color.
type ImageRenderer struct {
	publisher Publisher
}

// NewImageRenderer creates a renderer publishing to the given publisher
func NewImageRenderer(publisher Publisher) *ImageRenderer {
	return &ImageRenderer{publisher: publisher}
}

// Render builds the overlay view for a raster. The view is not visible
// until Attach is called.
func (ir *ImageRenderer) Render(r *raster.Raster, opacity float64) (View, error) {
	img, err := renderImage(r)
	if err != nil {
		return nil, err
	}

	if w, h := img.Bounds().Dx(), img.Bounds().Dy(); w > maxRenderDim || h > maxRenderDim {
		img = downscale(img, maxRenderDim)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode overlay PNG: %w", err)
	}

	return &imageView{
		publisher: ir.publisher,
		raster:    r,
		pngData:   buf.Bytes(),
		opacity:   opacity,
	}, nil
}

// RenderImage rasterizes a raster exactly the way the displayed overlay is
// rendered. Exports use it so the file matches what the map shows.
func RenderImage(r *raster.Raster) (*image.NRGBA, error) {
	return renderImage(r)
}

// renderImage rasterizes the sample data to NRGBA. No-data pixels are fully
// transparent.
func renderImage(r *raster.Raster) (*image.NRGBA, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	img := image.NewNRGBA(image.Rect(0, 0, r.Width, r.Height))

	if len(r.Bands) >= 3 {
		for i := 0; i < r.Width*r.Height; i++ {
			red, green, blue := r.Bands[0][i], r.Bands[1][i], r.Bands[2][i]
			if r.IsNoData(red) || r.IsNoData(green) || r.IsNoData(blue) {
				continue
			}
			off := i * 4
			img.Pix[off] = clamp8(red)
			img.Pix[off+1] = clamp8(green)
			img.Pix[off+2] = clamp8(blue)
			img.Pix[off+3] = 255
		}
		return img, nil
	}

	min, max, ok := r.BandRange(0)
	if !ok {
		// Every sample is no-data: a fully transparent overlay.
		return img, nil
	}
	span := max - min
	if span == 0 {
		span = 1
	}

	for i, v := range r.Bands[0] {
		if r.IsNoData(v) {
			continue
		}
		c := rampColor((v - min) / span)
		off := i * 4
		img.Pix[off] = c.R
		img.Pix[off+1] = c.G
		img.Pix[off+2] = c.B
		img.Pix[off+3] = c.A
	}

	return img, nil
}

func downscale(img *image.NRGBA, maxDim int) *image.NRGBA {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	scale := float64(maxDim) / float64(w)
	if h > w {
		scale = float64(maxDim) / float64(h)
	}

	dst := image.NewNRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
	// Nearest neighbor keeps discrete data values intact.
	xdraw.NearestNeighbor.Scale(dst, dst.Bounds(), img, img.Bounds(), xdraw.Src, nil)
	return dst
}

func clamp8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}

// imageView is the rendered overlay backed by the loopback server.
type imageView struct {
	publisher Publisher
	raster    *raster.Raster
	pngData   []byte
	opacity   float64
}

func (v *imageView) Attach() error {
	return v.publisher.PublishOverlay(v.pngData, v.raster.Bounds, v.opacity)
}

func (v *imageView) Detach() error {
	return v.publisher.RemoveOverlay()
}

func (v *imageView) SetOpacity(opacity float64) error {
	v.opacity = opacity
	return v.publisher.UpdateOverlayOpacity(opacity)
}

// Bounds reports the raster's recorded extent. Rasters without
// georeferencing have no usable bounds.
func (v *imageView) Bounds() (raster.Bounds, error) {
	if !v.raster.Bounds.Valid() {
		return raster.Bounds{}, fmt.Errorf("overlay has no georeferenced extent")
	}
	return v.raster.Bounds, nil
}

// ValueAt looks up the per-band values under a coordinate.
func (v *imageView) ValueAt(lon, lat float64) ([]float64, bool) {
	s, ok := v.raster.SampleAt(lon, lat)
	if !ok {
		return nil, false
	}
	return s.Values, true
}
