package overlay

import (
	"errors"
	"testing"

	"climate-viewer/internal/raster"
)

type stubView struct {
	attached    bool
	detached    bool
	opacity     float64
	detachErr   error
	boundsErr   error
	bounds      raster.Bounds
	opacitySets int
}

func (v *stubView) Attach() error {
	v.attached = true
	return nil
}

func (v *stubView) Detach() error {
	v.detached = true
	return v.detachErr
}

func (v *stubView) SetOpacity(opacity float64) error {
	v.opacity = opacity
	v.opacitySets++
	return nil
}

func (v *stubView) Bounds() (raster.Bounds, error) {
	if v.boundsErr != nil {
		return raster.Bounds{}, v.boundsErr
	}
	return v.bounds, nil
}

func (v *stubView) ValueAt(lon, lat float64) ([]float64, bool) {
	return []float64{42}, true
}

type stubRenderer struct {
	views   []*stubView
	renders int
	err     error

	// nextBoundsErr is applied to the next rendered view.
	nextBoundsErr error
}

func (r *stubRenderer) Render(ra *raster.Raster, opacity float64) (View, error) {
	if r.err != nil {
		return nil, r.err
	}
	v := &stubView{opacity: opacity, bounds: ra.Bounds, boundsErr: r.nextBoundsErr}
	r.nextBoundsErr = nil
	r.views = append(r.views, v)
	r.renders++
	return v, nil
}

func boundedRaster() *raster.Raster {
	return &raster.Raster{
		Bounds:      raster.Bounds{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 2},
		Width:       2,
		Height:      2,
		PixelWidth:  1,
		PixelHeight: 1,
		Bands:       [][]float64{{1, 2, 3, 4}},
	}
}

func TestReplaceDetachesPreviousOverlay(t *testing.T) {
	renderer := &stubRenderer{}
	m := NewManager(renderer, nil)

	if err := m.Replace(m.NewToken(), boundedRaster(), 0.8); err != nil {
		t.Fatalf("first Replace() error: %v", err)
	}
	if err := m.Replace(m.NewToken(), boundedRaster(), 0.8); err != nil {
		t.Fatalf("second Replace() error: %v", err)
	}

	if len(renderer.views) != 2 {
		t.Fatalf("rendered %d views, want 2", len(renderer.views))
	}
	if !renderer.views[0].detached {
		t.Error("previous overlay was not detached")
	}
	if !renderer.views[1].attached || renderer.views[1].detached {
		t.Error("new overlay must be the only attached view")
	}

	view, ra := m.Current()
	if view != renderer.views[1] || ra == nil {
		t.Error("Current() does not report the newest overlay")
	}
}

func TestReplaceDetachFailureIsNotFatal(t *testing.T) {
	renderer := &stubRenderer{}
	m := NewManager(renderer, nil)

	if err := m.Replace(m.NewToken(), boundedRaster(), 1); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	renderer.views[0].detachErr = errors.New("map is stuck")

	if err := m.Replace(m.NewToken(), boundedRaster(), 1); err != nil {
		t.Fatalf("Replace() after detach failure: %v", err)
	}
	if !renderer.views[1].attached {
		t.Error("new overlay was not attached after detach failure")
	}
}

func TestReplaceStaleTokenDiscarded(t *testing.T) {
	renderer := &stubRenderer{}
	m := NewManager(renderer, nil)

	older := m.NewToken()
	newer := m.NewToken()

	// The newer request completes first; the older one must be dropped.
	if err := m.Replace(newer, boundedRaster(), 1); err != nil {
		t.Fatalf("Replace() with newest token: %v", err)
	}
	if err := m.Replace(older, boundedRaster(), 1); !errors.Is(err, ErrStale) {
		t.Fatalf("Replace() with stale token = %v, want ErrStale", err)
	}

	if renderer.renders != 1 {
		t.Errorf("stale load rendered an overlay: %d renders, want 1", renderer.renders)
	}
	view, _ := m.Current()
	if view != renderer.views[0] {
		t.Error("stale load replaced the current overlay")
	}
}

func TestRenderFailureLeavesCurrentOverlay(t *testing.T) {
	renderer := &stubRenderer{}
	m := NewManager(renderer, nil)

	if err := m.Replace(m.NewToken(), boundedRaster(), 1); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}

	renderer.err = errors.New("render blew up")
	if err := m.Replace(m.NewToken(), boundedRaster(), 1); err == nil {
		t.Fatal("expected error from failing renderer")
	}

	view, ra := m.Current()
	if view != renderer.views[0] || ra == nil {
		t.Error("failed replace must leave the previous overlay current")
	}
	if renderer.views[0].detached {
		t.Error("failed replace must not detach the previous overlay")
	}
}

func TestViewportFitFallsBackToRasterExtent(t *testing.T) {
	var fitted []raster.Bounds
	renderer := &stubRenderer{}
	m := NewManager(renderer, func(b raster.Bounds) {
		fitted = append(fitted, b)
	})

	// First load: view bounds work.
	if err := m.Replace(m.NewToken(), boundedRaster(), 1); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}

	// Second load: the view has no bounds accessor, the raster's recorded
	// extent is used instead.
	r := boundedRaster()
	r.Bounds = raster.Bounds{MinLon: 5, MinLat: 5, MaxLon: 9, MaxLat: 7}
	renderer.nextBoundsErr = errors.New("no bounds accessor")
	if err := m.Replace(m.NewToken(), r, 1); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}

	// Third load: neither view nor raster can supply bounds; the viewport
	// stays put and the overlay stays visible.
	r3 := boundedRaster()
	r3.Bounds = raster.Bounds{}
	renderer.nextBoundsErr = errors.New("no bounds accessor")
	if err := m.Replace(m.NewToken(), r3, 1); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}

	if len(fitted) != 2 {
		t.Fatalf("viewport fitted %d times, want 2 (third raster has no bounds)", len(fitted))
	}
	want := raster.Bounds{MinLon: 5, MinLat: 5, MaxLon: 9, MaxLat: 7}
	if fitted[1] != want {
		t.Errorf("second fit = %+v, want %+v", fitted[1], want)
	}
}

func TestSetOpacityWithoutOverlay(t *testing.T) {
	m := NewManager(&stubRenderer{}, nil)
	if err := m.SetOpacity(0.5); err != nil {
		t.Errorf("SetOpacity() without overlay = %v, want nil", err)
	}
}

func TestSetOpacityUpdatesCurrentView(t *testing.T) {
	renderer := &stubRenderer{}
	m := NewManager(renderer, nil)

	if err := m.Replace(m.NewToken(), boundedRaster(), 0.3); err != nil {
		t.Fatalf("Replace() error: %v", err)
	}
	if err := m.SetOpacity(0.9); err != nil {
		t.Fatalf("SetOpacity() error: %v", err)
	}

	if renderer.views[0].opacity != 0.9 {
		t.Errorf("opacity = %v, want 0.9", renderer.views[0].opacity)
	}
	if renderer.renders != 1 {
		t.Error("opacity change must not re-render the overlay")
	}
}
