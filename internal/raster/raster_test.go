package raster

import "testing"

// testRaster covers lon 10..14, lat 40..42 with 0.5 degree pixels (8x4).
func testRaster() *Raster {
	width, height := 8, 4
	band := make([]float64, width*height)
	for i := range band {
		band[i] = float64(i)
	}
	return &Raster{
		Bounds:      Bounds{MinLon: 10, MinLat: 40, MaxLon: 14, MaxLat: 42},
		Width:       width,
		Height:      height,
		PixelWidth:  0.5,
		PixelHeight: 0.5,
		Bands:       [][]float64{band},
	}
}

func TestSampleAt(t *testing.T) {
	r := testRaster()

	tests := []struct {
		name     string
		lon, lat float64
		wantCol  int
		wantRow  int
		wantVal  float64
		wantOK   bool
	}{
		{"top left pixel", 10.1, 41.9, 0, 0, 0, true},
		{"interior pixel", 11.6, 41.2, 3, 1, 11, true},
		{"bottom right pixel", 13.9, 40.1, 7, 3, 31, true},
		{"west of raster", 9.9, 41, 0, 0, 0, false},
		{"north of raster", 12, 42.5, 0, 0, 0, false},
		{"south of raster", 12, 39.0, 0, 0, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := r.SampleAt(tt.lon, tt.lat)
			if ok != tt.wantOK {
				t.Fatalf("SampleAt(%v, %v) ok = %v, want %v", tt.lon, tt.lat, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if got.Col != tt.wantCol || got.Row != tt.wantRow {
				t.Errorf("pixel = (%d, %d), want (%d, %d)", got.Col, got.Row, tt.wantCol, tt.wantRow)
			}
			if got.Values[0] != tt.wantVal {
				t.Errorf("value = %v, want %v", got.Values[0], tt.wantVal)
			}
		})
	}
}

func TestSampleAtWithoutGeoreferencing(t *testing.T) {
	r := testRaster()
	r.Bounds = Bounds{}

	if _, ok := r.SampleAt(12, 41); ok {
		t.Error("expected no sample from a raster without bounds")
	}
}

func TestValidate(t *testing.T) {
	r := testRaster()
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate() error: %v", err)
	}

	r.Bands[0] = r.Bands[0][:5]
	if err := r.Validate(); err == nil {
		t.Error("expected error for short band array")
	}

	if err := (&Raster{Width: 4, Height: 4}).Validate(); err == nil {
		t.Error("expected error for raster without bands")
	}
}

func TestBandRange(t *testing.T) {
	nodata := -9999.0
	r := &Raster{
		Bounds:      Bounds{MinLon: 0, MinLat: 0, MaxLon: 2, MaxLat: 1},
		Width:       2,
		Height:      1,
		PixelWidth:  1,
		PixelHeight: 1,
		Bands:       [][]float64{{-9999, 3}, {-9999, -9999}},
		NoData:      &nodata,
	}

	min, max, ok := r.BandRange(0)
	if !ok || min != 3 || max != 3 {
		t.Errorf("BandRange(0) = %v, %v, %v, want 3, 3, true", min, max, ok)
	}

	if _, _, ok := r.BandRange(1); ok {
		t.Error("expected no range for an all no-data band")
	}
	if _, _, ok := r.BandRange(7); ok {
		t.Error("expected no range for an out-of-range band index")
	}
}
