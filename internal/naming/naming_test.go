package naming

import (
	"testing"
	"time"
)

func TestExportFilename(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	got := ExportFilename("Suitability Index", "1987", "04", "tif", "a1b2c3d4e5f6", at)
	want := "suitability-index_1987_04_20260314T092653_a1b2c3d4.tif"
	if got != want {
		t.Errorf("ExportFilename() = %q, want %q", got, want)
	}
}

func TestExportFilenameDefaultsExtension(t *testing.T) {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	got := ExportFilename("spi", "1950", "01", "", "deadbeef", at)
	if got != "spi_1950_01_20260101T000000_deadbeef.tif" {
		t.Errorf("ExportFilename() = %q", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Soil Moisture", "soil-moisture"},
		{"a/b\\c:d", "a-b-c-d"},
		{"v2.1", "v2p1"},
	}
	for _, tt := range tests {
		if got := SanitizeToken(tt.in); got != tt.want {
			t.Errorf("SanitizeToken(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
