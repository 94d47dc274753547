// Package basemap defines the fixed set of background tile providers the
// viewer can display under the raster overlay.
package basemap

import (
	"fmt"
	"strconv"
	"strings"
)

// Provider identifiers used by the cache and the frontend
const (
	ProviderStreet    = "street"
	ProviderSatellite = "satellite"
	ProviderTerrain   = "terrain"
)

// Provider is one background tile source with a slippy-map URL template.
type Provider struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URLTemplate string `json:"urlTemplate"`
	Attribution string `json:"attribution"`
	MaxZoom     int    `json:"maxZoom"`
}

// Providers is the fixed, ordered provider list. Exactly one is active at a
// time; the first entry is the startup default.
var Providers = []Provider{
	{
		ID:          ProviderStreet,
		Name:        "Street Map",
		URLTemplate: "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenStreetMap contributors",
		MaxZoom:     19,
	},
	{
		ID:          ProviderSatellite,
		Name:        "Satellite",
		URLTemplate: "https://server.arcgisonline.com/ArcGIS/rest/services/World_Imagery/MapServer/tile/{z}/{y}/{x}",
		Attribution: "© Esri",
		MaxZoom:     19,
	},
	{
		ID:          ProviderTerrain,
		Name:        "Terrain",
		URLTemplate: "https://tile.opentopomap.org/{z}/{x}/{y}.png",
		Attribution: "© OpenTopoMap (CC-BY-SA)",
		MaxZoom:     17,
	},
}

// ByID returns the provider with the given identifier.
func ByID(id string) (Provider, bool) {
	for _, p := range Providers {
		if p.ID == id {
			return p, true
		}
	}
	return Provider{}, false
}

// Default returns the startup provider.
func Default() Provider {
	return Providers[0]
}

// TileURL expands the provider's URL template for one tile.
func (p Provider) TileURL(z, x, y int) string {
	url := p.URLTemplate
	url = strings.Replace(url, "{z}", strconv.Itoa(z), 1)
	url = strings.Replace(url, "{x}", strconv.Itoa(x), 1)
	url = strings.Replace(url, "{y}", strconv.Itoa(y), 1)
	return url
}

// ValidateTile checks tile coordinates against the provider's zoom range.
func (p Provider) ValidateTile(z, x, y int) error {
	if z < 0 || z > p.MaxZoom {
		return fmt.Errorf("zoom %d out of range [0, %d] for %s", z, p.MaxZoom, p.ID)
	}

	maxTile := (1 << z) - 1
	if x < 0 || x > maxTile {
		return fmt.Errorf("x %d out of range [0, %d] for zoom %d", x, maxTile, z)
	}
	if y < 0 || y > maxTile {
		return fmt.Errorf("y %d out of range [0, %d] for zoom %d", y, maxTile, z)
	}

	return nil
}
