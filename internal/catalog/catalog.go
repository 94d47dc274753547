package catalog

import (
	"fmt"
)

// DefaultBaseURL is the static host serving the pre-rendered COG datasets.
const DefaultBaseURL = "https://data.climateviewer.earth/cog/"

// Default time range of the published datasets: monthly rasters starting
// January of StartYear, TotalMonths files per variable.
const (
	DefaultStartYear   = 1950
	DefaultTotalMonths = 900 // through December 2024
)

// DefaultVariables is the fixed, ordered list of selectable raster variables.
// The order matters: the first entry is the startup default.
var DefaultVariables = []string{
	"suitability_index",
	"temperature_mean",
	"precipitation_total",
	"soil_moisture",
	"evapotranspiration",
	"frost_days",
}

// Catalog describes the selectable raster datasets: which variables exist,
// which time range they cover and how a (variable, year, month) selection maps
// to a file on the remote host. Immutable after construction.
type Catalog struct {
	baseURL     string
	variables   []string
	startYear   int
	totalMonths int
}

// New creates a catalog for the given base URL. An empty baseURL falls back to
// DefaultBaseURL.
func New(baseURL string) *Catalog {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	vars := make([]string, len(DefaultVariables))
	copy(vars, DefaultVariables)
	return &Catalog{
		baseURL:     baseURL,
		variables:   vars,
		startYear:   DefaultStartYear,
		totalMonths: DefaultTotalMonths,
	}
}

// Variables returns the ordered variable identifiers.
func (c *Catalog) Variables() []string {
	result := make([]string, len(c.variables))
	copy(result, c.variables)
	return result
}

// HasVariable reports whether the identifier is part of the catalog.
func (c *Catalog) HasVariable(variable string) bool {
	for _, v := range c.variables {
		if v == variable {
			return true
		}
	}
	return false
}

// StartYear returns the first selectable year.
func (c *Catalog) StartYear() int {
	return c.startYear
}

// EndYear returns the last selectable year, derived from the month count.
func (c *Catalog) EndYear() int {
	return c.startYear + (c.totalMonths-1)/12
}

// BaseURL returns the remote host prefix the catalog resolves against.
func (c *Catalog) BaseURL() string {
	return c.baseURL
}

// Selection identifies one raster dataset. Zero values are filled in by
// Normalize: the first catalog variable, the start year and month "01".
type Selection struct {
	Variable string `json:"variable"`
	Year     string `json:"year"`
	Month    string `json:"month"`
}

// Normalize fills empty selection fields with the catalog defaults.
func (c *Catalog) Normalize(sel Selection) Selection {
	if sel.Variable == "" {
		sel.Variable = c.variables[0]
	}
	if sel.Year == "" {
		sel.Year = fmt.Sprintf("%d", c.startYear)
	}
	if sel.Month == "" {
		sel.Month = "01"
	} else if len(sel.Month) == 1 {
		sel.Month = "0" + sel.Month
	}
	return sel
}

// ResourceName returns the remote filename for a selection:
// {variable}_{year}_{month}.tif with the month zero-padded to two digits.
func (c *Catalog) ResourceName(sel Selection) string {
	sel = c.Normalize(sel)
	return fmt.Sprintf("%s_%s_%s.tif", sel.Variable, sel.Year, sel.Month)
}

// ResourceURL resolves a selection against the base URL.
func (c *Catalog) ResourceURL(sel Selection) string {
	return c.baseURL + c.ResourceName(sel)
}
