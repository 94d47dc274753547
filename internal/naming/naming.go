package naming

import (
	"fmt"
	"strings"
	"time"
)

// ExportTimestamp is the compact timestamp used in export filenames
const ExportTimestamp = "20060102T150405"

// SanitizeToken formats an arbitrary string for use in filenames
func SanitizeToken(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	replacer := strings.NewReplacer(" ", "-", "/", "-", "\\", "-", ":", "-", ".", "p")
	return replacer.Replace(s)
}

// ExportFilename creates a standardized export filename with metadata
// Format: {variable}_{year}_{month}_{timestamp}_{id}.{ext}
func ExportFilename(variable, year, month, format, id string, at time.Time) string {
	ext := strings.TrimPrefix(strings.ToLower(format), ".")
	if ext == "" {
		ext = "tif"
	}

	// Short IDs keep filenames readable; full UUIDs are overkill here
	if len(id) > 8 {
		id = id[:8]
	}

	return fmt.Sprintf("%s_%s_%s_%s_%s.%s",
		SanitizeToken(variable), year, month,
		at.Format(ExportTimestamp), id, ext)
}
