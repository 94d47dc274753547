package raster

import "fmt"

// Decoder turns a raw resource body into a structured raster. The GeoTIFF
// implementation lives in pkg/geotiff; the pipeline only depends on this
// interface so it can be tested against a stub.
type Decoder interface {
	Decode(data []byte) (*Raster, error)
}

// DecodeError reports malformed or unsupported byte content.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("decode failed: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
