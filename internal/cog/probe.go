package cog

import (
	"context"
	"log"
	"net/http"
	"strings"
)

// Availability is the result of probing a remote COG resource.
// The probe is advisory: the load pipeline downloads the resource in full
// whatever AcceptsRanges says.
type Availability struct {
	// Retrievable reports whether the host is likely to serve the resource.
	Retrievable bool `json:"retrievable"`

	// AcceptsRanges reports whether the host supports partial-content
	// (byte range) retrieval for the resource.
	AcceptsRanges bool `json:"acceptsRanges"`
}

// Probe checks whether the host will serve the resource and whether it
// supports ranged reads. It issues a HEAD request first and falls back to a
// two-byte ranged GET when the HEAD fails. Network failures are mapped to a
// not-retrievable result, never propagated.
func (c *Client) Probe(ctx context.Context, url string) Availability {
	resp, err := c.head(ctx, url)
	if err != nil || resp.StatusCode < 200 || resp.StatusCode > 299 {
		if err != nil {
			log.Printf("[Probe] HEAD %s failed: %v, falling back to ranged GET", url, err)
		} else {
			log.Printf("[Probe] HEAD %s returned %d, falling back to ranged GET", url, resp.StatusCode)
		}
		return c.rangeProbe(ctx, url)
	}

	// A present, non-"none" Accept-Ranges header confirms range support
	// without another request.
	acceptRanges := resp.Header.Get("Accept-Ranges")
	if acceptRanges != "" && !strings.EqualFold(acceptRanges, "none") {
		return Availability{Retrievable: true, AcceptsRanges: true}
	}

	// Header absent or "none": the resource is retrievable, but range
	// support needs confirmation with a ranged GET.
	ranged := c.rangeProbe(ctx, url)
	return Availability{Retrievable: true, AcceptsRanges: ranged.AcceptsRanges}
}

// head issues the HEAD request and discards the body.
func (c *Client) head(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	resp.Body.Close()
	return resp, nil
}

// rangeProbe issues a GET for bytes 0-1. A 206 confirms range support, a 200
// still counts as retrievable (the host ignored the Range header).
func (c *Client) rangeProbe(ctx context.Context, url string) Availability {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Availability{}
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Range", "bytes=0-1")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("[Probe] ranged GET %s failed: %v", url, err)
		return Availability{}
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusPartialContent:
		return Availability{Retrievable: true, AcceptsRanges: true}
	case http.StatusOK:
		return Availability{Retrievable: true, AcceptsRanges: false}
	default:
		return Availability{}
	}
}
