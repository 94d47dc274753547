package cog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// UserAgent sent with every request to the raster host
	UserAgent = "ClimateViewer/1.0 (+https://climateviewer.earth)"

	// DownloadTimeout bounds a full COG download
	DownloadTimeout = 120 * time.Second
)

// StatusError reports a non-success HTTP status from the raster host.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request for %s failed with status %d", e.URL, e.StatusCode)
}

// Client downloads COG resources from the static raster host.
// Every load fetches the full body; responses are never cached.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a raster host client with system proxy support
func NewClient() *Client {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	return &Client{
		httpClient: &http.Client{
			Timeout:   DownloadTimeout,
			Transport: transport,
		},
	}
}

// Fetch downloads the full resource body. A non-2xx status is returned as a
// *StatusError so callers can distinguish missing resources from transport
// failures.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read body of %s: %w", url, err)
	}

	return data, nil
}
