package cog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

func TestProbeHeadWithAcceptRanges(t *testing.T) {
	var gets int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.Header().Set("Accept-Ranges", "bytes")
			w.WriteHeader(http.StatusOK)
		case http.MethodGet:
			atomic.AddInt32(&gets, 1)
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	got := NewClient().Probe(context.Background(), server.URL+"/a.tif")
	if !got.Retrievable || !got.AcceptsRanges {
		t.Errorf("Probe() = %+v, want retrievable with range support", got)
	}
	if n := atomic.LoadInt32(&gets); n != 0 {
		t.Errorf("expected no fallback GET after Accept-Ranges: bytes, got %d", n)
	}
}

func TestProbeHeadAcceptRangesNone(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.Header().Set("Accept-Ranges", "none")
			w.WriteHeader(http.StatusOK)
			return
		}
		// Ranged GET confirmation: host ignores the Range header.
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	got := NewClient().Probe(context.Background(), server.URL+"/a.tif")
	if !got.Retrievable || got.AcceptsRanges {
		t.Errorf("Probe() = %+v, want retrievable without range support", got)
	}
}

func TestProbeHeadFailureFallsBackToRangedGet(t *testing.T) {
	tests := []struct {
		name       string
		getStatus  int
		wantRetr   bool
		wantRanges bool
	}{
		{"partial content", http.StatusPartialContent, true, true},
		{"full content ok", http.StatusOK, true, false},
		{"not found", http.StatusNotFound, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sawRange int32
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method == http.MethodHead {
					w.WriteHeader(http.StatusMethodNotAllowed)
					return
				}
				if r.Header.Get("Range") == "bytes=0-1" {
					atomic.AddInt32(&sawRange, 1)
				}
				w.WriteHeader(tt.getStatus)
			}))
			defer server.Close()

			got := NewClient().Probe(context.Background(), server.URL+"/a.tif")
			if got.Retrievable != tt.wantRetr || got.AcceptsRanges != tt.wantRanges {
				t.Errorf("Probe() = %+v, want {%v %v}", got, tt.wantRetr, tt.wantRanges)
			}
			if atomic.LoadInt32(&sawRange) == 0 {
				t.Error("expected fallback GET to carry Range: bytes=0-1")
			}
		})
	}
}

func TestProbeUnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	got := NewClient().Probe(context.Background(), server.URL+"/a.tif")
	if got.Retrievable || got.AcceptsRanges {
		t.Errorf("Probe() = %+v, want not retrievable", got)
	}
}
