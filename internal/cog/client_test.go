package cog

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetchSuccess(t *testing.T) {
	body := []byte{'I', 'I', 0x2A, 0x00}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("unexpected method %s", r.Method)
		}
		if ua := r.Header.Get("User-Agent"); ua != UserAgent {
			t.Errorf("User-Agent = %s, want %s", ua, UserAgent)
		}
		w.Write(body)
	}))
	defer server.Close()

	got, err := NewClient().Fetch(context.Background(), server.URL+"/a.tif")
	if err != nil {
		t.Fatalf("Fetch() error: %v", err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("Fetch() = %v, want %v", got, body)
	}
}

func TestFetchNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	url := server.URL + "/missing.tif"
	_, err := NewClient().Fetch(context.Background(), url)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}

	var statusErr *StatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected *StatusError, got %T: %v", err, err)
	}
	if statusErr.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", statusErr.StatusCode)
	}
	if statusErr.URL != url {
		t.Errorf("URL = %s, want %s", statusErr.URL, url)
	}
}

func TestFetchNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	_, err := NewClient().Fetch(context.Background(), server.URL+"/a.tif")
	if err == nil {
		t.Fatal("expected error for unreachable host")
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		t.Error("network failure must not be a *StatusError")
	}
}
