package feed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baleal/newsgate/app/cfg"
)

func testCfg() *cfg.Cfg {
	return &cfg.Cfg{
		Port:           "8080",
		FetchTimeoutMs: 500,
		CacheTTLMs:     60000,
		UserAgent:      "Newsgate-Test/1.0",
		Version:        "test",
	}
}

func TestFetcherSuccess(t *testing.T) {
	cfg.Set(testCfg())

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(`<?xml version="1.0"?><rss version="2.0"><channel></channel></rss>`))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client())
	result, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if result.Status != http.StatusOK {
		t.Errorf("Expected status 200, got %d", result.Status)
	}
	if result.ContentType != "application/rss+xml" {
		t.Errorf("Expected rss content type, got %q", result.ContentType)
	}
	if len(result.Body) == 0 {
		t.Error("Expected non-empty body")
	}
	if gotUA != "Newsgate-Test/1.0" {
		t.Errorf("Expected custom user agent, got %q", gotUA)
	}
}

func TestFetcherUpstreamError(t *testing.T) {
	cfg.Set(testCfg())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client())
	_, err := fetcher.Run(context.Background(), server.URL)
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("Expected ErrUpstream, got: %v", err)
	}
}

func TestFetcherTimeout(t *testing.T) {
	cfg.Set(testCfg())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(2 * time.Second)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client())
	_, err := fetcher.Run(context.Background(), server.URL)
	if !errors.Is(err, ErrTimeout) {
		t.Errorf("Expected ErrTimeout, got: %v", err)
	}
}

func TestFetcherNotFound(t *testing.T) {
	cfg.Set(testCfg())

	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	fetcher := NewFetcher(server.Client())
	_, err := fetcher.Run(context.Background(), server.URL+"/feed")
	if !errors.Is(err, ErrUpstream) {
		t.Errorf("Expected ErrUpstream for 404, got: %v", err)
	}
}
