package newsdata

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/baleal/newsgate/app/cfg"
	"github.com/baleal/newsgate/app/feed"
	"github.com/baleal/newsgate/app/sources"
)

func testCfg(apiKey string) *cfg.Cfg {
	return &cfg.Cfg{
		Port:           "8080",
		FetchTimeoutMs: 2000,
		CacheTTLMs:     60000,
		NewsdataAPIKey: apiKey,
		UserAgent:      "Newsgate-Test/1.0",
		Version:        "test",
	}
}

func TestRunWithoutAPIKey(t *testing.T) {
	cfg.Set(testCfg(""))

	client := NewClient(&http.Client{}, feed.NewSanitizer())
	items, warning, err := client.Run(context.Background(), Params{Query: "surf"})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if warning != WarningNoAPIKey {
		t.Errorf("Expected missing-key warning, got: %q", warning)
	}
	if len(items) != 0 {
		t.Errorf("Expected empty item list, got: %d", len(items))
	}
}

func TestRunNormalizesResults(t *testing.T) {
	cfg.Set(testCfg("test-key"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apikey") != "test-key" {
			t.Errorf("Expected apikey forwarded, got: %s", r.URL.Query().Get("apikey"))
		}
		if r.URL.Query().Get("q") != "peniche" {
			t.Errorf("Expected query forwarded, got: %s", r.URL.Query().Get("q"))
		}

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"status": "success",
			"results": [
				{
					"title": "  Surf contest  ",
					"link": "https://www.news.example/surf-contest",
					"description": "<p>Big waves</p><script>alert(1)</script>",
					"pubDate": "2023-07-03 10:00:00",
					"image_url": "https://cdn.example.com/wave.jpg",
					"source_id": "newsexample",
					"category": ["sports"]
				},
				{
					"title": "",
					"link": "https://other.example/bare",
					"description": "",
					"pubDate": "",
					"image_url": "http://insecure.example/img.jpg",
					"category": []
				}
			]
		}`)
	}))
	defer server.Close()

	client := NewClient(server.Client(), feed.NewSanitizer())
	client.endpoint = server.URL

	items, warning, err := client.Run(context.Background(), Params{Query: "peniche"})

	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if warning != "" {
		t.Errorf("Expected no warning, got: %q", warning)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got: %d", len(items))
	}

	first := items[0]
	if first.Title != "Surf contest" {
		t.Errorf("Expected trimmed title, got: %q", first.Title)
	}
	if first.Description != "<p>Big waves</p>" {
		t.Errorf("Expected sanitized description, got: %q", first.Description)
	}
	if first.Image != "https://cdn.example.com/wave.jpg" {
		t.Errorf("Expected https image kept, got: %s", first.Image)
	}
	if first.Source != "newsexample" {
		t.Errorf("Expected source_id used, got: %s", first.Source)
	}
	if first.Category != "sports" {
		t.Errorf("Expected category, got: %s", first.Category)
	}
	if first.PublishedAt.IsZero() || first.PublishedAt.Month() != time.July {
		t.Errorf("Expected parsed pubDate, got: %v", first.PublishedAt)
	}

	second := items[1]
	if second.Title != feed.DefaultTitle {
		t.Errorf("Expected default title, got: %q", second.Title)
	}
	if second.Image != sources.GenericFallbackImage {
		t.Errorf("Expected fallback image for non-https URL, got: %s", second.Image)
	}
	if second.Source != "other.example" {
		t.Errorf("Expected source derived from link host, got: %s", second.Source)
	}
	if !second.PublishedAt.IsZero() {
		t.Errorf("Expected zero published time, got: %v", second.PublishedAt)
	}
}

func TestRunUpstreamError(t *testing.T) {
	cfg.Set(testCfg("test-key"))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewClient(server.Client(), feed.NewSanitizer())
	client.endpoint = server.URL

	_, _, err := client.Run(context.Background(), Params{})
	if err == nil {
		t.Fatal("Expected error for upstream failure")
	}
}

func TestBuildRequestDropsInvalidLanguage(t *testing.T) {
	cfg.Set(testCfg("test-key"))

	client := NewClient(&http.Client{}, feed.NewSanitizer())

	req, err := client.buildRequest(context.Background(), Params{Language: "not a language!!", Country: "pt"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	q := req.URL.Query()
	if q.Get("language") != "" {
		t.Errorf("Expected invalid language dropped, got: %s", q.Get("language"))
	}
	if q.Get("country") != "pt" {
		t.Errorf("Expected country kept, got: %s", q.Get("country"))
	}

	req, err = client.buildRequest(context.Background(), Params{Language: "pt"})
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if req.URL.Query().Get("language") != "pt" {
		t.Errorf("Expected valid language kept, got: %s", req.URL.Query().Get("language"))
	}
}
