package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/baleal/newsgate/app/aggregator"
	"github.com/baleal/newsgate/app/feed"
	"github.com/baleal/newsgate/app/sources"
)

type stubAggregate struct {
	items    []feed.Item
	lastOpts aggregator.Options
}

func (s *stubAggregate) Run(_ context.Context, _ []string, opts aggregator.Options) []feed.Item {
	s.lastOpts = opts
	return s.items
}

func TestSnapshotWritesJSONAndFragment(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "news.json")

	agg := &stubAggregate{items: []feed.Item{
		{
			Title:       "Tom & Jerry",
			Link:        "https://example.com/1",
			Image:       "https://example.com/hero.jpg",
			Source:      "example.com",
			Date:        "03 Jul 2023",
			PublishedAt: time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC),
		},
	}}

	writer := NewWriter(sources.NewRegistry("", nil, true), agg, feed.NewContentExtractor(),
		&http.Client{Timeout: 2 * time.Second}, "Newsgate-Test/1.0", outPath)

	if err := writer.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !agg.lastOpts.Dedupe || !agg.lastOpts.NoCache {
		t.Error("Expected snapshot aggregation to dedupe and bypass the cache")
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("Expected JSON snapshot written: %v", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Expected valid JSON, got: %v", err)
	}
	if snap.Generated == "" {
		t.Error("Expected generated timestamp")
	}
	if len(snap.Items) != 1 || snap.Items[0].Title != "Tom & Jerry" {
		t.Errorf("Expected items in snapshot, got: %+v", snap.Items)
	}

	fragment, err := os.ReadFile(filepath.Join(dir, "news.html"))
	if err != nil {
		t.Fatalf("Expected HTML fragment written: %v", err)
	}
	html := string(fragment)
	if !strings.Contains(html, `<ul class="news-list">`) {
		t.Error("Expected list wrapper in fragment")
	}
	if !strings.Contains(html, "Tom &amp; Jerry") {
		t.Errorf("Expected escaped title in fragment, got: %s", html)
	}
	if !strings.Contains(html, `href="https://example.com/1"`) {
		t.Error("Expected item link in fragment")
	}
}

func TestSnapshotEnrichesTopItems(t *testing.T) {
	article := `<html><head><title>Full Article</title></head><body>
<article><h1>Full Article</h1>` + strings.Repeat("<p>A long readable paragraph about the destination and its beaches.</p>", 20) + `</article>
</body></html>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, article)
	}))
	defer server.Close()

	dir := t.TempDir()
	agg := &stubAggregate{items: []feed.Item{
		{Title: "Enriched", Link: server.URL + "/article", Content: "short feed content"},
	}}

	writer := NewWriter(sources.NewRegistry("", nil, true), agg, feed.NewContentExtractor(),
		server.Client(), "Newsgate-Test/1.0", filepath.Join(dir, "news.json"))

	if err := writer.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "news.json"))
	if err != nil {
		t.Fatalf("Expected snapshot written: %v", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Expected valid JSON, got: %v", err)
	}
	if !strings.Contains(snap.Items[0].Content, "long readable paragraph") {
		t.Errorf("Expected enriched content, got: %q", snap.Items[0].Content)
	}
}

func TestSnapshotEnrichFailureKeepsFeedContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	dir := t.TempDir()
	agg := &stubAggregate{items: []feed.Item{
		{Title: "Kept", Link: server.URL + "/article", Content: "feed-provided content"},
	}}

	writer := NewWriter(sources.NewRegistry("", nil, true), agg, feed.NewContentExtractor(),
		server.Client(), "Newsgate-Test/1.0", filepath.Join(dir, "news.json"))

	if err := writer.Run(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	data, _ := os.ReadFile(filepath.Join(dir, "news.json"))
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		t.Fatalf("Expected valid JSON, got: %v", err)
	}
	if snap.Items[0].Content != "feed-provided content" {
		t.Errorf("Expected feed content preserved on enrich failure, got: %q", snap.Items[0].Content)
	}
}

func TestRenderFragmentEmpty(t *testing.T) {
	html := renderFragment(nil)
	if !strings.Contains(html, `<ul class="news-list">`) || !strings.Contains(html, "</ul>") {
		t.Errorf("Expected empty list wrapper, got: %s", html)
	}
	if strings.Contains(html, "<li") {
		t.Error("Expected no items")
	}
}
