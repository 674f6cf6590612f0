package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/baleal/newsgate/app/aggregator"
	"github.com/baleal/newsgate/app/feed"
	"github.com/baleal/newsgate/app/sources"
)

// enrichLimit bounds how many top items get full-content extraction;
// each one costs an article-page fetch.
const enrichLimit = 5

type AggregateRunner interface {
	Run(ctx context.Context, sourceURLs []string, opts aggregator.Options) []feed.Item
}

type Snapshot struct {
	Generated string      `json:"generated"`
	Items     []feed.Item `json:"items"`
}

// Writer runs the aggregate pipeline once and writes a static snapshot:
// a JSON file plus a pre-rendered HTML fragment next to it. This is the
// offline batch path, not part of the live request flow.
type Writer struct {
	registry  *sources.Registry
	agg       AggregateRunner
	extractor *feed.ContentExtractor
	client    *http.Client
	userAgent string
	outPath   string
}

func NewWriter(registry *sources.Registry, agg AggregateRunner, extractor *feed.ContentExtractor,
	client *http.Client, userAgent, outPath string) *Writer {
	return &Writer{
		registry:  registry,
		agg:       agg,
		extractor: extractor,
		client:    client,
		userAgent: userAgent,
		outPath:   outPath,
	}
}

func (w *Writer) Run(ctx context.Context) error {
	items := w.agg.Run(ctx, w.registry.Sources(), aggregator.Options{
		Dedupe:  true,
		NoCache: true,
		Limit:   60,
	})

	w.enrich(ctx, items)

	snap := Snapshot{
		Generated: time.Now().UTC().Format(time.RFC3339),
		Items:     items,
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := os.WriteFile(w.outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}

	fragmentPath := strings.TrimSuffix(w.outPath, filepath.Ext(w.outPath)) + ".html"
	if err := os.WriteFile(fragmentPath, []byte(renderFragment(items)), 0o644); err != nil {
		return fmt.Errorf("failed to write HTML fragment: %w", err)
	}

	slog.Info("Snapshot written",
		"items", len(items),
		"json", w.outPath,
		"fragment", fragmentPath)

	return nil
}

// enrich replaces the content of the first few items with the readable
// article body extracted from their pages. Failures leave the feed-provided
// content in place.
func (w *Writer) enrich(ctx context.Context, items []feed.Item) {
	for i := range items {
		if i >= enrichLimit {
			return
		}
		if items[i].Link == "" {
			continue
		}

		page, err := w.fetchPage(ctx, items[i].Link)
		if err != nil {
			slog.Debug("Article page fetch failed", "url", items[i].Link, "error", err)
			continue
		}

		content, err := w.extractor.Run(page)
		if err != nil {
			slog.Debug("Content extraction failed", "url", items[i].Link, "error", err)
			continue
		}

		items[i].Content = content
	}
}

func (w *Writer) fetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from article page", feed.ErrUpstream, resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, feed.MaxResponseSize))
}

// renderFragment builds the pre-rendered card list injected into the
// static site. Titles and sources are entity-escaped; descriptions were
// already sanitized by the pipeline.
func renderFragment(items []feed.Item) string {
	var b strings.Builder

	b.WriteString("<ul class=\"news-list\">\n")
	for _, item := range items {
		b.WriteString("  <li class=\"news-item\">\n")
		fmt.Fprintf(&b, "    <a href=\"%s\" rel=\"noopener\">\n", feed.EscapeHTML(item.Link))
		fmt.Fprintf(&b, "      <img src=\"%s\" alt=\"\" loading=\"lazy\">\n", feed.EscapeHTML(item.Image))
		fmt.Fprintf(&b, "      <h3>%s</h3>\n", feed.EscapeHTML(item.Title))
		fmt.Fprintf(&b, "      <span class=\"news-meta\">%s · %s</span>\n",
			feed.EscapeHTML(item.Source), feed.EscapeHTML(item.Date))
		b.WriteString("    </a>\n")
		b.WriteString("  </li>\n")
	}
	b.WriteString("</ul>\n")

	return b.String()
}
