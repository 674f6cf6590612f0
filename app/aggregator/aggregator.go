package aggregator

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/mmcdole/gofeed"

	"github.com/baleal/newsgate/app/cache"
	"github.com/baleal/newsgate/app/cfg"
	"github.com/baleal/newsgate/app/feed"
	"github.com/baleal/newsgate/app/sources"
)

type Options struct {
	// Dedupe keeps the first occurrence per link (or title) across sources.
	Dedupe bool
	// NoCache bypasses both the aggregate and per-source caches and
	// refreshes their entries.
	NoCache bool
	// Limit caps the combined result; 0 means uncapped.
	Limit int
}

// Aggregator fans the fetch/parse/normalize pipeline out across sources
// concurrently and combines the settled results. Partial failure is the
// expected case: a broken source contributes zero items and never aborts
// its siblings.
type Aggregator struct {
	registry   *sources.Registry
	fetcher    *feed.Fetcher
	discoverer *feed.Discoverer
	parser     *feed.Parser
	normalizer *feed.Normalizer
	store      *cache.Cache
}

func New(registry *sources.Registry, fetcher *feed.Fetcher, discoverer *feed.Discoverer,
	parser *feed.Parser, normalizer *feed.Normalizer, store *cache.Cache) *Aggregator {
	return &Aggregator{
		registry:   registry,
		fetcher:    fetcher,
		discoverer: discoverer,
		parser:     parser,
		normalizer: normalizer,
		store:      store,
	}
}

// Run aggregates the given source URLs. The returned list is sorted by
// recency descending with undated items last.
func (a *Aggregator) Run(ctx context.Context, sourceURLs []string, opts Options) []feed.Item {
	allowed := a.registry.Filter(sourceURLs)
	if len(allowed) == 0 {
		return []feed.Item{}
	}

	aggKey := aggregateKey(allowed, opts)
	if !opts.NoCache {
		if v, ok := a.store.Get(aggKey); ok {
			return v.([]feed.Item)
		}
	}

	collected := a.settleAll(ctx, allowed, opts.NoCache)

	if opts.Dedupe {
		collected = dedupe(collected)
	}

	sort.SliceStable(collected, func(i, j int) bool {
		return collected[i].PublishedAt.After(collected[j].PublishedAt)
	})

	if opts.Limit > 0 && len(collected) > opts.Limit {
		collected = collected[:opts.Limit]
	}

	a.store.Set(aggKey, collected, cfg.Get().CacheTTL())

	return collected
}

// settleAll runs one pipeline per source concurrently and collects every
// outcome. Failures are logged and excluded; a slow source delays only its
// own contribution.
func (a *Aggregator) settleAll(ctx context.Context, urls []string, noCache bool) []feed.Item {
	results := make([][]feed.Item, len(urls))

	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()

			items, err := a.FetchSource(ctx, u, noCache)
			if err != nil {
				slog.Warn("Source failed, excluded from aggregate", "url", u, "error", err)
				return
			}
			results[i] = items
		}(i, u)
	}
	wg.Wait()

	combined := make([]feed.Item, 0, 64)
	for _, items := range results {
		combined = append(combined, items...)
	}
	return combined
}

// FetchSource runs the single-source pipeline: cache lookup, fetch,
// one-shot discovery when the source answered with HTML, parse, and
// per-item normalization. Original feed order is preserved.
func (a *Aggregator) FetchSource(ctx context.Context, sourceURL string, noCache bool) ([]feed.Item, error) {
	key := cache.Key("source", sourceURL)
	if !noCache {
		if v, ok := a.store.Get(key); ok {
			return v.([]feed.Item), nil
		}
	}

	result, err := a.fetcher.Run(ctx, sourceURL)
	if err != nil {
		return nil, err
	}

	_, rawItems, err := a.parser.Run(result.Body)
	if err != nil && !feed.LooksLikeFeed(result.ContentType, result.Body) {
		rawItems, err = a.discoverAndRefetch(ctx, result.Body, sourceURL)
	}
	if err != nil {
		return nil, err
	}

	items := make([]feed.Item, 0, len(rawItems))
	for _, raw := range rawItems {
		items = append(items, a.normalizer.Run(ctx, raw, sourceURL))
	}

	a.store.Set(key, items, cfg.Get().CacheTTL())

	return items, nil
}

// discoverAndRefetch resolves the real feed URL from an HTML page and
// retries exactly once.
func (a *Aggregator) discoverAndRefetch(ctx context.Context, body []byte, sourceURL string) ([]*gofeed.Item, error) {
	discovered := a.discoverer.Run(body, sourceURL)
	if discovered == "" || discovered == sourceURL {
		return nil, feed.ErrParse
	}

	slog.Debug("Feed discovered from HTML page", "page", sourceURL, "feed", discovered)

	result, err := a.fetcher.Run(ctx, discovered)
	if err != nil {
		return nil, err
	}

	_, rawItems, err := a.parser.Run(result.Body)
	return rawItems, err
}

// dedupe keeps the first occurrence per key. Key is the trimmed link, the
// title when the link is empty; items with neither are dropped.
func dedupe(items []feed.Item) []feed.Item {
	seen := make(map[string]bool, len(items))
	out := make([]feed.Item, 0, len(items))

	for _, item := range items {
		key := strings.TrimSpace(item.Link)
		if key == "" {
			key = strings.TrimSpace(item.Title)
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, item)
	}
	return out
}

func aggregateKey(urls []string, opts Options) string {
	parts := make([]string, 0, len(urls)+2)
	parts = append(parts, urls...)
	if opts.Dedupe {
		parts = append(parts, "dedupe")
	}
	if opts.Limit > 0 {
		parts = append(parts, "limit", strconv.Itoa(opts.Limit))
	}
	return cache.Key("aggregate", parts...)
}
