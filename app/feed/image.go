package feed

import (
	"bytes"
	"context"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"

	"github.com/baleal/newsgate/app/cache"
	"github.com/baleal/newsgate/app/sources"
)

// ValidationTTL bounds repeat HEAD traffic for a candidate URL.
const ValidationTTL = 30 * time.Minute

const validationTimeout = 3 * time.Second

type ExtractOptions struct {
	// Validate issues a HEAD request per candidate and accepts the first
	// one that answers 2xx with an image/* content type.
	Validate bool
	// SourceURL selects the per-host fallback when no candidate survives.
	SourceURL string
}

// extractorFunc returns image URL candidates from one location of the item,
// in discovery order. The chain below is priority-ordered: the first
// surviving candidate wins.
type extractorFunc struct {
	method string
	fn     func(item *gofeed.Item) []string
}

// ImageExtractor resolves the best-effort hero image for a feed item.
type ImageExtractor struct {
	registry        *sources.Registry
	validationCache *cache.Cache
	httpClient      *http.Client
	userAgent       string
	stats           *Stats
	chain           []extractorFunc
}

func NewImageExtractor(registry *sources.Registry, validationCache *cache.Cache, httpClient *http.Client, userAgent string) *ImageExtractor {
	e := &ImageExtractor{
		registry:        registry,
		validationCache: validationCache,
		httpClient:      httpClient,
		userAgent:       userAgent,
		stats:           NewStats(),
	}

	e.chain = []extractorFunc{
		{"direct", e.fromDirectField},
		{"enclosure", e.fromEnclosures},
		{"media", e.fromMediaExtensions},
		{"content_html", func(item *gofeed.Item) []string { return scanHTML(item.Content) }},
		{"description_html", func(item *gofeed.Item) []string { return scanHTML(item.Description) }},
	}

	return e
}

func (e *ImageExtractor) Stats() *Stats {
	return e.stats
}

// Run returns the first plausible https image URL for the item, or a
// fallback asset. The result is never empty.
func (e *ImageExtractor) Run(ctx context.Context, item *gofeed.Item, opts ExtractOptions) string {
	e.stats.Attempt()

	seen := make(map[string]bool)
	for _, extractor := range e.chain {
		for _, candidate := range extractor.fn(item) {
			candidate = strings.TrimSpace(candidate)
			if seen[candidate] {
				continue
			}
			seen[candidate] = true

			if !plausibleImageURL(candidate) {
				continue
			}

			if opts.Validate {
				if !e.validate(ctx, candidate) {
					continue
				}
			}

			e.stats.Success(extractor.method)
			return candidate
		}
	}

	e.stats.Fallback(fallbackHost(item, opts.SourceURL))
	return e.registry.FallbackImage(fallbackHost(item, opts.SourceURL))
}

func (e *ImageExtractor) fromDirectField(item *gofeed.Item) []string {
	var out []string
	if item.Image != nil && item.Image.URL != "" {
		out = append(out, item.Image.URL)
	}
	for _, key := range []string{"image", "image_url"} {
		if v, ok := item.Custom[key]; ok && v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (e *ImageExtractor) fromEnclosures(item *gofeed.Item) []string {
	var out []string
	for _, enc := range item.Enclosures {
		if enc == nil || enc.URL == "" {
			continue
		}
		if strings.HasPrefix(enc.Type, "image/") || enc.Type == "" {
			out = append(out, enc.URL)
		}
	}
	return out
}

// fromMediaExtensions walks media:content, media:thumbnail and media:group
// in that order, covering the attribute shapes different publishers emit.
func (e *ImageExtractor) fromMediaExtensions(item *gofeed.Item) []string {
	media, ok := item.Extensions["media"]
	if !ok {
		return nil
	}

	var out []string
	out = append(out, mediaURLs(media["content"])...)
	out = append(out, mediaURLs(media["thumbnail"])...)
	for _, group := range media["group"] {
		out = append(out, mediaURLs(group.Children["content"])...)
		out = append(out, mediaURLs(group.Children["thumbnail"])...)
	}
	return out
}

func mediaURLs(exts []ext.Extension) []string {
	var out []string
	for _, x := range exts {
		if u := x.Attrs["url"]; u != "" {
			out = append(out, u)
			continue
		}
		if x.Value != "" {
			out = append(out, x.Value)
		}
	}
	return out
}

var (
	jsonLDImageRe = regexp.MustCompile(`"image"\s*:\s*"(https?://[^"]+)"`)
)

// scanHTML pulls image URLs out of an embedded HTML fragment: inline <img>
// tags, Open Graph and Twitter meta, link rel=image_src, and a JSON-LD
// image field.
func scanHTML(fragment string) []string {
	if strings.TrimSpace(fragment) == "" {
		return nil
	}

	var out []string

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader([]byte(fragment)))
	if err == nil {
		doc.Find(`meta[property="og:image"], meta[name="og:image"]`).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("content"); ok {
				out = append(out, v)
			}
		})
		doc.Find(`meta[name="twitter:image"], meta[property="twitter:image"]`).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("content"); ok {
				out = append(out, v)
			}
		})
		doc.Find(`link[rel="image_src"]`).Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("href"); ok {
				out = append(out, v)
			}
		})
		doc.Find("img").Each(func(_ int, s *goquery.Selection) {
			if v, ok := s.Attr("src"); ok {
				out = append(out, v)
			}
		})
	}

	for _, m := range jsonLDImageRe.FindAllStringSubmatch(fragment, -1) {
		out = append(out, m[1])
	}

	return out
}

// plausibleImageURL rejects candidates that cannot serve as hero images:
// non-https URLs, data: URIs, tracking pixels, and icon-sized SVGs.
func plausibleImageURL(candidate string) bool {
	if candidate == "" {
		return false
	}

	lower := strings.ToLower(candidate)
	if !strings.HasPrefix(lower, "https://") {
		return false
	}
	if strings.Contains(lower, "placeholder") ||
		strings.Contains(lower, "spacer.gif") ||
		strings.Contains(lower, "1x1") {
		return false
	}

	u, err := url.Parse(candidate)
	if err != nil {
		return false
	}
	if strings.HasSuffix(strings.ToLower(u.Path), ".svg") {
		return false
	}

	return true
}

// validate issues a HEAD request with a short timeout and remembers the
// verdict so repeated aggregations do not re-probe the same URL.
func (e *ImageExtractor) validate(ctx context.Context, candidate string) bool {
	key := cache.Key("imgvalid", candidate)
	if v, ok := e.validationCache.Get(key); ok {
		return v.(bool)
	}

	ok := e.headIsImage(ctx, candidate)
	e.validationCache.Set(key, ok, ValidationTTL)
	return ok
}

func (e *ImageExtractor) headIsImage(ctx context.Context, candidate string) bool {
	timeoutCtx, cancel := context.WithTimeout(ctx, validationTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodHead, candidate, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", e.userAgent)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false
	}
	return strings.HasPrefix(resp.Header.Get("Content-Type"), "image/")
}

func fallbackHost(item *gofeed.Item, sourceURL string) string {
	for _, candidate := range []string{item.Link, sourceURL} {
		if candidate == "" {
			continue
		}
		if u, err := url.Parse(candidate); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	return ""
}
