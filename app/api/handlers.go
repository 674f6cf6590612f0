package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/baleal/newsgate/app/aggregator"
	"github.com/baleal/newsgate/app/cache"
	"github.com/baleal/newsgate/app/cfg"
	"github.com/baleal/newsgate/app/feed"
	"github.com/baleal/newsgate/app/newsdata"
	"github.com/baleal/newsgate/app/sources"
)

const (
	// DefaultAggregateLimit caps the combined list when the client does
	// not ask for a specific size.
	DefaultAggregateLimit = 60

	imageProxyTimeout   = 10 * time.Second
	imageProxyCacheCtrl = "public, max-age=604800, immutable"
)

func NewHandler(registry *sources.Registry, agg AggregatorInterface, generator *feed.Generator,
	news NewsdataInterface, stats *feed.Stats, store *cache.Cache, httpClient *http.Client) *Handler {
	return &Handler{
		registry:   registry,
		aggregator: agg,
		generator:  generator,
		newsdata:   news,
		stats:      stats,
		store:      store,
		httpClient: httpClient,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"sources":   h.registry.Count(),
	})
}

func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"image_extraction": h.stats.Snapshot(),
		"cache_entries":    h.store.Len(),
	})
}

// GetFeed serves a single source: /api/rss?url=<feedUrl>&noCache=<0|1>.
// Upstream failures degrade to an empty item list; only request-validation
// errors surface as 4xx.
func (h *Handler) GetFeed(c *gin.Context) {
	rawURL := strings.TrimSpace(c.Query("url"))
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	if !h.registry.Allowed(rawURL) {
		c.JSON(http.StatusForbidden, gin.H{"error": "Source URL is not on the allowlist"})
		return
	}

	items, err := h.aggregator.FetchSource(c.Request.Context(), rawURL, boolParam(c, "noCache"))
	if err != nil {
		slog.Warn("Source fetch failed", "url", rawURL, "error", err)
		c.JSON(http.StatusOK, gin.H{"items": []feed.Item{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetAggregate serves the combined list. Always 200: upstream failures are
// logged, never surfaced as client-facing errors.
func (h *Handler) GetAggregate(c *gin.Context) {
	items := h.runAggregate(c)
	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetAggregateRSS renders the same aggregate as RSS 2.0.
func (h *Handler) GetAggregateRSS(c *gin.Context) {
	items := h.runAggregate(c)
	rss := h.generator.Run("Newsgate aggregate", "/api/aggregate.rss", items)

	c.Header("Content-Type", "application/rss+xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(items)))
	c.String(http.StatusOK, rss)
}

func (h *Handler) runAggregate(c *gin.Context) []feed.Item {
	sourceURLs := splitSources(c.Query("sources"))
	if len(sourceURLs) == 0 {
		sourceURLs = h.registry.Sources()
	}

	limit := DefaultAggregateLimit
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	return h.aggregator.Run(c.Request.Context(), sourceURLs, aggregator.Options{
		Dedupe:  boolParam(c, "dedupe"),
		NoCache: boolParam(c, "noCache"),
		Limit:   limit,
	})
}

// GetNewsdata proxies the third-party news API, normalized to the same
// item shape. Returns an empty list with a warning when unconfigured.
func (h *Handler) GetNewsdata(c *gin.Context) {
	items, warning, err := h.newsdata.Run(c.Request.Context(), newsdata.Params{
		Query:    c.Query("q"),
		Country:  c.Query("country"),
		Language: c.Query("language"),
		Category: c.Query("category"),
	})
	if err != nil {
		slog.Error("Newsdata request failed", "error", err)
		c.JSON(http.StatusOK, gin.H{"items": []feed.Item{}, "warning": "upstream news API unavailable"})
		return
	}

	if warning != "" {
		c.JSON(http.StatusOK, gin.H{"items": items, "warning": warning})
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

// GetImage proxies a remote image so the front end never mixes origins:
// 400 for missing/invalid/non-HTTPS URLs, 415 when the upstream body is
// not an image.
func (h *Handler) GetImage(c *gin.Context) {
	rawURL := strings.TrimSpace(c.Query("url"))
	if rawURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url must be an absolute https URL"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), imageProxyTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid url"})
		return
	}
	req.Header.Set("User-Agent", cfg.Get().UserAgent)

	resp, err := h.httpClient.Do(req)
	if err != nil {
		slog.Warn("Image proxy upstream failed", "url", rawURL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream image unavailable"})
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream image unavailable"})
		return
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "upstream content is not an image"})
		return
	}

	c.Header("Cache-Control", imageProxyCacheCtrl)
	c.DataFromReader(http.StatusOK, resp.ContentLength, contentType,
		io.LimitReader(resp.Body, feed.MaxResponseSize), nil)
}

func boolParam(c *gin.Context, name string) bool {
	switch strings.ToLower(c.Query(name)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func splitSources(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
