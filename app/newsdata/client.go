package newsdata

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/text/language"

	"github.com/baleal/newsgate/app/cfg"
	"github.com/baleal/newsgate/app/feed"
	"github.com/baleal/newsgate/app/sources"
)

const defaultEndpoint = "https://newsdata.io/api/1/latest"

// WarningNoAPIKey is returned with an empty item list when the API key is
// unconfigured, so the endpoint degrades instead of erroring.
const WarningNoAPIKey = "NEWSDATA_API_KEY is not configured"

type Params struct {
	Query    string
	Country  string
	Language string
	Category string
}

// Client proxies the newsdata.io latest-news API and normalizes its results
// to the canonical item shape.
type Client struct {
	httpClient *http.Client
	sanitizer  *feed.Sanitizer
	endpoint   string
	apiKey     string
	userAgent  string
}

type apiResponse struct {
	Status  string      `json:"status"`
	Results []apiResult `json:"results"`
}

type apiResult struct {
	Title       string   `json:"title"`
	Link        string   `json:"link"`
	Description string   `json:"description"`
	PubDate     string   `json:"pubDate"`
	ImageURL    string   `json:"image_url"`
	SourceID    string   `json:"source_id"`
	Category    []string `json:"category"`
}

func NewClient(httpClient *http.Client, sanitizer *feed.Sanitizer) *Client {
	c := cfg.Get()

	return &Client{
		httpClient: httpClient,
		sanitizer:  sanitizer,
		endpoint:   defaultEndpoint,
		apiKey:     c.NewsdataAPIKey,
		userAgent:  c.UserAgent,
	}
}

// Run queries the API. The warning return is non-empty when the request was
// degraded (missing key) rather than failed.
func (c *Client) Run(ctx context.Context, params Params) ([]feed.Item, string, error) {
	if c.apiKey == "" {
		return []feed.Item{}, WarningNoAPIKey, nil
	}

	req, err := c.buildRequest(ctx, params)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("newsdata request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: newsdata returned %d", feed.ErrUpstream, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, feed.MaxResponseSize))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read newsdata response: %w", err)
	}

	var parsed apiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, "", fmt.Errorf("failed to decode newsdata response: %w", err)
	}

	items := make([]feed.Item, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		items = append(items, c.normalize(r))
	}

	return items, "", nil
}

func (c *Client) buildRequest(ctx context.Context, params Params) (*http.Request, error) {
	q := url.Values{}
	q.Set("apikey", c.apiKey)

	if params.Query != "" {
		q.Set("q", params.Query)
	}
	if params.Country != "" {
		q.Set("country", params.Country)
	}
	if params.Category != "" {
		q.Set("category", params.Category)
	}
	if params.Language != "" {
		if _, err := language.Parse(params.Language); err != nil {
			slog.Warn("Invalid language tag dropped from newsdata query", "language", params.Language)
		} else {
			q.Set("language", params.Language)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create newsdata request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	return req, nil
}

func (c *Client) normalize(r apiResult) feed.Item {
	publishedAt := time.Time{}
	if strings.TrimSpace(r.PubDate) != "" {
		if t, err := dateparse.ParseAny(r.PubDate); err == nil {
			publishedAt = t
		}
	}

	displayDate := time.Now()
	if !publishedAt.IsZero() {
		displayDate = publishedAt
	}

	image := sources.GenericFallbackImage
	if strings.HasPrefix(strings.ToLower(r.ImageURL), "https://") {
		image = r.ImageURL
	}

	category := feed.DefaultCategory
	if len(r.Category) > 0 && r.Category[0] != "" {
		category = r.Category[0]
	}

	source := r.SourceID
	if source == "" {
		if u, err := url.Parse(r.Link); err == nil && u.Hostname() != "" {
			source = strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
		}
	}

	description := c.sanitizer.Run(r.Description)

	return feed.Item{
		Title:       cmp.Or(strings.TrimSpace(r.Title), feed.DefaultTitle),
		Image:       image,
		Description: description,
		Summary:     description,
		Date:        displayDate.In(time.Local).Format("02 Jan 2006"),
		PublishedAt: publishedAt,
		Category:    category,
		Source:      cmp.Or(source, feed.DefaultSource),
		Link:        r.Link,
	}
}
