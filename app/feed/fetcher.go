package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/baleal/newsgate/app/cfg"
)

// MaxResponseSize caps feed bodies so a hostile source cannot exhaust memory.
const MaxResponseSize = 10 * 1024 * 1024

type FetchResult struct {
	Body        []byte
	ContentType string
	Status      int
}

// Fetcher issues a single GET against one source URL with a bounded timeout
// and an identifying user agent.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	timeout    time.Duration
}

func NewFetcher(httpClient *http.Client) *Fetcher {
	c := cfg.Get()

	return &Fetcher{
		httpClient: httpClient,
		userAgent:  c.UserAgent,
		timeout:    c.FetchTimeout(),
	}
}

func (f *Fetcher) Run(ctx context.Context, rawURL string) (*FetchResult, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(timeoutCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, text/html;q=0.5, */*;q=0.1")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || timeoutCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %s after %s", ErrTimeout, rawURL, f.timeout)
		}
		return nil, fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d %s", ErrUpstream, rawURL, resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		if timeoutCtx.Err() != nil {
			return nil, fmt.Errorf("%w: %s while reading body", ErrTimeout, rawURL)
		}
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if int64(len(body)) > MaxResponseSize {
		return nil, fmt.Errorf("%w: %s response exceeds %d bytes", ErrUpstream, rawURL, MaxResponseSize)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		Status:      resp.StatusCode,
	}, nil
}
