package api

import (
	"context"
	"net/http"

	"github.com/baleal/newsgate/app/aggregator"
	"github.com/baleal/newsgate/app/cache"
	"github.com/baleal/newsgate/app/feed"
	"github.com/baleal/newsgate/app/newsdata"
	"github.com/baleal/newsgate/app/sources"
)

type AggregatorInterface interface {
	Run(ctx context.Context, sourceURLs []string, opts aggregator.Options) []feed.Item
	FetchSource(ctx context.Context, sourceURL string, noCache bool) ([]feed.Item, error)
}

var _ AggregatorInterface = (*aggregator.Aggregator)(nil)

type NewsdataInterface interface {
	Run(ctx context.Context, params newsdata.Params) ([]feed.Item, string, error)
}

var _ NewsdataInterface = (*newsdata.Client)(nil)

type Handler struct {
	registry   *sources.Registry
	aggregator AggregatorInterface
	generator  *feed.Generator
	newsdata   NewsdataInterface
	stats      *feed.Stats
	store      *cache.Cache
	httpClient *http.Client
}
