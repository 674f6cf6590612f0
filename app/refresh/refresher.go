package refresh

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/baleal/newsgate/app/cfg"
	"github.com/baleal/newsgate/app/feed"
	"github.com/baleal/newsgate/app/sources"
)

type SourceFetcher interface {
	FetchSource(ctx context.Context, sourceURL string, noCache bool) ([]feed.Item, error)
}

// Refresher keeps the per-source cache entries warm by re-running the
// single-source pipeline on an interval, so interactive requests rarely
// pay the upstream fetch. Disabled when the interval is zero.
type Refresher struct {
	registry    *sources.Registry
	fetcher     SourceFetcher
	interval    time.Duration
	workerCount int
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
	jobs        chan string
}

func NewRefresher(registry *sources.Registry, fetcher SourceFetcher) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	c := cfg.Get()

	return &Refresher{
		registry:    registry,
		fetcher:     fetcher,
		interval:    time.Duration(c.RefreshInterval) * time.Second,
		workerCount: c.WorkerCount,
		ctx:         ctx,
		cancel:      cancel,
		jobs:        make(chan string, 64),
	}
}

func (r *Refresher) Start() {
	if r.interval <= 0 {
		slog.Info("Background refresh disabled")
		return
	}

	for i := 0; i < r.workerCount; i++ {
		r.wg.Add(1)
		go r.worker(i)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		r.enqueueAll()

		for {
			select {
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				r.enqueueAll()
			}
		}
	}()

	slog.Info("Background refresh started", "interval", r.interval, "workers", r.workerCount)
}

func (r *Refresher) Stop() {
	r.cancel()
	r.wg.Wait()
}

func (r *Refresher) enqueueAll() {
	for _, u := range r.registry.Sources() {
		select {
		case r.jobs <- u:
		default:
			slog.Warn("Refresh queue full, skipping source", "url", u)
		}
	}
}

func (r *Refresher) worker(id int) {
	defer r.wg.Done()

	for {
		select {
		case <-r.ctx.Done():
			return
		case sourceURL := <-r.jobs:
			started := time.Now()

			items, err := r.fetcher.FetchSource(r.ctx, sourceURL, true)
			if err != nil {
				slog.Warn("Refresh failed", "worker", id, "url", sourceURL, "error", err)
				continue
			}

			slog.Info("Source refreshed",
				"worker", id,
				"url", sourceURL,
				"items", len(items),
				"duration", time.Since(started))
		}
	}
}
