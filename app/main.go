package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/baleal/newsgate/app/aggregator"
	"github.com/baleal/newsgate/app/api"
	"github.com/baleal/newsgate/app/cache"
	"github.com/baleal/newsgate/app/cfg"
	"github.com/baleal/newsgate/app/feed"
	"github.com/baleal/newsgate/app/newsdata"
	"github.com/baleal/newsgate/app/refresh"
	"github.com/baleal/newsgate/app/snapshot"
	"github.com/baleal/newsgate/app/sources"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	appCfg, err := cfg.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	if appCfg.Debug {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	slog.Info("Starting Newsgate", "version", appCfg.Version)

	registry := sources.NewRegistry(appCfg.SourcesDir, appCfg.AllowedSources, appCfg.AllowAll)
	if err := registry.Run(); err != nil {
		slog.Error("Failed to load source configurations", "error", err)
		os.Exit(1)
	}
	slog.Info("Sources loaded", "count", registry.Count(), "allow_all", appCfg.AllowAll)
	if appCfg.AllowAll {
		slog.Warn("Allowlist enforcement is DISABLED (ALLOW_ALL) - do not run this in production")
	}

	httpClient := &http.Client{
		Timeout: appCfg.FetchTimeout() + 2*time.Second,
	}

	store := cache.NewCache()
	sanitizer := feed.NewSanitizer()
	imageExtractor := feed.NewImageExtractor(registry, store, httpClient, appCfg.UserAgent)
	normalizer := feed.NewNormalizer(registry, sanitizer, imageExtractor)
	agg := aggregator.New(registry, feed.NewFetcher(httpClient), feed.NewDiscoverer(),
		feed.NewParser(), normalizer, store)

	if appCfg.SnapshotOut != "" {
		writer := snapshot.NewWriter(registry, agg, feed.NewContentExtractor(),
			httpClient, appCfg.UserAgent, appCfg.SnapshotOut)
		if err := writer.Run(context.Background()); err != nil {
			slog.Error("Snapshot failed", "error", err)
			os.Exit(1)
		}
		return
	}

	refresher := refresh.NewRefresher(registry, agg)
	refresher.Start()
	defer refresher.Stop()

	handler := api.NewHandler(registry, agg, feed.NewGenerator(),
		newsdata.NewClient(httpClient, sanitizer), imageExtractor.Stats(), store, httpClient)
	server := api.NewServer(handler)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("HTTP server error", "error", err)
	}

	slog.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
