package cfg

import (
	"cmp"
	"fmt"
	"strings"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// HTTP server configuration
	Port    string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://news.example.com)"`

	// Source configuration
	SourcesDir     string `long:"sources-dir" env:"SOURCES_DIR" default:"./sources" description:"Directory containing source configuration files"`
	AllowedSources string `long:"allowed-sources" env:"ALLOWED_SOURCES" description:"Comma-separated source URL prefixes appended to built-in defaults"`
	AllowAll       string `long:"allow-all" env:"ALLOW_ALL" description:"Disable allowlist enforcement when set to 1 or true (unsafe for production)"`

	// Fetch configuration
	FetchTimeoutMs int `long:"fetch-timeout-ms" env:"FETCH_TIMEOUT_MS" default:"8000" description:"Per-source fetch timeout in milliseconds"`
	CacheTTLMs     int `long:"cache-ttl-ms" env:"CACHE_TTL_MS" default:"900000" description:"Cache TTL in milliseconds"`
	ValidateImages bool `long:"validate-images" env:"VALIDATE_IMAGES" description:"Validate extracted image URLs with HEAD requests"`

	// Background refresh
	RefreshInterval int `long:"refresh-interval" env:"REFRESH_INTERVAL" default:"0" description:"Cache warm interval in seconds (0 disables background refresh)"`
	WorkerCount     int `long:"worker-count" env:"WORKER_COUNT" default:"4" description:"Number of background workers for source refresh"`

	// Third-party news API
	NewsdataAPIKey string `long:"newsdata-api-key" env:"NEWSDATA_API_KEY" description:"API key for the newsdata.io passthrough endpoint"`

	// Rate limiting
	RateLimitWindowMs int `long:"rate-limit-window-ms" env:"RATE_LIMIT_WINDOW_MS" default:"60000" description:"Rate limit window in milliseconds"`
	RateLimitMax      int `long:"rate-limit-max" env:"RATE_LIMIT_MAX" default:"60" description:"Maximum requests per client within the rate limit window"`

	// Snapshot mode
	SnapshotOut string `long:"snapshot-out" env:"SNAPSHOT_OUT" description:"Write an aggregate snapshot to this JSON file and exit instead of serving"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Newsgate/1.0 (+https://github.com/baleal/newsgate)" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, Europe/Lisbon)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		Port:              raw.Port,
		BaseUrl:           raw.BaseUrl,
		SourcesDir:        raw.SourcesDir,
		AllowedSources:    splitList(raw.AllowedSources),
		AllowAll:          isTruthy(raw.AllowAll),
		FetchTimeoutMs:    raw.FetchTimeoutMs,
		CacheTTLMs:        raw.CacheTTLMs,
		ValidateImages:    raw.ValidateImages,
		RefreshInterval:   raw.RefreshInterval,
		WorkerCount:       raw.WorkerCount,
		NewsdataAPIKey:    raw.NewsdataAPIKey,
		RateLimitWindowMs: raw.RateLimitWindowMs,
		RateLimitMax:      raw.RateLimitMax,
		SnapshotOut:       raw.SnapshotOut,
		UserAgent:         raw.UserAgent,
		Timezone:          raw.Timezone,
		Debug:             raw.Debug,
		Version:           GetVersion(),
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Set replaces the global configuration. Intended for tests.
func Set(c *Cfg) {
	globalCfg = c
}

func (c *Cfg) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMs) * time.Millisecond
}

func (c *Cfg) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLMs) * time.Millisecond
}

func (c *Cfg) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMs) * time.Millisecond
}

func splitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes":
		return true
	}
	return false
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
