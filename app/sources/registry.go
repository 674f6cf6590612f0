package sources

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Built-in sources for the destination site. Additional sources come from
// YAML files in the sources directory and the ALLOWED_SOURCES variable.
var defaultSources = []Source{
	{Name: "Publituris", URL: "https://www.publituris.pt/feed/", Category: "Turismo"},
	{Name: "Presstur", URL: "https://www.presstur.com/rss/", Category: "Turismo"},
	{Name: "Ambitur", URL: "https://www.ambitur.pt/feed/", Category: "Turismo"},
	{Name: "Surf Total", URL: "https://surftotal.com/feed/", Category: "Surf"},
}

// Registry holds the configured sources, the derived allowlist, and the
// per-host fallback image table.
type Registry struct {
	dir      string
	allowAll bool

	mu        sync.RWMutex
	sources   []Source
	prefixes  []string
	fallbacks map[string]string
	category  map[string]string
}

func NewRegistry(dir string, extraPrefixes []string, allowAll bool) *Registry {
	r := &Registry{
		dir:       dir,
		allowAll:  allowAll,
		fallbacks: make(map[string]string),
		category:  make(map[string]string),
	}

	for _, s := range defaultSources {
		r.add(s)
	}
	for _, p := range extraPrefixes {
		r.prefixes = append(r.prefixes, p)
	}

	return r
}

// Run loads source configuration files from the registry directory.
// A missing directory is not an error: the built-in defaults remain active.
func (r *Registry) Run() error {
	if r.dir == "" {
		return nil
	}
	if _, err := os.Stat(r.dir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(r.dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}
	yamlFiles, err := filepath.Glob(filepath.Join(r.dir, "*.yaml"))
	if err != nil {
		return fmt.Errorf("failed to find YAML files: %w", err)
	}
	files = append(files, yamlFiles...)

	for _, file := range files {
		source, err := r.loadFile(file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		r.mu.Lock()
		r.add(*source)
		r.mu.Unlock()

		slog.Debug("Source loaded", "name", source.Name, "url", source.URL, "enabled", source.IsEnabled())
	}

	return nil
}

func (r *Registry) loadFile(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var source Source
	if err := yaml.Unmarshal(data, &source); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if source.Name == "" {
		base := filepath.Base(path)
		source.Name = strings.TrimSuffix(strings.TrimSuffix(base, ".yml"), ".yaml")
	}
	if source.URL == "" {
		return nil, fmt.Errorf("source URL is required")
	}

	return &source, nil
}

// add registers a source, its allowlist prefix, and its host mappings.
// Callers must hold the write lock when the registry is shared.
func (r *Registry) add(s Source) {
	r.sources = append(r.sources, s)
	r.prefixes = append(r.prefixes, s.URL)

	if host := hostOf(s.URL); host != "" {
		if s.FallbackImage != "" {
			r.fallbacks[host] = s.FallbackImage
		}
		if s.Category != "" {
			r.category[host] = s.Category
		}
	}
}

// Sources returns the enabled source URLs in registration order.
func (r *Registry) Sources() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	urls := make([]string, 0, len(r.sources))
	for _, s := range r.sources {
		if s.IsEnabled() {
			urls = append(urls, s.URL)
		}
	}
	return urls
}

// Allowed reports whether the source URL matches a configured prefix.
// Enforcement runs before any network fetch is issued.
func (r *Registry) Allowed(rawURL string) bool {
	if r.allowAll {
		return true
	}

	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.prefixes {
		if strings.HasPrefix(rawURL, p) {
			return true
		}
	}
	return false
}

// Filter keeps only allowed URLs, preserving order.
func (r *Registry) Filter(urls []string) []string {
	out := make([]string, 0, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if r.Allowed(u) {
			out = append(out, u)
		} else {
			slog.Warn("Source rejected by allowlist", "url", u)
		}
	}
	return out
}

// FallbackImage returns the configured fallback image for a host,
// or the generic asset when none matches.
func (r *Registry) FallbackImage(host string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if img, ok := r.fallbacks[normalizeHost(host)]; ok {
		return img
	}
	return GenericFallbackImage
}

// Category returns the configured category for a host, empty when unknown.
func (r *Registry) Category(host string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.category[normalizeHost(host)]
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.sources)
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return normalizeHost(u.Hostname())
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
