package feed

import "sync"

// Stats accumulates image extraction counters for the /stats endpoint.
// The numbers are observability-only and resettable; nothing depends on
// their accuracy.
type Stats struct {
	mu        sync.Mutex
	attempts  int
	successes map[string]int
	fallbacks map[string]int
}

func NewStats() *Stats {
	return &Stats{
		successes: make(map[string]int),
		fallbacks: make(map[string]int),
	}
}

func (s *Stats) Attempt() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts++
}

func (s *Stats) Success(method string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.successes[method]++
}

func (s *Stats) Fallback(host string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if host == "" {
		host = "unknown"
	}
	s.fallbacks[host]++
}

func (s *Stats) Snapshot() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	successes := make(map[string]int, len(s.successes))
	for k, v := range s.successes {
		successes[k] = v
	}
	fallbacks := make(map[string]int, len(s.fallbacks))
	for k, v := range s.fallbacks {
		fallbacks[k] = v
	}

	return map[string]any{
		"attempts":            s.attempts,
		"successes_by_method": successes,
		"fallbacks_by_host":   fallbacks,
	}
}

func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.attempts = 0
	s.successes = make(map[string]int)
	s.fallbacks = make(map[string]int)
}
