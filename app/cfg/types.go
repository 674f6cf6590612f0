package cfg

type Cfg struct {
	// HTTP server configuration
	Port    string
	BaseUrl string

	// Source configuration
	SourcesDir     string
	AllowedSources []string
	AllowAll       bool

	// Fetch configuration
	FetchTimeoutMs int
	CacheTTLMs     int
	ValidateImages bool

	// Background refresh
	RefreshInterval int
	WorkerCount     int

	// Third-party news API
	NewsdataAPIKey string

	// Rate limiting
	RateLimitWindowMs int
	RateLimitMax      int

	// Snapshot mode
	SnapshotOut string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
