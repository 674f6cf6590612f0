package sources

// Source describes one configured feed origin.
type Source struct {
	Name          string `yaml:"name"`
	URL           string `yaml:"url"`
	Category      string `yaml:"category"`
	FallbackImage string `yaml:"fallback_image"`
	Enabled       *bool  `yaml:"enabled"`
}

// IsEnabled treats a missing enabled key as enabled.
func (s Source) IsEnabled() bool {
	return s.Enabled == nil || *s.Enabled
}

// GenericFallbackImage is served when no per-host fallback is configured.
// The asset is shipped with the front end, not this service.
const GenericFallbackImage = "/images/fallback-news.jpg"
