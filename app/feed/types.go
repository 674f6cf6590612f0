package feed

import (
	"time"
)

// Metadata describes the parsed feed itself.
type Metadata struct {
	Title           string
	Link            string
	Description     string
	ImageURL        string
	Language        string
	FeedPublishedAt *time.Time
}

// Item is the canonical shape served to the front end and stored in the
// cache. Image is always a validated https URL or a local fallback asset,
// never empty and never a data: URI.
type Item struct {
	Title       string         `json:"title"`
	Image       string         `json:"image"`
	Description string         `json:"description"`
	Summary     string         `json:"summary"`
	Content     string         `json:"content,omitempty"`
	Date        string         `json:"date"`
	PublishedAt time.Time      `json:"publishedAt,omitzero"`
	Category    string         `json:"category"`
	Source      string         `json:"source"`
	Link        string         `json:"link"`
	Raw         map[string]any `json:"raw,omitempty"`
}
