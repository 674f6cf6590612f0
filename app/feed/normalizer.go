package feed

import (
	"cmp"
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/mmcdole/gofeed"

	"github.com/baleal/newsgate/app/cfg"
	"github.com/baleal/newsgate/app/sources"
)

const (
	// DefaultTitle is the placeholder for items published without one.
	DefaultTitle = "Untitled"
	// DefaultCategory is used when neither the item nor the source
	// registry supplies one.
	DefaultCategory = "General"
	// DefaultSource labels items whose link hostname cannot be parsed.
	DefaultSource = "unknown"

	displayDateLayout = "02 Jan 2006"
)

// Normalizer maps a raw parsed item plus its extracted image and sanitized
// bodies into the canonical Item shape.
type Normalizer struct {
	registry       *sources.Registry
	sanitizer      *Sanitizer
	imageExtractor *ImageExtractor
}

func NewNormalizer(registry *sources.Registry, sanitizer *Sanitizer, imageExtractor *ImageExtractor) *Normalizer {
	return &Normalizer{
		registry:       registry,
		sanitizer:      sanitizer,
		imageExtractor: imageExtractor,
	}
}

func (n *Normalizer) Run(ctx context.Context, item *gofeed.Item, sourceURL string) Item {
	image := n.imageExtractor.Run(ctx, item, ExtractOptions{
		Validate:  cfg.Get().ValidateImages,
		SourceURL: sourceURL,
	})

	description := n.sanitizer.Run(item.Description)
	content := n.richestBody(item)
	if description == "" {
		description = content
	}

	source := sourceHost(item.Link)
	publishedAt := resolvePublishedAt(item)

	displayDate := time.Now()
	if !publishedAt.IsZero() {
		displayDate = publishedAt
	}

	return Item{
		Title:       cmp.Or(strings.TrimSpace(item.Title), DefaultTitle),
		Image:       image,
		Description: description,
		Summary:     description,
		Content:     content,
		Date:        displayDate.In(time.Local).Format(displayDateLayout),
		PublishedAt: publishedAt,
		Category:    n.category(item, source),
		Source:      cmp.Or(source, DefaultSource),
		Link:        item.Link,
		Raw:         rawPassthrough(item),
	}
}

// richestBody picks the longest non-empty HTML body for detail views,
// sanitized. Shorter descriptions stay available for cards via Description.
func (n *Normalizer) richestBody(item *gofeed.Item) string {
	richest := ""
	for _, candidate := range []string{item.Content, item.Description} {
		if len(candidate) > len(richest) {
			richest = candidate
		}
	}
	return n.sanitizer.Run(richest)
}

func (n *Normalizer) category(item *gofeed.Item, source string) string {
	if c := n.registry.Category(source); c != "" {
		return c
	}
	if len(item.Categories) > 0 && strings.TrimSpace(item.Categories[0]) != "" {
		return strings.TrimSpace(item.Categories[0])
	}
	return DefaultCategory
}

// resolvePublishedAt prefers the parsed dates, then a fuzzy reparse of the
// raw strings. Items with no recoverable date get the zero time so they
// sort last.
func resolvePublishedAt(item *gofeed.Item) time.Time {
	if item.PublishedParsed != nil {
		return *item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return *item.UpdatedParsed
	}

	for _, raw := range []string{item.Published, item.Updated} {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		if t, err := dateparse.ParseAny(raw); err == nil {
			return t
		}
	}

	return time.Time{}
}

func sourceHost(link string) string {
	u, err := url.Parse(link)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// rawPassthrough preserves the fields later image-extraction fallbacks on
// the client may still want. nil when the item carries none of them.
func rawPassthrough(item *gofeed.Item) map[string]any {
	raw := make(map[string]any)

	if len(item.Enclosures) > 0 && item.Enclosures[0] != nil {
		raw["enclosure"] = map[string]string{
			"url":  item.Enclosures[0].URL,
			"type": item.Enclosures[0].Type,
		}
	}

	if media, ok := item.Extensions["media"]; ok {
		urls := make([]string, 0, 4)
		urls = append(urls, mediaURLs(media["content"])...)
		urls = append(urls, mediaURLs(media["thumbnail"])...)
		if len(urls) > 0 {
			raw["media"] = urls
		}
	}

	if item.GUID != "" {
		raw["guid"] = item.GUID
	}

	if len(raw) == 0 {
		return nil
	}
	return raw
}
