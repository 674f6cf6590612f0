package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/baleal/newsgate/app/cfg"
)

func TestGenerateRSS(t *testing.T) {
	cfg.Set(testCfg())

	published := time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC)
	items := []Item{
		{
			Title:       "Beach report",
			Link:        "https://example.com/item1",
			Description: "Calm seas today",
			Content:     "<p>Calm seas today, with a light offshore breeze.</p>",
			Category:    "Surf",
			Source:      "example.com",
			Image:       "https://example.com/hero.jpg",
			PublishedAt: published,
		},
	}

	generator := NewGenerator()
	output := generator.Run("Aggregated News", "/api/aggregate.rss", items)

	if !strings.HasPrefix(output, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("Expected XML declaration")
	}
	if !strings.Contains(output, `<rss version="2.0"`) {
		t.Error("Expected RSS 2.0 root element")
	}
	if !strings.Contains(output, "<title>Aggregated News</title>") {
		t.Error("Expected channel title")
	}
	if !strings.Contains(output, "http://localhost:8080/api/aggregate.rss") {
		t.Errorf("Expected self link with configured port, got: %s", output)
	}
	if !strings.Contains(output, "<title>Beach report</title>") {
		t.Error("Expected item title")
	}
	if !strings.Contains(output, `<guid isPermaLink="true">https://example.com/item1</guid>`) {
		t.Error("Expected permalink guid")
	}
	if !strings.Contains(output, "<content:encoded><![CDATA[<p>Calm seas today, with a light offshore breeze.</p>]]></content:encoded>") {
		t.Error("Expected CDATA content")
	}
	if !strings.Contains(output, "<pubDate>"+published.Format(time.RFC1123Z)+"</pubDate>") {
		t.Error("Expected RFC1123Z pubDate")
	}
	if !strings.Contains(output, `<enclosure url="https://example.com/hero.jpg"`) {
		t.Error("Expected image enclosure")
	}
}

func TestGenerateEscapesSpecialCharacters(t *testing.T) {
	cfg.Set(testCfg())

	items := []Item{
		{
			Title:       "Tom & Jerry <live>",
			Link:        "https://example.com/item?a=1&b=2",
			Description: `Quotes "here"`,
			Category:    "General",
			Source:      "example.com",
		},
	}

	output := NewGenerator().Run("Feed", "/api/aggregate.rss", items)

	if !strings.Contains(output, "Tom &amp; Jerry &lt;live&gt;") {
		t.Errorf("Expected escaped title, got: %s", output)
	}
	if !strings.Contains(output, "https://example.com/item?a=1&amp;b=2") {
		t.Errorf("Expected escaped link, got: %s", output)
	}
}

func TestGenerateOmitsEmptyFields(t *testing.T) {
	cfg.Set(testCfg())

	items := []Item{{Title: "Undated", Link: "https://example.com/u", Source: "example.com"}}
	output := NewGenerator().Run("Feed", "/api/aggregate.rss", items)

	if strings.Contains(output, "<pubDate>") {
		t.Error("Expected no pubDate for undated items")
	}
	if strings.Contains(output, "<category></category>") {
		t.Error("Expected empty category omitted")
	}
	// Local fallback assets never become enclosures.
	if strings.Contains(output, "<enclosure") {
		t.Error("Expected no enclosure without an https image")
	}
}

func TestGenerateEmptyItemList(t *testing.T) {
	cfg.Set(testCfg())

	output := NewGenerator().Run("Feed", "/api/aggregate.rss", nil)

	if !strings.Contains(output, "<channel>") || !strings.Contains(output, "</channel>") {
		t.Error("Expected valid channel wrapper")
	}
	if strings.Contains(output, "<item>") {
		t.Error("Expected no items")
	}
}
