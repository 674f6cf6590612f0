package feed

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Heuristic paths probed when the page declares no alternate feed link.
// Only the first candidate is ever tried, so discovery stays bounded.
var commonFeedPaths = []string{
	"/feed/",
	"/feeds/posts/default?alt=rss",
}

// Discoverer locates the true feed URL when a source returned HTML instead
// of XML. Discovery is attempted at most once per fetch; the caller accepts
// an empty result rather than looping.
type Discoverer struct{}

func NewDiscoverer() *Discoverer {
	return &Discoverer{}
}

// Run scans HTML for a feed link and returns the resolved URL, or "" when
// none was found.
func (d *Discoverer) Run(body []byte, baseURL string) string {
	base, err := url.Parse(baseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return ""
	}

	if found := d.scanAlternateLinks(body, base); found != "" {
		return found
	}

	origin := &url.URL{Scheme: base.Scheme, Host: base.Host}
	return origin.String() + commonFeedPaths[0]
}

// LooksLikeFeed reports whether a response plausibly contains XML rather
// than an HTML page.
func LooksLikeFeed(contentType string, body []byte) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "xml") || strings.Contains(ct, "rss") || strings.Contains(ct, "atom") {
		return true
	}
	if strings.Contains(ct, "html") {
		return false
	}

	trimmed := bytes.TrimLeft(body, " \t\r\n\xef\xbb\xbf")
	if bytes.HasPrefix(trimmed, []byte("<?xml")) ||
		bytes.HasPrefix(trimmed, []byte("<rss")) ||
		bytes.HasPrefix(trimmed, []byte("<feed")) {
		return true
	}
	return false
}

func (d *Discoverer) scanAlternateLinks(body []byte, base *url.URL) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return ""
	}

	var found string
	doc.Find(`link[rel="alternate"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		linkType, _ := s.Attr("type")
		href, _ := s.Attr("href")
		if href == "" || !isFeedContentType(linkType) {
			return true
		}

		ref, err := url.Parse(href)
		if err != nil {
			return true
		}

		found = base.ResolveReference(ref).String()
		return false
	})

	return found
}

func isFeedContentType(contentType string) bool {
	ct := strings.ToLower(contentType)
	return strings.Contains(ct, "rss") ||
		strings.Contains(ct, "atom") ||
		strings.Contains(ct, "xml")
}
