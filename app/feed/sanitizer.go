package feed

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Sanitizer strips active content from feed HTML before it is rendered.
// The bluemonday policy is the real defense; the regex fallback only exists
// for the nil-policy path and is a best-effort blocklist, not a proven-safe
// allowlist sanitizer.
type Sanitizer struct {
	policy *bluemonday.Policy
	strict *bluemonday.Policy
}

func NewSanitizer() *Sanitizer {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	policy.RequireNoFollowOnLinks(true)

	return &Sanitizer{
		policy: policy,
		strict: bluemonday.StrictPolicy(),
	}
}

// Run returns HTML that is safe to render.
func (s *Sanitizer) Run(html string) string {
	if s == nil || s.policy == nil {
		return stripFallback(html)
	}
	return s.policy.Sanitize(html)
}

// StripTags reduces HTML to its text content.
func (s *Sanitizer) StripTags(html string) string {
	if s == nil || s.strict == nil {
		return stripFallback(html)
	}
	return strings.TrimSpace(s.strict.Sanitize(html))
}

var (
	scriptBlockRe   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	styleBlockRe    = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</style>`)
	eventAttrRe     = regexp.MustCompile(`(?i)\son\w+\s*=\s*("[^"]*"|'[^']*')`)
	jsHrefRe        = regexp.MustCompile(`(?i)(href|src)\s*=\s*(["'])\s*javascript:[^"']*(["'])`)
)

func stripFallback(html string) string {
	html = scriptBlockRe.ReplaceAllString(html, "")
	html = styleBlockRe.ReplaceAllString(html, "")
	html = eventAttrRe.ReplaceAllString(html, "")
	html = jsHrefRe.ReplaceAllString(html, `$1=$2#$3`)
	return html
}

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// EscapeHTML entity-encodes a string for interpolation into markup contexts
// expecting plain text.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}
