package feed

import (
	"strings"
	"testing"
)

func TestSanitizeRemovesScript(t *testing.T) {
	sanitizer := NewSanitizer()
	result := sanitizer.Run(`<p>Hello</p><script>alert("xss")</script>`)

	if strings.Contains(result, "<script") || strings.Contains(result, "alert") {
		t.Errorf("Expected script removed, got: %s", result)
	}
	if !strings.Contains(result, "<p>Hello</p>") {
		t.Errorf("Expected paragraph preserved, got: %s", result)
	}
}

func TestSanitizeRemovesEventHandlers(t *testing.T) {
	sanitizer := NewSanitizer()
	result := sanitizer.Run(`<img src="https://example.com/a.jpg" onerror="alert(1)" alt="photo">`)

	if strings.Contains(result, "onerror") {
		t.Errorf("Expected event handler removed, got: %s", result)
	}
	if !strings.Contains(result, `src="https://example.com/a.jpg"`) {
		t.Errorf("Expected img src preserved, got: %s", result)
	}
	if !strings.Contains(result, `alt="photo"`) {
		t.Errorf("Expected alt preserved, got: %s", result)
	}
}

func TestSanitizeRemovesJavascriptHref(t *testing.T) {
	sanitizer := NewSanitizer()
	result := sanitizer.Run(`<a href="javascript:alert(1)">click</a>`)

	if strings.Contains(result, "javascript:") {
		t.Errorf("Expected javascript href removed, got: %s", result)
	}
}

func TestSanitizeKeepsBenignMarkup(t *testing.T) {
	sanitizer := NewSanitizer()
	input := `<p>Praia do <strong>Baleal</strong> e <em>Peniche</em></p><ul><li>one</li></ul>`
	result := sanitizer.Run(input)

	for _, tag := range []string{"<strong>", "<em>", "<ul>", "<li>"} {
		if !strings.Contains(result, tag) {
			t.Errorf("Expected %s preserved, got: %s", tag, result)
		}
	}
}

func TestStripTags(t *testing.T) {
	sanitizer := NewSanitizer()
	result := sanitizer.StripTags(`<p>Plain <b>text</b> only</p>`)

	if result != "Plain text only" {
		t.Errorf("Expected 'Plain text only', got: %s", result)
	}
}

func TestStripFallbackWithoutPolicy(t *testing.T) {
	var sanitizer *Sanitizer
	result := sanitizer.Run(`<p>ok</p><script>bad()</script><style>.a{}</style><div onclick="x()">d</div>`)

	if strings.Contains(result, "<script") || strings.Contains(result, "bad()") {
		t.Errorf("Expected script stripped, got: %s", result)
	}
	if strings.Contains(result, "<style") {
		t.Errorf("Expected style stripped, got: %s", result)
	}
	if strings.Contains(result, "onclick") {
		t.Errorf("Expected event attribute stripped, got: %s", result)
	}
	if !strings.Contains(result, "<p>ok</p>") {
		t.Errorf("Expected benign markup kept, got: %s", result)
	}
}

func TestEscapeHTML(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{`<b>bold & "quoted"</b>`, `&lt;b&gt;bold &amp; &quot;quoted&quot;&lt;/b&gt;`},
		{`it's`, `it&#39;s`},
		{`plain`, `plain`},
	}

	for _, tt := range tests {
		if result := EscapeHTML(tt.input); result != tt.expected {
			t.Errorf("Expected %q, got %q", tt.expected, result)
		}
	}
}
