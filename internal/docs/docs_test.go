package docs

import (
	"testing"

	"github.com/DeusData/symbol-indexer/internal/lang"
)

func TestClean(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		language lang.Language
		want     string
	}{
		{"javadoc", "/**\n * Adds two numbers.\n * @return sum\n */", lang.Java, "Adds two numbers.\n@return sum"},
		{"one line javadoc", "/** Short. */", lang.Java, "Short."},
		{"line comments", "// first\n// second", lang.Java, "first\nsecond"},
		{"python", "\"\"\"Fetch rows.\n\n    Returns a list.\n    \"\"\"", lang.Python, "Fetch rows.\n\nReturns a list."},
		{"python single quotes", "'''one'''", lang.Python, "one"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Clean(tt.raw, tt.language); got != tt.want {
				t.Errorf("Clean() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsDocComment(t *testing.T) {
	tests := []struct {
		raw      string
		language lang.Language
		want     bool
	}{
		{"/** doc */", lang.Java, true},
		{"/* plain */", lang.Java, false},
		{"/**/", lang.Java, false},
		{"// line", lang.Java, false},
		{`"""doc"""`, lang.Python, true},
		{"# comment", lang.Python, false},
	}
	for _, tt := range tests {
		if got := IsDocComment(tt.raw, tt.language); got != tt.want {
			t.Errorf("IsDocComment(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	got := RenderHTML("Compares a < b.\nSecond line.\n\nNext & last.")
	want := "<p>Compares a &lt; b.<br>Second line.</p><p>Next &amp; last.</p>"
	if got != want {
		t.Errorf("RenderHTML() = %q, want %q", got, want)
	}
	if RenderHTML("") != "" {
		t.Error("empty input should render empty")
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash("/** x */")
	if a != ContentHash("/** x */") {
		t.Error("hash not deterministic")
	}
	if a == ContentHash("/** y */") {
		t.Error("different input, same hash")
	}
	if len(a) != 32 {
		t.Errorf("len = %d, want 32 hex chars", len(a))
	}
}
