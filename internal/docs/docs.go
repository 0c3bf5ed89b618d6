// Package docs cleans documentation comments and renders them to a minimal
// HTML form for DocComment records.
package docs

import (
	"encoding/hex"
	"html"
	"strings"

	"github.com/zeebo/xxh3"

	"github.com/DeusData/symbol-indexer/internal/lang"
)

// IsDocComment reports whether raw comment text is a documentation comment
// for the language. Java requires the /** form; Python docstrings are
// always documentation.
func IsDocComment(raw string, language lang.Language) bool {
	raw = strings.TrimSpace(raw)
	switch language {
	case lang.Java:
		return strings.HasPrefix(raw, "/**") && raw != "/**/"
	case lang.Python:
		return strings.HasPrefix(raw, `"""`) || strings.HasPrefix(raw, `'''`)
	}
	return false
}

// Clean strips comment delimiters and indentation.
func Clean(raw string, language lang.Language) string {
	if language == lang.Python {
		return cleanPythonDocstring(raw)
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "//") {
		return cleanLineComments(raw)
	}
	return cleanBlockComment(raw)
}

// cleanPythonDocstring removes triple-quote delimiters and normalizes indentation.
func cleanPythonDocstring(s string) string {
	for _, delim := range []string{`"""`, `'''`} {
		if strings.HasPrefix(s, delim) && strings.HasSuffix(s, delim) && len(s) >= 6 {
			s = s[3 : len(s)-3]
			break
		}
	}
	lines := strings.Split(s, "\n")
	if len(lines) <= 1 {
		return strings.TrimSpace(s)
	}
	// Dedent: find minimum indentation of non-empty continuation lines.
	minIndent := -1
	for _, line := range lines[1:] {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if minIndent < 0 || indent < minIndent {
			minIndent = indent
		}
	}
	if minIndent > 0 {
		for i := 1; i < len(lines); i++ {
			if len(lines[i]) >= minIndent {
				lines[i] = lines[i][minIndent:]
			}
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// cleanBlockComment strips /** ... */ delimiters and leading * prefixes.
func cleanBlockComment(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "/**") {
		s = s[3:]
	} else if strings.HasPrefix(s, "/*") {
		s = s[2:]
	}
	s = strings.TrimSuffix(s, "*/")

	lines := strings.Split(s, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "* ")
		line = strings.TrimPrefix(line, "*")
		cleaned = append(cleaned, line)
	}
	return strings.TrimSpace(strings.Join(cleaned, "\n"))
}

func cleanLineComments(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "/")
		lines[i] = strings.TrimPrefix(line, " ")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// RenderHTML renders cleaned text as escaped paragraphs. Blank lines
// separate paragraphs; single newlines become <br>.
func RenderHTML(cleaned string) string {
	if cleaned == "" {
		return ""
	}
	var b strings.Builder
	for _, para := range strings.Split(cleaned, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		lines := strings.Split(para, "\n")
		for i := range lines {
			lines[i] = html.EscapeString(strings.TrimSpace(lines[i]))
		}
		b.WriteString("<p>")
		b.WriteString(strings.Join(lines, "<br>"))
		b.WriteString("</p>")
	}
	return b.String()
}

// ContentHash returns the hex xxh3 hash of the raw comment.
func ContentHash(raw string) string {
	h := xxh3.HashString128(raw).Bytes()
	return hex.EncodeToString(h[:])
}
