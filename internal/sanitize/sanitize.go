// Package sanitize cleans free text supplied by CLI users and MCP clients
// before it is stored on a run and rendered into markdown resources.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxLabelLength is the maximum run label length in runes.
const MaxLabelLength = 80

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reHeadingMarker matches a leading markdown heading marker.
	reHeadingMarker = regexp.MustCompile(`^#+\s*`)

	reWhitespace = regexp.MustCompile(`\s+`)

	// Backticks open code spans and pipes split markdown table cells.
	markdownReplacer = strings.NewReplacer("`", "", "|", "/")
)

// Label returns a single-line run label that is safe to embed in a
// markdown heading or table cell.
//
// The pipeline runs in this order:
//  1. Turn newlines and tabs into spaces, drop other control characters
//  2. Strip XML/HTML tags
//  3. Drop backticks, replace pipes with slashes
//  4. Collapse whitespace and trim
//  5. Drop a leading heading marker
//  6. Truncate to MaxLabelLength runes
func Label(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = markdownReplacer.Replace(s)
	s = strings.TrimSpace(reWhitespace.ReplaceAllString(s, " "))
	s = reHeadingMarker.ReplaceAllString(s, "")

	if runes := []rune(s); len(runes) > MaxLabelLength {
		s = strings.TrimSpace(string(runes[:MaxLabelLength]))
	}
	return s
}

// stripControlChars removes ASCII control characters. Line breaks and tabs
// become spaces so the words on either side stay apart.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
