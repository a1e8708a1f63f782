package extractor

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

var (
	pageMarkerRE  = regexp.MustCompile(`(?i)-{2,}\s*page\s+\d+\s*-{2,}`)
	lonePageNumRE = regexp.MustCompile(`(?im)^[ \t]*(?:page[ \t]+)?\d{1,4}[ \t]*$`)
	hyphenBreakRE = regexp.MustCompile(`(\p{L})-[ \t]*\r?\n[ \t]*(\p{Ll})`)
)

// PageMarker is the separator Extract writes between pages; Clean removes it.
func PageMarker(page int) string {
	return "--- Page " + strconv.Itoa(page) + " ---"
}

// Clean strips page markers and lone page-number lines, rejoins words hyphenated
// across line breaks and collapses all whitespace to single spaces.
func Clean(text string) string {
	if text == "" {
		return ""
	}
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, " ")
	}
	text = strings.ReplaceAll(text, "\f", "\n")
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = pageMarkerRE.ReplaceAllString(text, "\n")
	text = lonePageNumRE.ReplaceAllString(text, "")
	text = hyphenBreakRE.ReplaceAllString(text, "$1$2")
	return strings.Join(strings.Fields(text), " ")
}
