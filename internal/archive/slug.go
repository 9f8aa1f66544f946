package archive

import (
	"regexp"
	"strings"
)

var (
	slugStripChars = regexp.MustCompile(`[^\p{L}\p{N}_\s.-]+`)
	slugWhitespace = regexp.MustCompile(`\s+`)
)

const slugMaxLen = 140

// Slug normalizes a title into a filesystem-safe name: non-word characters
// removed, whitespace collapsed to underscores, capped at 140 runes.
func Slug(s string) string {
	s = strings.TrimSpace(slugStripChars.ReplaceAllString(s, ""))
	s = slugWhitespace.ReplaceAllString(s, "_")
	if runes := []rune(s); len(runes) > slugMaxLen {
		s = string(runes[:slugMaxLen])
	}
	if s == "" {
		return "untitled"
	}
	return s
}

// BaseName derives the output filename stem for a record. Two records that
// normalize to the same stem collide; last writer wins and the ledger records
// the path each record actually ended with.
func BaseName(rec Record) string {
	base := Slug(rec.Title)
	if year := strings.TrimSpace(rec.Year); year != "" {
		base = year + "_" + base
	}
	base = strings.Trim(base, "_")
	if base == "" {
		return "einstein_pub"
	}
	return base
}
