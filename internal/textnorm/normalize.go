package textnorm

import (
	"html"
	"strings"
	"unicode"
)

// Normalize decodes HTML entities and folds separator characters into
// single spaces. Underscores, hyphens, every Unicode white space
// character (including the no-break space) and control characters are
// separators. Leading and trailing separators are dropped.
//
// Normalize is idempotent.
func Normalize(s string) string {
	s = unescapeAll(s)

	var b strings.Builder
	b.Grow(len(s))

	pendingSpace := false
	for _, r := range s {
		if isSeparator(r) {
			pendingSpace = b.Len() > 0
			continue
		}
		if pendingSpace {
			b.WriteByte(' ')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	return b.String()
}

// unescapeAll decodes entities until the text stops changing, so that
// doubly escaped input such as "&amp;amp;" ends up fully decoded.
// Every pass that changes the string shortens it, so the loop ends.
func unescapeAll(s string) string {
	for {
		decoded := html.UnescapeString(s)
		if decoded == s {
			return s
		}
		s = decoded
	}
}

func isSeparator(r rune) bool {
	switch r {
	case '_', '-':
		return true
	}
	return unicode.IsSpace(r) || unicode.IsControl(r)
}
