package model

import (
	"encoding/hex"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/sha3"
)

// UntitledPlaceholder is stored as the title of pages without a <title>.
const UntitledPlaceholder = "[No Title]"

// maxStemTitleLength bounds the title portion of an output file name.
const maxStemTitleLength = 60

// ImportedPage is a page that passed every filter and was accepted into
// the crawl result. It is never modified after creation.
type ImportedPage struct {
	// URL is the absolute URL the page was fetched from.
	URL string `json:"url"`

	// Title is the normalized document title, or UntitledPlaceholder.
	Title string `json:"title"`

	// Content is the normalized text of the page's content region.
	Content string `json:"content"`

	// Depth is the number of link hops from the start URL.
	Depth int `json:"depth"`

	// ContentHash is the hex SHA3-256 digest of Content.
	ContentHash string `json:"content_hash"`

	// RetrievedAt is when the page was imported, in UTC.
	RetrievedAt time.Time `json:"retrieved_at"`
}

// NewImportedPage builds an ImportedPage and computes its content hash.
// An empty title is replaced by UntitledPlaceholder.
func NewImportedPage(url, title, content string, depth int, retrievedAt time.Time) ImportedPage {
	if title == "" {
		title = UntitledPlaceholder
	}
	return ImportedPage{
		URL:         url,
		Title:       title,
		Content:     content,
		Depth:       depth,
		ContentHash: HashContent(content),
		RetrievedAt: retrievedAt.UTC(),
	}
}

// HashContent returns the hex SHA3-256 digest of s.
func HashContent(s string) string {
	sum := sha3.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// FileStem returns a file-system safe base name for the page, built from
// its title and a short digest of its URL. Two pages with the same title
// get different stems.
func (p ImportedPage) FileStem() string {
	stem := sanitizeTitle(p.Title)
	if stem == "" {
		stem = "untitled"
	}
	return stem + "-" + HashContent(p.URL)[:8]
}

// sanitizeTitle keeps letters and digits, lowercases them and joins the
// remaining words with single hyphens.
func sanitizeTitle(title string) string {
	var b strings.Builder
	count := 0
	pendingHyphen := false
	for _, r := range title {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			pendingHyphen = b.Len() > 0
			continue
		}
		if count >= maxStemTitleLength {
			break
		}
		if pendingHyphen {
			b.WriteByte('-')
			pendingHyphen = false
		}
		b.WriteRune(unicode.ToLower(r))
		count++
	}
	return b.String()
}
