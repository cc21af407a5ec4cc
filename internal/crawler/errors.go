package crawler

import "errors"

// ErrNotIdle is returned when Crawl is called on a crawler that has
// already started. A Crawler runs exactly once.
var ErrNotIdle = errors.New("crawler is not idle")

// Link rejection reasons returned by LinkPolicy.Resolve.
var (
	// ErrEmptyHref is returned for empty or blank hrefs.
	ErrEmptyHref = errors.New("empty href")

	// ErrFragmentHref is returned for in-page links such as "#top".
	ErrFragmentHref = errors.New("fragment-only href")

	// ErrFilteredHref is returned when the href does not match the URL filter.
	ErrFilteredHref = errors.New("href does not match URL filter")

	// ErrSkippedHref is returned when the href contains a skip substring.
	ErrSkippedHref = errors.New("href contains a skipped substring")

	// ErrOutsidePrefix is returned when the resolved URL does not start
	// with the allowed URL prefix.
	ErrOutsidePrefix = errors.New("URL outside allowed prefix")

	// ErrUnsupportedScheme is returned for schemes other than http and https.
	ErrUnsupportedScheme = errors.New("unsupported URL scheme")

	// ErrMalformedHref is returned when the href cannot be parsed as a URL.
	ErrMalformedHref = errors.New("malformed href")
)
