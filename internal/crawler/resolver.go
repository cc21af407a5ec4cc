package crawler

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// LinkPolicy decides which hrefs of a page are followed and turns them
// into absolute URLs.
type LinkPolicy struct {
	filter *regexp.Regexp
	prefix string
	skip   []string
}

// NewLinkPolicy creates a LinkPolicy. filter is matched against the raw
// href; a nil filter accepts everything. skipSubstrings only apply when
// allowedPrefix is set.
func NewLinkPolicy(filter *regexp.Regexp, allowedPrefix string, skipSubstrings []string) *LinkPolicy {
	skip := make([]string, 0, len(skipSubstrings))
	for _, s := range skipSubstrings {
		if s = strings.TrimSpace(s); s != "" {
			skip = append(skip, strings.ToLower(s))
		}
	}
	return &LinkPolicy{
		filter: filter,
		prefix: strings.TrimSpace(allowedPrefix),
		skip:   skip,
	}
}

// Resolve turns href, found on page, into an absolute URL to enqueue.
// Relative hrefs are resolved against the page origin (scheme, host and
// port), so "page2" on https://example.com/a/b becomes
// https://example.com/page2. The result is canonical, see CanonicalURL.
//
// A rejected href returns one of the Err*Href, ErrOutsidePrefix or
// ErrUnsupportedScheme errors.
func (p *LinkPolicy) Resolve(page *url.URL, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", ErrEmptyHref
	}
	if strings.HasPrefix(href, "#") {
		return "", ErrFragmentHref
	}
	if p.filter != nil && !p.filter.MatchString(href) {
		return "", ErrFilteredHref
	}
	if p.prefix != "" {
		lower := strings.ToLower(href)
		for _, s := range p.skip {
			if strings.Contains(lower, s) {
				return "", fmt.Errorf("%w: %q", ErrSkippedHref, s)
			}
		}
	}

	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedHref, err)
	}

	origin := &url.URL{Scheme: page.Scheme, Host: page.Host}
	abs := origin.ResolveReference(ref)
	canonicalize(abs)

	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedScheme, abs.Scheme)
	}
	if abs.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrMalformedHref)
	}

	resolved := abs.String()
	if p.prefix != "" && !strings.HasPrefix(strings.ToLower(resolved), strings.ToLower(p.prefix)) {
		return "", ErrOutsidePrefix
	}
	return resolved, nil
}

// CanonicalURL returns the form of rawURL used for the visited set: scheme
// and host lowercased, default port removed, empty path written as "/"
// and fragment dropped. Path and query are kept as they are.
func CanonicalURL(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedHref, err)
	}
	canonicalize(u)
	return u.String(), nil
}

func canonicalize(u *url.URL) {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""
	if u.Opaque != "" || u.Host == "" {
		return
	}

	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && port != defaultPort(u.Scheme) {
		host += ":" + port
	}
	u.Host = host

	if u.Path == "" && u.RawPath == "" {
		u.Path = "/"
	}
}

func defaultPort(scheme string) string {
	switch scheme {
	case "http":
		return "80"
	case "https":
		return "443"
	default:
		return ""
	}
}
