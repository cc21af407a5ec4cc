// Package robots evaluates robots.txt rules for a crawl.
//
// A Policy is loaded once per crawl from the start URL's origin and is
// then consulted for every URL before it is fetched. Retrieval is fail
// open: when robots.txt cannot be read, every URL is allowed.
package robots

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/temoto/robotstxt"
)

// maxRobotsSize caps how much of a robots.txt file is read.
const maxRobotsSize = 512 * 1024

// Policy answers whether an agent may fetch a URL.
// The zero value and a nil *Policy allow everything.
type Policy struct {
	data *robotstxt.RobotsData
}

// AllowAll returns a Policy that allows every URL.
func AllowAll() *Policy {
	return &Policy{}
}

// Parse builds a Policy from the body of a robots.txt file.
func Parse(body []byte) (*Policy, error) {
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse robots.txt: %w", err)
	}
	return &Policy{data: data}, nil
}

// URL returns the robots.txt location for the origin of rawURL.
func URL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("not an absolute URL: %q", rawURL)
	}
	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}).String(), nil
}

// Load fetches robots.txt for the origin of seedURL.
// It never fails: network errors, status codes of 400 and above and
// unparsable files all produce an allow-all Policy. Failures are logged.
func Load(ctx context.Context, client *http.Client, seedURL, userAgent string, logger *slog.Logger) *Policy {
	if logger == nil {
		logger = slog.Default()
	}

	robotsURL, err := URL(seedURL)
	if err != nil {
		logger.Warn("cannot derive robots.txt location, allowing all", "url", seedURL, "error", err)
		return AllowAll()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		logger.Warn("cannot build robots.txt request, allowing all", "url", robotsURL, "error", err)
		return AllowAll()
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		logger.Warn("robots.txt unavailable, allowing all", "url", robotsURL, "error", err)
		return AllowAll()
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		logger.Debug("robots.txt not served, allowing all", "url", robotsURL, "status", resp.StatusCode)
		return AllowAll()
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsSize))
	if err != nil {
		logger.Warn("failed to read robots.txt, allowing all", "url", robotsURL, "error", err)
		return AllowAll()
	}

	policy, err := Parse(body)
	if err != nil {
		logger.Warn("invalid robots.txt, allowing all", "url", robotsURL, "error", err)
		return AllowAll()
	}

	logger.Debug("loaded robots.txt", "url", robotsURL)
	return policy
}

// Allowed reports whether agent may fetch rawURL. The path and query of
// the URL are tested against the agent's group, falling back to the "*"
// group. URLs that cannot be parsed are allowed; fetching them fails later.
func (p *Policy) Allowed(rawURL, agent string) bool {
	if p == nil || p.data == nil {
		return true
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}

	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return p.data.TestAgent(path, agent)
}
