package model

import "time"

// Stats counts what happened to every URL the crawler touched.
type Stats struct {
	// Visited is the number of URLs dequeued and accepted for processing.
	Visited int `json:"visited"`

	// Fetched is the number of successful fetches.
	Fetched int `json:"fetched"`

	// FetchFailures is the number of fetches that failed or timed out.
	FetchFailures int `json:"fetch_failures"`

	// RobotsBlocked is the number of URLs disallowed by robots.txt.
	RobotsBlocked int `json:"robots_blocked"`

	// Filtered is the number of fetched pages that were not imported.
	Filtered int `json:"filtered"`

	// DiscoveredLinks is the number of links added to the frontier.
	DiscoveredLinks int `json:"discovered_links"`

	// RejectedLinks is the number of hrefs rejected by link resolution.
	RejectedLinks int `json:"rejected_links"`
}

// CrawlResult is the outcome of one crawl run.
type CrawlResult struct {
	// StartURL is the seed URL of the crawl.
	StartURL string `json:"start_url"`

	// Pages holds the imported pages in the order they were imported.
	Pages []ImportedPage `json:"pages"`

	Stats Stats `json:"stats"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	// Cancelled reports whether the crawl was stopped before it finished.
	Cancelled bool `json:"cancelled"`
}

// Duration returns how long the crawl ran.
func (r *CrawlResult) Duration() time.Duration {
	if r.FinishedAt.Before(r.StartedAt) {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
