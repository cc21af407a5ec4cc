// Package crawler implements the bounded crawl engine of sitesync.
//
// # Architecture
//
// A Crawler owns one crawl: a FIFO Frontier of (URL, depth) entries, a
// VisitedSet and the collection of imported pages. It pulls an entry,
// marks it visited, and runs it through
//
//	robots -> fetch -> parse -> content region -> required text -> URL pattern
//
// The first failing step decides what happens to the page. A robots or
// content region failure drops the page entirely. A required text or URL
// pattern failure keeps the page out of the result but its links are
// still followed. Links are resolved by a LinkPolicy and enqueued at the
// parent depth plus one.
//
// The crawl ends when the frontier is empty, MaxPages pages have been
// imported, or the context is cancelled.
//
// # Concurrency
//
// With one worker the crawl is strictly sequential. With more, a single
// dispatcher goroutine dequeues and marks entries visited while an
// errgroup with a concurrency limit processes pages. The page budget is
// enforced under a lock, so it is never exceeded.
//
// # Usage
//
//	c, err := crawler.New(cfg, fetcher, crawler.WithRobotsPolicy(policy))
//	if err != nil {
//		return err
//	}
//	result, err := c.Crawl(ctx)
package crawler
