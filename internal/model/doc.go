// Package model defines the data structures shared by the crawler, the
// writers and the history database.
//
// This package contains the following main types:
//   - ImportedPage: the extracted text of one page that passed every filter
//   - Stats: per-run counters of visited, fetched, failed and filtered URLs
//   - CrawlResult: the outcome of one crawl run
//
// The types are serializable to JSON for the json writer and the history
// database.
package model
