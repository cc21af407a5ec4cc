// Package database provides SQLite-based run history for sitesync.
//
// Every finished crawl can be saved as a run: the run row holds the seed
// URL, timing, cancellation flag and counters, and one page row is stored
// per imported page. The history command lists runs and re-exports their
// pages without crawling again.
//
// The database is a single file (sitesync.db) in the XDG data directory,
// opened through the CGO-free modernc.org/sqlite driver.
package database
