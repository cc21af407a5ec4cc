// Package main provides the entry point for the sitesync CLI.
//
// sitesync crawls a website under a configurable policy (page budget,
// depth limit, URL filter, required text, robots.txt) and writes the
// visible text of every imported page to an output directory.
//
// Usage:
//
//	sitesync crawl https://example.com/docs/ -o ./pages
//	sitesync history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
