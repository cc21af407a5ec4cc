// Package config provides the configuration of a sitesync run.
//
// CrawlConfig carries the per-crawl policy (budgets, filters, render
// mode, transport) and is handed to the crawler unchanged for the whole
// run. Config wraps it with the settings that only the command line
// cares about: output location and format, database, metrics and Tor.
//
// Values come from three layers, in increasing priority: the Default*
// constants, an optional YAML profile file (.sitesync), and CLI flags.
package config
