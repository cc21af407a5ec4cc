// Package metrics exposes crawl counters in the Prometheus text format.
//
// Prometheus implements crawler.Recorder, so it can be handed to the
// crawler with crawler.WithRecorder. Metrics are registered on a private
// registry; Serve publishes them on /metrics while a crawl runs.
package metrics
