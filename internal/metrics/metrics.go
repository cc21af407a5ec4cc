package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "sitesync"

// shutdownTimeout bounds how long Serve waits for in-flight scrapes.
const shutdownTimeout = 5 * time.Second

// Prometheus holds the crawl metrics.
type Prometheus struct {
	registry *prometheus.Registry

	visited       prometheus.Counter
	fetched       prometheus.Counter
	failures      prometheus.Counter
	robotsBlocked prometheus.Counter
	imported      prometheus.Counter
	filtered      *prometheus.CounterVec
	discovered    prometheus.Counter
	fetchDuration prometheus.Histogram
}

// New creates the crawl metrics on a fresh registry. Go runtime and
// process collectors are registered alongside them.
func New() *Prometheus {
	m := &Prometheus{
		registry: prometheus.NewRegistry(),
		visited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_visited_total",
			Help:      "URLs taken from the frontier and processed.",
		}),
		fetched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Pages fetched successfully.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Fetches that failed or timed out.",
		}),
		robotsBlocked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "robots_blocked_total",
			Help:      "URLs disallowed by robots.txt.",
		}),
		imported: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_imported_total",
			Help:      "Pages added to the crawl result.",
		}),
		filtered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_filtered_total",
			Help:      "Fetched pages not imported, by filter step.",
		}, []string{"step"}),
		discovered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_discovered_total",
			Help:      "Links added to the frontier.",
		}),
		fetchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of successful page fetches.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	m.registry.MustRegister(
		m.visited,
		m.fetched,
		m.failures,
		m.robotsBlocked,
		m.imported,
		m.filtered,
		m.discovered,
		m.fetchDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry returns the registry the metrics are registered on.
func (m *Prometheus) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Prometheus) PageVisited() { m.visited.Inc() }

func (m *Prometheus) PageFetched(elapsed time.Duration) {
	m.fetched.Inc()
	m.fetchDuration.Observe(elapsed.Seconds())
}

func (m *Prometheus) FetchFailed() { m.failures.Inc() }

func (m *Prometheus) RobotsBlocked() { m.robotsBlocked.Inc() }

func (m *Prometheus) PageImported() { m.imported.Inc() }

func (m *Prometheus) PageFiltered(step string) {
	m.filtered.WithLabelValues(step).Inc()
}

func (m *Prometheus) LinksDiscovered(n int) {
	m.discovered.Add(float64(n))
}

// Handler returns an http.Handler serving the registry.
func (m *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves /metrics until ctx is done.
// The returned channel receives the server's terminal error, if any,
// and is closed when the server has stopped.
func (m *Prometheus) Serve(ctx context.Context, addr string, logger *slog.Logger) (net.Addr, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		logger.Info("metrics server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown failed", "error", err)
		}
	}()

	return ln.Addr(), errCh, nil
}
