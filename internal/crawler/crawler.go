package crawler

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/sitesync/internal/config"
	"github.com/nao1215/sitesync/internal/model"
	"github.com/nao1215/sitesync/internal/textnorm"
)

// Fetcher retrieves the HTML of a URL. Implementations must honour ctx.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

// RobotsPolicy answers whether an agent may fetch a URL.
type RobotsPolicy interface {
	Allowed(rawURL, agent string) bool
}

// Recorder receives crawl events, for metrics. Methods may be called
// from several goroutines at once.
type Recorder interface {
	PageVisited()
	PageFetched(elapsed time.Duration)
	FetchFailed()
	RobotsBlocked()
	PageImported()
	PageFiltered(step string)
	LinksDiscovered(n int)
}

type nopRecorder struct{}

func (nopRecorder) PageVisited()              {}
func (nopRecorder) PageFetched(time.Duration) {}
func (nopRecorder) FetchFailed()              {}
func (nopRecorder) RobotsBlocked()            {}
func (nopRecorder) PageImported()             {}
func (nopRecorder) PageFiltered(string)       {}
func (nopRecorder) LinksDiscovered(int)       {}

// State is the lifecycle state of a Crawler.
type State int32

const (
	// StateIdle is the state before Crawl is called.
	StateIdle State = iota
	// StateRunning is the state while Crawl runs.
	StateRunning
	// StateCompleted is the state after Crawl returned.
	StateCompleted
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Crawler runs one bounded crawl from the start URL of its CrawlConfig.
type Crawler struct {
	cfg      config.CrawlConfig
	fetcher  Fetcher
	parser   Parser
	robots   RobotsPolicy
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	filter   *regexp.Regexp
	links    *LinkPolicy
	pipeline *Pipeline

	frontier *Frontier
	visited  *VisitedSet
	pages    *pageCollector
	stats    counters
	state    atomic.Int32
}

// Option configures a Crawler.
type Option func(*Crawler)

// WithParser replaces the default HTMLParser.
func WithParser(p Parser) Option {
	return func(c *Crawler) {
		c.parser = p
	}
}

// WithRobotsPolicy sets the robots.txt policy. Without it, or when the
// config disables robots checks, every URL is allowed.
func WithRobotsPolicy(p RobotsPolicy) Option {
	return func(c *Crawler) {
		c.robots = p
	}
}

// WithRecorder sets the crawl event recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Crawler) {
		c.recorder = r
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Crawler) {
		c.logger = l
	}
}

// WithClock sets the time source used for RetrievedAt and run timings.
func WithClock(now func() time.Time) Option {
	return func(c *Crawler) {
		c.now = now
	}
}

// New creates a Crawler. cfg is copied and validated.
func New(cfg *config.CrawlConfig, fetcher Fetcher, opts ...Option) (*Crawler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	filter, err := cfg.CompileFilter()
	if err != nil {
		return nil, err
	}

	c := &Crawler{
		cfg:      *cfg,
		fetcher:  fetcher,
		parser:   NewHTMLParser(),
		recorder: nopRecorder{},
		logger:   slog.Default(),
		now:      time.Now,
		filter:   filter,
		links:    NewLinkPolicy(filter, cfg.AllowedURLPrefix, cfg.SkipHrefSubstrings),
		frontier: NewFrontier(),
		visited:  NewVisitedSet(),
		pages:    newPageCollector(cfg.MaxPages),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.recorder == nil {
		c.recorder = nopRecorder{}
	}

	var robots RobotsPolicy
	if c.cfg.RespectRobots {
		robots = c.robots
	}
	c.pipeline = NewPipeline(
		[]FilterStep{RobotsStep(robots, c.cfg.AgentName)},
		[]FilterStep{
			ContentRegionStep(),
			RequiredTextStep(c.cfg.RequiredText),
			URLPatternStep(filter),
		},
	)
	return c, nil
}

// State returns the current lifecycle state.
func (c *Crawler) State() State {
	return State(c.state.Load())
}

// Crawl processes the frontier until it is empty, MaxPages pages have
// been imported, or ctx is cancelled. The result is never nil; on
// cancellation it holds the pages imported so far and ctx.Err() is
// returned alongside it. Crawl may only be called once.
func (c *Crawler) Crawl(ctx context.Context) (*model.CrawlResult, error) {
	if !c.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return nil, ErrNotIdle
	}
	defer c.state.Store(int32(StateCompleted))

	result := &model.CrawlResult{
		StartURL:  c.cfg.StartURL,
		StartedAt: c.now().UTC(),
	}
	c.logger.Info("crawl started",
		"start_url", c.cfg.StartURL,
		"max_pages", c.cfg.MaxPages,
		"max_depth", c.cfg.MaxDepth,
		"workers", c.cfg.Workers,
		"filters", c.pipeline.Steps(),
	)

	seed, err := CanonicalURL(c.cfg.StartURL)
	if err != nil {
		seed = c.cfg.StartURL
	}
	c.frontier.Enqueue(seed, 0)
	if c.cfg.Workers <= 1 {
		c.runSequential(ctx)
	} else {
		c.runConcurrent(ctx)
	}

	result.Pages = c.pages.snapshot()
	result.Stats = c.stats.snapshot()
	result.FinishedAt = c.now().UTC()

	if err := ctx.Err(); err != nil {
		result.Cancelled = true
		c.logger.Warn("crawl cancelled", "imported", len(result.Pages), "error", err)
		return result, err
	}

	c.logger.Info("crawl finished",
		"imported", len(result.Pages),
		"visited", result.Stats.Visited,
		"fetch_failures", result.Stats.FetchFailures,
		"duration", result.Duration(),
	)
	return result, nil
}

// runSequential processes entries one at a time in FIFO order.
func (c *Crawler) runSequential(ctx context.Context) {
	for ctx.Err() == nil && !c.pages.full() {
		entry, ok := c.frontier.TryDequeue()
		if !ok {
			return
		}
		if c.accept(entry) {
			c.process(ctx, entry)
		}
	}
}

// runConcurrent dequeues on the calling goroutine and processes pages on
// a bounded worker pool. When the frontier is empty the dispatcher waits
// for a worker to finish, because that worker may enqueue new links.
func (c *Crawler) runConcurrent(ctx context.Context) {
	// Workers still fetching when the budget fills up are abandoned.
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.SetLimit(c.cfg.Workers)

	var inflight atomic.Int64
	done := make(chan struct{}, 1)

	for ctx.Err() == nil && !c.pages.full() {
		entry, ok := c.frontier.TryDequeue()
		if !ok {
			// Workers enqueue before they decrement inflight, so a zero
			// count followed by an empty frontier means nothing is left.
			if inflight.Load() == 0 && c.frontier.Len() == 0 {
				break
			}
			select {
			case <-done:
			case <-ctx.Done():
			}
			continue
		}
		if !c.accept(entry) {
			continue
		}

		inflight.Add(1)
		g.Go(func() error {
			defer func() {
				inflight.Add(-1)
				select {
				case done <- struct{}{}:
				default:
				}
			}()
			c.process(workCtx, entry)
			return nil
		})
	}

	cancel()
	_ = g.Wait()
}

// accept marks the entry visited and reports whether it should be
// processed. Entries beyond MaxDepth are still marked visited.
func (c *Crawler) accept(e Entry) bool {
	if !c.visited.MarkVisited(e.URL) {
		return false
	}
	if e.Depth > c.cfg.MaxDepth {
		c.logger.Debug("skipping page beyond max depth", "url", e.URL, "depth", e.Depth)
		return false
	}
	c.stats.visited.Add(1)
	c.recorder.PageVisited()
	return true
}

// process runs one page through robots, fetch, parse, filters and link
// discovery. Page level failures are logged and counted, never returned.
func (c *Crawler) process(ctx context.Context, e Entry) {
	cand := &Candidate{URL: e.URL, Depth: e.Depth}
	logger := c.logger.With("url", e.URL, "depth", e.Depth)

	if d := c.pipeline.Admit(cand); !d.Explore {
		logger.Debug("page blocked", "step", d.Step)
		c.stats.robotsBlocked.Add(1)
		c.recorder.RobotsBlocked()
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.cfg.FetchTimeout)
	start := time.Now()
	body, err := c.fetcher.Fetch(fetchCtx, e.URL)
	cancel()
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, context.DeadlineExceeded) {
			logger.Warn("fetch timed out", "timeout", c.cfg.FetchTimeout)
		} else {
			logger.Warn("fetch failed", "error", err)
		}
		c.stats.fetchFailures.Add(1)
		c.recorder.FetchFailed()
		return
	}
	c.stats.fetched.Add(1)
	c.recorder.PageFetched(time.Since(start))

	doc, err := c.parser.Parse(body)
	if err != nil {
		logger.Warn("parse failed", "error", err)
		c.stats.fetchFailures.Add(1)
		c.recorder.FetchFailed()
		return
	}

	cand.Title = textnorm.Normalize(doc.Title)
	if cand.Title == "" {
		cand.Title = model.UntitledPlaceholder
	}
	cand.Content = textnorm.Normalize(doc.Content)
	cand.HasContent = doc.HasContent

	d := c.pipeline.Evaluate(cand)
	if !d.Import {
		logger.Debug("page not imported", "step", d.Step, "explore", d.Explore)
		c.stats.filtered.Add(1)
		c.recorder.PageFiltered(d.Step)
	}
	if !d.Explore {
		return
	}

	if d.Import {
		page := model.NewImportedPage(e.URL, cand.Title, cand.Content, e.Depth, c.now())
		count, ok := c.pages.add(page)
		if !ok {
			logger.Debug("page budget exhausted, dropping page")
			return
		}
		c.recorder.PageImported()
		logger.Info("imported page", "title", page.Title, "imported", count)
		if count >= c.cfg.MaxPages {
			return
		}
	}

	c.discover(ctx, e, doc.Hrefs)
}

// discover resolves the page's hrefs and enqueues the accepted ones at
// depth+1. Duplicate hrefs on a page are considered once.
func (c *Crawler) discover(ctx context.Context, e Entry, hrefs []string) {
	pageURL, err := url.Parse(e.URL)
	if err != nil {
		c.logger.Warn("cannot resolve links of unparsable URL", "url", e.URL, "error", err)
		return
	}

	seen := make(map[string]struct{}, len(hrefs))
	enqueued := 0
	for _, href := range hrefs {
		if ctx.Err() != nil {
			return
		}
		if _, dup := seen[href]; dup {
			continue
		}
		seen[href] = struct{}{}

		abs, err := c.links.Resolve(pageURL, href)
		if err != nil {
			c.stats.rejectedLinks.Add(1)
			if errors.Is(err, ErrMalformedHref) {
				c.logger.Warn("skipping malformed link", "url", e.URL, "href", href, "error", err)
			} else {
				c.logger.Debug("link rejected", "href", href, "reason", err)
			}
			continue
		}
		c.frontier.Enqueue(abs, e.Depth+1)
		enqueued++
	}

	c.stats.discoveredLinks.Add(int64(enqueued))
	c.recorder.LinksDiscovered(enqueued)
}

// pageCollector holds imported pages and enforces the page budget.
type pageCollector struct {
	mu    sync.Mutex
	pages []model.ImportedPage
	limit int
}

func newPageCollector(limit int) *pageCollector {
	return &pageCollector{limit: limit}
}

// add appends page unless the budget is exhausted. It returns the number
// of pages held after the call.
func (p *pageCollector) add(page model.ImportedPage) (int, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.pages) >= p.limit {
		return len(p.pages), false
	}
	p.pages = append(p.pages, page)
	return len(p.pages), true
}

func (p *pageCollector) full() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages) >= p.limit
}

func (p *pageCollector) snapshot() []model.ImportedPage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.ImportedPage(nil), p.pages...)
}

type counters struct {
	visited         atomic.Int64
	fetched         atomic.Int64
	fetchFailures   atomic.Int64
	robotsBlocked   atomic.Int64
	filtered        atomic.Int64
	discoveredLinks atomic.Int64
	rejectedLinks   atomic.Int64
}

func (c *counters) snapshot() model.Stats {
	return model.Stats{
		Visited:         int(c.visited.Load()),
		Fetched:         int(c.fetched.Load()),
		FetchFailures:   int(c.fetchFailures.Load()),
		RobotsBlocked:   int(c.robotsBlocked.Load()),
		Filtered:        int(c.filtered.Load()),
		DiscoveredLinks: int(c.discoveredLinks.Load()),
		RejectedLinks:   int(c.rejectedLinks.Load()),
	}
}
