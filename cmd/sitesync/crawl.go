package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/sitesync/internal/config"
	"github.com/nao1215/sitesync/internal/crawler"
	"github.com/nao1215/sitesync/internal/database"
	"github.com/nao1215/sitesync/internal/fetch"
	"github.com/nao1215/sitesync/internal/metrics"
	"github.com/nao1215/sitesync/internal/model"
	"github.com/nao1215/sitesync/internal/report"
	"github.com/nao1215/sitesync/internal/robots"
	"github.com/nao1215/sitesync/internal/tor"
)

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl <start-url>",
		Short: "Crawl a website and export the text of its pages",
		Long: `Crawl visits pages breadth-first from the start URL and imports the
readable text of every page that passes the filters.

Each page is processed once. Links are followed up to --max-depth hops
from the start URL and the crawl stops as soon as --max-pages pages have
been imported. The text of a page is taken from its <main> element,
falling back to <article> and then <body>.

Examples:
  # Crawl up to 50 documentation pages into ./pages
  sitesync crawl https://example.com/docs/ -o ./pages --max-pages 50

  # Only import pages that mention "install" or "setup"
  sitesync crawl https://example.com/ -o ./pages --text-required install,setup

  # Follow links under a prefix only and skip print views
  sitesync crawl https://example.com/en/ -o ./pages \
    --url-prefix https://example.com/en/ --skip-hrefs /print/,?download=

  # Render JavaScript with headless Chrome, four pages at a time
  sitesync crawl https://app.example.com/ -o ./pages --js --workers 4

  # Write markdown and expose Prometheus metrics while crawling
  sitesync crawl https://example.com/ -o ./pages --format markdown \
    --metrics-addr 127.0.0.1:9090`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	// Output
	cmd.Flags().StringP("output", "o", "", "Directory the imported pages are written to (required)")
	cmd.Flags().StringP("format", "F", string(config.FormatText), "Output format: text, markdown or json")

	// Crawl policy
	cmd.Flags().IntP("max-pages", "p", config.DefaultMaxPages, "Maximum number of imported pages")
	cmd.Flags().IntP("max-depth", "d", config.DefaultMaxDepth, "Maximum link distance from the start URL")
	cmd.Flags().String("filter", config.DefaultURLFilter, "Case-insensitive regular expression URLs must match")
	cmd.Flags().String("text-required", "", "Comma separated terms; a page must contain at least one")
	cmd.Flags().String("skip-hrefs", "", "Comma separated substrings; links containing one are skipped (needs --url-prefix)")
	cmd.Flags().String("url-prefix", "", "Only follow links starting with this URL")
	cmd.Flags().Bool("no-robots", false, "Ignore robots.txt")

	// Fetching
	cmd.Flags().String("render", string(config.RenderStatic), "Fetch backend: static or browser")
	cmd.Flags().Bool("js", false, "Render pages with headless Chrome (same as --render browser)")
	cmd.Flags().Bool("show-browser", false, "Show the Chrome window in browser render mode")
	cmd.Flags().String("chrome-path", "", "Path to the Chrome binary (default: looked up in PATH)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultFetchTimeout, "Timeout for each page fetch")
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers, "Number of pages processed concurrently")
	cmd.Flags().String("agent", config.DefaultAgentName, "Agent name matched against robots.txt groups")
	cmd.Flags().String("user-agent", config.DefaultUserAgent, "User-Agent header for static fetches")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy address (host:port)")
	cmd.Flags().Bool("tor", false, "Route fetches through an embedded Tor daemon")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout, "Timeout for embedded Tor startup")

	// History and observability
	cmd.Flags().String("db", "", "Directory of the history database (default: XDG data directory)")
	cmd.Flags().Bool("no-db", false, "Do not record this run in the history database")
	cmd.Flags().String("metrics-addr", "", "Serve Prometheus metrics on this address during the crawl")

	cmd.Flags().StringP("config", "c", "", "Profile file path (default: .sitesync in current or home directory)")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := loggerFor(cmd)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from the profile file and the command flags.
// Flags the user set explicitly override the profile.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	if len(args) > 0 {
		cfg.Crawl.StartURL = args[0]
	}

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if err := applyProfile(cfg); err != nil {
		return nil, err
	}

	if cfg.OutputPath, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	format, err := flags.GetString("format")
	if err != nil {
		return nil, err
	}
	if cfg.Format, err = config.ParseFormat(format); err != nil {
		return nil, err
	}

	crawl := &cfg.Crawl
	if flags.Changed("max-pages") {
		if crawl.MaxPages, err = flags.GetInt("max-pages"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("max-depth") {
		if crawl.MaxDepth, err = flags.GetInt("max-depth"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("filter") {
		if crawl.URLFilter, err = flags.GetString("filter"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("text-required") {
		v, err := flags.GetString("text-required")
		if err != nil {
			return nil, err
		}
		crawl.RequiredText = config.SplitList(v)
	}
	if flags.Changed("skip-hrefs") {
		v, err := flags.GetString("skip-hrefs")
		if err != nil {
			return nil, err
		}
		crawl.SkipHrefSubstrings = config.SplitList(v)
	}
	if flags.Changed("url-prefix") {
		if crawl.AllowedURLPrefix, err = flags.GetString("url-prefix"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("render") {
		v, err := flags.GetString("render")
		if err != nil {
			return nil, err
		}
		if crawl.Render, err = config.ParseRenderMode(v); err != nil {
			return nil, err
		}
	}
	if js, err := flags.GetBool("js"); err != nil {
		return nil, err
	} else if js {
		crawl.Render = config.RenderBrowser
	}
	if crawl.ShowBrowser, err = flags.GetBool("show-browser"); err != nil {
		return nil, err
	}
	if crawl.ChromePath, err = flags.GetString("chrome-path"); err != nil {
		return nil, err
	}
	if flags.Changed("timeout") {
		if crawl.FetchTimeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("workers") {
		if crawl.Workers, err = flags.GetInt("workers"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("agent") {
		if crawl.AgentName, err = flags.GetString("agent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if crawl.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}
	if crawl.ProxyAddress, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	noRobots, err := flags.GetBool("no-robots")
	if err != nil {
		return nil, err
	}
	crawl.RespectRobots = !noRobots

	if cfg.UseTor, err = flags.GetBool("tor"); err != nil {
		return nil, err
	}
	if cfg.TorStartupTimeout, err = flags.GetDuration("tor-timeout"); err != nil {
		return nil, err
	}

	dbDir, err := flags.GetString("db")
	if err != nil {
		return nil, err
	}
	if dbDir != "" {
		cfg.DBDir = dbDir
	}
	noDB, err := flags.GetBool("no-db")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noDB

	if cfg.MetricsAddr, err = flags.GetString("metrics-addr"); err != nil {
		return nil, err
	}
	cfg.Verbose = getBoolFlag(cmd, "verbose")

	return cfg, nil
}

// applyProfile loads the profile file and applies the settings for the
// start URL's host. An explicitly named profile must exist; a missing
// default profile is ignored.
func applyProfile(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	if path == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", path, err)
	}

	var host string
	if u, err := url.Parse(cfg.Crawl.StartURL); err == nil {
		host = u.Host
	}
	if err := file.GetSiteConfig(host).ApplyTo(&cfg.Crawl); err != nil {
		return fmt.Errorf("invalid settings in %s: %w", path, err)
	}
	return nil
}

// runCrawl executes one crawl run: transport setup, the crawl itself,
// page output and the history record.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, stdout, stderr io.Writer) error {
	if cfg.UseTor {
		embedded := tor.NewEmbeddedTor(
			tor.WithStartupTimeout(cfg.TorStartupTimeout),
			tor.WithLogger(logger),
		)
		fmt.Fprintln(stderr, "Starting embedded Tor daemon (this may take 1-3 minutes)...")
		if err := embedded.Start(ctx); err != nil {
			return fmt.Errorf("failed to start embedded Tor: %w", err)
		}
		defer func() {
			if err := embedded.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}()
		addr, err := embedded.ProxyAddress()
		if err != nil {
			return err
		}
		cfg.Crawl.ProxyAddress = addr
	}

	if addr := cfg.Crawl.ProxyAddress; addr != "" {
		if status := tor.CheckProxy(ctx, addr, tor.DefaultCheckTimeout); status != tor.ProxyStatusOK {
			return fmt.Errorf("proxy check failed for %s: %w", addr, status.Err())
		}
		logger.Info("proxy verified", "proxy", addr)
	}

	opts := []crawler.Option{crawler.WithLogger(logger)}

	if cfg.Crawl.RespectRobots {
		robotsClient, err := fetch.NewHTTPFetcher(fetch.OptionsFromConfig(&cfg.Crawl))
		if err != nil {
			return fmt.Errorf("failed to create robots.txt client: %w", err)
		}
		policy := robots.Load(ctx, robotsClient.Client(), cfg.Crawl.StartURL, cfg.Crawl.UserAgent, logger)
		_ = robotsClient.Close()
		opts = append(opts, crawler.WithRobotsPolicy(policy))
	}

	if cfg.MetricsAddr != "" {
		m := metrics.New()
		metricsCtx, stopMetrics := context.WithCancel(ctx)
		defer stopMetrics()
		addr, _, err := m.Serve(metricsCtx, cfg.MetricsAddr, logger)
		if err != nil {
			return err
		}
		fmt.Fprintf(stderr, "Serving metrics on http://%s/metrics\n", addr)
		opts = append(opts, crawler.WithRecorder(m))
	}

	backend, err := fetch.New(&cfg.Crawl, logger)
	if err != nil {
		return fmt.Errorf("failed to create fetch backend: %w", err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("failed to close fetch backend", "error", err)
		}
	}()

	c, err := crawler.New(&cfg.Crawl, backend, opts...)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	result, crawlErr := c.Crawl(ctx)
	if crawlErr != nil && !errors.Is(crawlErr, context.Canceled) {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}

	writeErr := writeResult(cfg, result, stdout, stderr)
	if err := saveRun(cfg, result, logger, stderr); err != nil {
		logger.Error("failed to save run", "error", err)
	}

	if crawlErr != nil {
		return fmt.Errorf("crawl cancelled: %w", crawlErr)
	}
	return writeErr
}

// writeResult writes the pages to the output directory and the summary to stdout.
func writeResult(cfg *config.Config, result *model.CrawlResult, stdout, stderr io.Writer) error {
	pages, err := report.NewDirWriter(cfg.Format, cfg.OutputPath,
		report.WithPageErrorHandler(func(page model.ImportedPage, err error) {
			fmt.Fprintf(stderr, "[!] Error writing file for %s: %v\n", page.URL, err)
		}),
	)
	if err != nil {
		return err
	}

	summary := report.NewConsoleWriter(stdout, report.WithStats(cfg.Verbose))
	if _, err := summary.Write(result); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if _, err := pages.Write(result); err != nil {
		return fmt.Errorf("failed to write pages to %s: %w", cfg.OutputPath, err)
	}
	return nil
}

// saveRun records the run in the history database. It uses its own
// context so a cancelled crawl is still recorded.
func saveRun(cfg *config.Config, result *model.CrawlResult, logger *slog.Logger, stderr io.Writer) error {
	if !cfg.SaveToDB {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := context.Background()
	previous, err := db.LatestHashes(ctx, result.StartURL)
	if err != nil {
		return err
	}

	id, err := db.SaveRun(ctx, result)
	if err != nil {
		return err
	}

	if len(previous) > 0 {
		added, changed := diffPages(previous, result.Pages)
		fmt.Fprintf(stderr, "Since last run: %d new, %d changed\n", added, changed)
	}
	logger.Info("run saved", "id", id, "db", db.Path())
	return nil
}

// diffPages counts pages that did not exist in the previous run and pages
// whose content hash differs from it.
func diffPages(previous map[string]string, pages []model.ImportedPage) (added, changed int) {
	for _, page := range pages {
		hash, ok := previous[page.URL]
		switch {
		case !ok:
			added++
		case hash != page.ContentHash:
			changed++
		}
	}
	return added, changed
}
