package fetch

import (
	"context"
	"log/slog"

	"github.com/nao1215/sitesync/internal/config"
)

// Backend is a fetcher that owns resources released by Close.
type Backend interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
	Close() error
}

// New creates the backend selected by cfg.Render.
func New(cfg *config.CrawlConfig, logger *slog.Logger) (Backend, error) {
	if cfg.Render == config.RenderBrowser {
		return NewBrowserFetcher(BrowserOptionsFromConfig(cfg, logger))
	}
	return NewHTTPFetcher(OptionsFromConfig(cfg))
}

// BrowserOptionsFromConfig maps the browser settings of cfg to BrowserOptions.
func BrowserOptionsFromConfig(cfg *config.CrawlConfig, logger *slog.Logger) BrowserOptions {
	return BrowserOptions{
		UserAgent:    cfg.UserAgent,
		MaxBodySize:  cfg.MaxBodySize,
		ShowBrowser:  cfg.ShowBrowser,
		ExecPath:     cfg.ChromePath,
		ProxyAddress: cfg.ProxyAddress,
		Logger:       logger,
	}
}

// OptionsFromConfig maps the transport settings of cfg to Options.
func OptionsFromConfig(cfg *config.CrawlConfig) Options {
	return Options{
		UserAgent:    cfg.UserAgent,
		Headers:      cfg.Headers,
		Cookie:       cfg.Cookie,
		Timeout:      cfg.FetchTimeout,
		MaxBodySize:  cfg.MaxBodySize,
		ProxyAddress: cfg.ProxyAddress,
	}
}
