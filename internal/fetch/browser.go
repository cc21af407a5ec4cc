package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/nao1215/sitesync/internal/config"
)

// networkIdleEvent is the lifecycle event Chrome emits once a page has
// had no network activity for 500ms.
const networkIdleEvent = "networkIdle"

// BrowserOptions configures BrowserFetcher.
type BrowserOptions struct {
	UserAgent string

	// MaxBodySize truncates the rendered HTML. Zero means config.DefaultMaxBodySize.
	MaxBodySize int64

	// ShowBrowser runs Chrome with a visible window.
	ShowBrowser bool

	// ExecPath overrides the Chrome binary lookup.
	ExecPath string

	// ProxyAddress routes browser traffic through a SOCKS5 proxy ("host:port").
	ProxyAddress string

	Logger *slog.Logger
}

// BrowserFetcher renders pages in a single headless Chrome process.
// Every Fetch opens a new tab in the shared browser.
type BrowserFetcher struct {
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	maxBodySize   int64
	logger        *slog.Logger
}

// NewBrowserFetcher starts Chrome. Close must be called to stop it.
func NewBrowserFetcher(opts BrowserOptions) (*BrowserFetcher, error) {
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = config.DefaultMaxBodySize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	execOpts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	execOpts = append(execOpts,
		chromedp.Flag("headless", !opts.ShowBrowser),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		execOpts = append(execOpts, chromedp.UserAgent(ua))
	}
	if addr := strings.TrimSpace(opts.ProxyAddress); addr != "" {
		execOpts = append(execOpts, chromedp.ProxyServer("socks5://"+addr))
	}
	if opts.ExecPath != "" {
		execOpts = append(execOpts, chromedp.ExecPath(opts.ExecPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), execOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Running with no actions launches the browser.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &BrowserFetcher{
		allocCancel:   allocCancel,
		browserCtx:    browserCtx,
		browserCancel: browserCancel,
		maxBodySize:   opts.MaxBodySize,
		logger:        opts.Logger,
	}, nil
}

// Fetch navigates a new tab to rawURL, waits until the network is idle
// and returns the outer HTML of the document.
func (b *BrowserFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.browserCtx)
	defer cancelTab()

	// Tabs derive from the browser context, so tie them to ctx as well.
	stop := context.AfterFunc(ctx, cancelTab)
	defer stop()

	var html string
	err := chromedp.Run(tabCtx,
		page.SetLifecycleEventsEnabled(true),
		navigateAndWaitIdle(rawURL),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("render %s: %w", rawURL, err)
	}

	if int64(len(html)) > b.maxBodySize {
		html = html[:b.maxBodySize]
	}
	if strings.TrimSpace(html) == "" {
		return "", ErrEmptyBody
	}

	b.logger.Debug("rendered page", "url", rawURL, "html_bytes", len(html))
	return html, nil
}

// Close stops the browser.
func (b *BrowserFetcher) Close() error {
	b.browserCancel()
	b.allocCancel()
	return nil
}

// navigateAndWaitIdle navigates the current tab and blocks until Chrome
// reports networkIdle for the document the navigation created.
func navigateAndWaitIdle(rawURL string) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		listenCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		idle := make(chan cdp.LoaderID, 16)
		chromedp.ListenTarget(listenCtx, func(ev any) {
			e, ok := ev.(*page.EventLifecycleEvent)
			if !ok || e.Name != networkIdleEvent {
				return
			}
			select {
			case idle <- e.LoaderID:
			default:
			}
		})

		_, loaderID, errorText, _, err := page.Navigate(rawURL).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("navigation failed: %s", errorText)
		}

		for {
			select {
			case id := <-idle:
				// Same-document navigations have no loader.
				if loaderID == "" || id == loaderID {
					return nil
				}
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}
