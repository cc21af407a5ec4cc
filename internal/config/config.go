package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultMaxPages is the number of pages imported before a crawl stops.
	DefaultMaxPages = 100

	// DefaultMaxDepth is the number of link hops followed from the start URL.
	DefaultMaxDepth = 3

	// DefaultURLFilter accepts every URL.
	DefaultURLFilter = ".*"

	// DefaultAgentName is the agent matched against robots.txt groups.
	DefaultAgentName = "SiteSync"

	// DefaultUserAgent is the User-Agent header sent with HTTP requests.
	DefaultUserAgent = "SiteSync/1.0 (+https://github.com/nao1215/sitesync)"

	// DefaultFetchTimeout bounds a single page fetch, including rendering.
	DefaultFetchTimeout = 30 * time.Second

	// DefaultWorkers of 1 keeps the crawl strictly sequential.
	DefaultWorkers = 1

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultTorStartupTimeout is how long the embedded Tor daemon may take
	// to bootstrap. Bootstrapping usually takes one to three minutes.
	DefaultTorStartupTimeout = 3 * time.Minute

	// AppName is the application name used for XDG directory paths.
	AppName = "sitesync"
)

// RenderMode selects how pages are fetched.
type RenderMode string

const (
	// RenderStatic fetches raw HTML with an HTTP client.
	RenderStatic RenderMode = "static"

	// RenderBrowser renders pages in headless Chrome before extraction.
	RenderBrowser RenderMode = "browser"
)

// ParseRenderMode converts a flag or profile value into a RenderMode.
func ParseRenderMode(s string) (RenderMode, error) {
	switch RenderMode(strings.ToLower(strings.TrimSpace(s))) {
	case RenderStatic:
		return RenderStatic, nil
	case RenderBrowser:
		return RenderBrowser, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRender, s)
	}
}

// Format selects how imported pages are written to the output directory.
type Format string

const (
	// FormatText writes one plain text file per page.
	FormatText Format = "text"

	// FormatMarkdown writes one markdown file per page plus an index.
	FormatMarkdown Format = "markdown"

	// FormatJSON writes the whole crawl result to a single JSON file.
	FormatJSON Format = "json"
)

// ParseFormat converts a flag value into a Format.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatText:
		return FormatText, nil
	case FormatMarkdown, "md":
		return FormatMarkdown, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFormat, s)
	}
}

// CrawlConfig is the policy of a single crawl. The crawler reads it but
// never modifies it.
type CrawlConfig struct {
	// StartURL is the seed of the crawl, processed at depth 0.
	StartURL string

	// MaxPages is the maximum number of imported pages.
	MaxPages int

	// MaxDepth is the maximum link distance from StartURL.
	// Depth 0 means only the start page is processed.
	MaxDepth int

	// URLFilter is a regular expression, matched case-insensitively, that
	// both imported page URLs and followed hrefs must match.
	URLFilter string

	// RequiredText lists terms of which at least one must appear in a page
	// for it to be imported. Empty means every page qualifies.
	RequiredText []string

	// SkipHrefSubstrings excludes hrefs containing any of these strings.
	// Only applied together with AllowedURLPrefix.
	SkipHrefSubstrings []string

	// AllowedURLPrefix restricts followed links to URLs starting with it.
	AllowedURLPrefix string

	// Render selects the fetch backend.
	Render RenderMode

	// AgentName is the agent name used for robots.txt matching.
	AgentName string

	// UserAgent is the User-Agent header of static fetches.
	UserAgent string

	// FetchTimeout bounds each fetch. A timeout counts as a fetch failure.
	FetchTimeout time.Duration

	// Workers is the number of pages processed concurrently.
	Workers int

	// MaxBodySize is the maximum number of response bytes read per page.
	// Zero means DefaultMaxBodySize.
	MaxBodySize int64

	// Headers are extra HTTP headers sent with every static fetch.
	Headers map[string]string

	// Cookie is sent as the Cookie header with every static fetch.
	Cookie string

	// ProxyAddress is an optional SOCKS5 proxy in "host:port" form.
	ProxyAddress string

	// RespectRobots enables robots.txt checks.
	RespectRobots bool

	// ShowBrowser runs Chrome with a visible window in browser render mode.
	ShowBrowser bool

	// ChromePath overrides the Chrome binary lookup in browser render mode.
	ChromePath string
}

// NewCrawlConfig returns a CrawlConfig populated with defaults.
func NewCrawlConfig() *CrawlConfig {
	return &CrawlConfig{
		MaxPages:      DefaultMaxPages,
		MaxDepth:      DefaultMaxDepth,
		URLFilter:     DefaultURLFilter,
		Render:        RenderStatic,
		AgentName:     DefaultAgentName,
		UserAgent:     DefaultUserAgent,
		FetchTimeout:  DefaultFetchTimeout,
		Workers:       DefaultWorkers,
		MaxBodySize:   DefaultMaxBodySize,
		RespectRobots: true,
	}
}

// Validate checks the crawl policy and returns the first problem found.
func (c *CrawlConfig) Validate() error {
	if strings.TrimSpace(c.StartURL) == "" {
		return ErrNoStartURL
	}
	u, err := url.Parse(c.StartURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: %q", ErrInvalidStartURL, c.StartURL)
	}
	if c.MaxPages < 1 {
		return ErrInvalidMaxPages
	}
	if c.MaxDepth < 0 {
		return ErrInvalidMaxDepth
	}
	if _, err := c.CompileFilter(); err != nil {
		return err
	}
	if c.Render != RenderStatic && c.Render != RenderBrowser {
		return fmt.Errorf("%w: %q", ErrInvalidRender, c.Render)
	}
	if c.Workers < 1 {
		return ErrInvalidWorkers
	}
	if c.FetchTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

// CompileFilter compiles URLFilter as a case-insensitive regular expression.
// An empty filter is treated as DefaultURLFilter.
func (c *CrawlConfig) CompileFilter() (*regexp.Regexp, error) {
	pattern := c.URLFilter
	if pattern == "" {
		pattern = DefaultURLFilter
	}
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidFilter, err)
	}
	return re, nil
}

// Config holds everything a sitesync crawl command needs.
type Config struct {
	// Crawl is the crawl policy.
	Crawl CrawlConfig

	// OutputPath is the directory imported pages are written to.
	OutputPath string

	// Format selects the page writer.
	Format Format

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is an explicit profile path. When empty the profile
	// is searched for with FindConfigFile.
	ConfigFilePath string

	// DBDir is the directory of the SQLite history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB stores the crawl result in the history database.
	SaveToDB bool

	// MetricsAddr, when set, serves Prometheus metrics during the crawl.
	MetricsAddr string

	// UseTor routes static fetches through an embedded Tor daemon.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration
}

// NewConfig returns a Config populated with defaults.
func NewConfig() *Config {
	return &Config{
		Crawl:             *NewCrawlConfig(),
		Format:            FormatText,
		DBDir:             XDGDataDir(),
		SaveToDB:          true,
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// Validate checks the whole configuration. A missing start URL or output
// path is reported before anything else.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Crawl.StartURL) == "" {
		return ErrNoStartURL
	}
	if strings.TrimSpace(c.OutputPath) == "" {
		return ErrNoOutputPath
	}
	if err := c.Crawl.Validate(); err != nil {
		return err
	}
	if _, err := ParseFormat(string(c.Format)); err != nil {
		return err
	}
	if c.UseTor {
		if c.Crawl.ProxyAddress != "" {
			return ErrConflictingProxy
		}
		if c.TorStartupTimeout <= 0 {
			return ErrInvalidTimeout
		}
	}
	return nil
}

// XDGDataDir returns the XDG data directory for sitesync.
// On Linux: ~/.local/share/sitesync
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for sitesync.
// On Linux: ~/.config/sitesync
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// SplitList splits a comma separated flag value, trimming blanks and
// dropping empty items.
func SplitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
