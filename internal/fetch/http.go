package fetch

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/net/html/charset"
	"golang.org/x/net/proxy"

	"github.com/nao1215/sitesync/internal/config"
)

// Options controls HTTP fetching.
type Options struct {
	UserAgent string

	// Headers are sent with every request after the default headers,
	// so they can override them.
	Headers map[string]string

	// Cookie is sent as the Cookie header when not empty.
	Cookie string

	// Timeout bounds a whole request. Zero means config.DefaultFetchTimeout.
	Timeout time.Duration

	// MaxBodySize is the number of decoded bytes read per response; the
	// rest is discarded. Zero means config.DefaultMaxBodySize.
	MaxBodySize int64

	// ProxyAddress is a SOCKS5 proxy in "host:port" form.
	ProxyAddress string
}

// HTTPFetcher downloads pages with a single shared http.Client.
type HTTPFetcher struct {
	client      *http.Client
	userAgent   string
	headers     map[string]string
	cookie      string
	maxBodySize int64
}

// NewHTTPFetcher creates an HTTPFetcher. When opts.ProxyAddress is set,
// every connection is dialed through that SOCKS5 proxy.
func NewHTTPFetcher(opts Options) (*HTTPFetcher, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = config.DefaultFetchTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = config.DefaultMaxBodySize
	}

	transport := &http.Transport{
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if addr := strings.TrimSpace(opts.ProxyAddress); addr != "" {
		dialer, err := proxy.SOCKS5("tcp", addr, nil, proxy.Direct)
		if err != nil {
			return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
		}
		transport.DialContext = func(ctx context.Context, network, address string) (net.Conn, error) {
			if cd, ok := dialer.(proxy.ContextDialer); ok {
				return cd.DialContext(ctx, network, address)
			}
			return dialer.Dial(network, address)
		}
	}

	headers := make(map[string]string, len(opts.Headers))
	for k, v := range opts.Headers {
		headers[k] = v
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		userAgent:   opts.UserAgent,
		headers:     headers,
		cookie:      opts.Cookie,
		maxBodySize: opts.MaxBodySize,
	}, nil
}

// Fetch downloads rawURL and returns its body decoded to UTF-8.
// Non-2xx responses return ErrStatus, non-HTML responses ErrNotHTML and
// blank bodies ErrEmptyBody.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}

	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	if f.cookie != "" {
		req.Header.Set("Cookie", f.cookie)
	}
	for k, v := range f.headers {
		req.Header.Set(k, v)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if !isHTMLContentType(contentType) {
		return "", fmt.Errorf("%w: %s", ErrNotHTML, contentType)
	}

	body, err := f.readBody(resp, contentType)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(body) == "" {
		return "", ErrEmptyBody
	}
	return body, nil
}

// readBody undoes the content encoding, truncates at maxBodySize and
// converts the declared or sniffed charset to UTF-8.
func (f *HTTPFetcher) readBody(resp *http.Response, contentType string) (string, error) {
	reader := io.Reader(resp.Body)

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return "", fmt.Errorf("gzip decode: %w", err)
		}
		defer gz.Close()
		reader = gz
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		reader = fl
	}

	utf8Reader, err := charset.NewReader(io.LimitReader(reader, f.maxBodySize), contentType)
	if err != nil {
		return "", fmt.Errorf("charset decode: %w", err)
	}

	body, err := io.ReadAll(utf8Reader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return string(body), nil
}

// Client exposes the underlying HTTP client, for robots.txt retrieval.
func (f *HTTPFetcher) Client() *http.Client {
	return f.client
}

// Close releases idle connections.
func (f *HTTPFetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// isHTMLContentType accepts HTML, XHTML, XML and plain text, and a missing
// Content-Type, which is then sniffed by the parser.
func isHTMLContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	switch {
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
		return true
	case strings.HasSuffix(mediaType, "/xml"), strings.HasPrefix(mediaType, "text/"):
		return true
	default:
		return false
	}
}
