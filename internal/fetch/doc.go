// Package fetch retrieves HTML documents for the crawler.
//
// Two backends exist. HTTPFetcher downloads raw HTML with a shared
// http.Client and optionally dials through a SOCKS5 proxy such as an
// embedded Tor daemon. BrowserFetcher renders pages in one shared
// headless Chrome instance and returns the DOM once the page's network
// has gone idle. Both are created once per crawl and must be closed.
package fetch
