// Package tor provides the SOCKS5 side of sitesync's proxy support.
//
// EmbeddedTor starts a private Tor daemon through tornago and exposes its
// SOCKS address, which the crawl command passes to the fetch backend as
// the proxy. CheckProxy performs a SOCKS5 greeting against any proxy
// address so a crawl can fail fast instead of recording every page as a
// fetch failure.
package tor
