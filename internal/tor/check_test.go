package tor

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// startFakeProxy accepts one connection at a time, reads the 3-byte
// greeting and answers with reply.
func startFakeProxy(t *testing.T, reply []byte) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				defer c.Close()
				greeting := make([]byte, 3)
				if _, err := io.ReadFull(c, greeting); err != nil {
					return
				}
				_, _ = c.Write(reply)
			}(conn)
		}
	}()
	return ln.Addr().String()
}

func TestCheckProxy(t *testing.T) {
	t.Parallel()

	t.Run("socks5 proxy is OK", func(t *testing.T) {
		t.Parallel()

		addr := startFakeProxy(t, []byte{socks5Version, socks5AuthNone})
		if got := CheckProxy(context.Background(), addr, time.Second); got != ProxyStatusOK {
			t.Errorf("expected %v, got %v", ProxyStatusOK, got)
		}
	})

	t.Run("auth required is wrong type", func(t *testing.T) {
		t.Parallel()

		addr := startFakeProxy(t, []byte{socks5Version, socks5AuthNoAccept})
		if got := CheckProxy(context.Background(), addr, time.Second); got != ProxyStatusWrongType {
			t.Errorf("expected %v, got %v", ProxyStatusWrongType, got)
		}
	})

	t.Run("http server is wrong type", func(t *testing.T) {
		t.Parallel()

		addr := startFakeProxy(t, []byte("HTTP/1.1 400 Bad Request\r\n\r\n"))
		if got := CheckProxy(context.Background(), addr, time.Second); got != ProxyStatusWrongType {
			t.Errorf("expected %v, got %v", ProxyStatusWrongType, got)
		}
	})

	t.Run("closed port cannot connect", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		addr := ln.Addr().String()
		_ = ln.Close()

		if got := CheckProxy(context.Background(), addr, time.Second); got != ProxyStatusCannotConnect {
			t.Errorf("expected %v, got %v", ProxyStatusCannotConnect, got)
		}
	})

	t.Run("silent peer times out", func(t *testing.T) {
		t.Parallel()

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = ln.Close() })
		go func() {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			defer conn.Close()
			time.Sleep(time.Second)
		}()

		got := CheckProxy(context.Background(), ln.Addr().String(), 100*time.Millisecond)
		if got != ProxyStatusTimeout {
			t.Errorf("expected %v, got %v", ProxyStatusTimeout, got)
		}
	})

	t.Run("invalid address", func(t *testing.T) {
		t.Parallel()

		got := CheckProxy(context.Background(), "not-an-address", time.Second)
		if got != ProxyStatusInvalidAddress {
			t.Errorf("expected %v, got %v", ProxyStatusInvalidAddress, got)
		}
		if !errors.Is(got.Err(), ErrInvalidProxyAddress) {
			t.Errorf("expected ErrInvalidProxyAddress, got %v", got.Err())
		}
	})
}

func TestValidProxyAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr string
		want bool
	}{
		{addr: "127.0.0.1:9050", want: true},
		{addr: "localhost:1080", want: true},
		{addr: "[::1]:9050", want: true},
		{addr: "127.0.0.1", want: false},
		{addr: ":9050", want: false},
		{addr: "host:0", want: false},
		{addr: "host:65536", want: false},
		{addr: "host:abc", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()

			if got := ValidProxyAddress(tt.addr); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestProxyStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status ProxyStatus
		str    string
		err    error
	}{
		{status: ProxyStatusOK, str: "OK", err: nil},
		{status: ProxyStatusWrongType, str: "wrong type (not SOCKS5)", err: ErrProxyNotSOCKS5},
		{status: ProxyStatusCannotConnect, str: "cannot connect", err: ErrProxyCannotConnect},
		{status: ProxyStatusTimeout, str: "timeout", err: ErrProxyTimeout},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.str {
			t.Errorf("expected %q, got %q", tt.str, got)
		}
		if got := tt.status.Err(); !errors.Is(got, tt.err) {
			t.Errorf("expected %v, got %v", tt.err, got)
		}
	}
	if ProxyStatus(99).String() != "unknown" {
		t.Error("expected unknown status string")
	}
}
