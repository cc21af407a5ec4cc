package robots

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const sampleRobots = `User-agent: *
Disallow: /private/
Disallow: /search?

User-agent: SiteSync
Disallow: /drafts/
`

func TestPolicyAllowed(t *testing.T) {
	t.Parallel()

	policy, err := Parse([]byte(sampleRobots))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		name  string
		url   string
		agent string
		want  bool
	}{
		{name: "wildcard group blocks private", url: "https://example.com/private/page", agent: "OtherBot", want: false},
		{name: "wildcard group allows public", url: "https://example.com/docs/", agent: "OtherBot", want: true},
		{name: "query is tested", url: "https://example.com/search?q=go", agent: "OtherBot", want: false},
		{name: "named group applies", url: "https://example.com/drafts/x", agent: "SiteSync", want: false},
		{name: "named group replaces wildcard", url: "https://example.com/private/page", agent: "SiteSync", want: true},
		{name: "root path", url: "https://example.com", agent: "SiteSync", want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := policy.Allowed(tt.url, tt.agent); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestAllowAll(t *testing.T) {
	t.Parallel()

	if !AllowAll().Allowed("https://example.com/private/", "SiteSync") {
		t.Error("expected AllowAll to allow")
	}
	var nilPolicy *Policy
	if !nilPolicy.Allowed("https://example.com/", "SiteSync") {
		t.Error("expected nil policy to allow")
	}
}

func TestURL(t *testing.T) {
	t.Parallel()

	got, err := URL("http://localhost:8080/docs/intro?x=1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "http://localhost:8080/robots.txt" {
		t.Errorf("expected http://localhost:8080/robots.txt, got %s", got)
	}

	if _, err := URL("/relative"); err == nil {
		t.Error("expected error for relative URL")
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("uses served rules", func(t *testing.T) {
		t.Parallel()

		var gotUA string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/robots.txt" {
				http.NotFound(w, r)
				return
			}
			gotUA = r.Header.Get("User-Agent")
			_, _ = io.WriteString(w, sampleRobots)
		}))
		defer srv.Close()

		policy := Load(context.Background(), srv.Client(), srv.URL+"/docs/", "SiteSync/1.0", discardLogger())
		if policy.Allowed(srv.URL+"/private/x", "OtherBot") {
			t.Error("expected /private/ to be disallowed")
		}
		if !policy.Allowed(srv.URL+"/docs/", "OtherBot") {
			t.Error("expected /docs/ to be allowed")
		}
		if gotUA != "SiteSync/1.0" {
			t.Errorf("expected user agent SiteSync/1.0, got %q", gotUA)
		}
	})

	statuses := []int{http.StatusNotFound, http.StatusForbidden, http.StatusInternalServerError, http.StatusServiceUnavailable}
	for _, status := range statuses {
		t.Run(http.StatusText(status)+" allows all", func(t *testing.T) {
			t.Parallel()

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(status)
				_, _ = io.WriteString(w, "User-agent: *\nDisallow: /\n")
			}))
			defer srv.Close()

			policy := Load(context.Background(), srv.Client(), srv.URL, "SiteSync", discardLogger())
			if !policy.Allowed(srv.URL+"/anything", "SiteSync") {
				t.Errorf("expected allow-all for status %d", status)
			}
		})
	}

	t.Run("unreachable host allows all", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.NotFoundHandler())
		addr := srv.URL
		srv.Close()

		policy := Load(context.Background(), &http.Client{}, addr, "SiteSync", discardLogger())
		if !policy.Allowed(addr+"/x", "SiteSync") {
			t.Error("expected allow-all when robots.txt is unreachable")
		}
	})
}
