package model

import (
	"strings"
	"testing"
	"time"
)

func TestNewImportedPage(t *testing.T) {
	t.Parallel()

	t.Run("computes hash and converts time to UTC", func(t *testing.T) {
		t.Parallel()

		loc := time.FixedZone("JST", 9*60*60)
		at := time.Date(2026, 1, 2, 12, 0, 0, 0, loc)
		page := NewImportedPage("https://example.com/", "Home", "welcome", 1, at)

		if page.ContentHash != HashContent("welcome") {
			t.Errorf("expected hash %s, got %s", HashContent("welcome"), page.ContentHash)
		}
		if len(page.ContentHash) != 64 {
			t.Errorf("expected 64 hex characters, got %d", len(page.ContentHash))
		}
		if page.RetrievedAt.Location() != time.UTC {
			t.Errorf("expected UTC, got %v", page.RetrievedAt.Location())
		}
		if !page.RetrievedAt.Equal(at) {
			t.Errorf("expected %v, got %v", at, page.RetrievedAt)
		}
		if page.Depth != 1 {
			t.Errorf("expected depth 1, got %d", page.Depth)
		}
	})

	t.Run("empty title uses placeholder", func(t *testing.T) {
		t.Parallel()

		page := NewImportedPage("https://example.com/", "", "x", 0, time.Now())
		if page.Title != UntitledPlaceholder {
			t.Errorf("expected %q, got %q", UntitledPlaceholder, page.Title)
		}
	})
}

func TestImportedPageFileStem(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		title      string
		wantPrefix string
	}{
		{name: "simple", title: "Getting Started", wantPrefix: "getting-started-"},
		{name: "punctuation", title: "API / Reference: v2!", wantPrefix: "api-reference-v2-"},
		{name: "placeholder", title: UntitledPlaceholder, wantPrefix: "no-title-"},
		{name: "no usable characters", title: "***", wantPrefix: "untitled-"},
		{name: "unicode letters", title: "Café Übersicht", wantPrefix: "café-übersicht-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			page := ImportedPage{URL: "https://example.com/" + tt.name, Title: tt.title}
			stem := page.FileStem()
			if !strings.HasPrefix(stem, tt.wantPrefix) {
				t.Errorf("expected prefix %q, got %q", tt.wantPrefix, stem)
			}
			if len(stem) != len(tt.wantPrefix)+8 {
				t.Errorf("expected 8 hash characters after prefix, got %q", stem)
			}
		})
	}

	t.Run("same title different url", func(t *testing.T) {
		t.Parallel()

		a := ImportedPage{URL: "https://example.com/a", Title: "Same"}
		b := ImportedPage{URL: "https://example.com/b", Title: "Same"}
		if a.FileStem() == b.FileStem() {
			t.Errorf("expected different stems, both were %q", a.FileStem())
		}
	})

	t.Run("long titles are truncated", func(t *testing.T) {
		t.Parallel()

		page := ImportedPage{URL: "https://example.com/", Title: strings.Repeat("a", 200)}
		stem := page.FileStem()
		if len(stem) != maxStemTitleLength+9 {
			t.Errorf("expected length %d, got %d", maxStemTitleLength+9, len(stem))
		}
	})
}

func TestCrawlResultDuration(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := &CrawlResult{StartedAt: start, FinishedAt: start.Add(3 * time.Second)}
	if r.Duration() != 3*time.Second {
		t.Errorf("expected 3s, got %v", r.Duration())
	}

	r = &CrawlResult{StartedAt: start}
	if r.Duration() != 0 {
		t.Errorf("expected 0 for unfinished result, got %v", r.Duration())
	}
}
