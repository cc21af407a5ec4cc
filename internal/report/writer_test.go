package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/sitesync/internal/config"
	"github.com/nao1215/sitesync/internal/model"
)

// createTestResult creates a crawl result with two imported pages.
func createTestResult() *model.CrawlResult {
	started := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &model.CrawlResult{
		StartURL: "https://example.com/",
		Pages: []model.ImportedPage{
			model.NewImportedPage("https://example.com/", "Home", "welcome home", 0, started),
			model.NewImportedPage("https://example.com/guide", "", "guide text", 1, started.Add(time.Second)),
		},
		Stats: model.Stats{
			Visited:         3,
			Fetched:         2,
			FetchFailures:   1,
			DiscoveredLinks: 2,
		},
		StartedAt:  started,
		FinishedAt: started.Add(1500 * time.Millisecond),
	}
}

func TestConsoleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes banner and page lines", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewConsoleWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.HasPrefix(output, "--- Crawl Completed: 2 Pages Imported ---\n") {
			t.Errorf("unexpected banner: %q", output)
		}
		if !strings.Contains(output, "[✓] https://example.com/ (Home)\n") {
			t.Errorf("expected home page line, got %q", output)
		}
		if !strings.Contains(output, "[✓] https://example.com/guide ([No Title])\n") {
			t.Errorf("expected untitled page line, got %q", output)
		}
		if strings.Contains(output, "Visited:") {
			t.Error("expected no stats without WithStats")
		}
	})

	t.Run("writes stats and cancelled banner", func(t *testing.T) {
		t.Parallel()

		result := createTestResult()
		result.Cancelled = true

		var buf bytes.Buffer
		n, err := NewConsoleWriter(&buf, WithStats(true)).Write(result)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		output := buf.String()
		if !strings.Contains(output, "--- Crawl Cancelled: 2 Pages Imported ---") {
			t.Errorf("expected cancelled banner, got %q", output)
		}
		if !strings.Contains(output, "Fetch failures:   1") {
			t.Errorf("expected fetch failures counter, got %q", output)
		}
		if !strings.Contains(output, "Duration:         1.5s") {
			t.Errorf("expected duration, got %q", output)
		}
	})
}

func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if strings.Count(output, "\n") != 1 {
			t.Errorf("expected single line output, got %q", output)
		}

		var doc map[string]any
		if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if doc["start_url"] != "https://example.com/" {
			t.Errorf("expected start_url, got %v", doc["start_url"])
		}
		if doc["duration_ms"] != float64(1500) {
			t.Errorf("expected duration_ms 1500, got %v", doc["duration_ms"])
		}
		if _, ok := doc["version"]; ok {
			t.Error("expected version to be omitted")
		}
		pages, ok := doc["pages"].([]any)
		if !ok || len(pages) != 2 {
			t.Fatalf("expected 2 pages, got %v", doc["pages"])
		}
	})

	t.Run("pretty print with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("1.2.3"))
		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.Contains(output, "\n  \"version\": \"1.2.3\"") {
			t.Errorf("expected indented version field, got %q", output)
		}
	})
}

func TestTextWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes one file per page", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "out")
		result := createTestResult()

		n, err := NewTextWriter(dir).Write(result)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n != len("welcome home")+len("guide text") {
			t.Errorf("unexpected byte count %d", n)
		}

		for _, page := range result.Pages {
			data, err := os.ReadFile(filepath.Join(dir, page.FileStem()+".txt"))
			if err != nil {
				t.Fatalf("failed to read page file: %v", err)
			}
			if string(data) != page.Content {
				t.Errorf("expected %q, got %q", page.Content, string(data))
			}
		}
	})

	t.Run("continues after a failed page", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		result := createTestResult()

		// A directory in place of the first page file makes that write fail.
		blocked := result.Pages[0]
		if err := os.Mkdir(filepath.Join(dir, blocked.FileStem()+".txt"), 0o750); err != nil {
			t.Fatal(err)
		}

		var failed []string
		w := NewTextWriter(dir, WithPageErrorHandler(func(page model.ImportedPage, _ error) {
			failed = append(failed, page.URL)
		}))

		_, err := w.Write(result)
		if !errors.Is(err, ErrWritePage) {
			t.Errorf("expected ErrWritePage, got %v", err)
		}
		if len(failed) != 1 || failed[0] != blocked.URL {
			t.Errorf("expected one failure for %s, got %v", blocked.URL, failed)
		}

		second := result.Pages[1]
		if _, err := os.Stat(filepath.Join(dir, second.FileStem()+".txt")); err != nil {
			t.Errorf("expected second page to be written: %v", err)
		}
	})

	t.Run("requires a directory", func(t *testing.T) {
		t.Parallel()

		_, err := NewTextWriter("").Write(createTestResult())
		if !errors.Is(err, ErrNoOutputDir) {
			t.Errorf("expected ErrNoOutputDir, got %v", err)
		}
	})
}

func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	result := createTestResult()

	if _, err := NewMarkdownWriter(dir).Write(result); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	page, err := os.ReadFile(filepath.Join(dir, result.Pages[0].FileStem()+".md"))
	if err != nil {
		t.Fatalf("failed to read page markdown: %v", err)
	}
	if !strings.HasPrefix(string(page), "# Home") {
		t.Errorf("expected H1 title, got %q", string(page))
	}
	if !strings.Contains(string(page), "welcome home") {
		t.Error("expected page content in markdown")
	}

	index, err := os.ReadFile(filepath.Join(dir, IndexFileName))
	if err != nil {
		t.Fatalf("failed to read index: %v", err)
	}
	for _, want := range []string{
		"# SiteSync Crawl",
		"## Pages",
		"[Home](" + result.Pages[0].FileStem() + ".md)",
		"[[No Title]](" + result.Pages[1].FileStem() + ".md)",
	} {
		if !strings.Contains(string(index), want) {
			t.Errorf("expected index to contain %q", want)
		}
	}
}

func TestRenderIndexMarkdownEmpty(t *testing.T) {
	t.Parallel()

	result := &model.CrawlResult{StartURL: "https://example.com/"}
	got := RenderIndexMarkdown(result, nil)
	if !strings.Contains(got, "No pages were imported.") {
		t.Errorf("expected empty notice, got %q", got)
	}
}

func TestNewDirWriter(t *testing.T) {
	t.Parallel()

	t.Run("json writes pages.json", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		w, err := NewDirWriter(config.FormatJSON, dir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := w.Write(createTestResult()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		data, err := os.ReadFile(filepath.Join(dir, JSONFileName))
		if err != nil {
			t.Fatalf("failed to read %s: %v", JSONFileName, err)
		}
		if !json.Valid(data) {
			t.Error("expected valid JSON")
		}
	})

	t.Run("selects writer by format", func(t *testing.T) {
		t.Parallel()

		w, err := NewDirWriter(config.FormatText, "out")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := w.(*TextWriter); !ok {
			t.Errorf("expected *TextWriter, got %T", w)
		}

		w, err = NewDirWriter(config.FormatMarkdown, "out")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := w.(*MarkdownWriter); !ok {
			t.Errorf("expected *MarkdownWriter, got %T", w)
		}
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		t.Parallel()

		_, err := NewDirWriter(config.Format("xml"), "out")
		if !errors.Is(err, ErrUnknownFormat) {
			t.Errorf("expected ErrUnknownFormat, got %v", err)
		}
	})
}

func TestMultiWriter(t *testing.T) {
	t.Parallel()

	var a, b bytes.Buffer
	w := NewMultiWriter(NewConsoleWriter(&a), NewJSONWriter(&b))
	n, err := w.Write(createTestResult())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != a.Len()+b.Len() {
		t.Errorf("expected %d bytes, got %d", a.Len()+b.Len(), n)
	}
}
