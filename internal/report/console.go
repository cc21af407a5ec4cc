package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/sitesync/internal/model"
)

// ConsoleWriter prints a short summary of a crawl for terminal display.
type ConsoleWriter struct {
	baseWriter

	// showStats appends the crawl counters after the page list.
	showStats bool
}

// ConsoleWriterOption configures a ConsoleWriter.
type ConsoleWriterOption func(*ConsoleWriter)

// WithStats enables the statistics block.
func WithStats(show bool) ConsoleWriterOption {
	return func(w *ConsoleWriter) {
		w.showStats = show
	}
}

// NewConsoleWriter creates a ConsoleWriter that outputs to the given writer.
func NewConsoleWriter(output io.Writer, opts ...ConsoleWriterOption) *ConsoleWriter {
	w := &ConsoleWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write prints the completion banner and one line per imported page.
func (w *ConsoleWriter) Write(result *model.CrawlResult) (int, error) {
	var sb strings.Builder

	if result.Cancelled {
		fmt.Fprintf(&sb, "--- Crawl Cancelled: %d Pages Imported ---\n", len(result.Pages))
	} else {
		fmt.Fprintf(&sb, "--- Crawl Completed: %d Pages Imported ---\n", len(result.Pages))
	}
	for _, page := range result.Pages {
		fmt.Fprintf(&sb, "[✓] %s (%s)\n", page.URL, page.Title)
	}

	if w.showStats {
		w.writeStats(&sb, result)
	}

	return io.WriteString(w.output, sb.String())
}

func (w *ConsoleWriter) writeStats(sb *strings.Builder, result *model.CrawlResult) {
	s := result.Stats
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  Visited:          %d\n", s.Visited)
	fmt.Fprintf(sb, "  Fetched:          %d\n", s.Fetched)
	fmt.Fprintf(sb, "  Fetch failures:   %d\n", s.FetchFailures)
	fmt.Fprintf(sb, "  Robots blocked:   %d\n", s.RobotsBlocked)
	fmt.Fprintf(sb, "  Filtered:         %d\n", s.Filtered)
	fmt.Fprintf(sb, "  Discovered links: %d\n", s.DiscoveredLinks)
	fmt.Fprintf(sb, "  Rejected links:   %d\n", s.RejectedLinks)
	fmt.Fprintf(sb, "  Duration:         %s\n", result.Duration().Round(time.Millisecond))
}
