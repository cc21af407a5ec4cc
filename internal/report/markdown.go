package report

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/sitesync/internal/model"
)

const markdownTimeLayout = "2006-01-02 15:04:05 MST"

// MarkdownWriter writes one markdown document per imported page and an
// index.md that links to all of them.
type MarkdownWriter struct {
	dirWriter
	opts dirOptions
}

// NewMarkdownWriter creates a MarkdownWriter that writes into dir.
func NewMarkdownWriter(dir string, opts ...DirWriterOption) *MarkdownWriter {
	return &MarkdownWriter{
		dirWriter: dirWriter{dir: dir},
		opts:      newDirOptions(opts),
	}
}

// Write outputs the page documents followed by the index.
func (w *MarkdownWriter) Write(result *model.CrawlResult) (int, error) {
	if err := w.ensureDir(); err != nil {
		return 0, err
	}

	var (
		total   int
		errs    []error
		written = make([]model.ImportedPage, 0, len(result.Pages))
	)
	for _, page := range result.Pages {
		n, err := w.writeFile(page.FileStem()+".md", []byte(RenderPageMarkdown(page)))
		total += n
		if err != nil {
			w.opts.onPageError(page, err)
			errs = append(errs, err)
			continue
		}
		written = append(written, page)
	}

	n, err := w.writeFile(IndexFileName, []byte(RenderIndexMarkdown(result, written)))
	total += n
	if err != nil {
		errs = append(errs, err)
	}
	return total, errors.Join(errs...)
}

// RenderPageMarkdown renders a single imported page as markdown.
func RenderPageMarkdown(page model.ImportedPage) string {
	md := markdown.NewMarkdown(io.Discard)
	md.H1(page.Title)
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Source", markdown.Link(page.URL, page.URL)},
			{"Depth", strconv.Itoa(page.Depth)},
			{"Retrieved", page.RetrievedAt.Format(markdownTimeLayout)},
			{"Content Hash", markdown.Code(page.ContentHash)},
		},
	})
	md.PlainText("")
	md.PlainText(page.Content)
	return md.String()
}

// RenderIndexMarkdown renders the crawl summary and links to the pages
// that were written.
func RenderIndexMarkdown(result *model.CrawlResult, pages []model.ImportedPage) string {
	md := markdown.NewMarkdown(io.Discard)
	md.H1("SiteSync Crawl")
	md.PlainText("")

	status := "completed"
	if result.Cancelled {
		status = "cancelled"
	}
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Start URL", markdown.Link(result.StartURL, result.StartURL)},
			{"Started", result.StartedAt.Format(markdownTimeLayout)},
			{"Duration", result.Duration().Round(time.Millisecond).String()},
			{"Status", status},
			{"Pages Imported", strconv.Itoa(len(result.Pages))},
		},
	})
	md.PlainText("")

	md.H2("Statistics")
	md.PlainText("")
	s := result.Stats
	md.Table(markdown.TableSet{
		Header: []string{"Counter", "Value"},
		Rows: [][]string{
			{"Visited", strconv.Itoa(s.Visited)},
			{"Fetched", strconv.Itoa(s.Fetched)},
			{"Fetch Failures", strconv.Itoa(s.FetchFailures)},
			{"Robots Blocked", strconv.Itoa(s.RobotsBlocked)},
			{"Filtered", strconv.Itoa(s.Filtered)},
			{"Discovered Links", strconv.Itoa(s.DiscoveredLinks)},
			{"Rejected Links", strconv.Itoa(s.RejectedLinks)},
		},
	})
	md.PlainText("")

	md.H2("Pages")
	md.PlainText("")
	if len(pages) == 0 {
		md.PlainText("No pages were imported.")
		return md.String()
	}

	rows := make([][]string, 0, len(pages))
	for i, page := range pages {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			markdown.Link(escapeCell(page.Title), page.FileStem()+".md"),
			escapeCell(page.URL),
			strconv.Itoa(page.Depth),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "URL", "Depth"},
		Rows:   rows,
	})
	return md.String()
}

// escapeCell keeps a value from breaking out of its table cell.
func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
