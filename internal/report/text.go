package report

import (
	"errors"

	"github.com/nao1215/sitesync/internal/model"
)

// DirWriterOption configures TextWriter and MarkdownWriter.
type DirWriterOption func(*dirOptions)

type dirOptions struct {
	onPageError func(page model.ImportedPage, err error)
}

// WithPageErrorHandler registers a callback invoked for every page file
// that could not be written. Writing continues with the next page.
func WithPageErrorHandler(fn func(page model.ImportedPage, err error)) DirWriterOption {
	return func(o *dirOptions) {
		o.onPageError = fn
	}
}

func newDirOptions(opts []DirWriterOption) dirOptions {
	o := dirOptions{
		onPageError: func(model.ImportedPage, error) {},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// TextWriter writes the content of every imported page to its own
// "<stem>.txt" file in the output directory.
type TextWriter struct {
	dirWriter
	opts dirOptions
}

// NewTextWriter creates a TextWriter that writes into dir.
func NewTextWriter(dir string, opts ...DirWriterOption) *TextWriter {
	return &TextWriter{
		dirWriter: dirWriter{dir: dir},
		opts:      newDirOptions(opts),
	}
}

// Write writes one file per page. A failed page does not stop the others;
// all failures are joined into the returned error.
func (w *TextWriter) Write(result *model.CrawlResult) (int, error) {
	if err := w.ensureDir(); err != nil {
		return 0, err
	}

	var (
		total int
		errs  []error
	)
	for _, page := range result.Pages {
		n, err := w.writeFile(page.FileStem()+".txt", []byte(page.Content))
		total += n
		if err != nil {
			w.opts.onPageError(page, err)
			errs = append(errs, err)
		}
	}
	return total, errors.Join(errs...)
}
