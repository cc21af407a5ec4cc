package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nao1215/sitesync/internal/config"
	"github.com/nao1215/sitesync/internal/model"
)

const (
	// dirPermission is used when creating the output directory.
	dirPermission = 0o750

	// filePermission is used for every file a writer creates.
	filePermission = 0o600

	// JSONFileName is the file the JSON format writes into the output directory.
	JSONFileName = "pages.json"

	// IndexFileName is the markdown index written next to the page files.
	IndexFileName = "index.md"
)

// Writer defines the interface for crawl result output.
type Writer interface {
	// Write outputs the crawl result to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(result *model.CrawlResult) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the result to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(result *model.CrawlResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(result)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for stream writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// dirWriter provides common functionality for writers that create files
// inside an output directory.
type dirWriter struct {
	dir string
}

// ensureDir creates the output directory if it does not exist yet.
func (d dirWriter) ensureDir() error {
	if d.dir == "" {
		return ErrNoOutputDir
	}
	if err := os.MkdirAll(d.dir, dirPermission); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", d.dir, err)
	}
	return nil
}

// writeFile writes data to name inside the output directory.
func (d dirWriter) writeFile(name string, data []byte) (int, error) {
	path := filepath.Join(d.dir, name)
	if err := os.WriteFile(path, data, filePermission); err != nil {
		return 0, fmt.Errorf("%w: %s: %w", ErrWritePage, path, err)
	}
	return len(data), nil
}

// FileWriter opens a single file and hands it to a stream Writer.
type FileWriter struct {
	dirWriter
	name      string
	newWriter func(io.Writer) Writer
}

// NewFileWriter creates a Writer that writes to dir/name using the stream
// writer built by newWriter.
func NewFileWriter(dir, name string, newWriter func(io.Writer) Writer) *FileWriter {
	return &FileWriter{
		dirWriter: dirWriter{dir: dir},
		name:      name,
		newWriter: newWriter,
	}
}

// Write creates the file and writes the result into it.
func (w *FileWriter) Write(result *model.CrawlResult) (n int, err error) {
	if err := w.ensureDir(); err != nil {
		return 0, err
	}

	path := filepath.Join(w.dir, w.name)
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, filePermission)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	return w.newWriter(f).Write(result)
}

// NewDirWriter returns the directory writer for the given output format.
func NewDirWriter(format config.Format, dir string, opts ...DirWriterOption) (Writer, error) {
	switch format {
	case config.FormatText:
		return NewTextWriter(dir, opts...), nil
	case config.FormatMarkdown:
		return NewMarkdownWriter(dir, opts...), nil
	case config.FormatJSON:
		return NewFileWriter(dir, JSONFileName, func(out io.Writer) Writer {
			return NewJSONWriter(out, WithPrettyPrint())
		}), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}
