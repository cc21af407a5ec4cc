package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/sitesync/internal/model"
)

// JSONWriter outputs crawl results in JSON format.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	indent bool

	indentPrefix string
	indentString string

	// version is recorded in the Document when set.
	version string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithVersion records the sitesync version in every written document.
func WithVersion(version string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.version = version
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Document is the JSON representation of a crawl run.
type Document struct {
	// Version is the sitesync version that produced the document.
	Version string `json:"version,omitempty"`

	*model.CrawlResult

	// DurationMillis is the crawl duration in milliseconds.
	DurationMillis int64 `json:"duration_ms"`
}

// Write outputs the crawl result as a JSON Document.
func (w *JSONWriter) Write(result *model.CrawlResult) (int, error) {
	return w.writeJSON(NewDocument(result, w.version))
}

// NewDocument wraps a crawl result with output metadata.
func NewDocument(result *model.CrawlResult, version string) *Document {
	return &Document{
		Version:        version,
		CrawlResult:    result,
		DurationMillis: result.Duration().Milliseconds(),
	}
}

// writeJSON marshals v and writes it followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}
