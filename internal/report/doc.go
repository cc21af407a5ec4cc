// Package report writes crawl results to their destinations.
//
// The package contains one writer per output format:
//   - TextWriter: one plain text file per imported page
//   - MarkdownWriter: one markdown file per page plus an index.md
//   - JSONWriter: the whole crawl result as a single JSON document
//   - ConsoleWriter: a short human-readable summary for the terminal
//
// Writers implement the Writer interface, so they can be combined with
// MultiWriter. NewDirWriter picks the directory writer for a config.Format.
package report
