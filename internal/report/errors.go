package report

import "errors"

var (
	// ErrNoOutputDir is returned when a directory writer has no target directory.
	ErrNoOutputDir = errors.New("output directory is not set")

	// ErrWritePage is returned when one or more page files could not be written.
	ErrWritePage = errors.New("failed to write page file")

	// ErrUnknownFormat is returned by NewDirWriter for unsupported formats.
	ErrUnknownFormat = errors.New("unknown output format")
)
