package config

import "errors"

// Configuration validation errors returned by Validate. Callers match
// them with errors.Is; ErrInvalidFilter is wrapped together with the
// regexp compile error.
var (
	// ErrNoStartURL is returned when no start URL is given.
	ErrNoStartURL = errors.New("no start URL specified")

	// ErrInvalidStartURL is returned when the start URL is not an absolute http(s) URL.
	ErrInvalidStartURL = errors.New("invalid start URL: must be an absolute http or https URL")

	// ErrNoOutputPath is returned when no output directory is given.
	ErrNoOutputPath = errors.New("no output path specified: use --output")

	// ErrInvalidMaxPages is returned when the page budget is below one.
	ErrInvalidMaxPages = errors.New("invalid max pages: must be at least 1")

	// ErrInvalidMaxDepth is returned when the depth budget is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidFilter is returned when the URL filter is not a valid regular expression.
	ErrInvalidFilter = errors.New("invalid URL filter")

	// ErrInvalidRender is returned for an unknown render mode.
	ErrInvalidRender = errors.New("invalid render mode: must be static or browser")

	// ErrInvalidWorkers is returned when the worker count is below one.
	ErrInvalidWorkers = errors.New("invalid workers: must be at least 1")

	// ErrInvalidTimeout is returned when a timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidMaxBodySize is returned when the body size limit is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidFormat is returned for an unknown output format.
	ErrInvalidFormat = errors.New("invalid output format: must be text, markdown or json")

	// ErrConflictingProxy is returned when --tor and --proxy are both set.
	ErrConflictingProxy = errors.New("conflicting transports: --tor and --proxy cannot be used together")
)
