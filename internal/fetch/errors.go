package fetch

import "errors"

var (
	// ErrStatus is returned when the server answers with a non-2xx status.
	// The status code is included in the wrapped message.
	ErrStatus = errors.New("unexpected HTTP status")

	// ErrEmptyBody is returned when a fetch produced no content.
	ErrEmptyBody = errors.New("empty response body")

	// ErrNotHTML is returned for responses that are not HTML or text.
	ErrNotHTML = errors.New("response is not an HTML document")
)
