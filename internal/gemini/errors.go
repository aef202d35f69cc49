package gemini

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates no API key is set. Returned before
	// any network I/O is attempted.
	ErrNotConfigured = errors.New("gemini: api key not configured")

	// ErrTransport indicates a connection failure or timeout while
	// talking to the API.
	ErrTransport = errors.New("gemini: transport failure")

	// ErrMalformedResponse indicates a structurally valid HTTP
	// response that lacks the expected answer fields (often the result
	// of a content filter).
	ErrMalformedResponse = errors.New("gemini: malformed response")
)

// StatusError reports a non-2xx response from the API. Message holds
// the error message extracted from the response body; it is for
// logging only and must never be shown to end users.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini: http status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini: http status %d: %s", e.StatusCode, e.Message)
}
