// internal/analyzer/errors.go
package analyzer

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential is returned by New when no API key is configured.
	ErrMissingCredential = errors.New("API credential is required")

	// ErrEncodingFailure means the image could not be decoded or re-encoded
	// as JPEG. Zero-byte captures land here.
	ErrEncodingFailure = errors.New("failed to encode image")

	// ErrEmptyResponse means the model call succeeded but returned no text.
	ErrEmptyResponse = errors.New("model returned an empty response")

	// ErrMalformedResponse covers text that is not JSON, JSON that is not an
	// object, and objects with a missing or mistyped field.
	ErrMalformedResponse = errors.New("malformed nutrition response")
)

// APIError is returned by the HTTP transports when the remote end answers
// with a non-200 status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Body)
}
