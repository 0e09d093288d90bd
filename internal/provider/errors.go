package provider

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey indicates the client was asked to perform a remote
	// call without credentials.
	ErrMissingAPIKey = errors.New("provider: api key is required")
	// ErrProtocol indicates a response body that did not match the
	// expected schema.
	ErrProtocol = errors.New("provider: malformed response")
	// ErrMissingArtifact indicates a job reported success without a
	// retrievable artifact reference.
	ErrMissingArtifact = errors.New("provider: succeeded without artifact url")
	// ErrVideoUnsupported is returned by providers that expose no
	// asynchronous video generation API.
	ErrVideoUnsupported = errors.New("provider: video generation not supported")
)

// HTTPError carries a non-2xx response status and, when decodable, the
// provider-supplied error message.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("provider: http %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("provider: http %d", e.Status)
}

// UnknownStatusError is returned when a job poll reports a status string
// outside the documented set. Polling fails fast rather than spinning on
// values it cannot classify.
type UnknownStatusError struct {
	Raw string
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("provider: unknown job status %q", e.Raw)
}
