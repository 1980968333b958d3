package imagegen

import (
	"errors"
	"fmt"
)

// ErrPromptRequired is returned by the Dispatcher when a request carries an
// empty or whitespace-only prompt. No provider call is made in that case.
var ErrPromptRequired = errors.New("imagegen: prompt is required")

// ProviderError represents a failure reported by the generation provider:
// a non-2xx response, or a malformed/empty response body.
//
// The Detail field carries the provider's error body verbatim when present,
// so clients receive the provider's own diagnostic.
type ProviderError struct {
	// StatusCode is the HTTP status the provider answered with (0 when the
	// failure happened before a response arrived)
	StatusCode int

	// Detail is the provider-supplied error body, or a local description
	Detail string
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("imagegen: provider returned status %d: %s", e.StatusCode, e.Detail)
	}
	return fmt.Sprintf("imagegen: provider call failed: %s", e.Detail)
}

// errorDetail extracts the best available diagnostic from a provider failure:
// the provider's own error body when present, the local error text otherwise.
func errorDetail(err error) string {
	var provErr *ProviderError
	if errors.As(err, &provErr) && provErr.Detail != "" {
		return provErr.Detail
	}
	return err.Error()
}
