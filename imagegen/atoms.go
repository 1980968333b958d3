// Package imagegen provides the generation provider wrappers and the request
// dispatcher for the image relay.
//
// atoms.go contains pure utility functions with no dependencies.
package imagegen

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultDimension is the fallback width/height for generation requests.
const DefaultDimension = 512

// PNGDataURIPrefix is prepended to a base64 artifact to form the client-facing
// image payload.
const PNGDataURIPrefix = "data:image/png;base64,"

// WrapPNGDataURI wraps a base64-encoded PNG artifact as a data URI.
// The artifact bytes are concatenated verbatim; no re-encoding happens here.
//
// Example:
//
//	WrapPNGDataURI("QUJD") // "data:image/png;base64,QUJD"
func WrapPNGDataURI(artifact string) string {
	return PNGDataURIPrefix + artifact
}

// NormalizeDimension returns dim when positive, DefaultDimension otherwise.
// Dimensions fall back to the default rather than failing validation.
func NormalizeDimension(dim int) int {
	if dim > 0 {
		return dim
	}
	return DefaultDimension
}

// IsBlank reports whether the prompt is empty or whitespace-only.
func IsBlank(prompt string) bool {
	return strings.TrimSpace(prompt) == ""
}

// newCorrelationID returns a short identifier for tying together log entries
// of a single generation.
func newCorrelationID() string {
	return uuid.New().String()[:8]
}

// truncateText shortens text to maxLen runes for log previews.
func truncateText(text string, maxLen int) string {
	runes := []rune(text)
	if len(runes) <= maxLen {
		return text
	}
	return string(runes[:maxLen]) + "..."
}
