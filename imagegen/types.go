// Package imagegen provides the generation provider wrappers and the request
// dispatcher for the image relay.
//
// types.go contains the transient request/response values shared by both
// transports. Nothing here is persisted.
package imagegen

// Result status values for the client-facing contract.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Client-facing messages. These are part of the wire contract and must not
// drift between transports.
const (
	// MsgPromptRequired is returned when a request carries no prompt.
	MsgPromptRequired = "Prompt is required!"

	// MsgGenerationFailed is returned for any provider-side failure.
	MsgGenerationFailed = "Image generation failed"
)

// GenerationRequest is one inbound image generation request.
// Width and Height fall back to DefaultDimension when absent or invalid.
type GenerationRequest struct {
	// Prompt is the text description of the image (required, non-empty)
	Prompt string `json:"prompt"`

	// Width of the generated image in pixels (default: 512)
	Width int `json:"width,omitempty"`

	// Height of the generated image in pixels (default: 512)
	Height int `json:"height,omitempty"`
}

// GenerationResult is the normalized outcome of one generation request.
// Exactly one of the success/error shapes is populated, never both.
type GenerationResult struct {
	// Status is StatusSuccess or StatusError
	Status string `json:"status"`

	// Image is the data-URI-encoded PNG payload (success only)
	Image string `json:"image,omitempty"`

	// Message is a human-readable summary (error only)
	Message string `json:"message,omitempty"`

	// ErrorDetail is the opaque provider-supplied diagnostic (error only)
	ErrorDetail string `json:"error,omitempty"`
}

// SuccessResult builds the success shape around a data URI payload.
func SuccessResult(image string) GenerationResult {
	return GenerationResult{
		Status: StatusSuccess,
		Image:  image,
	}
}

// ErrorResult builds the provider-failure shape with a diagnostic detail.
func ErrorResult(detail string) GenerationResult {
	return GenerationResult{
		Status:      StatusError,
		Message:     MsgGenerationFailed,
		ErrorDetail: detail,
	}
}

// ValidationResult builds the missing-prompt failure shape.
func ValidationResult() GenerationResult {
	return GenerationResult{
		Status:  StatusError,
		Message: MsgPromptRequired,
	}
}
