// Package imagegen provides the generation provider wrappers and the request
// dispatcher for the image relay.
//
// dispatcher.go implements the Dispatcher that both transports delegate to.
// It validates input, calls the provider, and normalizes every outcome into
// the client-facing contract. It has no transport awareness.
package imagegen

import (
	"context"
	"fmt"

	"imagerelay/logging"

	"go.uber.org/zap"
)

// Dispatcher turns a GenerationRequest into a GenerationResult, hiding
// provider transport details from both entry points (HTTP and realtime).
//
// The Dispatcher guarantees:
//   - an empty prompt fails before any provider call, identically for every
//     caller
//   - dimensions fall back to DefaultDimension when absent or invalid
//   - any provider failure is caught and normalized; no provider error ever
//     propagates to a transport adapter
//
// Thread Safety: Dispatcher is safe for concurrent use; it holds no mutable
// state of its own.
type Dispatcher struct {
	provider Provider
	logger   *logging.Logger
}

// NewDispatcher creates a Dispatcher around the given provider.
//
// Returns an error if any required collaborator is nil.
func NewDispatcher(provider Provider, logger *logging.Logger) (*Dispatcher, error) {
	if provider == nil {
		return nil, fmt.Errorf("imagegen: provider cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}

	return &Dispatcher{
		provider: provider,
		logger:   logger.Named("dispatcher"),
	}, nil
}

// Dispatch handles one generation request end to end.
//
// The returned error is non-nil only for input validation failures
// (ErrPromptRequired); transport adapters map it to their client-error
// shape. Provider failures never surface as errors: they are normalized
// into the returned GenerationResult's error shape, with the provider's
// own diagnostic in ErrorDetail when available.
//
// Exactly one provider call is made per valid request. No retries.
func (d *Dispatcher) Dispatch(ctx context.Context, req GenerationRequest) (GenerationResult, error) {
	if IsBlank(req.Prompt) {
		d.logger.Warn("rejected generation request with empty prompt")
		return ValidationResult(), ErrPromptRequired
	}

	req.Width = NormalizeDimension(req.Width)
	req.Height = NormalizeDimension(req.Height)

	correlationID := newCorrelationID()
	log := d.logger.With(zap.String("correlation_id", correlationID))

	log.Info("dispatching image generation",
		zap.String("prompt_preview", truncateText(req.Prompt, 50)),
		zap.Int("width", req.Width),
		zap.Int("height", req.Height))

	artifact, err := d.provider.Generate(ctx, req)
	if err != nil {
		log.Error("image generation failed", zap.Error(err))
		return ErrorResult(errorDetail(err)), nil
	}

	log.Info("image generation succeeded", zap.Int("artifact_bytes", len(artifact)))
	return SuccessResult(WrapPNGDataURI(artifact)), nil
}
