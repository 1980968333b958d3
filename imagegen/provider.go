// Package imagegen provides the generation provider wrappers and the request
// dispatcher for the image relay.
//
// provider.go defines the Provider interface and the configuration-driven
// provider selection.
package imagegen

import (
	"context"
	"fmt"

	"imagerelay/core"
	"imagerelay/logging"

	"go.uber.org/zap"
)

// Provider is the interface for text-to-image generation providers.
// Each provider (Stability, OpenAI) implements this interface to allow
// swappable generation backends.
//
// Generate returns the first generated artifact as a base64-encoded PNG
// payload. Wrapping the artifact as a data URI is the Dispatcher's job, so
// providers stay free of client-contract concerns.
type Provider interface {
	// Generate creates an image for the request and returns the raw
	// base64-encoded artifact, or an error.
	//
	// The context can be used for cancellation and timeout control. The
	// request's dimensions are assumed to be normalized by the caller.
	Generate(ctx context.Context, req GenerationRequest) (string, error)
}

// NewProviderFromConfig selects and creates a generation provider based on
// the configured credentials.
//
// Selection logic:
//   - If STABILITY_API_KEY is set -> StabilityProvider
//   - Otherwise -> OpenAIProvider (requires OPENAI_API_KEY)
//
// Returns an error if neither credential is configured or the chosen
// provider fails to initialize.
func NewProviderFromConfig(cfg *core.Config, logger *logging.Logger) (Provider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("imagegen: logger cannot be nil")
	}

	log := logger.Named("provider-init")

	if cfg.StabilityAPIKey != "" {
		log.Info("using Stability provider for image generation",
			zap.String("endpoint", cfg.ImageProviderURL))
		provider, err := NewStabilityProvider(cfg)
		if err != nil {
			return nil, fmt.Errorf("imagegen: failed to create Stability provider: %w", err)
		}
		return provider, nil
	}

	log.Info("using OpenAI provider for image generation")
	provider, err := NewOpenAIProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("imagegen: failed to create OpenAI provider: %w", err)
	}
	return provider, nil
}
