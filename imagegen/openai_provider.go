// Package imagegen provides the generation provider wrappers and the request
// dispatcher for the image relay.
//
// openai_provider.go implements the OpenAIProvider that generates images via
// the OpenAI DALL-E API, as an alternative to the Stability backend.
package imagegen

import (
	"context"
	"fmt"

	"imagerelay/core"

	"github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements Provider for OpenAI DALL-E image generation.
//
// The relay's client contract wants a base64 artifact, so the request asks
// for b64_json response format instead of the temporary hosted URL.
//
// Thread Safety: OpenAIProvider is safe for concurrent use. The underlying
// OpenAI client handles connection pooling.
type OpenAIProvider struct {
	client *openai.Client
	model  string
}

// NewOpenAIProvider creates an OpenAI image generation provider.
//
// Parameters:
//   - cfg: core.Config with the OpenAI credential and optional endpoint
//     override (IMAGE_PROVIDER_URL)
//
// Returns an error if the API key is empty.
func NewOpenAIProvider(cfg *core.Config) (*OpenAIProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("imagegen: OpenAI API key is required for image generation")
	}

	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.ImageProviderURL != "" {
		clientConfig.BaseURL = cfg.ImageProviderURL
	}
	clientConfig.HTTPClient = core.GetHTTPClient(cfg, cfg.AITimeout)

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  openai.CreateImageModelDallE3,
	}, nil
}

// Generate creates an image for the request using OpenAI's DALL-E API.
//
// The method requests exactly one image in b64_json format and returns the
// base64 payload of the first entry. Request dimensions are mapped onto the
// closest size the model supports; DALL-E does not accept arbitrary sizes.
func (p *OpenAIProvider) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("imagegen: prompt cannot be empty")
	}

	imageReq := openai.ImageRequest{
		Prompt:         req.Prompt,
		Model:          p.model,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
		Size:           sizeForModel(p.model, NormalizeDimension(req.Width), NormalizeDimension(req.Height)),
		N:              providerSamples,
	}

	response, err := p.client.CreateImage(ctx, imageReq)
	if err != nil {
		return "", &ProviderError{Detail: err.Error()}
	}

	if len(response.Data) == 0 {
		return "", &ProviderError{Detail: "provider returned no artifacts"}
	}
	if response.Data[0].B64JSON == "" {
		return "", &ProviderError{Detail: "provider returned an empty artifact"}
	}

	return response.Data[0].B64JSON, nil
}

// Model returns the configured image model name.
func (p *OpenAIProvider) Model() string {
	return p.model
}

// sizeForModel maps requested dimensions onto a size string the model
// accepts. DALL-E 3 supports 1024x1024, 1792x1024 and 1024x1792; smaller
// requests land on the square size.
func sizeForModel(model string, width, height int) string {
	if model == openai.CreateImageModelDallE3 {
		switch {
		case width > height && width >= 1792:
			return openai.CreateImageSize1792x1024
		case height > width && height >= 1792:
			return openai.CreateImageSize1024x1792
		default:
			return openai.CreateImageSize1024x1024
		}
	}

	// DALL-E 2 sizes
	switch {
	case width <= 256 && height <= 256:
		return openai.CreateImageSize256x256
	case width <= 512 && height <= 512:
		return openai.CreateImageSize512x512
	default:
		return openai.CreateImageSize1024x1024
	}
}

// Ensure OpenAIProvider implements Provider at compile time.
var _ Provider = (*OpenAIProvider)(nil)
