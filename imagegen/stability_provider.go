// Package imagegen provides the generation provider wrappers and the request
// dispatcher for the image relay.
//
// stability_provider.go implements the StabilityProvider that generates
// images via a Stability-style text-to-image HTTP API.
package imagegen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"imagerelay/core"
)

// DefaultStabilityEndpoint is the text-to-image endpoint used when no
// IMAGE_PROVIDER_URL override is configured.
const DefaultStabilityEndpoint = "https://api.stability.ai/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"

// providerSamples is the fixed sample count per generation call.
const providerSamples = 1

// StabilityProvider implements Provider against the Stability REST API.
//
// Request schema: text prompts plus width/height/samples; response schema:
// an array of base64-encoded artifacts. The first artifact is returned
// verbatim, with no re-encoding.
//
// Thread Safety: StabilityProvider is safe for concurrent use. Each call
// creates its own HTTP request; the shared http.Client handles pooling.
type StabilityProvider struct {
	client   *http.Client
	endpoint string
	apiKey   string
}

type stabilityTextPrompt struct {
	Text string `json:"text"`
}

type stabilityRequest struct {
	TextPrompts []stabilityTextPrompt `json:"text_prompts"`
	Width       int                   `json:"width"`
	Height      int                   `json:"height"`
	Samples     int                   `json:"samples"`
}

type stabilityArtifact struct {
	Base64       string `json:"base64"`
	FinishReason string `json:"finishReason"`
	Seed         int64  `json:"seed"`
}

type stabilityResponse struct {
	Artifacts []stabilityArtifact `json:"artifacts"`
}

// NewStabilityProvider creates a Stability text-to-image provider.
//
// Parameters:
//   - cfg: core.Config with the bearer credential and optional endpoint
//     override (IMAGE_PROVIDER_URL)
//
// Returns an error if the API key is empty.
func NewStabilityProvider(cfg *core.Config) (*StabilityProvider, error) {
	if cfg == nil {
		return nil, fmt.Errorf("imagegen: config cannot be nil")
	}
	if cfg.StabilityAPIKey == "" {
		return nil, fmt.Errorf("imagegen: Stability API key is required for image generation")
	}

	endpoint := cfg.ImageProviderURL
	if endpoint == "" {
		endpoint = DefaultStabilityEndpoint
	}

	return &StabilityProvider{
		client:   core.GetHTTPClient(cfg, cfg.AITimeout),
		endpoint: endpoint,
		apiKey:   cfg.StabilityAPIKey,
	}, nil
}

// NewStabilityProviderWithClient creates a provider with an explicit HTTP
// client and endpoint. Useful for testing against an httptest server.
func NewStabilityProviderWithClient(client *http.Client, endpoint, apiKey string) (*StabilityProvider, error) {
	if client == nil {
		return nil, fmt.Errorf("imagegen: HTTP client cannot be nil")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("imagegen: Stability API key is required")
	}
	if endpoint == "" {
		endpoint = DefaultStabilityEndpoint
	}

	return &StabilityProvider{
		client:   client,
		endpoint: endpoint,
		apiKey:   apiKey,
	}, nil
}

// Generate creates an image for the request via the Stability API.
//
// The method:
//  1. Posts the prompt with the request dimensions and a fixed sample count of 1
//  2. Authenticates with the bearer credential
//  3. Validates the response
//  4. Returns the first artifact's base64 payload verbatim
//
// A non-2xx response is returned as a *ProviderError carrying the provider's
// error body so callers can surface the provider's own diagnostic. There are
// no retries and no timeout beyond the client's default.
func (p *StabilityProvider) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	if req.Prompt == "" {
		return "", fmt.Errorf("imagegen: prompt cannot be empty")
	}

	payload := stabilityRequest{
		TextPrompts: []stabilityTextPrompt{{Text: req.Prompt}},
		Width:       NormalizeDimension(req.Width),
		Height:      NormalizeDimension(req.Height),
		Samples:     providerSamples,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("imagegen: failed to encode provider request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("imagegen: failed to build provider request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Detail: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail := strings.TrimSpace(string(respBody))
		if detail == "" {
			detail = http.StatusText(resp.StatusCode)
		}
		return "", &ProviderError{StatusCode: resp.StatusCode, Detail: detail}
	}

	var decoded stabilityResponse
	if err := json.Unmarshal(respBody, &decoded); err != nil {
		return "", &ProviderError{StatusCode: resp.StatusCode, Detail: "malformed provider response: " + err.Error()}
	}
	if len(decoded.Artifacts) == 0 {
		return "", &ProviderError{StatusCode: resp.StatusCode, Detail: "provider returned no artifacts"}
	}
	if decoded.Artifacts[0].Base64 == "" {
		return "", &ProviderError{StatusCode: resp.StatusCode, Detail: "provider returned an empty artifact"}
	}

	return decoded.Artifacts[0].Base64, nil
}

// Endpoint returns the configured provider endpoint.
func (p *StabilityProvider) Endpoint() string {
	return p.endpoint
}

// Ensure StabilityProvider implements Provider at compile time.
var _ Provider = (*StabilityProvider)(nil)
