package imagegen

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// TestStabilityProvider_Generate tests the happy path against a stub server.
func TestStabilityProvider_Generate(t *testing.T) {
	var captured stabilityRequest
	var capturedAuth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("failed to decode provider request: %v", err)
		}
		json.NewEncoder(w).Encode(stabilityResponse{
			Artifacts: []stabilityArtifact{{Base64: "QUJD", FinishReason: "SUCCESS"}},
		})
	}))
	defer server.Close()

	provider, err := NewStabilityProviderWithClient(server.Client(), server.URL, "sk-test")
	if err != nil {
		t.Fatalf("NewStabilityProviderWithClient() error = %v", err)
	}

	artifact, err := provider.Generate(context.Background(), GenerationRequest{Prompt: "a red fox"})
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if artifact != "QUJD" {
		t.Errorf("Generate() = %q, want %q", artifact, "QUJD")
	}
	if capturedAuth != "Bearer sk-test" {
		t.Errorf("Authorization header = %q, want bearer credential", capturedAuth)
	}
}

// TestStabilityProvider_RequestShape tests the provider call parameters:
// defaulted dimensions and the fixed sample count of 1.
func TestStabilityProvider_RequestShape(t *testing.T) {
	var captured stabilityRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		json.NewEncoder(w).Encode(stabilityResponse{
			Artifacts: []stabilityArtifact{{Base64: "eA=="}},
		})
	}))
	defer server.Close()

	provider, _ := NewStabilityProviderWithClient(server.Client(), server.URL, "sk-test")

	if _, err := provider.Generate(context.Background(), GenerationRequest{Prompt: "p"}); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if captured.Width != 512 || captured.Height != 512 {
		t.Errorf("dimensions = %dx%d, want 512x512 defaults", captured.Width, captured.Height)
	}
	if captured.Samples != 1 {
		t.Errorf("samples = %d, want 1", captured.Samples)
	}
	if len(captured.TextPrompts) != 1 || captured.TextPrompts[0].Text != "p" {
		t.Errorf("text_prompts = %+v, want single prompt 'p'", captured.TextPrompts)
	}
}

// TestStabilityProvider_Non2xx tests that provider error bodies surface as
// ProviderError details.
func TestStabilityProvider_Non2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"invalid prompt"}`))
	}))
	defer server.Close()

	provider, _ := NewStabilityProviderWithClient(server.Client(), server.URL, "sk-test")

	_, err := provider.Generate(context.Background(), GenerationRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("Generate() error = nil on 400 response, want error")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Generate() error type = %T, want *ProviderError", err)
	}
	if provErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", provErr.StatusCode)
	}
	if provErr.Detail != `{"message":"invalid prompt"}` {
		t.Errorf("Detail = %q, want provider error body", provErr.Detail)
	}
}

// TestStabilityProvider_MalformedResponse tests empty and missing artifacts.
func TestStabilityProvider_MalformedResponse(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", "<html>oops</html>"},
		{"no artifacts", `{"artifacts":[]}`},
		{"empty artifact", `{"artifacts":[{"base64":""}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			provider, _ := NewStabilityProviderWithClient(server.Client(), server.URL, "sk-test")

			_, err := provider.Generate(context.Background(), GenerationRequest{Prompt: "p"})
			if err == nil {
				t.Error("Generate() error = nil on malformed response, want error")
			}
		})
	}
}

// TestStabilityProvider_Timeout tests that transport failures come back as
// ProviderError with a local description.
func TestStabilityProvider_Timeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := &http.Client{Timeout: 20 * time.Millisecond}
	provider, _ := NewStabilityProviderWithClient(client, server.URL, "sk-test")

	_, err := provider.Generate(context.Background(), GenerationRequest{Prompt: "p"})
	if err == nil {
		t.Fatal("Generate() error = nil on timeout, want error")
	}

	var provErr *ProviderError
	if !errors.As(err, &provErr) {
		t.Fatalf("Generate() error type = %T, want *ProviderError", err)
	}
	if provErr.Detail == "" {
		t.Error("ProviderError.Detail empty on timeout, want local error text")
	}
}

// TestNewStabilityProvider_Validation tests constructor requirements.
func TestNewStabilityProvider_Validation(t *testing.T) {
	if _, err := NewStabilityProvider(nil); err == nil {
		t.Error("NewStabilityProvider(nil) error = nil, want error")
	}
	if _, err := NewStabilityProviderWithClient(http.DefaultClient, "", ""); err == nil {
		t.Error("NewStabilityProviderWithClient() with empty key error = nil, want error")
	}
}
