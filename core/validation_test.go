package core

import (
	"bytes"
	"strings"
	"testing"
)

// TestRunStartupValidation_Success tests a fully configured relay.
func TestRunStartupValidation_Success(t *testing.T) {
	cfg := &Config{
		StabilityAPIKey:        "sk-test",
		Port:                   5000,
		RateLimitMax:           50,
		RateLimitWindowMinutes: 15,
		S3Bucket:               "relay-assets",
		AllowedOrigins:         []string{"https://app.example.com"},
	}

	var buf bytes.Buffer
	result := RunStartupValidation(cfg, &buf)

	if !result.Success {
		t.Error("RunStartupValidation() Success = false, want true")
	}
	if result.Failed != 0 {
		t.Errorf("Failed = %d, want 0", result.Failed)
	}
	if !strings.Contains(buf.String(), "Validation Passed") {
		t.Error("output missing success summary")
	}
}

// TestRunStartupValidation_MissingCredential tests failure reporting.
func TestRunStartupValidation_MissingCredential(t *testing.T) {
	cfg := &Config{
		Port:                   5000,
		RateLimitMax:           50,
		RateLimitWindowMinutes: 15,
	}

	var buf bytes.Buffer
	result := RunStartupValidation(cfg, &buf)

	if result.Success {
		t.Error("RunStartupValidation() Success = true without credential, want false")
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if !strings.Contains(buf.String(), "Validation Failed") {
		t.Error("output missing failure summary")
	}
}

// TestRunStartupValidation_StorageWarning tests that missing storage is a
// warning, not a failure.
func TestRunStartupValidation_StorageWarning(t *testing.T) {
	cfg := &Config{
		OpenAIAPIKey:           "sk-alt",
		Port:                   5000,
		RateLimitMax:           20,
		RateLimitWindowMinutes: 15,
	}

	var buf bytes.Buffer
	result := RunStartupValidation(cfg, &buf)

	if !result.Success {
		t.Error("RunStartupValidation() Success = false, want true with only warnings")
	}
	if result.Warnings == 0 {
		t.Error("Warnings = 0, want at least one for missing storage")
	}
}
