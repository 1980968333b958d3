package core

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration values for the relay.
type Config struct {
	// Generation provider credentials (at least one is required)
	StabilityAPIKey string // Bearer credential for the Stability-style provider
	OpenAIAPIKey    string // Alternate provider credential (DALL-E)

	// ImageProviderURL optionally overrides the generation endpoint.
	// When empty each provider uses its own default.
	ImageProviderURL string

	// Storage provider configuration (asset uploads)
	S3Bucket        string
	S3Region        string
	S3PublicBaseURL string // Public base URL for uploaded assets (CDN front, optional)

	// Server configuration
	Port           int      // Listening port (default: 5000)
	AllowedOrigins []string // Allowed cross-origin callers; empty means same-origin only

	// Abuse guard configuration
	RateLimitMax           int // Generation requests allowed per window (default: 50)
	RateLimitWindowMinutes int // Fixed window length in minutes (default: 15)

	// Processing configuration
	AITimeout     time.Duration // Timeout for provider calls (default: 60s)
	MaxUploadSize int64         // Maximum accepted upload body in bytes (default: 10 MiB)

	AllowSelfSignedCerts bool
}

// fileConfig is the optional YAML overlay (relay.yaml). It carries only the
// non-secret subset of the configuration; credentials stay in the environment.
type fileConfig struct {
	Port                   int      `yaml:"port"`
	AllowedOrigins         []string `yaml:"allowed_origins"`
	RateLimitMax           int      `yaml:"rate_limit_max"`
	RateLimitWindowMinutes int      `yaml:"rate_limit_window_minutes"`
}

// LoadConfig loads configuration from environment variables with sensible
// defaults. An optional YAML file (RELAY_CONFIG_FILE, default "relay.yaml")
// supplies the non-secret subset; environment variables always win.
//
// At least one generation provider credential (STABILITY_API_KEY or
// OPENAI_API_KEY) must be set.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		StabilityAPIKey:  os.Getenv("STABILITY_API_KEY"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		ImageProviderURL: os.Getenv("IMAGE_PROVIDER_URL"),

		S3Bucket:        os.Getenv("S3_BUCKET"),
		S3Region:        os.Getenv("S3_REGION"),
		S3PublicBaseURL: os.Getenv("S3_PUBLIC_BASE_URL"),

		Port:           5000,
		AllowedOrigins: nil,

		RateLimitMax:           50,
		RateLimitWindowMinutes: 15,

		// 60s accommodates slow diffusion runs while preventing hangs
		AITimeout:     time.Duration(ParseIntEnv("AI_TIMEOUT", 60)) * time.Second,
		MaxUploadSize: ParseInt64Env("MAX_UPLOAD_SIZE", 10*1024*1024),

		AllowSelfSignedCerts: ParseBoolEnv("ALLOW_SELF_SIGNED_CERTS", false),
	}

	// Apply the YAML overlay first so the environment can override it.
	path := GetEnvOrDefault("RELAY_CONFIG_FILE", "relay.yaml")
	if err := applyFileConfig(cfg, path); err != nil {
		return nil, err
	}

	cfg.Port = ParseIntEnv("PORT", cfg.Port)
	if origins := ParseListEnv("ALLOWED_ORIGINS"); origins != nil {
		cfg.AllowedOrigins = origins
	}
	cfg.RateLimitMax = ParseIntEnv("RATE_LIMIT_MAX", cfg.RateLimitMax)
	cfg.RateLimitWindowMinutes = ParseIntEnv("RATE_LIMIT_WINDOW_MINUTES", cfg.RateLimitWindowMinutes)

	if cfg.StabilityAPIKey == "" && cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("missing provider credential: set STABILITY_API_KEY or OPENAI_API_KEY. See .env.example for a configuration template")
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("PORT must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.RateLimitMax < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX must be at least 1, got %d", cfg.RateLimitMax)
	}
	if cfg.RateLimitWindowMinutes < 1 {
		return nil, fmt.Errorf("RATE_LIMIT_WINDOW_MINUTES must be at least 1, got %d", cfg.RateLimitWindowMinutes)
	}

	return cfg, nil
}

// applyFileConfig reads the YAML overlay into cfg. A missing file is not an
// error; a malformed file is.
func applyFileConfig(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if fc.Port != 0 {
		cfg.Port = fc.Port
	}
	if fc.AllowedOrigins != nil {
		cfg.AllowedOrigins = fc.AllowedOrigins
	}
	if fc.RateLimitMax != 0 {
		cfg.RateLimitMax = fc.RateLimitMax
	}
	if fc.RateLimitWindowMinutes != 0 {
		cfg.RateLimitWindowMinutes = fc.RateLimitWindowMinutes
	}

	return nil
}

// RateLimitWindow returns the abuse guard window as a time.Duration.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowMinutes) * time.Minute
}

// HasStorage returns true if a storage provider bucket is configured.
func (c *Config) HasStorage() bool {
	return c.S3Bucket != ""
}

// GetHTTPClient returns an HTTP client configured with TLS settings based on
// AllowSelfSignedCerts. This should be used for all requests to external APIs
// so that TLS configuration is respected.
func GetHTTPClient(cfg *Config, timeout time.Duration) *http.Client {
	client := &http.Client{
		Timeout: timeout,
	}

	if cfg.AllowSelfSignedCerts {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return client
}

// GetDefaultHTTPClient returns an HTTP client with the default 30s timeout.
func GetDefaultHTTPClient(cfg *Config) *http.Client {
	return GetHTTPClient(cfg, 30*time.Second)
}
