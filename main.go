package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"imagerelay/core"
	"imagerelay/imagegen"
	"imagerelay/logging"
	"imagerelay/shutdown"
	"imagerelay/storage"
	"imagerelay/web"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Use fmt here since logger isn't initialized yet
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	isDevelopment := os.Getenv("DEV_MODE") == "true"

	logger, err := logging.NewLogger(isDevelopment, "relay.log")
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		return core.ExitCodeError
	}

	config, err := core.LoadConfig()
	if err != nil {
		logger.Error("Failed to load configuration", zap.Error(err))
		_ = logger.Sync()
		return core.ExitCodeError
	}

	// Run startup validation before opening the listener
	validation := core.RunStartupValidation(config, os.Stdout)
	if !validation.Success {
		logger.Error("Startup validation failed",
			zap.Int("passed", validation.Passed),
			zap.Int("failed", validation.Failed))
		_ = logger.Sync()
		return core.ExitCodeError
	}

	logger.Info("Configuration loaded",
		zap.Int("port", config.Port),
		zap.Strings("allowed_origins", config.AllowedOrigins),
		zap.Int("rate_limit_max", config.RateLimitMax),
		zap.Duration("rate_limit_window", config.RateLimitWindow()),
		zap.Duration("ai_timeout", config.AITimeout),
		zap.Bool("storage_configured", config.HasStorage()),
		zap.Bool("dev_mode", isDevelopment),
	)

	coordinator := shutdown.NewCoordinator(logger, 30*time.Second)
	coordinator.Register("logger", 90, func(ctx context.Context) error {
		return logger.Sync()
	})
	coordinator.Start()

	provider, err := imagegen.NewProviderFromConfig(config, logger)
	if err != nil {
		logger.Error("Failed to initialize generation provider", zap.Error(err))
		_ = coordinator.Shutdown()
		return core.ExitCodeError
	}

	dispatcher, err := imagegen.NewDispatcher(provider, logger)
	if err != nil {
		logger.Error("Failed to initialize dispatcher", zap.Error(err))
		_ = coordinator.Shutdown()
		return core.ExitCodeError
	}

	uploader := buildUploader(coordinator.Context(), config, logger)

	guard := web.NewMemoryGuard(config.RateLimitMax, config.RateLimitWindow())
	guard.StartCleanupTicker(coordinator.Context(), config.RateLimitWindow())

	server := web.NewServer(web.ServerConfig{
		Port:           config.Port,
		AllowedOrigins: config.AllowedOrigins,
		MaxUploadSize:  config.MaxUploadSize,
		RequestTimeout: config.AITimeout,
	}, dispatcher, guard, uploader, logger)

	coordinator.Register("http-server", 10, func(ctx context.Context) error {
		return server.Shutdown(ctx)
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case err := <-serverErr:
		logger.Error("Server stopped unexpectedly", zap.Error(err))
		_ = coordinator.Shutdown()
		return core.ExitCodeError
	case <-coordinator.Context().Done():
	}

	if err := coordinator.Shutdown(); err != nil {
		logger.Error("Shutdown finished with errors", zap.Error(err))
		return core.ExitCodeError
	}
	return coordinator.ExitCode()
}

// buildUploader selects the storage backend: S3 when a bucket is
// configured, a local directory in development, nothing otherwise. A nil
// uploader disables the upload endpoint.
func buildUploader(ctx context.Context, config *core.Config, logger *logging.Logger) storage.Uploader {
	if config.HasStorage() {
		uploader, err := storage.NewS3Uploader(ctx, config, logger)
		if err != nil {
			logger.Warn("Failed to initialize S3 storage, uploads disabled", zap.Error(err))
			return nil
		}
		return uploader
	}
	if dir := os.Getenv("UPLOAD_DIR"); dir != "" {
		logger.Info("Using local upload directory", zap.String("dir", dir))
		return &storage.FileUploader{Dir: dir}
	}
	logger.Info("No storage configured, uploads disabled")
	return nil
}
