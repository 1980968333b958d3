package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"imagerelay/imagegen"
	"imagerelay/logging"
	"imagerelay/storage"
)

// ServerConfig holds settings for the relay's HTTP server.
type ServerConfig struct {
	// Host is the bind address. Empty binds all interfaces.
	Host string

	// Port is the listen port.
	Port int

	// AllowedOrigins is the CORS and websocket origin allowlist.
	AllowedOrigins []string

	// MaxUploadSize caps multipart upload bodies in bytes.
	MaxUploadSize int64

	// RequestTimeout bounds a single generation request end to end.
	RequestTimeout time.Duration

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Port:            3000,
		MaxUploadSize:   DefaultMaxUploadSize,
		RequestTimeout:  120 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

// Server is the relay's HTTP front: it wires the generation endpoint, the
// upload endpoint, the websocket channel and a liveness root onto one
// listener and owns the listener's lifecycle.
type Server struct {
	config     ServerConfig
	logger     *logging.Logger
	httpServer *http.Server
}

// NewServer assembles the full route table around the shared dispatcher.
// The guard applies to the HTTP generation endpoint only; the websocket
// channel is deliberately unguarded. A nil uploader disables the upload
// endpoint with a 404 rather than a misconfigured 500.
func NewServer(
	config ServerConfig,
	dispatcher *imagegen.Dispatcher,
	guard AbuseGuard,
	uploader storage.Uploader,
	logger *logging.Logger,
) *Server {
	log := logger.Named("web")

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, "Image relay is running")
	})
	mux.Handle("/generate-image", NewGenerateHandler(dispatcher, guard, logger))
	if uploader != nil {
		mux.Handle("/upload-image", NewUploadHandler(uploader, logger, config.MaxUploadSize))
	}
	mux.Handle("/ws", NewRealtimeChannel(dispatcher, logger, RealtimeConfig{
		AllowedOrigins: config.AllowedOrigins,
		RequestTimeout: config.RequestTimeout,
	}))

	handler := RequestLogging(logger, CORS(config.AllowedOrigins, mux))

	return &Server{
		config: config,
		logger: log,
		httpServer: &http.Server{
			Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
			Handler: handler,
			// No WriteTimeout: generation requests are long-lived and
			// bounded per request by the dispatcher context instead.
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

// Handler returns the server's root handler, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start runs the listener and blocks until the server stops. A clean
// shutdown returns nil.
func (s *Server) Start() error {
	s.logger.Info("Server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("web: server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Server shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web: shutdown failed: %w", err)
	}
	return nil
}
