// Package shutdown coordinates graceful teardown of the relay: it cancels a
// shared context on SIGINT/SIGTERM, runs registered cleanup functions in
// priority order, and forces an immediate exit on a second signal.
package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"imagerelay/core"
	"imagerelay/logging"
)

// CleanupFunc releases one resource during shutdown. The context carries
// the remaining shutdown budget.
type CleanupFunc func(ctx context.Context) error

// handler is one registered cleanup function. Lower priority runs first.
type handler struct {
	name     string
	priority int
	fn       CleanupFunc
}

// Coordinator owns the process lifecycle: a root context cancelled on the
// first termination signal, an ordered cleanup registry, and a force-exit
// path for the second signal.
type Coordinator struct {
	logger  *logging.Logger
	timeout time.Duration

	mu       sync.Mutex
	handlers []handler
	started  bool
	done     bool
	exitCode int

	ctx     context.Context
	cancel  context.CancelFunc
	sigChan chan os.Signal
}

// NewCoordinator creates a Coordinator with the given shutdown budget.
// A timeout of zero or less defaults to 30 seconds.
func NewCoordinator(logger *logging.Logger, timeout time.Duration) *Coordinator {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		logger:   logger.Named("shutdown"),
		timeout:  timeout,
		exitCode: core.ExitCodeSuccess,
		ctx:      ctx,
		cancel:   cancel,
		sigChan:  make(chan os.Signal, 2),
	}
}

// Context returns the root context, cancelled when shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// Register adds a cleanup function. Lower priority values run first; the
// logger sync should be last (highest priority) so earlier handlers can
// still log.
func (c *Coordinator) Register(name string, priority int, fn CleanupFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler{name: name, priority: priority, fn: fn})
}

// Start begins signal handling. The first SIGINT or SIGTERM cancels the
// root context; a second signal exits immediately. Safe to call once.
func (c *Coordinator) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.started {
		return
	}
	c.started = true

	signal.Notify(c.sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-c.sigChan
		c.mu.Lock()
		c.exitCode = exitCodeForSignal(sig)
		c.mu.Unlock()
		c.logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
		c.cancel()

		<-c.sigChan
		c.logger.Warn("Received second signal, forcing immediate exit")
		os.Exit(core.ExitCodeError)
	}()
}

// ExitCode returns the code the process should exit with: 130 for SIGINT,
// 143 for SIGTERM, 0 when shutdown was initiated programmatically.
func (c *Coordinator) ExitCode() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exitCode
}

// Wait blocks until shutdown is initiated.
func (c *Coordinator) Wait() {
	<-c.ctx.Done()
}

// Shutdown runs the registered cleanup functions in priority order within
// the shutdown budget. Idempotent; the second call returns nil.
func (c *Coordinator) Shutdown() error {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return nil
	}
	c.done = true
	handlers := make([]handler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.Unlock()

	sort.SliceStable(handlers, func(i, j int) bool {
		return handlers[i].priority < handlers[j].priority
	})

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	start := time.Now()
	failed := 0
	for _, h := range handlers {
		if err := h.fn(ctx); err != nil {
			failed++
			c.logger.Error("Cleanup failed",
				zap.String("handler", h.name),
				zap.Error(err))
		}
	}

	signal.Stop(c.sigChan)

	if failed > 0 {
		return fmt.Errorf("shutdown: %d of %d cleanup handlers failed", failed, len(handlers))
	}
	c.logger.Info("Shutdown complete", zap.Duration("duration", time.Since(start)))
	return nil
}

func exitCodeForSignal(sig os.Signal) int {
	switch sig {
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	case os.Interrupt:
		return core.ExitCodeSIGINT
	default:
		return core.ExitCodeError
	}
}
