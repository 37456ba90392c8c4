// Package server runs the HTTP server and tears down its resources in
// order when the process is asked to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/brainscore/brainscore/internal/logging"
)

// Config holds configuration for the shutdown manager.
type Config struct {
	// Timeout bounds how long in-flight requests may take to finish.
	// Default: 30 seconds
	Timeout time.Duration
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// Manager serves HTTP until its context ends, then drains requests and
// closes registered resources in reverse registration order.
type Manager struct {
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	closers []namedCloser

	once         sync.Once
	shutdownErr  error
	shuttingDown atomic.Bool
	inFlight     atomic.Int64
}

// NewManager creates a manager.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Manager{
		timeout: cfg.Timeout,
		logger:  logging.OrDiscard(logger),
	}
}

// Register adds a resource to close on shutdown.
func (m *Manager) Register(name string, c io.Closer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closers = append(m.closers, namedCloser{name: name, closer: c})
}

// RegisterFunc adds a close function.
func (m *Manager) RegisterFunc(name string, fn func() error) {
	m.Register(name, CloserFunc(fn))
}

// Middleware tracks in-flight requests and rejects new ones once shutdown
// has begun.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.shuttingDown.Load() {
			w.Header().Set("Connection", "close")
			http.Error(w, "service unavailable: shutting down", http.StatusServiceUnavailable)
			return
		}
		m.inFlight.Add(1)
		defer m.inFlight.Add(-1)
		next.ServeHTTP(w, r)
	})
}

// InFlight returns the number of requests being served.
func (m *Manager) InFlight() int64 {
	return m.inFlight.Load()
}

// ShuttingDown reports whether shutdown has begun.
func (m *Manager) ShuttingDown() bool {
	return m.shuttingDown.Load()
}

// ListenAndServe listens on srv.Addr and calls Serve.
func (m *Manager) ListenAndServe(ctx context.Context, srv *http.Server) error {
	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", srv.Addr, err)
	}
	return m.Serve(ctx, srv, ln)
}

// Serve serves on ln until ctx is done or the server fails, then shuts
// down. A clean stop returns nil.
func (m *Manager) Serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		m.logger.Info("http server listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		return errors.Join(err, m.Shutdown(context.Background(), srv))
	case <-ctx.Done():
		m.logger.Info("shutting down", "reason", context.Cause(ctx))
		err := m.Shutdown(context.Background(), srv)
		if serveErr := <-errCh; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			err = errors.Join(err, serveErr)
		}
		return err
	}
}

// Shutdown stops srv (which may be nil), waiting up to the configured
// timeout for requests to drain, then closes every registered resource.
// Only the first call does any work; later calls return its result.
func (m *Manager) Shutdown(ctx context.Context, srv *http.Server) error {
	m.once.Do(func() {
		m.shuttingDown.Store(true)

		var errs []error
		if srv != nil {
			shutdownCtx, cancel := context.WithTimeout(ctx, m.timeout)
			if err := srv.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("http shutdown: %w", err))
			}
			cancel()
		}

		m.mu.Lock()
		closers := m.closers
		m.mu.Unlock()

		for i := len(closers) - 1; i >= 0; i-- {
			c := closers[i]
			if err := c.closer.Close(); err != nil {
				m.logger.Warn("close failed", "resource", c.name, "error", err)
				errs = append(errs, fmt.Errorf("close %s: %w", c.name, err))
				continue
			}
			m.logger.Debug("closed", "resource", c.name)
		}
		m.shutdownErr = errors.Join(errs...)
	})
	return m.shutdownErr
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

// CloserFunc is an adapter to allow ordinary functions to be used as io.Closer.
type CloserFunc func() error

// Close calls the underlying function.
func (f CloserFunc) Close() error {
	return f()
}
