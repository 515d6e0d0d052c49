// Package gateway exposes the session API over HTTP: session lifecycle,
// chat, history, health, and metrics. Everything here is boundary glue;
// the invariant-carrying logic lives in internal/session.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/flemzord/sessiond/internal/config"
	"github.com/flemzord/sessiond/internal/session"
)

// Gateway is the HTTP boundary in front of the session manager.
type Gateway struct {
	config   config.ServerConfig
	logger   *slog.Logger
	sessions *session.Manager
	metrics  *Metrics
	server   *http.Server
}

// New creates a Gateway. metrics may be shared with the sweep job.
func New(cfg config.ServerConfig, sessions *session.Manager, metrics *Metrics, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Gateway{
		config:   cfg,
		logger:   logger,
		sessions: sessions,
		metrics:  metrics,
	}
}

// Metrics returns the gateway's metric set.
func (g *Gateway) Metrics() *Metrics { return g.metrics }

// Start begins serving. It returns once the listener is bound; serving
// continues on a background goroutine until Stop.
func (g *Gateway) Start() error {
	g.server = &http.Server{
		Addr:         g.config.Bind,
		Handler:      g.buildRouter(),
		ReadTimeout:  g.config.ReadTimeout,
		WriteTimeout: g.config.WriteTimeout,
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(context.Background(), "tcp", g.config.Bind)
	if err != nil {
		return fmt.Errorf("gateway: listen on %s: %w", g.config.Bind, err)
	}

	go func() {
		if err := g.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			g.logger.Error("gateway: server stopped", "error", err)
		}
	}()

	g.logger.Info("gateway: listening", "bind", g.config.Bind)
	return nil
}

// Stop shuts the server down gracefully within the configured timeout.
func (g *Gateway) Stop(ctx context.Context) error {
	if g.server == nil {
		return nil
	}
	timeout := g.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.server.Shutdown(ctx)
}
