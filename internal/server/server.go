package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dreschagin/celestial-tracker/internal/assets"
	"github.com/dreschagin/celestial-tracker/internal/livereload"
	"github.com/dreschagin/celestial-tracker/internal/metrics"
	"github.com/dreschagin/celestial-tracker/internal/ratelimit"
	"github.com/dreschagin/celestial-tracker/internal/watcher"
	"github.com/dreschagin/celestial-tracker/pkg/config"
)

const readHeaderTimeout = 10 * time.Second

// Server wires the asset routes and ambient middleware into an http.Server.
type Server struct {
	cfg     *config.Config
	logger  *slog.Logger
	site    *assets.Site
	routes  []assets.Route
	metrics *metrics.Metrics
	limiter *ratelimit.Limiter
	hub     *livereload.Hub
}

func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	site, err := assets.NewSite(cfg.Assets.Root)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		site:    site,
		routes:  assets.DefaultRoutes,
		metrics: metrics.New(prometheus.NewRegistry()),
	}

	if cfg.RateLimit.Enabled {
		s.limiter = ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	}
	if cfg.Assets.Reload {
		s.hub = livereload.NewHub(logger, s.metrics.LiveReloadClients)
	}

	return s, nil
}

// Run listens on the configured address and serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	addr := s.cfg.Server.Addr()
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	bgCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	if s.hub != nil {
		w, err := watcher.New(s.site.Root(), s.logger)
		if err != nil {
			ln.Close()
			return fmt.Errorf("start file watcher: %w", err)
		}

		wg.Go(func() { s.hub.Run(bgCtx) })
		wg.Go(func() {
			if err := w.Run(bgCtx, s.assetChanged); err != nil {
				s.logger.Error("file watcher stopped", "error", err)
			}
		})
		s.logger.Info("reload on change enabled", "root", s.site.Root())
	}

	server := &http.Server{
		Handler:           s.Handler(),
		ReadTimeout:       s.cfg.Server.ReadTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      s.cfg.Server.WriteTimeout,
		IdleTimeout:       s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		s.logger.Info("asset server started",
			"addr", ln.Addr().String(),
			"root", s.site.Root(),
		)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err, ok := <-errCh:
		cancel()
		wg.Wait()
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	}

	// stop the watcher and disconnect live-reload clients first
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	err := server.Shutdown(shutdownCtx)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	s.logger.Info("asset server stopped")
	return nil
}

func (s *Server) assetChanged(path string) {
	s.metrics.ReloadEvents.Inc()
	s.logger.Info("asset changed", "path", path)
	s.hub.NotifyChange(path)
}
