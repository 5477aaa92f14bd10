package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dreschagin/celestial-tracker/internal/assets"
	"github.com/dreschagin/celestial-tracker/internal/httpx"
	"github.com/dreschagin/celestial-tracker/internal/livereload"
)

const liveReloadPath = "/livereload"

// Handler builds the full middleware chain around the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.metrics.Middleware)

	// Probes stay outside the rate limiter.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if err := s.site.Ready(); err != nil {
			s.logger.Warn("asset root not ready", "error", err)
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})
	if s.cfg.Metrics.Enabled {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}
	if s.hub != nil {
		r.Method(http.MethodGet, liveReloadPath, livereload.NewHandler(s.hub, s.logger))
	}

	r.Group(func(r chi.Router) {
		if s.limiter != nil {
			r.Use(func(next http.Handler) http.Handler {
				return s.limiter.Middleware(s.metrics.RateLimitDropped, next)
			})
		}
		s.mountAssets(r)
	})

	var handler http.Handler = r
	handler = httpx.WithLogging(s.logger, handler)
	handler = httpx.WithRequestID(handler)
	handler = httpx.WithRecovery(s.logger, handler)

	return handler
}

func (s *Server) mountAssets(r chi.Router) {
	h := assets.NewHandler(s.site, s.logger, s.metrics)

	for _, route := range s.routes {
		pattern := route.Path
		if route.Kind == assets.KindMount {
			pattern += "*"
		}
		handler := h.Route(route)
		r.Get(pattern, handler)
		r.Head(pattern, handler)
		s.logger.Debug("asset route registered",
			"pattern", pattern,
			"kind", route.Kind.String(),
			"target", route.Target,
		)
	}
}
