package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	m := New(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/assets/*", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for _, path := range []string{"/assets/a.png", "/assets/sub/b.png", "/nope"} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
	}

	assert.InDelta(t, 2, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("/assets/*", "GET", "200")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RequestsTotal.WithLabelValues("other", "GET", "404")), 0)
}

func TestPathRejected(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.PathRejected("/assets/")
	m.PathRejected("/assets/")
	m.PathRejected("/static/")

	assert.InDelta(t, 2, testutil.ToFloat64(m.RejectedPaths.WithLabelValues("/assets/")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.RejectedPaths.WithLabelValues("/static/")), 0)
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ReloadEvents.Inc()

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	assert.True(t, strings.Contains(body, "asset_server_reload_events_total 1"))
	assert.Contains(t, body, "go_goroutines")
}
