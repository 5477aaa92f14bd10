package assets

import (
	"log/slog"
	"net/http"
	"strings"
)

// RejectRecorder counts requests whose path was refused.
type RejectRecorder interface {
	PathRejected(mount string)
}

// Handler serves files from a Site.
type Handler struct {
	site     *Site
	logger   *slog.Logger
	recorder RejectRecorder
}

func NewHandler(site *Site, logger *slog.Logger, recorder RejectRecorder) *Handler {
	return &Handler{
		site:     site,
		logger:   logger,
		recorder: recorder,
	}
}

// File serves a single file regardless of the request path.
func (h *Handler) File(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, r.URL.Path, ".", name)
	}
}

// Mount serves any file under dir, using the part of the request path after prefix.
func (h *Handler) Mount(prefix, dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := strings.TrimPrefix(r.URL.Path, prefix)

		// no directory listing
		if sub == "" || strings.HasSuffix(sub, "/") {
			h.fail(w, r, prefix, ErrNotFound)
			return
		}
		if !ValidName(sub) {
			h.fail(w, r, prefix, ErrTraversal)
			return
		}

		h.serve(w, r, prefix, dir, sub)
	}
}

// Route returns the handler for a route table entry.
func (h *Handler) Route(route Route) http.HandlerFunc {
	if route.Kind == KindMount {
		return h.Mount(route.Path, route.Target)
	}
	return h.File(route.Target)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, mount, dir, name string) {
	asset, err := h.site.OpenIn(dir, name)
	if err != nil {
		h.fail(w, r, mount, err)
		return
	}
	defer asset.Close()

	if ct := ContentType(asset.Name); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	http.ServeContent(w, r, asset.Name, asset.Info.ModTime(), asset.File)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, mount string, err error) {
	status := StatusFromError(err)

	switch {
	case IsTraversal(err):
		h.logger.Warn("rejected asset path",
			"mount", mount,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
		)
		if h.recorder != nil {
			h.recorder.PathRejected(mount)
		}
	case status == http.StatusInternalServerError:
		h.logger.Error("failed to open asset", "path", r.URL.Path, "error", err)
	}

	if status == http.StatusNotFound {
		http.NotFound(w, r)
		return
	}
	http.Error(w, http.StatusText(status), status)
}
