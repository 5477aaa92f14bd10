package assets

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/containerd/errdefs"
)

var (
	// ErrNotFound means the resolved file does not exist or is not a regular file.
	ErrNotFound = fmt.Errorf("asset not found: %w", errdefs.ErrNotFound)

	// ErrTraversal means the requested path tried to leave its directory.
	// It is reported to clients exactly like ErrNotFound.
	ErrTraversal = fmt.Errorf("path escapes asset directory: %w", errdefs.ErrNotFound)
)

// StatusFromError maps a resolution error to the HTTP status sent to the client.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errdefs.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// IsTraversal reports whether err came from a rejected path.
func IsTraversal(err error) bool {
	return errors.Is(err, ErrTraversal)
}
