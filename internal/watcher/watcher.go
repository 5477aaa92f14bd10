// Package watcher reports changes below the asset root using fsnotify.
// Editors often emit several events per save, so events for the same path
// are debounced.
package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const DefaultDebounce = 100 * time.Millisecond

// Directories never watched.
var ignoreDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".idea":        true,
	".vscode":      true,
	"__pycache__":  true,
}

// Editor temp and OS metadata suffixes.
var ignoreSuffixes = []string{".swp", ".swx", ".tmp", "~", ".DS_Store"}

// Watcher watches a directory tree.
type Watcher struct {
	fw       *fsnotify.Watcher
	root     string
	logger   *slog.Logger
	debounce time.Duration

	mu      sync.Mutex
	stopped bool
}

// New creates a watcher for root and registers every directory below it.
func New(root string, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve watch root: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		fw:       fw,
		root:     abs,
		logger:   logger,
		debounce: DefaultDebounce,
	}

	if err := w.addTree(abs); err != nil {
		fw.Close()
		return nil, err
	}

	return w, nil
}

// SetDebounce changes the per-path debounce window. Call before Run.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Run delivers root-relative, slash-separated paths of changed files to
// onChange until ctx is cancelled. onChange runs on the watcher goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(path string)) error {
	defer w.Close()

	recent := newDebouncer(w.debounce)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fw.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() && !ignoreDirs[info.Name()] {
					if err := w.addTree(event.Name); err != nil {
						w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
					}
				}
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}

			rel, ok := w.relative(event.Name)
			if !ok {
				continue
			}

			if !recent.allow(rel, time.Now()) {
				continue
			}
			onChange(rel)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("file watcher error", "error", err)
		}
	}
}

// debouncer remembers when each path last fired. Only paths inside the window
// are kept, so the map stays as small as the current burst of edits.
type debouncer struct {
	window time.Duration
	last   map[string]time.Time
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{window: window, last: make(map[string]time.Time)}
}

func (d *debouncer) allow(path string, now time.Time) bool {
	if seen, ok := d.last[path]; ok && now.Sub(seen) < d.window {
		return false
	}
	for p, seen := range d.last {
		if now.Sub(seen) >= d.window {
			delete(d.last, p)
		}
	}
	d.last[path] = now
	return true
}

// Close releases the underlying watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true
	return w.fw.Close()
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// skip unreadable entries
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && ignoreDirs[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// relative maps an absolute event path to a root-relative one, dropping noise.
func (w *Watcher) relative(name string) (string, bool) {
	rel, err := filepath.Rel(w.root, name)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	rel = filepath.ToSlash(rel)

	for _, part := range strings.Split(rel, "/") {
		if ignoreDirs[part] {
			return "", false
		}
	}
	base := filepath.Base(name)
	for _, suffix := range ignoreSuffixes {
		if strings.HasSuffix(base, suffix) {
			return "", false
		}
	}

	return rel, true
}
