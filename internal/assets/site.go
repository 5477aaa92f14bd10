package assets

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// Site is the directory every route resolves against.
type Site struct {
	root string
}

// Asset is an opened regular file. Callers must Close it.
type Asset struct {
	*os.File
	Name string
	Info fs.FileInfo
}

// NewSite returns a Site rooted at dir. The directory must exist.
func NewSite(dir string) (*Site, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve asset root %q: %w", dir, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat asset root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("asset root %s is not a directory", abs)
	}

	return &Site{root: abs}, nil
}

// Root returns the absolute path of the site directory.
func (s *Site) Root() string {
	return s.root
}

// Ready reports whether the root is still a readable directory.
func (s *Site) Ready() error {
	f, err := os.Open(s.root)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("asset root %s is not a directory", s.root)
	}
	return nil
}

// OpenIn resolves name inside dir, a trusted directory relative to the root.
// Names containing ".." or "." elements, empty elements, a leading or trailing
// slash, backslashes or NUL bytes are rejected with ErrTraversal. Symlinks are
// resolved with dir as their root and can never point outside it.
func (s *Site) OpenIn(dir, name string) (*Asset, error) {
	if !ValidName(name) {
		return nil, ErrTraversal
	}

	base, err := securejoin.SecureJoin(s.root, filepath.FromSlash(dir))
	if err != nil {
		return nil, openError("join", dir, err)
	}
	full, err := securejoin.SecureJoin(base, filepath.FromSlash(name))
	if err != nil {
		return nil, openError("join", name, err)
	}

	f, err := os.Open(full)
	if err != nil {
		return nil, openError("open", name, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %q: %w", name, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, ErrNotFound
	}

	return &Asset{File: f, Name: path.Join(dir, name), Info: info}, nil
}

// openError classifies a filesystem error. ENOTDIR means a path element is a
// regular file ("asma.mp3/cover.png"), which is just another missing file.
func openError(op, name string, err error) error {
	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return ErrNotFound
	}
	return fmt.Errorf("%s %q: %w", op, name, err)
}

// ValidName reports whether name is a path the site is willing to resolve.
func ValidName(name string) bool {
	if !fs.ValidPath(name) || name == "." {
		return false
	}
	return !strings.ContainsAny(name, "\\\x00")
}
