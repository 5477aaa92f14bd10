package assets

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeTree creates files relative to dir.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		full := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(body), 0o644))
	}
}

func TestNewSiteRequiresDirectory(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"index.html": "x"})

	_, err := NewSite(filepath.Join(dir, "missing"))
	assert.Error(t, err)

	_, err = NewSite(filepath.Join(dir, "index.html"))
	assert.Error(t, err)

	site, err := NewSite(dir)
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(site.Root()))
	assert.NoError(t, site.Ready())
}

func TestSiteOpen(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"index.html":          "<html>Hi</html>",
		"assets/sub/icon.png": "png-bytes",
	})
	site, err := NewSite(dir)
	require.NoError(t, err)

	asset, err := site.OpenIn(".", "index.html")
	require.NoError(t, err)
	defer asset.Close()

	body, err := io.ReadAll(asset)
	require.NoError(t, err)
	assert.Equal(t, "<html>Hi</html>", string(body))
	assert.Equal(t, "index.html", asset.Name)

	nested, err := site.OpenIn("assets", "sub/icon.png")
	require.NoError(t, err)
	defer nested.Close()
	assert.Equal(t, "assets/sub/icon.png", nested.Name)
	assert.EqualValues(t, len("png-bytes"), nested.Info.Size())
}

func TestSiteOpenErrors(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"index.html":       "root",
		"assets/asma.mp3":  "audio",
		"assets/sub/a.txt": "a",
	})
	site, err := NewSite(dir)
	require.NoError(t, err)

	tests := []struct {
		name      string
		dir       string
		path      string
		traversal bool
	}{
		{name: "missing file", dir: ".", path: "script.js"},
		{name: "directory", dir: "assets", path: "sub"},
		{name: "file used as directory", dir: "assets", path: "asma.mp3/cover.png"},
		{name: "nested file used as directory", dir: ".", path: "assets/sub/a.txt/x"},
		{name: "parent segment", dir: "assets", path: "../index.html", traversal: true},
		{name: "deep parent", dir: "assets", path: "../../etc/passwd", traversal: true},
		{name: "inner parent", dir: "assets", path: "sub/../../index.html", traversal: true},
		{name: "absolute", dir: "assets", path: "/etc/passwd", traversal: true},
		{name: "dot", dir: "assets", path: ".", traversal: true},
		{name: "empty", dir: "assets", path: "", traversal: true},
		{name: "double slash", dir: "assets", path: "sub//a.txt", traversal: true},
		{name: "backslash", dir: "assets", path: `..\index.html`, traversal: true},
		{name: "nul byte", dir: "assets", path: "asma.mp3\x00.txt", traversal: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			asset, err := site.OpenIn(tt.dir, tt.path)
			require.Error(t, err)
			assert.Nil(t, asset)
			assert.True(t, errdefs.IsNotFound(err), "expected not found class, got %v", err)
			assert.Equal(t, tt.traversal, IsTraversal(err))
		})
	}
}

func TestSiteOpenContainsSymlinks(t *testing.T) {
	outside := t.TempDir()
	secret := filepath.Join(outside, "secret.txt")
	require.NoError(t, os.WriteFile(secret, []byte("top secret"), 0o644))

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"index.html":    "root page",
		"assets/ok.txt": "fine",
	})
	require.NoError(t, os.Symlink(secret, filepath.Join(dir, "assets", "leak.txt")))
	require.NoError(t, os.Symlink("..", filepath.Join(dir, "assets", "up")))
	require.NoError(t, os.Symlink("ok.txt", filepath.Join(dir, "assets", "alias.txt")))

	site, err := NewSite(dir)
	require.NoError(t, err)

	_, err = site.OpenIn("assets", "leak.txt")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = site.OpenIn("assets", "up/index.html")
	assert.ErrorIs(t, err, ErrNotFound)

	alias, err := site.OpenIn("assets", "alias.txt")
	require.NoError(t, err)
	defer alias.Close()
	body, err := io.ReadAll(alias)
	require.NoError(t, err)
	assert.Equal(t, "fine", string(body))
}

func TestSiteOpenSymlinkLoopIsInternal(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Symlink("loop", filepath.Join(dir, "loop")))

	site, err := NewSite(dir)
	require.NoError(t, err)

	_, err = site.OpenIn(".", "loop")
	require.Error(t, err)
	assert.False(t, errdefs.IsNotFound(err))
	assert.Equal(t, 500, StatusFromError(err))
}

func TestSiteOpenPermissionDenied(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores file permissions")
	}

	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"style.css": "body{}"})
	require.NoError(t, os.Chmod(filepath.Join(dir, "style.css"), 0o000))

	site, err := NewSite(dir)
	require.NoError(t, err)

	_, err = site.OpenIn(".", "style.css")
	require.Error(t, err)
	assert.False(t, errdefs.IsNotFound(err))
	assert.Equal(t, 500, StatusFromError(err))
}

func TestValidName(t *testing.T) {
	assert.True(t, ValidName("asma.mp3"))
	assert.True(t, ValidName("sub/icon.png"))
	assert.True(t, ValidName("..hidden"))
	assert.False(t, ValidName(".."))
	assert.False(t, ValidName("a/../b"))
	assert.False(t, ValidName("sub/"))
}
