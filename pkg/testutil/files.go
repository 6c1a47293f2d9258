package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// WriteFile writes content to path, creating parent directories.
func WriteFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// CreateFile creates a file with the given content in dir.
func CreateFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(dir, filepath.FromSlash(name)), content)
}

// CreateTree creates each slash-separated path under root, using the
// path itself as content.
func CreateTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		CreateFile(t, root, f, f)
	}
}

// CreateSymlink creates link pointing to target.
func CreateSymlink(t *testing.T, target, link string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(link), 0755))
	require.NoError(t, os.Symlink(target, link))
}

// ReadFile returns the content of path.
func ReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(content)
}

// AssertFileContent checks that path exists with the expected content.
func AssertFileContent(t *testing.T, path, expected string) {
	t.Helper()
	content, err := os.ReadFile(path)
	if assert.NoError(t, err, "reading %s", path) {
		assert.Equal(t, expected, string(content), "content of %s", path)
	}
}

// AssertNoFile checks that path does not exist.
func AssertNoFile(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err), "%s exists but should not", path)
}
