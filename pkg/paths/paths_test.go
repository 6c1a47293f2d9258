package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_ExplicitDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvDataDir, filepath.Join(dir, "data"))
	t.Setenv(EnvConfigDir, filepath.Join(dir, "config"))

	p, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, dir, p.ProjectDir())
	assert.False(t, p.UsedFallback())
	assert.Equal(t, filepath.Join(dir, "deploy.hcl"), p.ProjectFile())
	assert.Equal(t, filepath.Join(dir, "rioship.toml"), p.ConfigFile())
	assert.Equal(t, filepath.Join(dir, "data", "history.db"), p.HistoryPath())
	assert.Equal(t, filepath.Join(dir, "config", "config.toml"), p.UserConfigFile())
}

func TestNew_FindsMarkerUpward(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "deploy.hcl"), []byte(""), 0644))
	nested := filepath.Join(root, "src", "main", "java")
	require.NoError(t, os.MkdirAll(nested, 0755))

	t.Setenv(EnvProjectDir, "")
	t.Chdir(nested)

	p, err := New("")
	require.NoError(t, err)

	resolved, err := filepath.EvalSymlinks(p.ProjectDir())
	require.NoError(t, err)
	want, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)
	assert.Equal(t, want, resolved)
	assert.False(t, p.UsedFallback())
}

func TestNew_EnvProjectDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(EnvProjectDir, dir)

	p, err := New("")
	require.NoError(t, err)
	assert.Equal(t, dir, p.ProjectDir())
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	p, err := New(dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "build", "libs"), p.Resolve("build/libs"))
	assert.Equal(t, "/abs/path", p.Resolve("/abs/path"))
}
