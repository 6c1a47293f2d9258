package testutil

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/rioship/pkg/internal/hashutil"
)

// WriteJar writes a zip archive holding entries, in name order.
func WriteJar(t *testing.T, path string, entries map[string]string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	f, err := os.Create(path)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	for _, name := range names {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(entries[name]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

// ReadArchive returns the contents of a zip archive by entry name, plus the
// entry names in archive order.
func ReadArchive(t *testing.T, path string) (map[string]string, []string) {
	t.Helper()
	r, err := zip.OpenReader(path)
	require.NoError(t, err)
	defer func() { _ = r.Close() }()

	contents := map[string]string{}
	var names []string
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, err)
		_ = rc.Close()
		contents[f.Name] = string(data)
		names = append(names, f.Name)
	}
	return contents, names
}

// Checksum returns the hex sha256 of a file.
func Checksum(t *testing.T, path string) string {
	t.Helper()
	sum, err := hashutil.FileChecksum(path)
	require.NoError(t, err)
	return sum
}
