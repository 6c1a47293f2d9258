package hashutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileChecksum(t *testing.T) {
	path := filepath.Join(t.TempDir(), "robot.jar")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0644))

	sum, err := FileChecksum(path)
	require.NoError(t, err)
	assert.Equal(t, "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824", sum)

	h := New()
	_, _ = h.Write([]byte("hello"))
	assert.Equal(t, sum, Sum(h))
}

func TestFileChecksum_Missing(t *testing.T) {
	_, err := FileChecksum(filepath.Join(t.TempDir(), "missing"))
	assert.True(t, os.IsNotExist(err))
}
