package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name      string
		verbosity int
		wantLevel zerolog.Level
	}{
		{"default warn level", 0, zerolog.WarnLevel},
		{"info level", 1, zerolog.InfoLevel},
		{"debug level", 2, zerolog.DebugLevel},
		{"trace level", 3, zerolog.TraceLevel},
		{"high verbosity defaults to trace", 5, zerolog.TraceLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stateDir := t.TempDir()
			t.Setenv(EnvStateDir, stateDir)

			SetupLogger(tt.verbosity)

			assert.Equal(t, tt.wantLevel, zerolog.GlobalLevel())
			_, err := os.Stat(filepath.Join(stateDir, "rioship.log"))
			assert.NoError(t, err, "log file should be created")
		})
	}
}

func TestLogFilePath(t *testing.T) {
	t.Run("explicit state dir", func(t *testing.T) {
		t.Setenv(EnvStateDir, "/custom/state")
		assert.Equal(t, filepath.Join("/custom/state", "rioship.log"), LogFilePath())
	})

	t.Run("xdg state home", func(t *testing.T) {
		t.Setenv(EnvStateDir, "")
		t.Setenv("XDG_STATE_HOME", "/xdg/state")
		assert.Equal(t, filepath.Join("/xdg/state", "rioship", "rioship.log"), LogFilePath())
	})
}

func TestForRun(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	logger := ForRun(base, "run-1", "roborio")
	logger.Error().Msg("boom")

	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), `"run":"run-1"`)
	assert.Contains(t, buf.String(), `"target":"roborio"`)
}
