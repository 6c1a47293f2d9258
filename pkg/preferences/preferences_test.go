package preferences

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wpilib_preferences.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
  "enableCppIntellisense": false,
  "currentLanguage": "java",
  "projectYear": "2024",
  "teamNumber": 1234,
  "debug": true
}`), 0644))

	prefs, err := Load(path)
	require.NoError(t, err)

	team, ok := prefs.Team()
	assert.True(t, ok)
	assert.Equal(t, 1234, team)

	debug, ok := prefs.DebugMode()
	assert.True(t, ok)
	assert.True(t, debug)
	assert.Equal(t, path, prefs.Path())
}

func TestLoad_MissingFile(t *testing.T) {
	prefs, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)

	_, ok := prefs.Team()
	assert.False(t, ok)
	_, ok = prefs.DebugMode()
	assert.False(t, ok)
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"teamNumber": `), 0644))

	_, err := Load(path)
	assert.True(t, errors.IsErrorCode(err, errors.ErrConfigParse))
}

func TestTeam_NonPositiveIsUnset(t *testing.T) {
	_, ok := FromMap(map[string]interface{}{"teamNumber": -1}).Team()
	assert.False(t, ok)

	var nilPrefs *Preferences
	_, ok = nilPrefs.Team()
	assert.False(t, ok)
}
