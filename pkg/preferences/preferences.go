// Package preferences reads the WPILib project preferences file, the local
// key-value store that carries the team number and debug mode of a checkout.
package preferences

import (
	"os"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
)

const (
	keyTeamNumber = "teamNumber"
	keyDebug      = "debug"
)

// Preferences is a read-only view of the preferences file. The zero value
// holds no keys.
type Preferences struct {
	k    *koanf.Koanf
	path string
}

// Load reads the preferences file at path. A missing file yields empty
// preferences, since most lookups fall through to other sources anyway.
func Load(path string) (*Preferences, error) {
	log := logging.GetLogger("preferences")
	k := koanf.New(".")
	p := &Preferences{k: k, path: path}

	if path == "" {
		return p, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			log.Debug().Str("path", path).Msg("No preferences file")
			return p, nil
		}
		return nil, errors.Wrapf(err, errors.ErrConfigLoad, "failed to stat preferences %s", path)
	}

	if err := k.Load(file.Provider(path), json.Parser()); err != nil {
		return nil, errors.Wrapf(err, errors.ErrConfigParse, "failed to parse preferences %s", path)
	}
	log.Debug().Str("path", path).Strs("keys", k.Keys()).Msg("Loaded preferences")
	return p, nil
}

// FromMap builds preferences from in-memory values.
func FromMap(values map[string]interface{}) *Preferences {
	k := koanf.New(".")
	for key, v := range values {
		_ = k.Set(key, v)
	}
	return &Preferences{k: k}
}

// Path is the file the preferences came from, if any.
func (p *Preferences) Path() string {
	if p == nil {
		return ""
	}
	return p.path
}

// Team returns the stored team number. Non-positive numbers count as unset.
func (p *Preferences) Team() (int, bool) {
	if p == nil || p.k == nil || !p.k.Exists(keyTeamNumber) {
		return 0, false
	}
	team := p.k.Int(keyTeamNumber)
	if team <= 0 {
		return 0, false
	}
	return team, true
}

// DebugMode returns the stored debug flag.
func (p *Preferences) DebugMode() (bool, bool) {
	if p == nil || p.k == nil || !p.k.Exists(keyDebug) {
		return false, false
	}
	return p.k.Bool(keyDebug), true
}
