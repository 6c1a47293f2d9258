package targets

import (
	"fmt"
	"time"
)

// AuthMode selects how a transport authenticates against a target.
type AuthMode string

const (
	AuthNone     AuthMode = "none"
	AuthPassword AuthMode = "password"
	AuthKey      AuthMode = "key"
)

// ParseAuthMode validates an auth mode string. Empty means none.
func ParseAuthMode(s string) (AuthMode, error) {
	switch AuthMode(s) {
	case "", AuthNone:
		return AuthNone, nil
	case AuthPassword, AuthKey:
		return AuthMode(s), nil
	}
	return "", fmt.Errorf("unknown auth mode %q (want none, password or key)", s)
}

// ArtifactKind distinguishes assembled bundles from plain file trees.
type ArtifactKind string

const (
	ArtifactBundle ArtifactKind = "bundle"
	ArtifactFiles  ArtifactKind = "files"
)

// ArtifactRef is one artifact deployed to a target.
type ArtifactRef struct {
	Name string       `json:"name" yaml:"name"`
	Kind ArtifactKind `json:"kind" yaml:"kind"`
	// Bundle names a bundle block, for ArtifactBundle.
	Bundle string `json:"bundle,omitempty" yaml:"bundle,omitempty"`
	// Files is the local root of a file tree, for ArtifactFiles.
	Files          string `json:"files,omitempty" yaml:"files,omitempty"`
	Directory      string `json:"directory" yaml:"directory"`
	DeleteOldFiles bool   `json:"delete_old_files" yaml:"delete_old_files"`
}

// Target is the resolved, immutable connection info of a deploy target.
type Target struct {
	Name      string        `json:"name" yaml:"name"`
	Address   string        `json:"address" yaml:"address"`
	Fallbacks []string      `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
	Port      int           `json:"port" yaml:"port"`
	Team      int           `json:"team,omitempty" yaml:"team,omitempty"`
	User      string        `json:"user" yaml:"user"`
	Auth      AuthMode      `json:"auth" yaml:"auth"`
	Password  string        `json:"-" yaml:"-"`
	KeyFile   string        `json:"key_file,omitempty" yaml:"key_file,omitempty"`
	Debug     bool          `json:"debug" yaml:"debug"`
	Transport string        `json:"transport" yaml:"transport"`
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	Artifacts []ArtifactRef `json:"artifacts" yaml:"artifacts"`
}

// Addresses returns the primary address followed by the fallbacks.
func (t Target) Addresses() []string {
	out := make([]string, 0, 1+len(t.Fallbacks))
	if t.Address != "" {
		out = append(out, t.Address)
	}
	return append(out, t.Fallbacks...)
}

// Variant is the compiled-unit variant selected by the debug flag.
func (t Target) Variant() string {
	if t.Debug {
		return "debug"
	}
	return "release"
}

func (t Target) clone() Target {
	c := t
	c.Fallbacks = append([]string(nil), t.Fallbacks...)
	c.Artifacts = append([]ArtifactRef(nil), t.Artifacts...)
	return c
}

// Definition is a target as written in the project file. Unset fields are
// filled from the lookup chain at resolve time.
type Definition struct {
	Name      string
	Address   string
	Team      *int
	Debug     *bool
	Port      int
	User      string
	Auth      AuthMode
	Password  string
	KeyFile   string
	Transport string
	Timeout   time.Duration
	Artifacts []ArtifactRef
}

// Overrides are command-line values. Zero values mean "not given".
type Overrides struct {
	Team  int
	Debug *bool
}

// Defaults fill target fields the project file leaves empty.
type Defaults struct {
	User      string
	Auth      AuthMode
	Transport string
	Port      int
	Timeout   time.Duration
}

// DeriveAddresses returns the candidate addresses of a team's controller:
// mDNS name, static team IP, then the USB address.
func DeriveAddresses(team int) []string {
	return []string{
		fmt.Sprintf("roborio-%d-frc.local", team),
		fmt.Sprintf("10.%d.%d.2", team/100, team%100),
		"172.22.11.2",
	}
}
