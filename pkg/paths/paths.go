// Package paths provides centralized path handling for rioship.
// It locates the project root and the XDG directories used for the
// history store and user configuration.
package paths

import (
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/arthur-debert/rioship/pkg/errors"
)

// Environment variable names
const (
	// EnvProjectDir pins the project root instead of searching upward from cwd
	EnvProjectDir = "RIOSHIP_PROJECT_DIR"

	// EnvDataDir overrides the XDG data directory for rioship
	EnvDataDir = "RIOSHIP_DATA_DIR"

	// EnvConfigDir overrides the XDG config directory for rioship
	EnvConfigDir = "RIOSHIP_CONFIG_DIR"
)

// Well-known file names
const (
	AppDirName      = "rioship"
	ProjectFileName = "deploy.hcl"
	ConfigFileName  = "rioship.toml"
	UserConfigName  = "config.toml"
	HistoryFileName = "history.db"
)

// Paths resolves every location rioship reads from or writes to.
type Paths struct {
	projectDir   string
	dataDir      string
	configDir    string
	usedFallback bool
}

// New creates a Paths instance. An empty projectDir is resolved from
// RIOSHIP_PROJECT_DIR, then by searching upward from the working directory
// for deploy.hcl or rioship.toml, then falls back to the working directory.
func New(projectDir string) (*Paths, error) {
	p := &Paths{}

	if projectDir == "" {
		root, fallback, err := findProjectDir()
		if err != nil {
			return nil, err
		}
		projectDir = root
		p.usedFallback = fallback
	}

	abs, err := filepath.Abs(expandHome(projectDir))
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to get absolute path for %s", projectDir)
	}
	p.projectDir = abs

	xdg.Reload()
	p.dataDir = envOr(EnvDataDir, filepath.Join(xdg.DataHome, AppDirName))
	p.configDir = envOr(EnvConfigDir, filepath.Join(xdg.ConfigHome, AppDirName))

	return p, nil
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return expandHome(v)
	}
	return fallback
}

func findProjectDir() (string, bool, error) {
	if dir := os.Getenv(EnvProjectDir); dir != "" {
		return dir, false, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", false, errors.Wrap(err, errors.ErrInternal, "failed to get current directory")
	}

	for dir := cwd; ; {
		for _, marker := range []string{ProjectFileName, ConfigFileName} {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir, false, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return cwd, true, nil
}

func expandHome(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if len(path) == 1 {
		return home
	}
	if path[1] == '/' || path[1] == filepath.Separator {
		return filepath.Join(home, path[2:])
	}
	return path
}

// ProjectDir returns the absolute project root
func (p *Paths) ProjectDir() string { return p.projectDir }

// UsedFallback reports whether no project marker was found and cwd was used
func (p *Paths) UsedFallback() bool { return p.usedFallback }

// Resolve makes a project-relative path absolute. Absolute paths pass through.
func (p *Paths) Resolve(rel string) string {
	rel = expandHome(rel)
	if filepath.IsAbs(rel) {
		return filepath.Clean(rel)
	}
	return filepath.Join(p.projectDir, rel)
}

// ProjectFile returns the path to deploy.hcl
func (p *Paths) ProjectFile() string { return p.Resolve(ProjectFileName) }

// ConfigFile returns the path to the project's rioship.toml
func (p *Paths) ConfigFile() string { return p.Resolve(ConfigFileName) }

// DataDir returns the rioship data directory
func (p *Paths) DataDir() string { return p.dataDir }

// ConfigDir returns the rioship user configuration directory
func (p *Paths) ConfigDir() string { return p.configDir }

// UserConfigFile returns the per-user config.toml
func (p *Paths) UserConfigFile() string { return filepath.Join(p.configDir, UserConfigName) }

// HistoryPath returns the default location of the run history database
func (p *Paths) HistoryPath() string { return filepath.Join(p.dataDir, HistoryFileName) }
