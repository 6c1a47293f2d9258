// Package config loads rioship's layered configuration into an explicit
// Config value that is handed to every pipeline stage.
package config

import (
	"time"
)

// Config is the effective configuration of one rioship invocation.
type Config struct {
	Project ProjectConfig `koanf:"project" toml:"project"`
	Deploy  DeployConfig  `koanf:"deploy" toml:"deploy"`
	History HistoryConfig `koanf:"history" toml:"history"`
	Idea    IdeaConfig    `koanf:"idea" toml:"idea"`
}

// ProjectConfig locates project inputs relative to the project root.
type ProjectConfig struct {
	File            string `koanf:"file" toml:"file"`
	BuildDir        string `koanf:"build_dir" toml:"build_dir"`
	PreferencesFile string `koanf:"preferences_file" toml:"preferences_file"`
}

// DeployConfig holds defaults applied to targets that do not set them.
type DeployConfig struct {
	Workers     int           `koanf:"workers" toml:"workers"`
	Timeout     time.Duration `koanf:"timeout" toml:"timeout"`
	DeleteStale bool          `koanf:"delete_stale" toml:"delete_stale"`
	User        string        `koanf:"user" toml:"user"`
	Auth        string        `koanf:"auth" toml:"auth"`
	Transport   string        `koanf:"transport" toml:"transport"`
	Port        int           `koanf:"port" toml:"port"`
	DialTimeout time.Duration `koanf:"dial_timeout" toml:"dial_timeout"`

	// Set only from the command line.
	Team  int   `koanf:"team" toml:"-"`
	Debug *bool `koanf:"debug" toml:"-"`
}

// HistoryConfig controls the deploy run history store.
type HistoryConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Path    string `koanf:"path" toml:"path"`
	Limit   int    `koanf:"limit" toml:"limit"`
}

// IdeaConfig drives IntelliJ module generation.
type IdeaConfig struct {
	LanguageLevel string   `koanf:"language_level" toml:"language_level"`
	SourceDirs    []string `koanf:"source_dirs" toml:"source_dirs"`
	TestDirs      []string `koanf:"test_dirs" toml:"test_dirs"`
	ResourceDirs  []string `koanf:"resource_dirs" toml:"resource_dirs"`
	ExcludeDirs   []string `koanf:"exclude_dirs" toml:"exclude_dirs"`
}
