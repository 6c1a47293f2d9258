package config

import (
	toml "github.com/pelletier/go-toml/v2"
)

// renderedDeploy mirrors DeployConfig with durations as strings so the
// output can be fed back into Load.
type renderedDeploy struct {
	Workers     int    `toml:"workers"`
	Timeout     string `toml:"timeout"`
	DeleteStale bool   `toml:"delete_stale"`
	User        string `toml:"user"`
	Auth        string `toml:"auth"`
	Transport   string `toml:"transport"`
	Port        int    `toml:"port"`
	DialTimeout string `toml:"dial_timeout"`
}

type renderedConfig struct {
	Project ProjectConfig  `toml:"project"`
	Deploy  renderedDeploy `toml:"deploy"`
	History HistoryConfig  `toml:"history"`
	Idea    IdeaConfig     `toml:"idea"`
}

// TOML renders the effective configuration.
func (c *Config) TOML() ([]byte, error) {
	return toml.Marshal(renderedConfig{
		Project: c.Project,
		Deploy: renderedDeploy{
			Workers:     c.Deploy.Workers,
			Timeout:     c.Deploy.Timeout.String(),
			DeleteStale: c.Deploy.DeleteStale,
			User:        c.Deploy.User,
			Auth:        c.Deploy.Auth,
			Transport:   c.Deploy.Transport,
			Port:        c.Deploy.Port,
			DialTimeout: c.Deploy.DialTimeout.String(),
		},
		History: c.History,
		Idea:    c.Idea,
	})
}
