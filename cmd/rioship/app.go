package rioship

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arthur-debert/rioship/internal/version"
	"github.com/arthur-debert/rioship/pkg/config"
	"github.com/arthur-debert/rioship/pkg/deploy"
	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/history"
	"github.com/arthur-debert/rioship/pkg/logging"
	"github.com/arthur-debert/rioship/pkg/paths"
	"github.com/arthur-debert/rioship/pkg/preferences"
	"github.com/arthur-debert/rioship/pkg/project"
	"github.com/arthur-debert/rioship/pkg/targets"
	"github.com/arthur-debert/rioship/pkg/transport"
	"github.com/arthur-debert/rioship/pkg/transport/local"
	"github.com/arthur-debert/rioship/pkg/transport/ssh"
	"github.com/arthur-debert/rioship/pkg/ui"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	verbosity  int
	dryRun     bool
	format     string
	projectDir string
	team       int
	debug      bool
	release    bool
}

// app is everything a command needs, loaded once per invocation.
type app struct {
	log      zerolog.Logger
	paths    *paths.Paths
	sources  config.Sources
	config   *config.Config
	prefs    *preferences.Preferences
	project  *project.Project
	targets  *targets.Registry
	history  *history.Store
	pipeline *deploy.Pipeline
}

// overrides collects flag values that were set explicitly. Flags left at
// their defaults must not shadow lower config layers.
func (g *globalFlags) overrides(cmd *cobra.Command) map[string]interface{} {
	out := make(map[string]interface{})
	flags := cmd.Flags()
	if flags.Changed("team") {
		out["deploy.team"] = g.team
	}
	if flags.Changed("debug") {
		out["deploy.debug"] = g.debug
	}
	if flags.Changed("release") {
		out["deploy.debug"] = !g.release
	}
	if flags.Changed("delete-stale") {
		v, _ := flags.GetBool("delete-stale")
		out["deploy.delete_stale"] = v
	}
	if flags.Changed("timeout") {
		v, _ := flags.GetDuration("timeout")
		out["deploy.timeout"] = v.String()
	}
	if flags.Changed("workers") {
		v, _ := flags.GetInt("workers")
		out["deploy.workers"] = v
	}
	return out
}

// loadConfig resolves paths and the layered configuration. It is enough for
// commands that do not touch the project file.
func loadConfig(cmd *cobra.Command, g *globalFlags) (*app, error) {
	a := &app{log: logging.GetLogger("cli")}

	p, err := paths.New(g.projectDir)
	if err != nil {
		return nil, fmt.Errorf(MsgErrInitPaths, err)
	}
	a.paths = p
	if p.UsedFallback() {
		a.log.Debug().Str("dir", p.ProjectDir()).Msg("No project marker found, using working directory")
	}

	a.sources = config.Sources{
		UserFile:    p.UserConfigFile(),
		ProjectFile: p.ConfigFile(),
		Overrides:   g.overrides(cmd),
	}
	a.log.Debug().Str("sources", a.sources.Describe()).Msg("Loading configuration")
	cfg, err := config.Load(a.sources)
	if err != nil {
		return nil, err
	}
	a.config = cfg

	prefs, err := preferences.Load(p.Resolve(cfg.Project.PreferencesFile))
	if err != nil {
		return nil, err
	}
	a.prefs = prefs
	return a, nil
}

// loadApp additionally loads the project file, registers its targets and
// builds the pipeline.
func loadApp(cmd *cobra.Command, g *globalFlags) (*app, error) {
	a, err := loadConfig(cmd, g)
	if err != nil {
		return nil, err
	}
	cfg := a.config

	projectFile := a.paths.Resolve(cfg.Project.File)
	if _, err := os.Stat(projectFile); err != nil {
		return nil, errors.MissingConfiguration(MsgErrNoProject, projectFile).WithDetail("path", projectFile)
	}

	overrides := targets.Overrides{Team: cfg.Deploy.Team, Debug: cfg.Deploy.Debug}
	team := overrides.Team
	if team == 0 {
		team, _ = a.prefs.Team()
	}
	proj, err := project.Load(projectFile, project.Options{
		Dir:      a.paths.ProjectDir(),
		BuildDir: cfg.Project.BuildDir,
		Team:     team,
	})
	if err != nil {
		return nil, err
	}
	a.project = proj

	auth, err := targets.ParseAuthMode(cfg.Deploy.Auth)
	if err != nil {
		return nil, err
	}
	a.targets = targets.NewRegistry(a.prefs, overrides, targets.Defaults{
		User:      cfg.Deploy.User,
		Auth:      auth,
		Transport: cfg.Deploy.Transport,
		Port:      cfg.Deploy.Port,
		Timeout:   cfg.Deploy.Timeout,
	})
	if err := proj.RegisterTargets(a.targets); err != nil {
		return nil, err
	}

	providers, err := transport.NewProviders(
		ssh.New(ssh.Options{DialTimeout: cfg.Deploy.DialTimeout}),
		local.New(),
	)
	if err != nil {
		return nil, err
	}

	a.pipeline = &deploy.Pipeline{
		Config:     cfg,
		Project:    proj,
		Targets:    a.targets,
		Transports: providers,
		CreatedBy:  "rioship " + version.Version,
	}
	return a, nil
}

// openHistory opens the run history store when it is enabled.
func (a *app) openHistory() error {
	if !a.config.History.Enabled || a.history != nil {
		return nil
	}
	path := a.config.History.Path
	if path == "" {
		path = a.paths.HistoryPath()
	} else {
		path = a.paths.Resolve(path)
	}
	store, err := history.Open(path)
	if err != nil {
		return err
	}
	a.history = store
	if a.pipeline != nil {
		a.pipeline.History = store
	}
	return nil
}

func (a *app) Close() {
	if a.history == nil {
		return
	}
	if err := a.history.Close(); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close history store")
	}
}

// renderer builds the output renderer selected by --format.
func (g *globalFlags) renderer(cmd *cobra.Command) (ui.Renderer, error) {
	format, err := ui.ParseFormat(g.format)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrInvalidInput, "invalid --format")
	}
	return ui.NewRenderer(format, cmd.OutOrStdout())
}

func elapsed(run *deploy.Run) time.Duration {
	if run.Finished.IsZero() {
		return 0
	}
	return run.Finished.Sub(run.Started)
}
