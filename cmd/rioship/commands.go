package rioship

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/arthur-debert/rioship/internal/version"
	"github.com/arthur-debert/rioship/pkg/assembler"
	"github.com/arthur-debert/rioship/pkg/config"
	"github.com/arthur-debert/rioship/pkg/deploy"
	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/idea"
	"github.com/arthur-debert/rioship/pkg/targets"
	"github.com/arthur-debert/rioship/pkg/ui/display"
)

// targetNamesCompletion completes target names from the project file
func targetNamesCompletion(g *globalFlags) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		a, err := loadApp(cmd, g)
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}
		return a.targets.Names(), cobra.ShellCompDirectiveNoFileComp
	}
}

func newBuildCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "build [bundle...]",
		Short:   MsgBuildShort,
		Long:    MsgBuildLong,
		GroupID: "core",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, g)
			if err != nil {
				return err
			}
			artifacts, err := a.pipeline.Build(cmd.Context(), args...)
			if err != nil {
				return fmt.Errorf(MsgErrBuild, err)
			}
			r, err := g.renderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderResult(buildResult(artifacts))
		},
	}
}

func newDeployCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "deploy <target>",
		Short:             MsgDeployShort,
		Long:              MsgDeployLong,
		Example:           MsgDeployExample,
		GroupID:           "core",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: targetNamesCompletion(g),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd, g, args[0], g.dryRun)
		},
	}
	addDeployFlags(cmd)
	return cmd
}

func newPlanCmd(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:               "plan <target>",
		Short:             MsgPlanShort,
		Long:              MsgPlanLong,
		GroupID:           "core",
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: targetNamesCompletion(g),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, g)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.openHistory(); err != nil {
				return err
			}
			run, err := a.pipeline.Plan(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf(MsgErrDeploy, args[0], err)
			}
			r, err := g.renderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderResult(&display.PlanResult{Target: run.Target, Plan: run.Plan})
		},
	}
	addDeployFlags(cmd)
	return cmd
}

func addDeployFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("delete-stale", false, MsgFlagDeleteStale)
	cmd.Flags().Duration("timeout", 0, MsgFlagTimeout)
	cmd.Flags().Int("workers", 0, MsgFlagWorkers)
}

func runPipeline(cmd *cobra.Command, g *globalFlags, target string, dryRun bool) error {
	a, err := loadApp(cmd, g)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openHistory(); err != nil {
		return err
	}

	a.log.Info().Str("target", target).Bool("dry_run", dryRun).Msg("Deploying")
	run, runErr := a.pipeline.Deploy(cmd.Context(), target, dryRun)

	r, err := g.renderer(cmd)
	if err != nil {
		return err
	}
	if err := r.RenderResult(runResult(run)); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf(MsgErrDeploy, target, runErr)
	}
	return nil
}

func newTargetsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "targets",
		Short:   MsgTargetsShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, g)
			if err != nil {
				return err
			}
			result := &display.TargetsResult{}
			for _, name := range a.targets.Names() {
				result.Targets = append(result.Targets, targetInfo(a.targets, name))
			}
			r, err := g.renderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderResult(result)
		},
	}
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:     "history [target]",
		Short:   MsgHistoryShort,
		GroupID: "core",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if !a.config.History.Enabled {
				return errors.New(errors.ErrMissingConfig, MsgErrHistoryDisabled)
			}
			defer a.Close()
			if err := a.openHistory(); err != nil {
				return err
			}
			target := ""
			if len(args) == 1 {
				target = args[0]
			}
			if !cmd.Flags().Changed("limit") {
				limit = a.config.History.Limit
			}
			runs, err := a.history.List(target, limit)
			if err != nil {
				return err
			}
			r, err := g.renderer(cmd)
			if err != nil {
				return err
			}
			return r.RenderResult(&display.HistoryResult{Runs: runs})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, MsgFlagLimit)
	return cmd
}

func newIdeaCmd(g *globalFlags) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:     "idea",
		Short:   MsgIdeaShort,
		Long:    MsgIdeaLong,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if name == "" {
				name = filepath.Base(a.paths.ProjectDir())
			}
			ic := a.config.Idea
			path, changed, err := idea.Write(a.paths.ProjectDir(), idea.Options{
				Name:          name,
				LanguageLevel: ic.LanguageLevel,
				SourceDirs:    ic.SourceDirs,
				TestDirs:      ic.TestDirs,
				ResourceDirs:  ic.ResourceDirs,
				ExcludeDirs:   ic.ExcludeDirs,
			})
			if err != nil {
				return err
			}
			r, err := g.renderer(cmd)
			if err != nil {
				return err
			}
			msg := fmt.Sprintf(MsgIdeaUnchanged, path)
			if changed {
				msg = fmt.Sprintf(MsgIdeaWritten, path)
			}
			return r.RenderResult(&display.MessageResult{Message: msg})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", MsgFlagModuleName)
	return cmd
}

func newConfigCmd(g *globalFlags) *cobra.Command {
	var initFile bool
	cmd := &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		Long:    MsgConfigLong,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadConfig(cmd, g)
			if err != nil {
				return err
			}
			if initFile {
				path := a.paths.ConfigFile()
				if _, err := os.Stat(path); err == nil {
					return errors.Newf(errors.ErrAlreadyExists, MsgErrConfigExists, path).WithDetail("path", path)
				}
				if err := os.WriteFile(path, config.Template(), 0644); err != nil {
					return errors.Wrapf(err, errors.ErrInternal, "failed to write %s", path)
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), MsgConfigWritten, path)
				return err
			}
			out, err := a.config.TOML()
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&initFile, "init", false, MsgFlagConfigInit)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "rioship version %s\n", version.Version)
			_, _ = fmt.Fprintf(out, "  commit: %s\n", version.Commit)
			_, _ = fmt.Fprintf(out, "  built:  %s\n", version.Date)
		},
	}
}

func newCompletionCmd() *cobra.Command {
	return &cobra.Command{
		Use:                   "completion [bash|zsh|fish|powershell]",
		Short:                 MsgCompletionShort,
		Long:                  MsgCompletionLong,
		GroupID:               "misc",
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletionV2(out, true)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			default:
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
		},
	}
}

func buildResult(artifacts []*assembler.Artifact) *display.BuildResult {
	result := &display.BuildResult{}
	for _, a := range artifacts {
		result.Bundles = append(result.Bundles, display.BundleInfo{
			Name:      a.Name,
			Path:      a.Path,
			MainEntry: a.MainEntry,
			Entries:   len(a.Entries),
			Size:      a.Size,
			Checksum:  a.Checksum,
		})
	}
	return result
}

func runResult(run *deploy.Run) *display.RunResult {
	rec := run.Record()
	result := &display.RunResult{
		ID:       rec.ID,
		Target:   rec.Target,
		State:    rec.State,
		DryRun:   rec.DryRun,
		Duration: elapsed(run).Round(time.Millisecond),
		Bundles:  rec.Artifacts,
		Uploaded: rec.Uploaded,
		Deleted:  rec.Deleted,
		Bytes:    rec.Bytes,
		Error:    rec.Error,
	}
	if run.DryRun {
		result.Plan = run.Plan
	}
	return result
}

func targetInfo(reg *targets.Registry, name string) display.TargetInfo {
	info := display.TargetInfo{Name: name}
	t, err := reg.Resolve(name)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	info.Transport = t.Transport
	info.Addresses = t.Addresses()
	info.Team = t.Team
	info.Debug = t.Debug
	for _, ref := range t.Artifacts {
		if ref.Kind == targets.ArtifactBundle {
			info.Artifacts = append(info.Artifacts, ref.Bundle)
		} else {
			info.Artifacts = append(info.Artifacts, ref.Files+" -> "+ref.Directory)
		}
	}
	return info
}
