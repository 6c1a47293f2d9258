// Package deploy runs the build-and-deploy pipeline:
// Idle -> Assembling -> Resolving -> Syncing -> Complete, or Failed from
// any stage. Each stage is all-or-nothing and nothing is retried.
package deploy

import (
	"context"
	stderrors "errors"
	"sort"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/rioship/pkg/assembler"
	"github.com/arthur-debert/rioship/pkg/config"
	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/executor"
	"github.com/arthur-debert/rioship/pkg/history"
	"github.com/arthur-debert/rioship/pkg/logging"
	"github.com/arthur-debert/rioship/pkg/project"
	"github.com/arthur-debert/rioship/pkg/syncplan"
	"github.com/arthur-debert/rioship/pkg/targets"
	"github.com/arthur-debert/rioship/pkg/transport"
)

// Pipeline holds everything a run needs. Nothing here is process-global.
type Pipeline struct {
	Config     *config.Config
	Project    *project.Project
	Targets    *targets.Registry
	Transports *transport.Providers
	// History is optional.
	History   *history.Store
	CreatedBy string
}

// Build assembles the named bundles, or every bundle when names is empty.
// The variant follows the command line and preferences debug setting.
func (p *Pipeline) Build(ctx context.Context, names ...string) ([]*assembler.Artifact, error) {
	debug := p.Targets.Debug("")
	if len(names) == 0 {
		for _, b := range p.Project.Bundles {
			names = append(names, b.Name)
		}
	}

	var artifacts []*assembler.Artifact
	for _, name := range names {
		bundle, ok := p.Project.Bundle(name)
		if !ok {
			return nil, errors.Newf(errors.ErrNotFound, "no bundle named %q in %s", name, p.Project.File).
				WithDetail("bundle", name)
		}
		a, err := assembler.Assemble(ctx, bundle.Spec(debug, p.CreatedBy))
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}
	return artifacts, nil
}

// Deploy runs the full pipeline against the named target. The returned run
// is terminal; err is the cause when it Failed.
func (p *Pipeline) Deploy(ctx context.Context, targetName string, dryRun bool) (*Run, error) {
	run := NewRun(targetName, dryRun)
	err := p.execute(ctx, run)
	p.record(run)
	return run, err
}

// Plan runs the pipeline in dry-run mode and returns the computed plan.
func (p *Pipeline) Plan(ctx context.Context, targetName string) (*Run, error) {
	return p.Deploy(ctx, targetName, true)
}

func (p *Pipeline) execute(ctx context.Context, run *Run) error {
	log := logging.ForRun(logging.GetLogger("deploy"), run.ID, run.Target)
	log.Info().Bool("dry_run", run.DryRun).Msg("Deploy started")

	// Assembling
	if err := run.Transition(StateAssembling); err != nil {
		return err
	}
	// Bundles are written to shared paths; hold the target from assembly on.
	if p.Targets.Has(run.Target) {
		release, err := p.Targets.Acquire(ctx, run.Target)
		if err != nil {
			return run.Fail(err)
		}
		defer release()
	}
	done := logging.LogOperationStart(log, "assemble")
	debug := p.Targets.Debug(run.Target)
	bundles := make(map[string]*assembler.Artifact)
	// An unknown target has no bundles; it fails in Resolving.
	def, _ := p.Targets.Definition(run.Target)
	for _, ref := range def.Artifacts {
		if ref.Kind != targets.ArtifactBundle || bundles[ref.Bundle] != nil {
			continue
		}
		b, ok := p.Project.Bundle(ref.Bundle)
		if !ok {
			return run.Fail(errors.Assembly("target %q references unknown bundle %q", run.Target, ref.Bundle))
		}
		a, err := assembler.Assemble(ctx, b.Spec(debug, p.CreatedBy))
		if err != nil {
			log.Error().Err(err).Str("bundle", b.Name).Msg("Assembly failed")
			return run.Fail(err)
		}
		bundles[b.Name] = a
	}
	done()

	// Resolving
	if err := run.Transition(StateResolving); err != nil {
		return err
	}
	target, err := p.Targets.Resolve(run.Target)
	if err != nil {
		log.Error().Err(err).Msg("Target resolution failed")
		return run.Fail(err)
	}
	for _, a := range bundles {
		run.Artifacts = append(run.Artifacts, a)
	}
	sort.Slice(run.Artifacts, func(i, j int) bool { return run.Artifacts[i].Name < run.Artifacts[j].Name })

	// The timeout bounds everything that talks to the target.
	if target.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, target.Timeout)
		defer cancel()
	}

	var session transport.Session
	if !run.DryRun || p.needsListing(target) {
		session, err = p.Transports.Connect(ctx, target)
		if err != nil {
			err = timedOut(ctx, target, err)
			log.Error().Err(err).Msg("Connection failed")
			return run.Fail(err)
		}
		defer func() {
			if cerr := session.Close(); cerr != nil {
				log.Warn().Err(cerr).Msg("Failed to close session")
			}
		}()
	}

	// Syncing
	if err := run.Transition(StateSyncing); err != nil {
		return err
	}
	plan, err := p.plan(ctx, session, target, bundles)
	if err != nil {
		err = timedOut(ctx, target, err)
		log.Error().Err(err).Msg("Planning failed")
		return run.Fail(err)
	}
	run.Plan = plan

	exec := executor.New(session, executor.Options{
		Workers: p.Config.Deploy.Workers,
		Timeout: target.Timeout,
		DryRun:  run.DryRun,
		Logger:  log,
	})
	result, err := exec.Execute(ctx, plan)
	run.Result = result
	if err != nil {
		return run.Fail(err)
	}

	// Complete
	if !run.DryRun {
		if err := p.consume(log, run); err != nil {
			return run.Fail(err)
		}
	}
	if err := run.Transition(StateComplete); err != nil {
		return err
	}
	log.Info().
		Int("uploaded", result.Uploaded).
		Int("deleted", result.Deleted).
		Dur("duration", run.Finished.Sub(run.Started)).
		Msg("Deploy complete")
	return nil
}

// timedOut reports err as TRANSPORT_TIMEOUT when the run's deadline expired.
func timedOut(ctx context.Context, target targets.Target, err error) error {
	if !stderrors.Is(ctx.Err(), context.DeadlineExceeded) || errors.IsErrorCode(err, errors.ErrTransportTimeout) {
		return err
	}
	return errors.Wrapf(err, errors.ErrTransportTimeout, "target %q timed out after %s", target.Name, target.Timeout).
		WithDetail("timeout", target.Timeout.String())
}

func (p *Pipeline) deleteStale(ref targets.ArtifactRef) bool {
	return ref.DeleteOldFiles || p.Config.Deploy.DeleteStale
}

func (p *Pipeline) needsListing(target targets.Target) bool {
	for _, ref := range target.Artifacts {
		if ref.Kind == targets.ArtifactFiles && p.deleteStale(ref) {
			return true
		}
	}
	return false
}

func (p *Pipeline) plan(ctx context.Context, session transport.Session, target targets.Target, bundles map[string]*assembler.Artifact) (*syncplan.SyncPlan, error) {
	var lister syncplan.Lister
	if session != nil {
		lister = session
	}
	planner := syncplan.NewPlanner(lister)

	plans := make([]*syncplan.SyncPlan, 0, len(target.Artifacts))
	for _, ref := range target.Artifacts {
		switch ref.Kind {
		case targets.ArtifactBundle:
			a, ok := bundles[ref.Bundle]
			if !ok {
				return nil, errors.Assembly("target %q needs bundle %q, which was not assembled", target.Name, ref.Bundle)
			}
			plan, err := syncplan.PlanFile(a.Path, ref.Directory)
			if err != nil {
				return nil, err
			}
			plans = append(plans, plan)
		case targets.ArtifactFiles:
			plan, err := planner.Plan(ctx, ref.Files, ref.Directory, p.deleteStale(ref))
			if err != nil {
				return nil, err
			}
			plans = append(plans, plan)
		}
	}
	return syncplan.Merge(plans...)
}

func (p *Pipeline) consume(log zerolog.Logger, run *Run) error {
	for _, a := range run.Artifacts {
		if err := a.Consume(); err != nil {
			return err
		}
		if b, ok := p.Project.Bundle(a.Name); ok && b.DiscardAfterDeploy {
			if err := a.Discard(); err != nil {
				log.Warn().Err(err).Str("bundle", a.Name).Msg("Failed to discard bundle")
			}
		}
	}
	return nil
}

func (p *Pipeline) record(run *Run) {
	if p.History == nil {
		return
	}
	if err := p.History.Add(run.Record()); err != nil {
		log := logging.GetLogger("deploy")
		log.Warn().Err(err).Str("run", run.ID).Msg("Failed to record run history")
	}
}
