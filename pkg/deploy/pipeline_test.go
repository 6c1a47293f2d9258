package deploy

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/arthur-debert/rioship/pkg/config"
	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/history"
	"github.com/arthur-debert/rioship/pkg/preferences"
	"github.com/arthur-debert/rioship/pkg/project"
	"github.com/arthur-debert/rioship/pkg/targets"
	"github.com/arthur-debert/rioship/pkg/testutil"
	"github.com/arthur-debert/rioship/pkg/transport"
	"github.com/arthur-debert/rioship/pkg/transport/local"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simProject = `
bundle "robot" {
  main_entry = "frc.robot.Main"
  unit "classes" {
    path = "build/classes"
  }
}

target "sim" {
  address   = env.SIM_ROOT
  transport = "local"

  artifact "frcJava" {
    bundle    = "robot"
    directory = "/home/lvuser"
  }

  artifact "frcStaticFileDeploy" {
    files            = "src/main/deploy"
    directory        = "/home/lvuser/deploy"
    delete_old_files = env.DELETE_OLD == "true"
  }
}

target "stalled-list" {
  address   = env.SIM_ROOT
  transport = "stalled-list"
  timeout   = "20ms"

  artifact "frcStaticFileDeploy" {
    files            = "src/main/deploy"
    directory        = "/home/lvuser/deploy"
    delete_old_files = true
  }
}

target "stalled-connect" {
  address   = env.SIM_ROOT
  transport = "stalled-connect"
  timeout   = "20ms"

  artifact "frcStaticFileDeploy" {
    files     = "src/main/deploy"
    directory = "/home/lvuser/deploy"
  }
}

target "slow" {
  address   = env.SIM_ROOT
  transport = "slow"
  timeout   = "20ms"

  artifact "frcStaticFileDeploy" {
    files     = "src/main/deploy"
    directory = "/home/lvuser/deploy"
  }
}
`

type fixture struct {
	dir      string
	simRoot  string
	pipeline *Pipeline
}

func newFixture(t *testing.T, deleteOld bool, extra ...transport.Transport) *fixture {
	t.Helper()
	dir := t.TempDir()
	simRoot := filepath.Join(t.TempDir(), "sim")

	testutil.WriteFile(t, filepath.Join(dir, "deploy.hcl"), simProject)
	testutil.WriteFile(t, filepath.Join(dir, "build/classes/frc/robot/Main.class"), "main")
	testutil.WriteFile(t, filepath.Join(dir, "src/main/deploy/a.txt"), "a")
	testutil.WriteFile(t, filepath.Join(dir, "src/main/deploy/b/c.txt"), "c")

	env := map[string]string{"SIM_ROOT": simRoot, "DELETE_OLD": "false"}
	if deleteOld {
		env["DELETE_OLD"] = "true"
	}
	proj, err := project.Load(filepath.Join(dir, "deploy.hcl"), project.Options{Env: env})
	require.NoError(t, err)

	cfg, err := config.Load(config.Sources{})
	require.NoError(t, err)

	reg := targets.NewRegistry(preferences.FromMap(nil), targets.Overrides{}, targets.Defaults{
		Transport: cfg.Deploy.Transport,
		Timeout:   cfg.Deploy.Timeout,
	})
	require.NoError(t, proj.RegisterTargets(reg))

	providers, err := transport.NewProviders(append([]transport.Transport{local.New()}, extra...)...)
	require.NoError(t, err)

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return &fixture{
		dir:     dir,
		simRoot: simRoot,
		pipeline: &Pipeline{
			Config:     cfg,
			Project:    proj,
			Targets:    reg,
			Transports: providers,
			History:    store,
			CreatedBy:  "rioship test",
		},
	}
}

func (f *fixture) remoteFiles(t *testing.T) []string {
	t.Helper()
	var files []string
	_ = filepath.Walk(f.simRoot, func(p string, info os.FileInfo, err error) error {
		if err == nil && info.Mode().IsRegular() {
			rel, _ := filepath.Rel(f.simRoot, p)
			files = append(files, "/"+filepath.ToSlash(rel))
		}
		return nil
	})
	return files
}

func TestDeploy_Success(t *testing.T) {
	f := newFixture(t, false)

	run, err := f.pipeline.Deploy(context.Background(), "sim", false)
	require.NoError(t, err)

	assert.Equal(t, StateComplete, run.State())
	assert.Equal(t, []string{
		"/home/lvuser/deploy/a.txt",
		"/home/lvuser/deploy/b/c.txt",
		"/home/lvuser/robot.jar",
	}, f.remoteFiles(t))
	assert.Equal(t, 3, run.Result.Uploaded)

	require.Len(t, run.Artifacts, 1)
	assert.True(t, run.Artifacts[0].Consumed())

	records, err := f.pipeline.History.List("sim", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Complete", records[0].State)
	assert.Equal(t, []string{"robot"}, records[0].Artifacts)

	var states []State
	for _, tr := range run.Transitions {
		states = append(states, tr.To)
	}
	assert.Equal(t, []State{StateAssembling, StateResolving, StateSyncing, StateComplete}, states)
}

func TestDeploy_UnknownTarget(t *testing.T) {
	f := newFixture(t, false)

	run, err := f.pipeline.Deploy(context.Background(), "nope", false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrUnknownTarget))
	assert.Equal(t, StateFailed, run.State())
	assert.Nil(t, run.Plan)
	assert.Empty(t, f.remoteFiles(t))

	records, err := f.pipeline.History.List("nope", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "UNKNOWN_TARGET", records[0].ErrorCode)
}

func TestDeploy_StalePolicy(t *testing.T) {
	for _, deleteOld := range []bool{false, true} {
		f := newFixture(t, deleteOld)
		testutil.WriteFile(t, filepath.Join(f.simRoot, "home/lvuser/deploy/b/old.txt"), "old")

		_, err := f.pipeline.Deploy(context.Background(), "sim", false)
		require.NoError(t, err)

		files := f.remoteFiles(t)
		if deleteOld {
			assert.NotContains(t, files, "/home/lvuser/deploy/b/old.txt")
		} else {
			assert.Contains(t, files, "/home/lvuser/deploy/b/old.txt")
		}
	}
}

func TestDeploy_DryRun(t *testing.T) {
	f := newFixture(t, false)

	run, err := f.pipeline.Plan(context.Background(), "sim")
	require.NoError(t, err)

	assert.Equal(t, StateComplete, run.State())
	assert.True(t, run.DryRun)
	require.NotNil(t, run.Plan)
	assert.Len(t, run.Plan.Uploads, 3)
	assert.Empty(t, f.remoteFiles(t))
	assert.False(t, run.Artifacts[0].Consumed())
}

func TestDeploy_MissingUnitFailsAssembly(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, os.RemoveAll(filepath.Join(f.dir, "build/classes")))

	run, err := f.pipeline.Deploy(context.Background(), "sim", false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAssembly))
	assert.Equal(t, StateFailed, run.State())
	assert.Empty(t, f.remoteFiles(t))
}

// slowTransport hands out sessions whose uploads block until cancelled.
type slowTransport struct{}

func (slowTransport) Name() string { return "slow" }

func (slowTransport) Connect(_ context.Context, _ targets.Target) (transport.Session, error) {
	return slowSession{}, nil
}

type slowSession struct{}

func (slowSession) List(context.Context, string) ([]string, error) { return nil, nil }
func (slowSession) Upload(ctx context.Context, _, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}
func (slowSession) Delete(context.Context, string) error { return nil }
func (slowSession) Close() error                         { return nil }

func TestDeploy_Timeout(t *testing.T) {
	f := newFixture(t, false, slowTransport{})

	start := time.Now()
	run, err := f.pipeline.Deploy(context.Background(), "slow", false)
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrTransportTimeout), "got %v", err)
	assert.Equal(t, StateFailed, run.State())
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.True(t, strings.Contains(err.Error(), "timed out"))
}

// stalledTransport never answers: Connect or List blocks until the context
// is done.
type stalledTransport struct {
	name    string
	connect bool
}

func (s stalledTransport) Name() string { return s.name }

func (s stalledTransport) Connect(ctx context.Context, _ targets.Target) (transport.Session, error) {
	if s.connect {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return stalledSession{}, nil
}

type stalledSession struct{ slowSession }

func (stalledSession) List(ctx context.Context, _ string) ([]string, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestDeploy_TimeoutCoversListingAndConnect(t *testing.T) {
	f := newFixture(t, false,
		stalledTransport{name: "stalled-list"},
		stalledTransport{name: "stalled-connect", connect: true},
	)

	for _, name := range []string{"stalled-list", "stalled-connect"} {
		t.Run(name, func(t *testing.T) {
			start := time.Now()
			run, err := f.pipeline.Deploy(context.Background(), name, false)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrTransportTimeout), "got %v", err)
			assert.Equal(t, StateFailed, run.State())
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}

func TestDeploy_ConcurrentRunsShareBundleSafely(t *testing.T) {
	f := newFixture(t, false)
	f.pipeline.Project.Bundles[0].DiscardAfterDeploy = true

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 10; i++ {
		for j := 0; j < 2; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.pipeline.Deploy(context.Background(), "sim", false)
				errs <- err
			}()
		}
		wg.Wait()
	}
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Contains(t, f.remoteFiles(t), "/home/lvuser/robot.jar")
}

func TestBuild(t *testing.T) {
	f := newFixture(t, false)

	artifacts, err := f.pipeline.Build(context.Background())
	require.NoError(t, err)
	require.Len(t, artifacts, 1)
	assert.FileExists(t, artifacts[0].Path)

	_, err = f.pipeline.Build(context.Background(), "nope")
	assert.True(t, errors.IsErrorCode(err, errors.ErrNotFound))
}

func TestDeploy_HistoryFailureDoesNotFailRun(t *testing.T) {
	f := newFixture(t, false)
	require.NoError(t, f.pipeline.History.Close())

	run, err := f.pipeline.Deploy(context.Background(), "sim", false)
	require.NoError(t, err)
	assert.Equal(t, StateComplete, run.State())
}
