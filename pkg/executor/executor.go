package executor

import (
	"context"
	stderrors "errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
	"github.com/arthur-debert/rioship/pkg/syncplan"
	"github.com/arthur-debert/rioship/pkg/transport"
)

// Options contains configuration for the executor
type Options struct {
	Workers int
	// Timeout bounds the whole batch. Zero means no limit.
	Timeout time.Duration
	DryRun  bool
	Logger  zerolog.Logger
}

// Result summarizes an executed plan.
type Result struct {
	Uploaded int           `json:"uploaded" yaml:"uploaded"`
	Deleted  int           `json:"deleted" yaml:"deleted"`
	Bytes    int64         `json:"bytes" yaml:"bytes"`
	DryRun   bool          `json:"dry_run" yaml:"dry_run"`
	Duration time.Duration `json:"duration" yaml:"duration"`
}

// Executor runs plans against one session.
type Executor struct {
	session transport.Session
	workers int
	timeout time.Duration
	dryRun  bool
	logger  zerolog.Logger
}

// New creates a new executor. session may be nil in dry-run mode.
func New(session transport.Session, opts Options) *Executor {
	logger := opts.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = logging.GetLogger("executor")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		session: session,
		workers: workers,
		timeout: opts.Timeout,
		dryRun:  opts.DryRun,
		logger:  logger,
	}
}

// Execute uploads then deletes. In dry-run mode it only reports what the
// plan would do.
func (e *Executor) Execute(ctx context.Context, plan *syncplan.SyncPlan) (*Result, error) {
	start := time.Now()
	result := &Result{DryRun: e.dryRun}

	if e.dryRun {
		for _, u := range plan.Uploads {
			e.logger.Info().Str("local", u.Local).Str("remote", u.Remote).Msg("Would upload")
		}
		for _, d := range plan.Deletes {
			e.logger.Info().Str("remote", d).Msg("Would delete")
		}
		result.Uploaded = len(plan.Uploads)
		result.Deleted = len(plan.Deletes)
		result.Bytes = plan.Bytes()
		return result, nil
	}
	if e.session == nil {
		return nil, errors.New(errors.ErrInternal, "executor has no session")
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var uploaded, bytes atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, u := range plan.Uploads {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := e.session.Upload(gctx, u.Local, u.Remote); err != nil {
				return err
			}
			uploaded.Add(1)
			bytes.Add(u.Size)
			e.logger.Debug().Str("remote", u.Remote).Int64("bytes", u.Size).Msg("Uploaded")
			return nil
		})
	}
	err := g.Wait()
	result.Uploaded = int(uploaded.Load())
	result.Bytes = bytes.Load()
	if err != nil {
		result.Duration = time.Since(start)
		return result, e.classify(ctx, err, "upload failed")
	}

	for _, d := range plan.Deletes {
		err := ctx.Err()
		if err == nil {
			err = e.session.Delete(ctx, d)
		}
		if err != nil {
			result.Duration = time.Since(start)
			return result, e.classify(ctx, err, "delete failed")
		}
		result.Deleted++
		e.logger.Debug().Str("remote", d).Msg("Deleted")
	}

	result.Duration = time.Since(start)
	e.logger.Info().
		Int("uploaded", result.Uploaded).
		Int("deleted", result.Deleted).
		Int64("bytes", result.Bytes).
		Dur("duration", result.Duration).
		Msg("Plan executed")
	return result, nil
}

func (e *Executor) classify(ctx context.Context, err error, msg string) error {
	if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		e.logger.Error().Err(err).Dur("timeout", e.timeout).Msg("Transfer timed out")
		return errors.Wrapf(err, errors.ErrTransportTimeout, "transfer timed out after %s", e.timeout).
			WithDetail("timeout", e.timeout.String())
	}
	e.logger.Error().Err(err).Msg("Transfer failed")
	if errors.GetErrorCode(err) != errors.ErrUnknown {
		return err
	}
	return errors.Transport(err, "%s", msg)
}
