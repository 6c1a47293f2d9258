package deploy

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/arthur-debert/rioship/pkg/assembler"
	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/executor"
	"github.com/arthur-debert/rioship/pkg/history"
	"github.com/arthur-debert/rioship/pkg/syncplan"
)

// State is the lifecycle state of a deploy run.
type State string

const (
	StateIdle       State = "Idle"
	StateAssembling State = "Assembling"
	StateResolving  State = "Resolving"
	StateSyncing    State = "Syncing"
	StateComplete   State = "Complete"
	StateFailed     State = "Failed"
)

// next lists the legal successors of each non-terminal state.
var next = map[State]State{
	StateIdle:       StateAssembling,
	StateAssembling: StateResolving,
	StateResolving:  StateSyncing,
	StateSyncing:    StateComplete,
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == StateComplete || s == StateFailed
}

func isAllowedTransition(from, to State) bool {
	if from.IsTerminal() {
		return false
	}
	return to == StateFailed || next[from] == to
}

// Transition records one state change.
type Transition struct {
	From State     `json:"from" yaml:"from"`
	To   State     `json:"to" yaml:"to"`
	At   time.Time `json:"at" yaml:"at"`
}

// Run is one invocation of the deploy pipeline against one target.
type Run struct {
	ID          string
	Target      string
	DryRun      bool
	Started     time.Time
	Finished    time.Time
	Transitions []Transition
	Artifacts   []*assembler.Artifact
	Plan        *syncplan.SyncPlan
	Result      *executor.Result
	Err         error

	mu    sync.Mutex
	state State
	now   func() time.Time
}

// NewRun creates an idle run with a fresh ID.
func NewRun(target string, dryRun bool) *Run {
	return newRun(target, dryRun, time.Now)
}

func newRun(target string, dryRun bool, now func() time.Time) *Run {
	return &Run{
		ID:      uuid.NewString(),
		Target:  target,
		DryRun:  dryRun,
		Started: now(),
		state:   StateIdle,
		now:     now,
	}
}

// State returns the current state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Transition moves the run to the given state, rejecting illegal moves.
func (r *Run) Transition(to State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	from := r.state
	if !isAllowedTransition(from, to) {
		return errors.Newf(errors.ErrInvalidTransition, "run %s cannot move from %s to %s", r.ID, from, to).
			WithDetail("from", string(from)).WithDetail("to", string(to))
	}
	at := r.now()
	r.state = to
	r.Transitions = append(r.Transitions, Transition{From: from, To: to, At: at})
	if to.IsTerminal() {
		r.Finished = at
	}
	return nil
}

// Fail moves the run to Failed and keeps the cause. It returns err for
// convenient use in return statements.
func (r *Run) Fail(err error) error {
	if err == nil {
		err = errors.New(errors.ErrInternal, "run failed without a cause")
	}
	if tErr := r.Transition(StateFailed); tErr != nil {
		return tErr
	}
	r.Err = err
	return err
}

// Record converts a finished run for the history store.
func (r *Run) Record() history.Record {
	rec := history.Record{
		ID:       r.ID,
		Target:   r.Target,
		State:    string(r.State()),
		DryRun:   r.DryRun,
		Started:  r.Started,
		Finished: r.Finished,
	}
	for _, a := range r.Artifacts {
		rec.Artifacts = append(rec.Artifacts, a.Name)
	}
	if r.Result != nil {
		rec.Uploaded = r.Result.Uploaded
		rec.Deleted = r.Result.Deleted
		rec.Bytes = r.Result.Bytes
	}
	if r.Err != nil {
		rec.Error = r.Err.Error()
		rec.ErrorCode = string(errors.GetErrorCode(r.Err))
	}
	return rec
}
