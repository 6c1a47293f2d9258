// Package targets maps logical deploy targets to connection parameters.
//
// Team number and debug mode are looked up in order: command line, project
// file, preferences file. A target with an explicit address needs no team.
package targets

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
	"github.com/arthur-debert/rioship/pkg/preferences"
	"github.com/arthur-debert/rioship/pkg/registry"
)

// Registry holds target definitions and resolves them into Targets.
type Registry struct {
	defs      registry.Registry[Definition]
	prefs     *preferences.Preferences
	overrides Overrides
	defaults  Defaults

	mu    sync.Mutex
	locks map[string]chan struct{}
}

// NewRegistry creates an empty registry. prefs may be nil.
func NewRegistry(prefs *preferences.Preferences, overrides Overrides, defaults Defaults) *Registry {
	return &Registry{
		defs:      registry.New[Definition]("target"),
		prefs:     prefs,
		overrides: overrides,
		defaults:  defaults,
		locks:     make(map[string]chan struct{}),
	}
}

// Register adds a target definition.
func (r *Registry) Register(def Definition) error {
	if def.Auth != "" {
		if _, err := ParseAuthMode(string(def.Auth)); err != nil {
			return errors.Wrapf(err, errors.ErrInvalidInput, "target %q", def.Name)
		}
	}
	for _, a := range def.Artifacts {
		if a.Kind != ArtifactBundle && a.Kind != ArtifactFiles {
			return errors.Newf(errors.ErrInvalidInput, "target %q: artifact %q has unknown kind %q", def.Name, a.Name, a.Kind)
		}
	}
	def.Artifacts = append([]ArtifactRef(nil), def.Artifacts...)
	if err := r.defs.Register(def.Name, def); err != nil {
		return err
	}
	log := logging.GetLogger("targets")
	log.Debug().Str("target", def.Name).Msg("Registered target")
	return nil
}

// Names lists registered targets in registration order.
func (r *Registry) Names() []string {
	return r.defs.Names()
}

// Definition returns the registered definition of a target.
func (r *Registry) Definition(name string) (Definition, bool) {
	def, err := r.defs.Get(name)
	if err != nil {
		return Definition{}, false
	}
	def.Artifacts = append([]ArtifactRef(nil), def.Artifacts...)
	return def, true
}

// Has reports whether a target is registered.
func (r *Registry) Has(name string) bool {
	return r.defs.Has(name)
}

// Resolve returns the connection info of a registered target. Each call
// returns a fresh copy computed from the same inputs.
func (r *Registry) Resolve(name string) (Target, error) {
	def, err := r.defs.Get(name)
	if err != nil {
		return Target{}, errors.UnknownTarget(name)
	}

	t := Target{
		Name:      def.Name,
		Address:   def.Address,
		Port:      firstInt(def.Port, r.defaults.Port, 22),
		User:      firstString(def.User, r.defaults.User),
		Auth:      AuthMode(firstString(string(def.Auth), string(r.defaults.Auth), string(AuthNone))),
		Password:  def.Password,
		KeyFile:   def.KeyFile,
		Transport: firstString(def.Transport, r.defaults.Transport, "ssh"),
		Timeout:   def.Timeout,
		Debug:     r.debugFor(def),
		Artifacts: def.Artifacts,
	}
	if t.Timeout <= 0 {
		t.Timeout = r.defaults.Timeout
	}

	team, hasTeam := r.teamFor(def)
	if hasTeam {
		t.Team = team
	}
	if t.Address == "" {
		if !hasTeam {
			return Target{}, errors.MissingConfiguration(
				"target %q has no address and no team number: pass --team, set team in the project file, or set teamNumber in the preferences file", name).
				WithDetail("target", name)
		}
		candidates := DeriveAddresses(team)
		t.Address = candidates[0]
		t.Fallbacks = candidates[1:]
	}
	if t.Auth == AuthKey && t.KeyFile == "" {
		return Target{}, errors.MissingConfiguration("target %q uses key auth but sets no key_file", name).
			WithDetail("target", name)
	}

	return t.clone(), nil
}

// Debug returns the effective debug flag of a target. Unknown targets fall
// back to the command line and preferences.
func (r *Registry) Debug(name string) bool {
	def, _ := r.defs.Get(name)
	return r.debugFor(def)
}

// Team returns the team number a target resolves to, if any.
func (r *Registry) Team(name string) (int, bool) {
	def, _ := r.defs.Get(name)
	return r.teamFor(def)
}

func (r *Registry) teamFor(def Definition) (int, bool) {
	if r.overrides.Team > 0 {
		return r.overrides.Team, true
	}
	if def.Team != nil && *def.Team > 0 {
		return *def.Team, true
	}
	return r.prefs.Team()
}

func (r *Registry) debugFor(def Definition) bool {
	if r.overrides.Debug != nil {
		return *r.overrides.Debug
	}
	if def.Debug != nil {
		return *def.Debug
	}
	if debug, ok := r.prefs.DebugMode(); ok {
		return debug
	}
	return false
}

// Acquire blocks until no other operation holds the named target, or ctx is
// done. The returned func releases the target and is safe to call twice.
func (r *Registry) Acquire(ctx context.Context, name string) (func(), error) {
	if !r.defs.Has(name) {
		return nil, errors.UnknownTarget(name)
	}

	r.mu.Lock()
	lock, ok := r.locks[name]
	if !ok {
		lock = make(chan struct{}, 1)
		r.locks[name] = lock
	}
	r.mu.Unlock()

	select {
	case lock <- struct{}{}:
	case <-ctx.Done():
		if stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errors.Wrapf(ctx.Err(), errors.ErrTransportTimeout, "timed out waiting for target %q", name)
		}
		return nil, fmt.Errorf("waiting for target %q: %w", name, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() { <-lock })
	}, nil
}

func firstString(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
