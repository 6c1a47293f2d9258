// Package transport defines how files reach a deploy target. Providers are
// registered by name and selected by the target's transport setting.
package transport

import (
	"context"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/registry"
	"github.com/arthur-debert/rioship/pkg/targets"
)

// Session is an open connection to one target. Remote paths are absolute
// and slash-separated.
type Session interface {
	// List returns every regular file below root. A missing root lists as
	// empty.
	List(ctx context.Context, root string) ([]string, error)
	// Upload copies a local file to remote, creating parent directories.
	Upload(ctx context.Context, local, remote string) error
	// Delete removes a remote file. Deleting a missing file succeeds.
	Delete(ctx context.Context, remote string) error
	Close() error
}

// Transport opens sessions to targets.
type Transport interface {
	Name() string
	Connect(ctx context.Context, target targets.Target) (Session, error)
}

// Providers is the set of transports available to a run.
type Providers struct {
	reg registry.Registry[Transport]
}

// NewProviders registers the given transports under their names.
func NewProviders(transports ...Transport) (*Providers, error) {
	p := &Providers{reg: registry.New[Transport]("transport")}
	for _, t := range transports {
		if err := p.reg.Register(t.Name(), t); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Register adds a transport.
func (p *Providers) Register(t Transport) error {
	return p.reg.Register(t.Name(), t)
}

// Names lists registered transports.
func (p *Providers) Names() []string {
	return p.reg.Names()
}

// Get returns the named transport.
func (p *Providers) Get(name string) (Transport, error) {
	return p.reg.Get(name)
}

// Connect opens a session with the transport the target asks for.
func (p *Providers) Connect(ctx context.Context, target targets.Target) (Session, error) {
	t, err := p.reg.Get(target.Transport)
	if err != nil {
		return nil, errors.Transport(err, "target %q uses unknown transport %q", target.Name, target.Transport).
			WithDetail("target", target.Name)
	}
	return t.Connect(ctx, target)
}
