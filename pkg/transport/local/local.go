// Package local implements a transport whose target is a directory on this
// machine. Remote paths are rooted at the target address. Writes go through
// a synthfs pipeline over the real filesystem.
package local

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"

	"github.com/arthur-debert/synthfs/pkg/synthfs"
	"github.com/arthur-debert/synthfs/pkg/synthfs/filesystem"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
	"github.com/arthur-debert/rioship/pkg/targets"
	"github.com/arthur-debert/rioship/pkg/transport"
)

// Name is the provider name used in target definitions.
const Name = "local"

// Transport connects to directory targets.
type Transport struct{}

// New returns the local transport.
func New() *Transport { return &Transport{} }

type fsFunc func(ctx context.Context, fsys filesystem.FileSystem) error

// apply runs fn as a single custom operation.
func (t *Transport) apply(ctx context.Context, id string, fn fsFunc) error {
	sfs := synthfs.New()
	op := sfs.CustomOperationWithID(id, func(ctx context.Context, fsys filesystem.FileSystem) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return fn(ctx, fsys)
	})
	var fsys filesystem.FullFileSystem = synthfs.NewPathAwareFileSystem(filesystem.NewOSFileSystem("/"), "/").WithAbsolutePaths()
	_, err := synthfs.RunWithOptions(ctx, fsys, synthfs.DefaultPipelineOptions(), op)
	return err
}

func (t *Transport) Name() string { return Name }

// Connect uses the first target address that is an existing directory. If
// none exists the primary address is created.
func (t *Transport) Connect(ctx context.Context, target targets.Target) (transport.Session, error) {
	log := logging.GetLogger("transport.local")
	addresses := target.Addresses()
	if len(addresses) == 0 {
		return nil, errors.Transport(nil, "target %q has no address", target.Name)
	}

	for _, addr := range addresses {
		if err := ctx.Err(); err != nil {
			if stderrors.Is(err, context.DeadlineExceeded) {
				return nil, errors.Wrapf(err, errors.ErrTransportTimeout, "connecting to %q", target.Name)
			}
			return nil, err
		}
		if info, err := os.Stat(addr); err == nil && info.IsDir() {
			log.Debug().Str("target", target.Name).Str("root", addr).Msg("Connected")
			return t.newSession(addr)
		}
	}

	sess, err := t.newSession(addresses[0])
	if err != nil {
		return nil, err
	}
	err = t.apply(ctx, "mkdir-root-"+sess.root, func(_ context.Context, fsys filesystem.FileSystem) error {
		return fsys.MkdirAll(sess.root, 0755)
	})
	if err != nil {
		return nil, errors.Transport(err, "cannot create target directory %s", addresses[0]).
			WithDetail("target", target.Name)
	}
	log.Debug().Str("target", target.Name).Str("root", sess.root).Msg("Created target directory")
	return sess, nil
}

// Session maps remote paths onto a local directory.
type Session struct {
	t    *Transport
	root string
}

func (t *Transport) newSession(root string) (*Session, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Transport(err, "cannot resolve %s", root)
	}
	return &Session{t: t, root: abs}, nil
}

// Root is the directory backing the session.
func (s *Session) Root() string { return s.root }

func (s *Session) toSysPath(remote string) string {
	return filepath.Join(s.root, filepath.FromSlash(path.Clean("/"+remote)))
}

func (s *Session) List(ctx context.Context, root string) ([]string, error) {
	base := s.toSysPath(root)
	var files []string
	err := filepath.WalkDir(base, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && p == base {
				return filepath.SkipAll
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		files = append(files, "/"+filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, errors.Transport(err, "failed to list %s", root)
	}
	sort.Strings(files)
	return files, nil
}

// Upload replaces remote with the contents and permissions of local.
func (s *Session) Upload(ctx context.Context, local, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	info, err := os.Stat(local)
	if err != nil {
		return errors.Transport(err, "failed to stat %s", local)
	}
	data, err := os.ReadFile(local)
	if err != nil {
		return errors.Transport(err, "failed to read %s", local)
	}

	dest := s.toSysPath(remote)
	err = s.t.apply(ctx, "upload-"+dest, func(_ context.Context, fsys filesystem.FileSystem) error {
		if err := fsys.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		// removing first lets the new permissions apply to replaced files
		if err := fsys.Remove(dest); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return err
		}
		return fsys.WriteFile(dest, data, info.Mode().Perm())
	})
	if err != nil {
		return errors.Transport(err, "failed to write %s", remote)
	}
	return nil
}

func (s *Session) Delete(ctx context.Context, remote string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dest := s.toSysPath(remote)
	err := s.t.apply(ctx, "delete-"+dest, func(_ context.Context, fsys filesystem.FileSystem) error {
		if err := fsys.Remove(dest); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
	if err != nil {
		return errors.Transport(err, "failed to delete %s", remote)
	}
	return nil
}

func (s *Session) Close() error { return nil }
