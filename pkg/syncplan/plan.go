// Package syncplan computes the file operations that bring a remote deploy
// directory in line with a local build output.
package syncplan

import (
	"context"
	stderrors "errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
)

// Transfer copies one local file to one remote path.
type Transfer struct {
	Local  string `json:"local" yaml:"local"`
	Remote string `json:"remote" yaml:"remote"`
	Size   int64  `json:"size" yaml:"size"`
}

// SyncPlan is computed fresh for every deploy and never persisted.
type SyncPlan struct {
	LocalRoot   string     `json:"local_root,omitempty" yaml:"local_root,omitempty"`
	RemoteRoot  string     `json:"remote_root,omitempty" yaml:"remote_root,omitempty"`
	DeleteStale bool       `json:"delete_stale" yaml:"delete_stale"`
	Uploads     []Transfer `json:"uploads" yaml:"uploads"`
	Deletes     []string   `json:"deletes" yaml:"deletes"`
}

// Empty reports whether the plan does nothing.
func (p *SyncPlan) Empty() bool {
	return len(p.Uploads) == 0 && len(p.Deletes) == 0
}

// Bytes is the total size of all uploads.
func (p *SyncPlan) Bytes() int64 {
	var n int64
	for _, u := range p.Uploads {
		n += u.Size
	}
	return n
}

// Lister enumerates the regular files below a remote root, as absolute
// slash-separated paths.
type Lister interface {
	List(ctx context.Context, root string) ([]string, error)
}

// Planner computes plans against one remote. The lister is only used when
// stale files are to be deleted.
type Planner struct {
	lister Lister
}

// NewPlanner creates a planner. lister may be nil if no plan deletes.
func NewPlanner(lister Lister) *Planner {
	return &Planner{lister: lister}
}

// Plan pairs every regular file below localRoot with remoteRoot/<rel>. With
// deleteStale it also deletes each remote file missing locally; without it
// the remote is never listed.
func (p *Planner) Plan(ctx context.Context, localRoot, remoteRoot string, deleteStale bool) (*SyncPlan, error) {
	log := logging.GetLogger("syncplan")

	remoteRoot, err := cleanRemoteRoot(remoteRoot)
	if err != nil {
		return nil, err
	}
	plan := &SyncPlan{
		LocalRoot:   localRoot,
		RemoteRoot:  remoteRoot,
		DeleteStale: deleteStale,
		Uploads:     []Transfer{},
		Deletes:     []string{},
	}

	info, err := os.Stat(localRoot)
	if err != nil {
		if os.IsNotExist(err) {
			// an empty enumeration would delete everything under remoteRoot
			if deleteStale {
				return nil, errors.Newf(errors.ErrInvalidInput,
					"local root %s does not exist; refusing to delete stale files under %s", localRoot, remoteRoot).
					WithDetail("local", localRoot)
			}
			log.Warn().Str("local", localRoot).Msg("Local root does not exist, nothing to sync")
			return plan, nil
		}
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to read %s", localRoot)
	}
	if !info.IsDir() {
		return nil, errors.Newf(errors.ErrInvalidInput, "local root %s is not a directory", localRoot)
	}

	uploads, err := enumerate(localRoot, remoteRoot)
	if err != nil {
		return nil, err
	}
	plan.Uploads = uploads

	if !deleteStale {
		return plan, nil
	}

	if p.lister == nil {
		return nil, errors.New(errors.ErrInternal, "deleting stale files needs a remote lister")
	}
	remote, err := p.lister.List(ctx, remoteRoot)
	if err != nil {
		return nil, err
	}

	local := make(map[string]bool, len(uploads))
	for _, u := range uploads {
		local[u.Remote] = true
	}
	for _, r := range remote {
		r = path.Clean(r)
		if !within(remoteRoot, r) {
			log.Warn().Str("remote", r).Str("root", remoteRoot).Msg("Ignoring listed file outside remote root")
			continue
		}
		if !local[r] {
			plan.Deletes = append(plan.Deletes, r)
		}
	}
	sort.Strings(plan.Deletes)

	log.Debug().
		Str("local", localRoot).
		Str("remote", remoteRoot).
		Int("uploads", len(plan.Uploads)).
		Int("deletes", len(plan.Deletes)).
		Msg("Plan computed")
	return plan, nil
}

// PlanFile uploads a single file into remoteDir under its base name.
func PlanFile(localFile, remoteDir string) (*SyncPlan, error) {
	remoteDir, err := cleanRemoteRoot(remoteDir)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(localFile)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to read %s", localFile)
	}
	if !info.Mode().IsRegular() {
		return nil, errors.Newf(errors.ErrInvalidInput, "%s is not a regular file", localFile)
	}
	return &SyncPlan{
		RemoteRoot: remoteDir,
		Uploads: []Transfer{{
			Local:  localFile,
			Remote: path.Join(remoteDir, filepath.Base(localFile)),
			Size:   info.Size(),
		}},
		Deletes: []string{},
	}, nil
}

func enumerate(localRoot, remoteRoot string) ([]Transfer, error) {
	realRoot, err := filepath.EvalSymlinks(localRoot)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to resolve %s", localRoot)
	}

	var uploads []Transfer
	err = filepath.WalkDir(localRoot, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localRoot, p)
		if err != nil {
			return err
		}
		if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			return outsideRoot(p, localRoot)
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		if d.Type()&fs.ModeSymlink != 0 {
			target, err := filepath.EvalSymlinks(p)
			if err != nil {
				return errors.Wrapf(err, errors.ErrInvalidInput, "broken symlink %s", p)
			}
			if !withinLocal(realRoot, target) {
				return outsideRoot(p, localRoot).WithDetail("target", target)
			}
			info, err = os.Stat(target)
			if err != nil {
				return err
			}
			if info.IsDir() {
				// directory links are not followed
				return nil
			}
		}
		if !info.Mode().IsRegular() {
			return nil
		}

		remote := path.Join(remoteRoot, filepath.ToSlash(rel))
		if !within(remoteRoot, remote) {
			return outsideRoot(p, localRoot).WithDetail("remote", remote)
		}
		uploads = append(uploads, Transfer{Local: p, Remote: remote, Size: info.Size()})
		return nil
	})
	if err != nil {
		var rioErr *errors.RioError
		if stderrors.As(err, &rioErr) {
			return nil, rioErr
		}
		return nil, errors.Wrapf(err, errors.ErrInvalidInput, "failed to enumerate %s", localRoot)
	}

	sort.Slice(uploads, func(i, j int) bool { return uploads[i].Remote < uploads[j].Remote })
	return uploads, nil
}

func outsideRoot(p, root string) *errors.RioError {
	return errors.Newf(errors.ErrPlanOutsideRoot, "%s resolves outside %s", p, root).WithDetail("path", p)
}

func cleanRemoteRoot(root string) (string, error) {
	if root == "" {
		return "", errors.New(errors.ErrInvalidInput, "remote directory cannot be empty")
	}
	if !strings.HasPrefix(root, "/") {
		return "", errors.Newf(errors.ErrInvalidInput, "remote directory %q must be absolute", root)
	}
	return path.Clean(root), nil
}

// within reports whether the slash path p lies strictly below root.
func within(root, p string) bool {
	if root == "/" {
		return p != "/" && strings.HasPrefix(p, "/")
	}
	return strings.HasPrefix(p, root+"/")
}

func withinLocal(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}
