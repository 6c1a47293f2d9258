// Package assembler collects compiled units into one deployable bundle: a
// jar archive whose manifest names the configured main entry point.
package assembler

import (
	"archive/zip"
	"context"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/internal/hashutil"
	"github.com/arthur-debert/rioship/pkg/logging"
)

// Unit variants. An empty variant is part of every build.
const (
	VariantDebug   = "debug"
	VariantRelease = "release"
)

// entryTime is stamped on every bundle entry so identical inputs produce
// identical bundles.
var entryTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// CompiledUnit is one build output: a class directory, an archive or a
// single file.
type CompiledUnit struct {
	Name    string `json:"name" yaml:"name"`
	Path    string `json:"path" yaml:"path"`
	Variant string `json:"variant,omitempty" yaml:"variant,omitempty"`
}

// Spec describes a bundle to assemble.
type Spec struct {
	Name      string
	Output    string
	MainEntry string
	Sources   []CompiledUnit
	// Manifest holds extra manifest attributes.
	Manifest  map[string]string
	CreatedBy string
}

// SelectVariant keeps units without a variant plus those of the debug or
// release variant, preserving order.
func SelectVariant(units []CompiledUnit, debug bool) []CompiledUnit {
	want := VariantRelease
	if debug {
		want = VariantDebug
	}
	out := make([]CompiledUnit, 0, len(units))
	for _, u := range units {
		if u.Variant == "" || u.Variant == want {
			out = append(out, u)
		}
	}
	return out
}

// entrySource locates the content of one bundle entry.
type entrySource struct {
	unit    string
	file    string // plain file on disk
	archive string // archive holding the entry
	member  string // entry name inside archive
}

// Assemble writes the bundle described by spec and returns its Artifact.
// Later sources override earlier ones on duplicate paths; entries keep the
// order in which their path was first seen.
func Assemble(ctx context.Context, spec Spec) (*Artifact, error) {
	log := logging.GetLogger("assembler").With().Str("bundle", spec.Name).Logger()
	done := logging.LogOperationStart(log, "assemble")
	defer done()

	if spec.Name == "" || spec.Output == "" {
		return nil, errors.Assembly("bundle needs a name and an output path")
	}
	if spec.MainEntry == "" {
		return nil, errors.Assembly("bundle %q has no main entry", spec.Name).WithDetail("bundle", spec.Name)
	}
	if len(spec.Sources) == 0 {
		return nil, errors.Assembly("bundle %q has no compiled units", spec.Name).WithDetail("bundle", spec.Name)
	}
	manifest := Manifest{MainClass: spec.MainEntry, CreatedBy: spec.CreatedBy, Extra: spec.Manifest}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	sources := make(map[string]entrySource)
	var order []string
	add := func(name string, src entrySource) {
		if _, seen := sources[name]; !seen {
			order = append(order, name)
		} else {
			log.Trace().Str("entry", name).Str("unit", src.unit).Msg("Overriding duplicate entry")
		}
		sources[name] = src
	}

	for _, unit := range spec.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := collect(unit, add); err != nil {
			return nil, err
		}
	}

	checksum, size, err := writeBundle(ctx, spec.Output, manifest, order, sources)
	if err != nil {
		return nil, err
	}

	entries := append([]string{ManifestPath}, order...)
	log.Info().Str("output", spec.Output).Int("entries", len(entries)).Int64("bytes", size).Msg("Bundle assembled")

	return &Artifact{
		Name:      spec.Name,
		Path:      spec.Output,
		MainEntry: spec.MainEntry,
		Manifest:  manifest,
		Entries:   entries,
		Checksum:  checksum,
		Size:      size,
	}, nil
}

func collect(unit CompiledUnit, add func(string, entrySource)) error {
	info, err := os.Stat(unit.Path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrAssembly, "compiled unit %q is missing", unit.Name).
			WithDetail("unit", unit.Name).WithDetail("path", unit.Path)
	}

	switch {
	case info.IsDir():
		return collectDir(unit, add)
	case isArchive(unit.Path):
		return collectArchive(unit, add)
	case info.Mode().IsRegular():
		add(filepath.Base(unit.Path), entrySource{unit: unit.Name, file: unit.Path})
		return nil
	}
	return errors.Assembly("compiled unit %q is not a file or directory", unit.Name).WithDetail("path", unit.Path)
}

func collectDir(unit CompiledUnit, add func(string, entrySource)) error {
	err := filepath.WalkDir(unit.Path, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		}
		rel, err := filepath.Rel(unit.Path, path)
		if err != nil {
			return err
		}
		name := filepath.ToSlash(rel)
		if isSourceMetadata(name) {
			return nil
		}
		add(name, entrySource{unit: unit.Name, file: path})
		return nil
	})
	if err != nil {
		return errors.Wrapf(err, errors.ErrAssembly, "failed to read compiled unit %q", unit.Name).
			WithDetail("unit", unit.Name)
	}
	return nil
}

func collectArchive(unit CompiledUnit, add func(string, entrySource)) error {
	r, err := zip.OpenReader(unit.Path)
	if err != nil {
		return errors.Wrapf(err, errors.ErrAssembly, "compiled unit %q is not a valid archive", unit.Name).
			WithDetail("unit", unit.Name).WithDetail("path", unit.Path)
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") || isSourceMetadata(f.Name) {
			continue
		}
		add(f.Name, entrySource{unit: unit.Name, archive: unit.Path, member: f.Name})
	}
	return nil
}

func isArchive(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jar", ".zip":
		return true
	}
	return false
}

// writeBundle streams the bundle to a temp file next to output and renames
// it into place once complete.
func writeBundle(ctx context.Context, output string, manifest Manifest, order []string, sources map[string]entrySource) (string, int64, error) {
	dir := filepath.Dir(output)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, errors.Wrapf(err, errors.ErrAssembly, "failed to create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(output)+"-*.tmp")
	if err != nil {
		return "", 0, errors.Wrapf(err, errors.ErrAssembly, "failed to create temp bundle in %s", dir)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	hash := hashutil.New()
	counter := &countingWriter{}
	zw := zip.NewWriter(io.MultiWriter(tmp, hash, counter))

	if err := writeEntry(zw, ManifestPath, func(w io.Writer) error {
		_, err := w.Write(manifest.Bytes())
		return err
	}); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrAssembly, "failed to write manifest")
	}

	archives := newArchiveCache()
	defer archives.close()

	for _, name := range order {
		if err := ctx.Err(); err != nil {
			return "", 0, err
		}
		src := sources[name]
		if err := writeEntry(zw, name, func(w io.Writer) error {
			return copySource(w, src, archives)
		}); err != nil {
			return "", 0, errors.Wrapf(err, errors.ErrAssembly, "failed to write entry %s from %q", name, src.unit).
				WithDetail("unit", src.unit)
		}
	}

	if err := zw.Close(); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrAssembly, "failed to finish bundle")
	}
	if err := tmp.Sync(); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrAssembly, "failed to flush bundle")
	}
	if err := tmp.Close(); err != nil {
		return "", 0, errors.Wrap(err, errors.ErrAssembly, "failed to close bundle")
	}
	if err := os.Rename(tmp.Name(), output); err != nil {
		_ = os.Remove(tmp.Name())
		committed = true
		return "", 0, errors.Wrapf(err, errors.ErrAssembly, "failed to move bundle to %s", output)
	}
	committed = true

	return hashutil.Sum(hash), counter.n, nil
}

func writeEntry(zw *zip.Writer, name string, fill func(io.Writer) error) error {
	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     name,
		Method:   zip.Deflate,
		Modified: entryTime,
	})
	if err != nil {
		return err
	}
	return fill(w)
}

func copySource(w io.Writer, src entrySource, archives *archiveCache) error {
	if src.file != "" {
		f, err := os.Open(src.file)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		_, err = io.Copy(w, f)
		return err
	}

	r, err := archives.open(src.archive)
	if err != nil {
		return err
	}
	rc, err := r.Open(src.member)
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()
	_, err = io.Copy(w, rc)
	return err
}

type archiveCache struct {
	readers map[string]*zip.ReadCloser
}

func newArchiveCache() *archiveCache {
	return &archiveCache{readers: make(map[string]*zip.ReadCloser)}
}

func (c *archiveCache) open(path string) (*zip.ReadCloser, error) {
	if r, ok := c.readers[path]; ok {
		return r, nil
	}
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	c.readers[path] = r
	return r, nil
}

func (c *archiveCache) close() {
	for _, r := range c.readers {
		_ = r.Close()
	}
}

type countingWriter struct{ n int64 }

func (c *countingWriter) Write(p []byte) (int, error) {
	c.n += int64(len(p))
	return len(p), nil
}

// Artifact is an assembled bundle. It is consumed exactly once by a deploy.
type Artifact struct {
	Name      string   `json:"name" yaml:"name"`
	Path      string   `json:"path" yaml:"path"`
	MainEntry string   `json:"main_entry" yaml:"main_entry"`
	Manifest  Manifest `json:"-" yaml:"-"`
	Entries   []string `json:"entries" yaml:"entries"`
	Checksum  string   `json:"sha256" yaml:"sha256"`
	Size      int64    `json:"size" yaml:"size"`

	mu       sync.Mutex
	consumed bool
}

// Verify checks that the bundle file still exists and matches its checksum.
func (a *Artifact) Verify() error {
	got, err := hashutil.FileChecksum(a.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(err, errors.ErrAssembly, "bundle %q is missing", a.Name).WithDetail("path", a.Path)
		}
		return errors.Wrapf(err, errors.ErrAssembly, "failed to read bundle %q", a.Name)
	}
	if got != a.Checksum {
		return errors.Assembly("bundle %q changed since it was assembled", a.Name).
			WithDetail("expected", a.Checksum).WithDetail("actual", got)
	}
	return nil
}

// Consume marks the artifact as deployed. It fails if the artifact was
// already consumed or the bundle no longer matches what was assembled.
func (a *Artifact) Consume() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.consumed {
		return errors.Assembly("bundle %q was already consumed by a deploy", a.Name).WithDetail("bundle", a.Name)
	}
	if err := a.Verify(); err != nil {
		return err
	}
	a.consumed = true
	return nil
}

// Consumed reports whether Consume has succeeded.
func (a *Artifact) Consumed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.consumed
}

// Discard removes the bundle file. A missing file is not an error.
func (a *Artifact) Discard() error {
	if err := os.Remove(a.Path); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, errors.ErrAssembly, "failed to discard bundle %q", a.Name)
	}
	return nil
}
