// Package project loads deploy.hcl, the project file declaring the bundles
// a build assembles and the targets they deploy to.
package project

import (
	"path/filepath"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/arthur-debert/rioship/pkg/assembler"
	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/logging"
	"github.com/arthur-debert/rioship/pkg/targets"
)

// Bundle is a bundle block with paths resolved against the project dir.
type Bundle struct {
	Name      string
	MainEntry string
	Output    string
	Manifest  map[string]string
	Units     []assembler.CompiledUnit
	// DiscardAfterDeploy removes the bundle file once a deploy consumed it.
	DiscardAfterDeploy bool
}

// Spec builds the assembler input for the given build variant.
func (b Bundle) Spec(debug bool, createdBy string) assembler.Spec {
	return assembler.Spec{
		Name:      b.Name,
		Output:    b.Output,
		MainEntry: b.MainEntry,
		Sources:   assembler.SelectVariant(b.Units, debug),
		Manifest:  b.Manifest,
		CreatedBy: createdBy,
	}
}

// Project is a loaded deploy.hcl.
type Project struct {
	Dir     string
	File    string
	Bundles []Bundle
	Targets []targets.Definition
}

// Options control how a project file is evaluated.
type Options struct {
	// Dir is the project root. Defaults to the file's directory.
	Dir string
	// BuildDir holds default bundle outputs, relative to Dir.
	BuildDir string
	// Team is exposed to expressions as `team`; zero means null.
	Team int
	// Env replaces the process environment as `env`.
	Env map[string]string
}

// Load parses and validates the project file at path.
func Load(path string, opts Options) (*Project, error) {
	log := logging.GetLogger("project")

	dir := opts.Dir
	if dir == "" {
		dir = filepath.Dir(path)
	}
	buildDir := opts.BuildDir
	if buildDir == "" {
		buildDir = "build"
	}
	env := opts.Env
	if env == nil {
		env = environ()
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, errors.ErrConfigParse, "failed to parse project file %s", path)
	}

	var parsed hclProjectFile
	diags = gohcl.DecodeBody(file.Body, evalContext(dir, opts.Team, env), &parsed)
	if diags.HasErrors() {
		return nil, errors.Wrapf(diags, errors.ErrConfigParse, "failed to decode project file %s", path)
	}

	p := &Project{Dir: dir, File: path}
	for _, b := range parsed.Bundles {
		bundle, err := convertBundle(b, dir, buildDir)
		if err != nil {
			return nil, err
		}
		if _, exists := p.Bundle(bundle.Name); exists {
			return nil, errors.Newf(errors.ErrInvalidInput, "bundle %q is declared twice", bundle.Name)
		}
		p.Bundles = append(p.Bundles, bundle)
	}

	seen := make(map[string]bool)
	for _, t := range parsed.Targets {
		if seen[t.Name] {
			return nil, errors.Newf(errors.ErrInvalidInput, "target %q is declared twice", t.Name)
		}
		seen[t.Name] = true
		def, err := p.convertTarget(t)
		if err != nil {
			return nil, err
		}
		p.Targets = append(p.Targets, def)
	}

	log.Debug().
		Str("file", path).
		Int("bundles", len(p.Bundles)).
		Int("targets", len(p.Targets)).
		Msg("Project loaded")
	return p, nil
}

// Bundle looks up a bundle by name.
func (p *Project) Bundle(name string) (Bundle, bool) {
	for _, b := range p.Bundles {
		if b.Name == name {
			return b, true
		}
	}
	return Bundle{}, false
}

// Target looks up a target definition by name.
func (p *Project) Target(name string) (targets.Definition, bool) {
	for _, t := range p.Targets {
		if t.Name == name {
			return t, true
		}
	}
	return targets.Definition{}, false
}

// RegisterTargets adds every target to reg.
func (p *Project) RegisterTargets(reg *targets.Registry) error {
	for _, t := range p.Targets {
		if err := reg.Register(t); err != nil {
			return err
		}
	}
	return nil
}

func convertBundle(b *hclBundle, dir, buildDir string) (Bundle, error) {
	if b.MainEntry == "" {
		return Bundle{}, errors.Newf(errors.ErrInvalidInput, "bundle %q: main_entry cannot be empty", b.Name)
	}
	out := Bundle{
		Name:      b.Name,
		MainEntry: b.MainEntry,
		Output:    resolve(dir, str(b.Output)),
		Manifest:  b.Manifest,
	}
	if b.Discard != nil {
		out.DiscardAfterDeploy = *b.Discard
	}
	if out.Output == "" {
		out.Output = filepath.Join(resolve(dir, buildDir), "libs", b.Name+".jar")
	}
	for _, u := range b.Units {
		variant := str(u.Variant)
		switch variant {
		case "", assembler.VariantDebug, assembler.VariantRelease:
		default:
			return Bundle{}, errors.Newf(errors.ErrInvalidInput,
				"bundle %q: unit %q has unknown variant %q (want debug or release)", b.Name, u.Name, variant)
		}
		out.Units = append(out.Units, assembler.CompiledUnit{
			Name:    u.Name,
			Path:    resolve(dir, u.Path),
			Variant: variant,
		})
	}
	return out, nil
}

func (p *Project) convertTarget(t *hclTarget) (targets.Definition, error) {
	auth, err := targets.ParseAuthMode(str(t.Auth))
	if err != nil {
		return targets.Definition{}, errors.Wrapf(err, errors.ErrInvalidInput, "target %q", t.Name)
	}
	if t.Auth == nil {
		auth = ""
	}

	def := targets.Definition{
		Name:      t.Name,
		Address:   str(t.Address),
		Team:      t.Team,
		Debug:     t.Debug,
		User:      str(t.User),
		Auth:      auth,
		Password:  str(t.Password),
		KeyFile:   resolve(p.Dir, str(t.KeyFile)),
		Transport: str(t.Transport),
	}
	if t.Port != nil {
		def.Port = *t.Port
	}
	if t.Timeout != nil {
		d, err := time.ParseDuration(*t.Timeout)
		if err != nil || d <= 0 {
			return targets.Definition{}, errors.Newf(errors.ErrInvalidInput, "target %q: invalid timeout %q", t.Name, *t.Timeout)
		}
		def.Timeout = d
	}

	for _, a := range t.Artifacts {
		ref := targets.ArtifactRef{Name: a.Name, Directory: a.Directory}
		if a.DeleteOldFiles != nil {
			ref.DeleteOldFiles = *a.DeleteOldFiles
		}
		switch {
		case a.Bundle != nil && a.Files != nil:
			return targets.Definition{}, errors.Newf(errors.ErrInvalidInput,
				"target %q: artifact %q sets both bundle and files", t.Name, a.Name)
		case a.Bundle != nil:
			if _, ok := p.Bundle(*a.Bundle); !ok {
				return targets.Definition{}, errors.Newf(errors.ErrInvalidInput,
					"target %q: artifact %q references unknown bundle %q", t.Name, a.Name, *a.Bundle)
			}
			ref.Kind = targets.ArtifactBundle
			ref.Bundle = *a.Bundle
		case a.Files != nil:
			ref.Kind = targets.ArtifactFiles
			ref.Files = resolve(p.Dir, *a.Files)
		default:
			return targets.Definition{}, errors.Newf(errors.ErrInvalidInput,
				"target %q: artifact %q needs bundle or files", t.Name, a.Name)
		}
		def.Artifacts = append(def.Artifacts, ref)
	}
	return def, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
