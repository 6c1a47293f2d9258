// Package text provides plain text output without any styling
package text

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/arthur-debert/rioship/pkg/syncplan"
	"github.com/arthur-debert/rioship/pkg/ui/display"
)

// Styler decorates text fragments. The zero Styler leaves them plain.
type Styler struct {
	Title   func(string) string
	Muted   func(string) string
	Success func(string) string
	Error   func(string) string
	Warning func(string) string
	Path    func(string) string
	Upload  func(string) string
	Delete  func(string) string
	Target  func(string) string
	State   func(state string) string
}

func apply(f func(string) string, s string) string {
	if f == nil {
		return s
	}
	return f(s)
}

// Renderer provides human-readable output
type Renderer struct {
	output io.Writer
	style  Styler
}

// New creates a new plain text renderer
func New(output io.Writer) (*Renderer, error) {
	return NewStyled(output, Styler{}), nil
}

// NewStyled creates a renderer that decorates its output with s
func NewStyled(output io.Writer, s Styler) *Renderer {
	return &Renderer{output: output, style: s}
}

// RenderResult renders any result type as text
func (r *Renderer) RenderResult(result interface{}) error {
	var b strings.Builder
	switch v := result.(type) {
	case *display.BuildResult:
		r.build(&b, v)
	case *display.PlanResult:
		r.plan(&b, v.Target, v.Plan)
	case *display.RunResult:
		r.run(&b, v)
	case *display.TargetsResult:
		r.targets(&b, v)
	case *display.HistoryResult:
		r.history(&b, v)
	case *display.MessageResult:
		b.WriteString(v.Message + "\n")
	default:
		fmt.Fprintf(&b, "%+v\n", result)
	}
	_, err := io.WriteString(r.output, b.String())
	return err
}

// RenderError renders an error as plain text
func (r *Renderer) RenderError(err error) error {
	_, werr := fmt.Fprintf(r.output, "%s %v\n", apply(r.style.Error, "Error:"), err)
	return werr
}

// RenderMessage renders a simple message
func (r *Renderer) RenderMessage(msg string) error {
	_, err := fmt.Fprintln(r.output, msg)
	return err
}

func (r *Renderer) build(b *strings.Builder, v *display.BuildResult) {
	if len(v.Bundles) == 0 {
		b.WriteString(apply(r.style.Muted, "No bundles declared") + "\n")
		return
	}
	for _, bundle := range v.Bundles {
		fmt.Fprintf(b, "%s %s\n", apply(r.style.Success, "built"), apply(r.style.Title, bundle.Name))
		fmt.Fprintf(b, "  path:    %s\n", apply(r.style.Path, bundle.Path))
		fmt.Fprintf(b, "  main:    %s\n", bundle.MainEntry)
		fmt.Fprintf(b, "  entries: %d (%s)\n", bundle.Entries, HumanBytes(bundle.Size))
		fmt.Fprintf(b, "  sha256:  %s\n", apply(r.style.Muted, bundle.Checksum))
	}
}

func (r *Renderer) plan(b *strings.Builder, target string, plan *syncplan.SyncPlan) {
	if target != "" {
		fmt.Fprintf(b, "%s %s\n", apply(r.style.Title, "Plan for"), apply(r.style.Target, target))
	}
	if plan == nil || plan.Empty() {
		b.WriteString(apply(r.style.Muted, "Nothing to transfer") + "\n")
		return
	}
	for _, u := range plan.Uploads {
		fmt.Fprintf(b, "  %s %s %s %s\n",
			apply(r.style.Upload, "upload"), u.Remote, apply(r.style.Muted, "<-"), apply(r.style.Path, u.Local))
	}
	for _, d := range plan.Deletes {
		fmt.Fprintf(b, "  %s %s\n", apply(r.style.Delete, "delete"), d)
	}
	fmt.Fprintf(b, "%d uploads (%s), %d deletes\n", len(plan.Uploads), HumanBytes(plan.Bytes()), len(plan.Deletes))
}

func (r *Renderer) run(b *strings.Builder, v *display.RunResult) {
	verb := "Deploy"
	if v.DryRun {
		verb = "Dry run"
	}
	fmt.Fprintf(b, "%s to %s: %s\n", verb, apply(r.style.Target, v.Target), apply(r.style.State, v.State))
	if v.Plan != nil {
		r.plan(b, "", v.Plan)
	}
	if len(v.Bundles) > 0 {
		fmt.Fprintf(b, "  bundles:  %s\n", strings.Join(v.Bundles, ", "))
	}
	fmt.Fprintf(b, "  uploaded: %d (%s)\n", v.Uploaded, HumanBytes(v.Bytes))
	fmt.Fprintf(b, "  deleted:  %d\n", v.Deleted)
	fmt.Fprintf(b, "  took:     %s\n", v.Duration.Round(time.Millisecond))
	fmt.Fprintf(b, "  run:      %s\n", apply(r.style.Muted, v.ID))
	if v.Error != "" {
		fmt.Fprintf(b, "  %s %s\n", apply(r.style.Error, "error:"), v.Error)
	}
}

func (r *Renderer) targets(b *strings.Builder, v *display.TargetsResult) {
	if len(v.Targets) == 0 {
		b.WriteString(apply(r.style.Muted, "No targets declared") + "\n")
		return
	}
	for _, t := range v.Targets {
		fmt.Fprintf(b, "%s\n", apply(r.style.Target, t.Name))
		if t.Error != "" {
			fmt.Fprintf(b, "  %s %s\n", apply(r.style.Warning, "unresolved:"), t.Error)
			continue
		}
		mode := "release"
		if t.Debug {
			mode = "debug"
		}
		fmt.Fprintf(b, "  transport: %s (%s)\n", t.Transport, mode)
		if t.Team > 0 {
			fmt.Fprintf(b, "  team:      %d\n", t.Team)
		}
		fmt.Fprintf(b, "  addresses: %s\n", strings.Join(t.Addresses, ", "))
		if len(t.Artifacts) > 0 {
			fmt.Fprintf(b, "  artifacts: %s\n", strings.Join(t.Artifacts, ", "))
		}
	}
}

func (r *Renderer) history(b *strings.Builder, v *display.HistoryResult) {
	if len(v.Runs) == 0 {
		b.WriteString(apply(r.style.Muted, "No runs recorded") + "\n")
		return
	}
	for _, run := range v.Runs {
		dry := ""
		if run.DryRun {
			dry = apply(r.style.Muted, " (dry run)")
		}
		fmt.Fprintf(b, "%s  %-10s %s%s  %d up, %d del  %s\n",
			run.Started.Local().Format("2006-01-02 15:04:05"),
			run.Target,
			apply(r.style.State, run.State),
			dry,
			run.Uploaded,
			run.Deleted,
			apply(r.style.Muted, run.ID))
		if run.Error != "" {
			fmt.Fprintf(b, "  %s\n", apply(r.style.Error, run.Error))
		}
	}
}

// HumanBytes formats a byte count with a binary unit.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
