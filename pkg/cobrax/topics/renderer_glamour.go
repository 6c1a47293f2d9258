package topics

import (
	"sync"

	"github.com/charmbracelet/glamour"
)

// GlamourRenderer renders markdown topics for the terminal. Other formats
// pass through untouched.
type GlamourRenderer struct {
	// Style is a glamour style name or a path to a style file. Empty or
	// "auto" picks one from the terminal background.
	Style string
	// Width wraps output; zero keeps glamour's default.
	Width int

	once sync.Once
	term *glamour.TermRenderer
}

// NewGlamourRenderer creates a markdown renderer that detects its style
func NewGlamourRenderer() *GlamourRenderer {
	return &GlamourRenderer{Style: "auto"}
}

func (r *GlamourRenderer) init() {
	opts := []glamour.TermRendererOption{}
	if r.Style == "" || r.Style == "auto" {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStylePath(r.Style))
	}
	if r.Width > 0 {
		opts = append(opts, glamour.WithWordWrap(r.Width))
	}
	term, err := glamour.NewTermRenderer(opts...)
	if err == nil {
		r.term = term
	}
}

// Render converts markdown to styled terminal output, falling back to the
// raw content on any failure.
func (r *GlamourRenderer) Render(content string, format string) string {
	if format != ".md" {
		return content
	}
	r.once.Do(r.init)
	if r.term == nil {
		return content
	}
	out, err := r.term.Render(content)
	if err != nil {
		return content
	}
	return out
}
