// Package terminal provides rich terminal output with colors and styling
package terminal

import (
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/arthur-debert/rioship/pkg/style"
	"github.com/arthur-debert/rioship/pkg/ui/text"
)

// Renderer is the text renderer decorated with the lipgloss styles.
type Renderer struct {
	*text.Renderer
}

// New creates a new terminal renderer
func New(w io.Writer) (*Renderer, error) {
	return &Renderer{Renderer: text.NewStyled(w, Styler())}, nil
}

// Styler maps text fragments onto the shared styles.
func Styler() text.Styler {
	return text.Styler{
		Title:   render(style.TitleStyle),
		Muted:   render(style.MutedStyle),
		Success: render(style.SuccessStyle),
		Error:   render(style.ErrorStyle),
		Warning: render(style.WarningStyle),
		Path:    render(style.PathStyle),
		Upload:  render(style.UploadStyle),
		Delete:  render(style.DeleteStyle),
		Target:  render(style.TargetStyle),
		State: func(s string) string {
			return style.StateStyle(s).Render(s)
		},
	}
}

func render(st lipgloss.Style) func(string) string {
	return func(s string) string { return st.Render(s) }
}
