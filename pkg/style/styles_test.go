package style

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
)

func TestStateStyle(t *testing.T) {
	tests := []struct {
		state    string
		expected lipgloss.Style
	}{
		{"Complete", SuccessStyle},
		{"Failed", ErrorStyle},
		{"Idle", MutedStyle},
		{"Syncing", InfoStyle},
	}
	for _, tt := range tests {
		t.Run(tt.state, func(t *testing.T) {
			got := StateStyle(tt.state)
			assert.Equal(t, tt.expected.GetForeground(), got.GetForeground())
			assert.Equal(t, tt.expected.GetBold(), got.GetBold())
		})
	}
}

func TestStylesRenderPlainWithoutColor(t *testing.T) {
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	defer lipgloss.SetColorProfile(prev)

	assert.Equal(t, "upload", UploadStyle.Render("upload"))
	assert.Equal(t, "robot", TargetStyle.Render("robot"))
}
