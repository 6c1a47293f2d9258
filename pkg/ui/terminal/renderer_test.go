package terminal

import (
	"bytes"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arthur-debert/rioship/pkg/syncplan"
	"github.com/arthur-debert/rioship/pkg/ui/display"
)

func TestStylerCoversEveryFragment(t *testing.T) {
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	defer lipgloss.SetColorProfile(prev)

	s := Styler()
	for name, f := range map[string]func(string) string{
		"title": s.Title, "muted": s.Muted, "success": s.Success,
		"error": s.Error, "warning": s.Warning, "path": s.Path,
		"upload": s.Upload, "delete": s.Delete, "target": s.Target, "state": s.State,
	} {
		require.NotNil(t, f, name)
		assert.Contains(t, f("robot"), "robot", name)
	}
}

func TestRenderPlan(t *testing.T) {
	prev := lipgloss.ColorProfile()
	lipgloss.SetColorProfile(termenv.Ascii)
	defer lipgloss.SetColorProfile(prev)

	var buf bytes.Buffer
	r, err := New(&buf)
	require.NoError(t, err)

	plan := &syncplan.SyncPlan{
		RemoteRoot: "/home/lvuser/deploy",
		Uploads:    []syncplan.Transfer{{Local: "/p/auto.json", Remote: "/home/lvuser/deploy/auto.json", Size: 10}},
	}
	require.NoError(t, r.RenderResult(&display.PlanResult{Target: "robot", Plan: plan}))

	assert.Contains(t, buf.String(), "Plan for")
	assert.Contains(t, buf.String(), "/home/lvuser/deploy/auto.json")
}
