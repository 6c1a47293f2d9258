package style

import (
	"github.com/charmbracelet/lipgloss"
)

// Base styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(HeadingColor).
			Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(MutedColor)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	InfoStyle = lipgloss.NewStyle().
			Foreground(InfoColor)

	PathStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Italic(true)
)

// Deploy styles
var (
	UploadStyle = lipgloss.NewStyle().
			Foreground(UploadColor).
			Bold(true)

	DeleteStyle = lipgloss.NewStyle().
			Foreground(DeleteColor).
			Bold(true)

	TargetStyle = lipgloss.NewStyle().
			Foreground(TargetColor).
			Bold(true)
)

// StateStyle picks the style for a run state name.
func StateStyle(state string) lipgloss.Style {
	switch state {
	case "Complete":
		return SuccessStyle
	case "Failed":
		return ErrorStyle
	case "Idle":
		return MutedStyle
	default:
		return InfoStyle
	}
}
