package cli

import "github.com/charmbracelet/lipgloss"

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E0B04A"))
	LabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#8A5A44"))
	MutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	OKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	FailStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	WarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	CardStyle  = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#8A5A44")).
			Padding(0, 1).
			Width(76)
)

// Bool renders an on/off toggle
func Bool(v bool) string {
	if v {
		return OKStyle.Render("on")
	}
	return MutedStyle.Render("off")
}
