package cli

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines colors and symbols for the CLI using lipgloss
type Theme struct {
	Bold   lipgloss.Style
	Cyan   lipgloss.Style
	Green  lipgloss.Style
	Yellow lipgloss.Style
	Dim    lipgloss.Style
	Red    lipgloss.Style

	Bullet  string
	Arrow   string
	Check   string
	Cross   string
	BoxTree string
	BoxLast string

	IconImage string
	IconLink  string
	IconDisk  string
	IconHelp  string
}

func DefaultTheme() *Theme {
	return &Theme{
		Bold:   lipgloss.NewStyle().Bold(true),
		Cyan:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		Green:  lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Yellow: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		Dim:    lipgloss.NewStyle().Faint(true),
		Red:    lipgloss.NewStyle().Foreground(lipgloss.Color("1")),

		Bullet:  "•",
		Arrow:   "→",
		Check:   "✓",
		Cross:   "✗",
		BoxTree: "├──",
		BoxLast: "└──",

		IconImage: "🖼️",
		IconLink:  "🔗",
		IconDisk:  "💾",
		IconHelp:  "💡",
	}
}

// PlainTheme renders without colors, for pipes and tests.
func PlainTheme() *Theme {
	t := DefaultTheme()
	plain := lipgloss.NewStyle()
	t.Bold, t.Cyan, t.Green, t.Yellow, t.Dim, t.Red = plain, plain, plain, plain, plain, plain
	return t
}

func (t *Theme) Styled(style lipgloss.Style, text string) string {
	return style.Render(text)
}
