// Package styles holds the lipgloss palette shared by the status view and
// the interactive answer prompt.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors meet WCAG AA contrast on both black and dark surfaces.
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	TextColor      = lipgloss.Color("#F9FAFB")
	BorderColor    = lipgloss.Color("#6B7280")
	BlueColor      = lipgloss.Color("#60A5FA")

	Primary = lipgloss.NewStyle().Foreground(PrimaryColor)
	Muted   = lipgloss.NewStyle().Foreground(MutedColor)

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Label = lipgloss.NewStyle().
		Bold(true).
		Foreground(TextColor)

	// Box frames a question or a summary block.
	Box = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(BorderColor).
		Padding(0, 1)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	// Banner flags the blocked state in the status view.
	Banner = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(WarningColor).
		Bold(true).
		Padding(0, 1)
)

// StatusColor returns the color for a session status or phase name.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case "running", "po_conversation", "tech_lead_design", "dev_sessions":
		return SecondaryColor
	case "pending", "init":
		return MutedColor
	case "blocked":
		return WarningColor
	case "completed":
		return PrimaryColor
	case "error":
		return ErrorColor
	default:
		return MutedColor
	}
}

// StatusIcon returns the glyph shown next to a session status.
func StatusIcon(status string) string {
	switch status {
	case "running":
		return "●"
	case "pending":
		return "○"
	case "blocked":
		return "?"
	case "completed":
		return "✓"
	case "error":
		return "✗"
	default:
		return "●"
	}
}

// Status renders s in its status color.
func Status(s string) string {
	return lipgloss.NewStyle().Foreground(StatusColor(s)).Render(s)
}
