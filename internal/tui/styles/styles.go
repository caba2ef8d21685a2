// Package styles holds the lipgloss palette of the observation view.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on dark terminals
	PrimaryColor = lipgloss.Color("#A78BFA") // Purple
	GreenColor   = lipgloss.Color("#10B981") // Green
	WarningColor = lipgloss.Color("#F59E0B") // Amber
	ErrorColor   = lipgloss.Color("#F87171") // Red
	MutedColor   = lipgloss.Color("#9CA3AF") // Gray
	TextColor    = lipgloss.Color("#F9FAFB") // Light text
	BorderColor  = lipgloss.Color("#6B7280") // Gray
	BlueColor    = lipgloss.Color("#60A5FA") // Blue

	// Convenience styles for colors
	Primary = lipgloss.NewStyle().Foreground(PrimaryColor)
	Warning = lipgloss.NewStyle().Foreground(WarningColor)
	Error   = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted   = lipgloss.NewStyle().Foreground(MutedColor)
	Text    = lipgloss.NewStyle().Foreground(TextColor)

	// Base styles
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	// Detector table
	DetectorName = lipgloss.NewStyle().
			Bold(true).
			Foreground(TextColor).
			Width(11)

	Observation = lipgloss.NewStyle().
			Foreground(BlueColor).
			Width(32)

	// Content area
	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)
)

// DecisionStyle returns the badge style for a decision name.
func DecisionStyle(decision string) lipgloss.Style {
	base := lipgloss.NewStyle().Bold(true).Padding(0, 1).Foreground(TextColor)
	switch decision {
	case "CARRY_OUT_ACTION", "TIMEOUT_CORRECT_USER":
		return base.Background(GreenColor)
	case "USER_ABORT", "ERROR":
		return base.Background(ErrorColor)
	case "":
		return base.Background(BorderColor)
	default:
		return base.Background(WarningColor)
	}
}
