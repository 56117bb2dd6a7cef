package ui

import "github.com/charmbracelet/lipgloss"

// Color palette. A single warm accent on a neutral base, like old paper.
const (
	ColorAccent    = "179" // Primary accent, light amber
	ColorAccentDim = "137" // Inactive stages and borders
	ColorWhite     = "255"
	ColorGray      = "245" // Labels
	ColorDarkGray  = "238" // Box borders, separators
	ColorRed       = "196"
	ColorYellow    = "220"
)

// Styles holds all UI styles for TUI rendering.
type Styles struct {
	Header   lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Dim      lipgloss.Style
	Stage    lipgloss.Style
	Active   lipgloss.Style
	Progress lipgloss.Style

	Border lipgloss.Style
	Panel  lipgloss.Style
	Speed  lipgloss.Style
	Label  lipgloss.Style
}

// DefaultStyles returns styled components for TUI mode.
func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Success:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		Warning:  lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		Dim:      lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Stage:    lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccentDim)),
		Active:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
		Progress: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),

		Border: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorDarkGray)),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color(ColorDarkGray)).
			Padding(0, 1),
		Speed: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		Label: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
	}
}

// NoColorStyles returns unstyled components for plain mode.
func NoColorStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle(),
		Success:  lipgloss.NewStyle(),
		Warning:  lipgloss.NewStyle(),
		Error:    lipgloss.NewStyle(),
		Dim:      lipgloss.NewStyle(),
		Stage:    lipgloss.NewStyle(),
		Active:   lipgloss.NewStyle(),
		Progress: lipgloss.NewStyle(),
		Border:   lipgloss.NewStyle(),
		Panel:    lipgloss.NewStyle(),
		Speed:    lipgloss.NewStyle(),
		Label:    lipgloss.NewStyle(),
	}
}

// GetStyles returns the appropriate styles based on color preference.
func GetStyles(noColor bool) Styles {
	if noColor {
		return NoColorStyles()
	}
	return DefaultStyles()
}
