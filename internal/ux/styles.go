package ux

import "github.com/charmbracelet/lipgloss"

// Abyssal palette: deep-water blues with bioluminescent accents.
var (
	colorInk     = lipgloss.Color("#c9d7e4")
	colorGlow    = lipgloss.Color("#4dd6c1")
	colorDanger  = lipgloss.Color("#e53935")
	colorSubdued = lipgloss.Color("#55708c")
)

// Styles holds the lipgloss styles for the chat view.
type Styles struct {
	Title     lipgloss.Style
	Prompt    lipgloss.Style
	UserLine  lipgloss.Style
	MiraLine  lipgloss.Style
	Rapport   lipgloss.Style
	Status    lipgloss.Style
	ErrorLine lipgloss.Style
	Art       lipgloss.Style
	Spinner   lipgloss.Style
}

// DefaultStyles returns the dark-water theme.
func DefaultStyles() Styles {
	return Styles{
		Title: lipgloss.NewStyle().
			Foreground(colorGlow).
			Bold(true).
			Padding(0, 1),
		Prompt:    lipgloss.NewStyle().Foreground(colorGlow),
		UserLine:  lipgloss.NewStyle().Foreground(colorInk).Bold(true),
		MiraLine:  lipgloss.NewStyle().Foreground(colorInk),
		Rapport:   lipgloss.NewStyle().Foreground(colorGlow),
		Status:    lipgloss.NewStyle().Foreground(colorSubdued),
		ErrorLine: lipgloss.NewStyle().Foreground(colorDanger),
		Art:       lipgloss.NewStyle().Foreground(colorSubdued).Faint(true),
		Spinner:   lipgloss.NewStyle().Foreground(colorGlow),
	}
}
