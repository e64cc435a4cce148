package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the text styles used by terminal output.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	Info          lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
	StatusSkipped lipgloss.Style
}

// NewStyles returns colored styles for terminals and plain ones otherwise.
func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header1:       plain,
			Header2:       plain,
			Bold:          plain,
			Muted:         plain,
			Success:       plain,
			Warning:       plain,
			Error:         plain,
			Info:          plain,
			StatusSuccess: plain.SetString("[ok]"),
			StatusFailed:  plain.SetString("[fail]"),
			StatusSkipped: plain.SetString("[skip]"),
		}
	}

	green := lipgloss.Color("10")
	yellow := lipgloss.Color("11")
	red := lipgloss.Color("9")
	blue := lipgloss.Color("12")
	gray := lipgloss.Color("8")

	return &Styles{
		Header1:       lipgloss.NewStyle().Bold(true).Foreground(blue).Underline(true),
		Header2:       lipgloss.NewStyle().Bold(true),
		Bold:          lipgloss.NewStyle().Bold(true),
		Muted:         lipgloss.NewStyle().Foreground(gray),
		Success:       lipgloss.NewStyle().Foreground(green),
		Warning:       lipgloss.NewStyle().Foreground(yellow),
		Error:         lipgloss.NewStyle().Foreground(red).Bold(true),
		Info:          lipgloss.NewStyle().Foreground(blue),
		StatusSuccess: lipgloss.NewStyle().Foreground(green).SetString("✓"),
		StatusFailed:  lipgloss.NewStyle().Foreground(red).SetString("✗"),
		StatusSkipped: lipgloss.NewStyle().Foreground(gray).SetString("-"),
	}
}
