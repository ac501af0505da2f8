package output

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	Info          lipgloss.Style
	ConceptKey    lipgloss.Style
	TypeName      lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) *Styles {
	return &Styles{
		Header1:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1),
		Header2:       r.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:          r.NewStyle().Bold(true),
		Muted:         r.NewStyle().Foreground(lipgloss.Color("8")),
		Success:       r.NewStyle().Foreground(lipgloss.Color("10")),
		Warning:       r.NewStyle().Foreground(lipgloss.Color("11")),
		Error:         r.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		Info:          r.NewStyle().Foreground(lipgloss.Color("12")),
		ConceptKey:    r.NewStyle().Foreground(lipgloss.Color("13")),
		TypeName:      r.NewStyle().Foreground(lipgloss.Color("6")),
		StatusSuccess: r.NewStyle().Foreground(lipgloss.Color("10")).SetString("✓"),
		StatusFailed:  r.NewStyle().Foreground(lipgloss.Color("9")).SetString("✗"),
	}
}
