package cli

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
)
