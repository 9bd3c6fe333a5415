package tui

import "github.com/charmbracelet/lipgloss"

var (
	Primary = lipgloss.Color("#22d3ee")
	Success = lipgloss.Color("#10B981")
	Warning = lipgloss.Color("#F59E0B")
	Err     = lipgloss.Color("#EF4444")
	Muted   = lipgloss.Color("#6B7280")

	ProgressStart = "#22d3ee"
	ProgressEnd   = "#0ea5e9"
)

var (
	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(Primary)

	SuccessStyle = lipgloss.NewStyle().Foreground(Success).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(Err).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(Warning)
	MutedStyle   = lipgloss.NewStyle().Foreground(Muted)
)

const (
	IconFile    = "○"
	IconSuccess = "✓"
	IconError   = "✗"
	IconLink    = "⇄"
)
