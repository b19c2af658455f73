package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
var (
	Primary    = lipgloss.Color("#34D399") // Emerald accent
	Secondary  = lipgloss.Color("#60A5FA") // Blue
	Warning    = lipgloss.Color("#F59E0B") // Amber
	Error      = lipgloss.Color("#EF4444") // Red
	Muted      = lipgloss.Color("#6B7280") // Gray
	Foreground = lipgloss.Color("#F9FAFB") // Light gray
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Primary)

	CodeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Foreground).
			Background(Secondary).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(Secondary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(Warning)

	MutedStyle = lipgloss.NewStyle().
			Foreground(Muted)

	ChatPeerStyle = lipgloss.NewStyle().
			Foreground(Primary).
			Bold(true)

	ChatSelfStyle = lipgloss.NewStyle().
			Foreground(Secondary).
			Bold(true)
)

// PrintError writes a styled error line to the terminal.
func PrintError(msg string) {
	fmt.Println(ErrorStyle.Render("✗ " + msg))
}

// PrintInfo writes a muted informational line.
func PrintInfo(msg string) {
	fmt.Println(MutedStyle.Render(msg))
}

// PrintCode shows the shareable room code prominently.
func PrintCode(code string) {
	fmt.Println(TitleStyle.Render("Room code: ") + CodeStyle.Render(code))
}
