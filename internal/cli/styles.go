// Package cli provides styled terminal output for the ledger commands.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	accentColor = lipgloss.Color("#5B8DEF")
	creditColor = lipgloss.Color("#4ECDC4")
	debitColor  = lipgloss.Color("#FF6B6B")
	noticeColor = lipgloss.Color("#FFE66D")
	hintColor   = lipgloss.Color("#95E1D3")
	mutedColor  = lipgloss.Color("#666666")
)

// Styles the commands render with directly.
var (
	InfoStyle     = lipgloss.NewStyle().Foreground(hintColor)
	SubtleStyle   = lipgloss.NewStyle().Foreground(mutedColor)
	BoldStyle     = lipgloss.NewStyle().Bold(true)
	PositiveStyle = lipgloss.NewStyle().Foreground(creditColor)
	NegativeStyle = lipgloss.NewStyle().Foreground(debitColor)
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	promptStyle = titleStyle
	boxStyle    = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#333")).
			Padding(1, 2)
)

// Icons prefixed to status lines.
const (
	SuccessIcon = "✓"
	ChartIcon   = "📊"

	errorIcon   = "✗"
	warningIcon = "⚠️"
	infoIcon    = "ℹ️"
	ledgerIcon  = "📒"
)

func withIcon(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess renders a completed action.
func FormatSuccess(message string) string {
	return withIcon(PositiveStyle, SuccessIcon, message)
}

// FormatError renders a failure.
func FormatError(message string) string {
	return withIcon(NegativeStyle, errorIcon, message)
}

// FormatWarning renders a caution, such as an interrupted command.
func FormatWarning(message string) string {
	return withIcon(lipgloss.NewStyle().Foreground(noticeColor), warningIcon, message)
}

// FormatInfo renders a neutral notice.
func FormatInfo(message string) string {
	return withIcon(InfoStyle, infoIcon, message)
}

// FormatTitle renders a section heading.
func FormatTitle(title string) string {
	return withIcon(titleStyle.MarginBottom(1), ledgerIcon, title)
}

// FormatPrompt renders a question awaiting input.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// StyleAmount signs and colors a flow: credits positive, debits negative.
func StyleAmount(text string, isCredit bool) string {
	if isCredit {
		return PositiveStyle.Render("+" + text)
	}
	return NegativeStyle.Render("-" + text)
}

// RenderBox draws title over content inside a rounded border.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content))
}
