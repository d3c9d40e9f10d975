package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// Application branding used by help and version output
const (
	AppTitle       = "Accentprep 🎙"
	AppDescription = "Accent-labelled speech corpus preprocessor: clean, segment and extract MFCC features"
)

// Color palette
var (
	primaryColor   = lipgloss.Color("#2E7D9A") // Accentprep teal
	secondaryColor = lipgloss.Color("#FFA500") // Orange
	mutedColor     = lipgloss.Color("#888888") // Gray
	textColor      = lipgloss.Color("#FFFFFF") // White
	errorColor     = lipgloss.Color("#A40000") // Red
	warnColor      = lipgloss.Color("#FFA500")
)

// Styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			MarginBottom(1)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(errorColor)

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(warnColor)

	KeyStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Println(TitleStyle.Render(AppTitle))
	fmt.Printf("%s %s\n", KeyStyle.Render("Version:"), ValueStyle.Render(version))
	fmt.Println()
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintWarning prints a non-fatal problem
func PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle.Render("Warning:"), message)
}

// PrintKeyValue prints one aligned "key: value" line of a summary
func PrintKeyValue(key string, value any) {
	fmt.Printf("%s %s\n", KeyStyle.Render(fmt.Sprintf("%-12s", key+":")), ValueStyle.Render(fmt.Sprint(value)))
}
