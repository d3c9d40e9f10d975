package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/linuxmatters/accentprep/internal/processor"
)

// Spinner frames for indeterminate progress
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// AnalysisModel shows a spinner while analyze mode decodes and measures files.
// Results are printed after the program exits.
type AnalysisModel struct {
	FileName   string
	FileIndex  int
	TotalFiles int
	Stage      processor.StageID
	StartTime  time.Time

	spinnerIndex int

	Done bool

	Width  int
	Height int
}

// AnalysisStartMsg signals a file has started
type AnalysisStartMsg struct {
	FilePath   string
	FileIndex  int
	TotalFiles int
}

// AnalysisProgressMsg signals the stage being measured
type AnalysisProgressMsg struct {
	Stage processor.StageID
}

// AnalysisCompleteMsg signals every file has been analysed
type AnalysisCompleteMsg struct{}

// tickMsg is sent for spinner/timer animation
type tickMsg time.Time

// NewAnalysisModel creates a new analysis UI model
func NewAnalysisModel() AnalysisModel {
	return AnalysisModel{StartTime: time.Now()}
}

// Init starts the spinner
func (m AnalysisModel) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages and updates the model
func (m AnalysisModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case tickMsg:
		if !m.Done {
			m.spinnerIndex = (m.spinnerIndex + 1) % len(spinnerFrames)
			return m, tickCmd()
		}

	case AnalysisStartMsg:
		m.FileName = filepath.Base(msg.FilePath)
		m.FileIndex = msg.FileIndex
		m.TotalFiles = msg.TotalFiles
		m.Stage = processor.StageDecode

	case AnalysisProgressMsg:
		m.Stage = msg.Stage

	case AnalysisCompleteMsg:
		m.Done = true
		return m, tea.Quit
	}

	return m, nil
}

// View renders the UI
func (m AnalysisModel) View() string {
	if m.Width == 0 {
		return "Initializing..."
	}

	var b strings.Builder

	title := lipgloss.NewStyle().Bold(true).Foreground(accentColour).Render("Accentprep")
	subtitle := lipgloss.NewStyle().Foreground(mutedColour).Italic(true).Render("Analysis Mode")
	b.WriteString(title + " " + subtitle + "\n\n")

	if m.FileName == "" {
		b.WriteString("Waiting...")
		return b.String()
	}

	fileStyle := lipgloss.NewStyle().Bold(true)
	fmt.Fprintf(&b, "Analysing %d/%d: %s\n\n", m.FileIndex+1, m.TotalFiles, fileStyle.Render(m.FileName))

	if !m.Done {
		spinner := lipgloss.NewStyle().Foreground(accentColour).Render(spinnerFrames[m.spinnerIndex])
		fmt.Fprintf(&b, "%s %s... [%s]\n", spinner, stageLabel(m.Stage), formatElapsed(time.Since(m.StartTime)))
	}
	return b.String()
}

// formatElapsed formats elapsed time as MM:SS or HH:MM:SS
func formatElapsed(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
