package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"dwarfcopy/internal/app"
	"dwarfcopy/internal/domain"
)

// Phase represents the current state of the TUI
type Phase int

const (
	PhaseScanning Phase = iota
	PhaseConfirm
	PhaseExecuting
	PhaseDone
	PhaseError
)

// Messages for the TUI
type (
	SessionsReadyMsg struct {
		Summaries []app.SessionSummary
	}
	// SessionStartMsg announces the next session and how many files it moves.
	SessionStartMsg struct {
		Session string
		Files   int
	}
	ProgressMsg struct {
		Progress domain.Progress
	}
	SessionDoneMsg struct {
		Result app.TransferResult
	}
	BatchDoneMsg struct{}
	ErrorMsg     struct {
		Err error
	}
	ConfirmMsg struct {
		Confirmed bool
	}
	tickMsg time.Time
)

// ExecuteFunc starts the transfer of the confirmed sessions. It should run
// the batch in the background and report through the messages above.
type ExecuteFunc func(summaries []app.SessionSummary) tea.Cmd

type Config struct {
	SourceName string
	SourcePath string
	TargetName string
	TargetPath string
	Verbose    bool
	Execute    ExecuteFunc
	// Cancel is called when the user quits while a transfer is running.
	Cancel func()
}

type Model struct {
	config           Config
	Phase            Phase
	Summaries        []app.SessionSummary
	Results          []app.TransferResult
	spinner          spinner.Model
	progress         progress.Model
	sessionIndex     int
	sessionName      string
	filesDone        int
	filesTotal       int
	bytes            int64
	currentFile      string
	confirmSelection bool // true = yes, false = no
	Err              error
	Quitting         bool
	width            int
	height           int
}

func NewModel(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return Model{
		config:   cfg,
		Phase:    PhaseScanning,
		spinner:  s,
		progress: p,
		width:    80,
		height:   24,
	}
}

// Failed counts sessions whose transfer failed.
func (m Model) Failed() int {
	n := 0
	for _, r := range m.Results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(msg.Width-20, 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.Phase == PhaseExecuting && m.config.Cancel != nil {
				m.config.Cancel()
			}
			m.Quitting = true
			return m, tea.Quit
		case "left", "h", "y", "Y":
			if m.Phase == PhaseConfirm {
				m.confirmSelection = true
			}
		case "right", "l", "n", "N":
			if m.Phase == PhaseConfirm {
				m.confirmSelection = false
			}
		case "enter":
			if m.Phase == PhaseConfirm {
				confirmed := m.confirmSelection
				return m, func() tea.Msg {
					return ConfirmMsg{Confirmed: confirmed}
				}
			}
			if m.Phase == PhaseDone || m.Phase == PhaseError {
				return m, tea.Quit
			}
		}

	case SessionsReadyMsg:
		m.Summaries = msg.Summaries
		if len(m.Summaries) == 0 {
			m.Phase = PhaseDone
			return m, nil
		}
		m.Phase = PhaseConfirm
		return m, nil

	case ConfirmMsg:
		if !msg.Confirmed {
			m.Quitting = true
			return m, tea.Quit
		}
		m.Phase = PhaseExecuting
		if m.config.Execute != nil {
			return m, tea.Batch(tickCmd(), m.config.Execute(m.Summaries))
		}
		return m, nil

	case SessionStartMsg:
		m.sessionIndex = len(m.Results)
		m.sessionName = msg.Session
		m.filesDone = 0
		m.filesTotal = msg.Files
		m.currentFile = ""
		return m, nil

	case ProgressMsg:
		m.filesDone++
		m.bytes += msg.Progress.Bytes
		m.currentFile = msg.Progress.Description
		return m, nil

	case SessionDoneMsg:
		m.Results = append(m.Results, msg.Result)
		return m, nil

	case BatchDoneMsg:
		m.Phase = PhaseDone
		return m, nil

	case ErrorMsg:
		m.Phase = PhaseError
		m.Err = msg.Err
		return m, nil

	case spinner.TickMsg:
		if m.Phase == PhaseScanning || m.Phase == PhaseExecuting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tickMsg:
		if m.Phase == PhaseExecuting {
			var cmds []tea.Cmd
			if m.filesTotal > 0 {
				cmds = append(cmds, m.progress.SetPercent(m.percent()))
			}
			cmds = append(cmds, tickCmd(), m.spinner.Tick)
			return m, tea.Batch(cmds...)
		}
	}

	return m, nil
}

func (m Model) percent() float64 {
	if m.filesTotal == 0 {
		return 0
	}
	return min(float64(m.filesDone)/float64(m.filesTotal), 1)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.Phase {
	case PhaseScanning:
		b.WriteString(fmt.Sprintf("%s Looking for sessions...", m.spinner.View()))
	case PhaseConfirm:
		b.WriteString(m.renderSessions())
		b.WriteString("\n")
		b.WriteString(m.renderConfirmPrompt())
	case PhaseExecuting:
		b.WriteString(m.renderExecution())
	case PhaseDone:
		b.WriteString(m.renderCompletion())
	case PhaseError:
		b.WriteString(m.renderError())
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())
	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render(iconTelescope + " dwarfcopy")
	subtitle := subtitleStyle.Render("Telescope sessions, sorted")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		"",
		dimStyle.Render(fmt.Sprintf("%s From: %s %s", iconFolder, targetNameStyle.Render(m.config.SourceName), shortenPath(m.config.SourcePath))),
		dimStyle.Render(fmt.Sprintf("%s To:   %s %s", iconFolder, targetNameStyle.Render(m.config.TargetName), shortenPath(m.config.TargetPath))),
	)
}

func (m Model) renderSessions() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Sessions (%d)", len(m.Summaries))))
	b.WriteString("\n\n")
	for _, line := range formatSessionList(m.Summaries, 8) {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}

	existing := 0
	for _, s := range m.Summaries {
		if s.Exists {
			existing++
		}
	}
	if existing > 0 {
		b.WriteString("\n")
		b.WriteString(warningStyle.Render(fmt.Sprintf("%s %d destinations already exist and will fail", iconWarning, existing)))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderConfirmPrompt() string {
	prompt := confirmPromptStyle.Render(fmt.Sprintf("Transfer %d sessions to %s?", len(m.Summaries), m.config.TargetName))

	var yesBtn, noBtn string
	if m.confirmSelection {
		yesBtn = highlightBoxStyle.Background(lipgloss.Color("#2D4F2B")).Render(" Yes ")
		noBtn = boxStyle.Render(" No ")
	} else {
		yesBtn = boxStyle.Render(" Yes ")
		noBtn = highlightBoxStyle.Background(lipgloss.Color("#4F2B35")).Render(" No ")
	}

	buttons := lipgloss.JoinHorizontal(lipgloss.Center, yesBtn, "  ", noBtn)
	return lipgloss.JoinVertical(lipgloss.Left, prompt, "", buttons)
}

func (m Model) renderExecution() string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render(fmt.Sprintf("Session %d/%d", m.sessionIndex+1, len(m.Summaries))))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s %s\n\n", m.spinner.View(), sessionStyle.Render(m.sessionName)))
	b.WriteString(fmt.Sprintf("  %s\n", m.progress.ViewAs(m.percent())))
	b.WriteString(fmt.Sprintf("  %s %s\n",
		countStyle.Render(fmt.Sprintf("%d/%d files", m.filesDone, m.filesTotal)),
		dimStyle.Render(fmt.Sprintf("(%s copied)", humanize.Bytes(uint64(m.bytes)))),
	))

	if m.currentFile != "" {
		b.WriteString(fmt.Sprintf("\n  %s %s\n", iconArrow, pathStyle.Render(m.currentFile)))
	}
	return b.String()
}

func (m Model) renderCompletion() string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render("Done"))
	b.WriteString("\n\n")

	if len(m.Summaries) == 0 {
		b.WriteString(dimStyle.Render("  No sessions found"))
		b.WriteString("\n")
		return b.String()
	}

	for _, r := range m.Results {
		if r.Err != nil {
			b.WriteString(fmt.Sprintf("  %s %s  %s\n", errorStyle.Render(iconError), sessionStyle.Render(r.Session), errorStyle.Render(r.Err.Error())))
			continue
		}
		b.WriteString(fmt.Sprintf("  %s %s %s %s\n", successStyle.Render(iconSuccess), sessionStyle.Render(r.Session), iconArrow, pathStyle.Render(shortenPath(r.Destination))))
		if m.config.Verbose {
			for _, w := range r.Warnings {
				b.WriteString(fmt.Sprintf("      %s\n", warningStyle.Render(iconWarning+" "+w)))
			}
		}
	}

	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s  %s\n", statLabelStyle.Render("Transferred:"), statValueStyle.Render(fmt.Sprintf("%d/%d sessions", len(m.Results)-m.Failed(), len(m.Results)))))
	b.WriteString(fmt.Sprintf("  %s  %s\n", statLabelStyle.Render("Copied:"), statValueStyle.Render(humanize.Bytes(uint64(m.bytes)))))
	return b.String()
}

func (m Model) renderError() string {
	msg := errorStyle.Render(fmt.Sprintf("%s Error: %s", iconError, m.Err.Error()))
	return highlightBoxStyle.BorderForeground(errorColor).Render(msg)
}

func (m Model) renderHelp() string {
	var help string
	switch m.Phase {
	case PhaseScanning:
		help = "Press q to quit"
	case PhaseConfirm:
		help = "← → or y/n to select • Enter to confirm • q to quit"
	case PhaseExecuting:
		help = "Transferring... q cancels"
	case PhaseDone:
		help = "Press Enter to exit"
	case PhaseError:
		help = "Press Enter or q to exit"
	}
	return helpStyle.Render(help)
}

// formatSessionList shows the first and last sessions when there are more
// than maxItems.
func formatSessionList(summaries []app.SessionSummary, maxItems int) []string {
	if len(summaries) <= maxItems {
		lines := make([]string, 0, len(summaries))
		for _, s := range summaries {
			lines = append(lines, formatSessionItem(s))
		}
		return lines
	}

	half := maxItems / 2
	lines := make([]string, 0, maxItems+1)
	for _, s := range summaries[:half] {
		lines = append(lines, formatSessionItem(s))
	}
	lines = append(lines, dimStyle.Render(fmt.Sprintf("... %d more sessions ...", len(summaries)-maxItems)))
	for _, s := range summaries[len(summaries)-half:] {
		lines = append(lines, formatSessionItem(s))
	}
	return lines
}

func formatSessionItem(s app.SessionSummary) string {
	icon := iconSession
	if s.Exists {
		icon = warningStyle.Render(iconExists)
	}
	meta := s.Session.Metadata
	return fmt.Sprintf("%s %s  %s  %s",
		icon,
		sessionStyle.Render(fmt.Sprintf("%-10s", meta.TargetName)),
		dimStyle.Render(fmt.Sprintf("%ss gain %d, %d frames, %s", meta.ExposureFraction(), meta.Gain, meta.ShotsTaken, s.Session.Timestamp.Format("2006-01-02 15:04"))),
		pathStyle.Render(iconArrow+" "+filepath.Base(s.Destination)),
	)
}

// shortenPath replaces the home directory prefix with ~ for display
func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
