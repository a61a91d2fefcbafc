package tui

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"dwarfcopy/internal/app"
	"dwarfcopy/internal/domain"
)

func summary(name string, exists bool) app.SessionSummary {
	return app.SessionSummary{
		Session: domain.SessionDirectory{
			Path: "/sd/" + name,
			Metadata: domain.CaptureMetadata{
				Binning:    "1*1",
				Exposure:   "15",
				Gain:       80,
				ShotsTaken: 2,
				TargetName: "M1",
			},
			Timestamp: time.Date(2024, 1, 18, 21, 4, 26, 0, time.UTC),
		},
		Destination: "/astro/" + name,
		Exists:      exists,
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	require.True(t, ok)
	return model, cmd
}

func TestModelConfirmAndExecute(t *testing.T) {
	var executed []app.SessionSummary
	m := NewModel(Config{
		SourceName: "MicroSD",
		TargetName: "Astrophotography",
		Execute: func(s []app.SessionSummary) tea.Cmd {
			executed = s
			return nil
		},
	})
	assert.Equal(t, PhaseScanning, m.Phase)
	assert.Contains(t, m.View(), "Looking for sessions")

	m, _ = update(t, m, SessionsReadyMsg{Summaries: []app.SessionSummary{summary("a", false), summary("b", true)}})
	assert.Equal(t, PhaseConfirm, m.Phase)
	view := m.View()
	assert.Contains(t, view, "Sessions (2)")
	assert.Contains(t, view, "Transfer 2 sessions to Astrophotography?")
	assert.Contains(t, view, "1 destinations already exist")

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ConfirmMsg{Confirmed: true}, cmd())

	m, _ = update(t, m, ConfirmMsg{Confirmed: true})
	assert.Equal(t, PhaseExecuting, m.Phase)
	assert.Len(t, executed, 2)

	m, _ = update(t, m, SessionStartMsg{Session: "a", Files: 2})
	m, _ = update(t, m, ProgressMsg{Progress: domain.Progress{Description: "Copy 0001.fits -> lights/0001.fits", Bytes: 1000}})
	assert.InDelta(t, 0.5, m.percent(), 0.001)
	view = m.View()
	assert.Contains(t, view, "Session 1/2")
	assert.Contains(t, view, "1/2 files")
	assert.Contains(t, view, "lights/0001.fits")

	m, _ = update(t, m, SessionDoneMsg{Result: app.TransferResult{Session: "a", Destination: "/astro/a"}})
	m, _ = update(t, m, SessionDoneMsg{Result: app.TransferResult{Session: "b", Err: errors.New("destination already exists")}})
	m, _ = update(t, m, BatchDoneMsg{})
	assert.Equal(t, PhaseDone, m.Phase)
	assert.Equal(t, 1, m.Failed())
	view = m.View()
	assert.Contains(t, view, "1/2 sessions")
	assert.Contains(t, view, "destination already exists")
}

func TestModelDecline(t *testing.T) {
	m := NewModel(Config{})
	m, _ = update(t, m, SessionsReadyMsg{Summaries: []app.SessionSummary{summary("a", false)}})
	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, ConfirmMsg{Confirmed: false}, cmd())

	m, _ = update(t, m, ConfirmMsg{Confirmed: false})
	assert.True(t, m.Quitting)
	assert.Empty(t, m.View())
}

func TestModelNoSessions(t *testing.T) {
	m := NewModel(Config{})
	m, _ = update(t, m, SessionsReadyMsg{})
	assert.Equal(t, PhaseDone, m.Phase)
	assert.Contains(t, m.View(), "No sessions found")
}

func TestModelQuitCancelsTransfer(t *testing.T) {
	cancelled := false
	m := NewModel(Config{Cancel: func() { cancelled = true }})
	m.Phase = PhaseExecuting
	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	assert.True(t, cancelled)
	assert.True(t, m.Quitting)
}

func TestModelError(t *testing.T) {
	m := NewModel(Config{})
	m, _ = update(t, m, ErrorMsg{Err: errors.New("source path not found")})
	assert.Equal(t, PhaseError, m.Phase)
	assert.Contains(t, m.View(), "source path not found")
}

func TestFormatSessionListTruncates(t *testing.T) {
	var s []app.SessionSummary
	for range 12 {
		s = append(s, summary("x", false))
	}
	lines := formatSessionList(s, 8)
	assert.Len(t, lines, 9)
	assert.Contains(t, lines[4], "4 more sessions")
}
