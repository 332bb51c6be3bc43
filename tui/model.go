// Package tui renders a live dashboard for a running analysis session:
// upload state with visible retry attempts, and the rolling summary
// stats as they update clip by clip.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/moodydev/evolvisense-pipeline/session"
	"github.com/moodydev/evolvisense-pipeline/uploader"
)

// ProgressMsg mirrors an uploader state change.
type ProgressMsg uploader.Progress

// SnapshotMsg carries the tracker state after a recorded clip.
type SnapshotMsg session.Snapshot

// DoneMsg ends the dashboard once the pipeline returns.
type DoneMsg struct{ Err error }

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(22)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	footerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type Model struct {
	spin     spinner.Model
	progress uploader.Progress
	stats    session.Stats
	clips    int
	done     bool
	err      error
}

func New() Model {
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	return Model{
		spin:  spin,
		stats: session.Stats{PrimaryEmotion: session.NeutralEmotion},
	}
}

func (m Model) Init() tea.Cmd { return m.spin.Tick }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
		return m, nil
	case ProgressMsg:
		m.progress = uploader.Progress(msg)
		return m, nil
	case SnapshotMsg:
		m.stats = msg.Stats
		m.clips = len(msg.History)
		return m, nil
	case DoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("EvolviSense — session analysis"))
	b.WriteString("\n\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n\n")

	rows := []struct {
		label string
		value string
	}{
		{"Clips analyzed", fmt.Sprintf("%d", m.clips)},
		{"Primary emotion", m.stats.PrimaryEmotion},
		{"Avg confidence", fmt.Sprintf("%.1f%%", m.stats.AvgConfidence)},
		{"Avg anxiety", fmt.Sprintf("%.1f%%", m.stats.AvgAnxiety)},
		{"Avg stress", fmt.Sprintf("%.1f%%", m.stats.AvgStress)},
		{"Peak stress", fmt.Sprintf("%.1f%%", m.stats.PeakStress)},
		{"Emotional stability", fmt.Sprintf("%.1f%%", m.stats.EmotionalStability)},
	}
	for _, r := range rows {
		b.WriteString(labelStyle.Render(r.label))
		b.WriteString(valueStyle.Render(r.value))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(footerStyle.Render("q to quit"))
	b.WriteString("\n")
	return b.String()
}

func (m Model) statusLine() string {
	if m.done {
		if m.err != nil {
			return errStyle.Render("failed: " + m.err.Error())
		}
		return okStyle.Render("session complete")
	}
	p := m.progress
	switch p.State {
	case uploader.StateUploading:
		return fmt.Sprintf("%s uploading %s (attempt %d/%d)", m.spin.View(), p.Clip, p.Attempt, p.MaxAttempts)
	case uploader.StateRetrying:
		return warnStyle.Render(fmt.Sprintf("%s retrying, attempt %d/%d", m.spin.View(), p.Attempt, p.MaxAttempts))
	case uploader.StateSucceeded:
		return okStyle.Render("clip analyzed")
	case uploader.StateFailed:
		msg := "upload failed"
		if p.Err != nil {
			msg = p.Err.Error()
		}
		return errStyle.Render(msg)
	default:
		return m.spin.View() + " waiting for clips"
	}
}
