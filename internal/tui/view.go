package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/robocof/robocof/internal/tui/styles"
)

// View renders the model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(styles.Title.Render("robocof"))
	b.WriteString("\n")
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	for _, row := range m.rows {
		b.WriteString(m.renderRow(row))
		b.WriteString("\n")
	}
	if len(m.rows) == 0 {
		b.WriteString(styles.Muted.Render("waiting for the run to start..."))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderDecision())

	content := styles.ContentBox.Render(b.String())
	if m.width > 0 {
		content = lipgloss.PlaceHorizontal(m.width, lipgloss.Left, content)
	}
	return content + "\n" + styles.HelpBar.Render(m.help())
}

func (m Model) renderHeader() string {
	if m.runID == "" {
		return styles.Subtitle.Render("starting")
	}
	mode := "normal"
	limit := m.timeout.String()
	if m.debug {
		mode = "debug"
		limit = "none"
	}

	elapsed := m.elapsed
	if !m.done && !m.started.IsZero() {
		elapsed = m.now().Sub(m.started)
	}
	return styles.Subtitle.Render(fmt.Sprintf("run %s  mode %s  timeout %s  elapsed %s",
		shortID(m.runID), mode, limit, elapsed.Round(100*time.Millisecond)))
}

func (m Model) renderRow(row detectorRow) string {
	observation := row.observation
	if observation == "" {
		observation = "-"
	}

	var status string
	switch {
	case row.verdict == "":
		status = m.spinner.View() + " sampling"
	case row.verdict == "continue":
		status = styles.Muted.Render("done, no verdict")
	default:
		status = styles.Warning.Render(row.verdict)
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		styles.DetectorName.Render(row.name),
		styles.Observation.Render(observation),
		styles.Muted.Render(fmt.Sprintf("%4d  ", row.samples)),
		status,
	)
}

func (m Model) renderDecision() string {
	if !m.done {
		if m.cancelled {
			return styles.Warning.Render("cancelling...")
		}
		return styles.DecisionStyle("").Render("UNDECIDED")
	}

	line := styles.DecisionStyle(m.decision).Render(m.decision)
	if m.winner != "" {
		line += styles.Muted.Render(" by " + m.winner)
	}
	if m.errMsg != "" {
		line += "\n" + styles.Error.Render(m.errMsg)
	}
	return line
}

func (m Model) help() string {
	if m.done {
		return "q: quit"
	}
	return "q: stop the run"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
