package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const maxLogEntries = 200

type logEntry struct {
	Time    time.Time
	Level   string
	Message string
}

func (m *model) addLog(level, message string) {
	switch level {
	case "error":
		m.logger.Errorf("%s", message)
	case "warn":
		m.logger.Warnf("%s", message)
	case "debug":
		m.logger.Debugf("%s", message)
	default:
		m.logger.Infof("%s", message)
	}
	entry := logEntry{Time: time.Now().UTC(), Level: level, Message: message}
	m.logs = append(m.logs, entry)
	if len(m.logs) > maxLogEntries {
		m.logs = m.logs[len(m.logs)-maxLogEntries:]
	}
	m.rebuildLogLines()
	m.logViewport.GotoBottom()
}

func (m model) renderLogPanel(maxLines int) string {
	if len(m.logLines) == 0 {
		return logStyle.Render("No logs yet.")
	}
	if maxLines <= 0 {
		maxLines = 6
	}
	width, _ := m.bodySize()
	header := dimStyle.Render("Logs (ctrl+l to hide)")
	m.logViewport.Height = maxLines
	m.logViewport.Width = width
	m.logViewport.SetContent(strings.Join(m.logLines, "\n"))
	m.logViewport.GotoBottom()
	return logStyle.Render(strings.Join([]string{header, m.logViewport.View()}, "\n"))
}

func (m *model) rebuildLogLines() {
	lines := make([]string, 0, len(m.logs))
	for _, entry := range m.logs {
		level := strings.ToUpper(entry.Level)
		prefix := fmt.Sprintf("%s %-5s", entry.Time.Format("15:04:05"), level)
		lines = append(lines, fmt.Sprintf("%s  %s", prefix, entry.Message))
	}
	m.logLines = lines
}

func panelSize(width, height int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	return width - 2, height - 2
}

func contentSize(width, height int) (int, int) {
	if width <= 0 {
		width = 80
	}
	if height <= 0 {
		height = 24
	}
	panelWidth, panelHeight := panelSize(width, height)
	contentWidth := panelWidth - 6
	contentHeight := panelHeight - 4
	if contentWidth < 20 {
		contentWidth = 20
	}
	if contentHeight < 1 {
		contentHeight = 1
	}
	return contentWidth, contentHeight
}

// bodySize leaves room for the header, error line and footer around the
// active view.
func bodySize(width, height int) (int, int) {
	contentWidth, contentHeight := contentSize(width, height)
	bodyHeight := contentHeight - 6
	if bodyHeight < 4 {
		bodyHeight = 4
	}
	return contentWidth, bodyHeight
}

// framePanel boxes content and centres it on a width x height canvas.
func framePanel(content string, width, height int) string {
	if width <= 0 || height <= 0 {
		return content
	}
	panelWidth, panelHeight := panelSize(width, height)
	panel := panelStyle.Width(panelWidth).Height(panelHeight).Render(content)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, panel)
}

// pinTopRight splices box into the top right corner of base, keeping the
// cells of base to its left.
func pinTopRight(base, box string, width int) string {
	if width <= 0 {
		return box + "\n" + base
	}
	boxWidth := lipgloss.Width(box)
	if boxWidth > width {
		boxWidth = width
	}
	left := width - boxWidth
	lines := strings.Split(base, "\n")
	for i, row := range strings.Split(box, "\n") {
		if i >= len(lines) {
			lines = append(lines, "")
		}
		kept := ansi.Truncate(lines[i], left, "")
		if gap := left - ansi.StringWidth(kept); gap > 0 {
			kept += strings.Repeat(" ", gap)
		}
		lines[i] = kept + ansi.Truncate(row, boxWidth, "")
	}
	return strings.Join(lines, "\n")
}
