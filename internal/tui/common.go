package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sadopc/coursematrix/internal/model"
)

// viewState represents the currently active view.
type viewState int

const (
	viewMatrix viewState = iota
	viewTasks
	viewReports
	viewStorage
)

var viewNames = []string{"Matrix", "Tasks", "Reports", "Storage"}

// --- Messages ---

type statusMsg struct {
	text    string
	isError bool
}

type tickMsg time.Time

type exportDoneMsg struct {
	path string
}

// semesterChangedMsg is sent after any edit so every view reloads.
type semesterChangedMsg struct{}

func changed() tea.Msg { return semesterChangedMsg{} }

func status(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text} }
}

func errorStatus(text string) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: true} }
}

// --- Helpers ---

func statusGlyph(s model.Status) string {
	switch s {
	case model.Complete:
		return "✓"
	case model.NotApplicable:
		return "–"
	default:
		return "·"
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 {
		return ""
	}
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	return min(max(v, lo), hi)
}
