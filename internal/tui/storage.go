package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/sadopc/coursematrix/internal/semester"
	"github.com/sadopc/coursematrix/internal/storage"
)

type storageModel struct {
	engine  *semester.Engine
	manager *storage.Manager
	quota   int64
	dbPath  string
	width   int
	height  int

	info     storage.Info
	warnings []string
	saved    semester.SaveStatus

	formActive bool
	form       *huh.Form
	confirm    *bool
}

func newStorageModel(e *semester.Engine, m *storage.Manager, quota int64, dbPath string) storageModel {
	ok := false
	return storageModel{
		engine:  e,
		manager: m,
		quota:   quota,
		dbPath:  dbPath,
		confirm: &ok,
	}
}

func (s *storageModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type storageDataMsg struct {
	info     storage.Info
	warnings []string
	saved    semester.SaveStatus
}

func (s storageModel) refresh() tea.Cmd {
	e, m := s.engine, s.manager
	return func() tea.Msg {
		msg := storageDataMsg{
			warnings: e.LoadReport().Warnings,
			saved:    e.Status(),
		}
		if m != nil {
			msg.info = m.Info()
		}
		return msg
	}
}

func (s storageModel) update(msg tea.Msg) (storageModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case storageDataMsg:
		s.info = msg.info
		s.warnings = msg.warnings
		s.saved = msg.saved
		return s, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.ClearAll) {
			return s.showForm()
		}
	}
	return s, nil
}

func (s storageModel) showForm() (storageModel, tea.Cmd) {
	*s.confirm = false
	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Clear all data?").
				Description("Courses, tasks and progress of both semesters are deleted. This cannot be undone.").
				Affirmative("Delete everything").
				Negative("Cancel").
				Value(s.confirm),
		),
	).WithShowHelp(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s storageModel) updateForm(msg tea.Msg) (storageModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	switch s.form.State {
	case huh.StateCompleted:
		s.formActive = false
		if !*s.confirm {
			return s, nil
		}
		return s, s.clearAll()
	case huh.StateAborted:
		s.formActive = false
		return s, nil
	}

	return s, cmd
}

func (s storageModel) clearAll() tea.Cmd {
	if !s.engine.ClearAll() {
		return tea.Batch(changed, errorStatus("Some records could not be removed"))
	}
	return tea.Batch(changed, status("All data cleared"))
}

func (s storageModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render("Clear Data"), "", s.form.View()),
		)
	}

	label := lipgloss.NewStyle().Width(16)
	line := func(k, v string) string {
		return "  " + label.Render(k) + " " + v
	}

	available := successStyle.Render("available")
	if !s.info.Available {
		available = errorStyle.Render("unavailable")
	}

	usage := humanize.Bytes(uint64(max(s.info.Used, 0)))
	if s.quota > 0 {
		usage = fmt.Sprintf("%s of %s", usage, humanize.Bytes(uint64(s.quota)))
	}

	lastSaved := mutedStyle.Render("never")
	if !s.saved.LastSaved.IsZero() {
		lastSaved = highlightStyle.Render(humanize.Time(s.saved.LastSaved))
	}

	rows := []string{
		titleStyle.Render("Storage"),
		"",
		line("Status", available),
		line("Database", highlightStyle.Render(s.dbPath)),
		line("Used", highlightStyle.Render(usage)),
		line("Last saved", lastSaved),
		line("Records", highlightStyle.Render(fmt.Sprintf("%d", len(s.info.Keys)))),
	}
	for _, k := range s.info.Keys {
		rows = append(rows, "    "+mutedStyle.Render(k))
	}

	if len(s.warnings) > 0 {
		rows = append(rows, "", warningStyle.Render(fmt.Sprintf("  Repaired on load (%d)", len(s.warnings))))
		for _, warn := range s.warnings {
			rows = append(rows, "    "+mutedStyle.Render(truncate(warn, max(w-10, 20))))
		}
	}

	rows = append(rows, "", mutedStyle.Render("  D: clear all data"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
