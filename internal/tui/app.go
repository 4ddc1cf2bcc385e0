package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/coursematrix/internal/export"
	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/semester"
	"github.com/sadopc/coursematrix/internal/storage"
)

// Options configures the parts of the app that are not owned by the engine.
type Options struct {
	Quota     int64
	DBPath    string
	ExportDir string
}

// App is the root Bubble Tea model.
type App struct {
	engine    *semester.Engine
	exportDir string
	width     int
	height    int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int

	matrix  matrixModel
	tasks   tasksModel
	reports reportsModel
	storage storageModel
	saving  saveIndicator

	help        help.Model
	status      string
	statusError bool
}

func NewApp(e *semester.Engine, m *storage.Manager, opts Options) App {
	h := help.New()
	h.ShowAll = false

	dir := opts.ExportDir
	if dir == "" {
		dir, _ = os.UserHomeDir()
	}

	a := App{
		engine:     e,
		exportDir:  dir,
		activeView: viewMatrix,
		matrix:     newMatrixModel(e),
		tasks:      newTasksModel(e),
		reports:    newReportsModel(e),
		storage:    newStorageModel(e, m, opts.Quota, opts.DBPath),
		saving:     newSaveIndicator(),
		help:       h,
	}
	a.saving.sync(e)
	if n := e.LoadReport().Count(); n > 0 {
		a.status = fmt.Sprintf("Repaired %d problems in saved data (see Storage)", n)
	}
	return a
}

// Run starts the full-screen program and blocks until the user quits.
func Run(e *semester.Engine, m *storage.Manager, opts Options) error {
	p := tea.NewProgram(NewApp(e, m, opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		a.matrix.refresh(),
		tickCmd(),
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.matrix.setSize(a.width, contentHeight)
		a.tasks.setSize(a.width, contentHeight)
		a.reports.setSize(a.width, contentHeight)
		a.storage.setSize(a.width, contentHeight)
		return a, a.reports.refresh()

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Dismiss):
			if a.saving.hasError() {
				a.engine.ClearStorageError()
				a.saving.sync(a.engine)
				return a, nil
			}
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			a.activeView = viewMatrix
			return a, a.matrix.refresh()
		case key.Matches(msg, keys.Tab2):
			a.activeView = viewTasks
			return a, a.tasks.refresh()
		case key.Matches(msg, keys.Tab3):
			a.activeView = viewReports
			return a, a.reports.refresh()
		case key.Matches(msg, keys.Tab4):
			a.activeView = viewStorage
			return a, a.storage.refresh()
		case key.Matches(msg, keys.Tab):
			a.activeView = (a.activeView + 1) % viewState(len(viewNames))
			return a, a.refreshCurrentView()
		}

	case tickMsg:
		a.saving.sync(a.engine)
		cmds := []tea.Cmd{tickCmd()}
		if a.activeView == viewStorage {
			cmds = append(cmds, a.storage.refresh())
		}
		return a, tea.Batch(cmds...)

	case semesterChangedMsg:
		a.saving.sync(a.engine)
		return a, tea.Batch(
			a.matrix.refresh(),
			a.tasks.refresh(),
			a.reports.refresh(),
			a.storage.refresh(),
		)

	case statusMsg:
		a.status = msg.text
		a.statusError = msg.isError
		return a, nil

	case exportDoneMsg:
		a.status = "Exported to " + msg.path
		a.statusError = false
		a.exportPicking = false
		return a, nil

	// Data messages go to their owner whatever view is showing.
	case matrixDataMsg:
		var cmd tea.Cmd
		a.matrix, cmd = a.matrix.update(msg)
		return a, cmd
	case tasksDataMsg:
		var cmd tea.Cmd
		a.tasks, cmd = a.tasks.update(msg)
		return a, cmd
	case reportsDataMsg:
		var cmd tea.Cmd
		a.reports, cmd = a.reports.update(msg)
		return a, cmd
	case storageDataMsg:
		var cmd tea.Cmd
		a.storage, cmd = a.storage.update(msg)
		return a, cmd
	}

	return a.updateActiveView(msg)
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch a.activeView {
	case viewMatrix:
		a.matrix, cmd = a.matrix.update(msg)
	case viewTasks:
		a.tasks, cmd = a.tasks.update(msg)
	case viewReports:
		a.reports, cmd = a.reports.update(msg)
	case viewStorage:
		a.storage, cmd = a.storage.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	switch a.activeView {
	case viewMatrix:
		return a.matrix.formActive
	case viewTasks:
		return a.tasks.formActive
	case viewStorage:
		return a.storage.formActive
	}
	return false
}

func (a App) refreshCurrentView() tea.Cmd {
	switch a.activeView {
	case viewMatrix:
		return a.matrix.refresh()
	case viewTasks:
		return a.tasks.refresh()
	case viewReports:
		return a.reports.refresh()
	case viewStorage:
		return a.storage.refresh()
	}
	return nil
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()
	if banner := a.saving.banner(a.width); banner != "" {
		header = lipgloss.JoinVertical(lipgloss.Left, header, banner)
	}

	var content string
	switch a.activeView {
	case viewMatrix:
		content = a.matrix.view()
	case viewTasks:
		content = a.tasks.view()
	case viewReports:
		content = a.reports.view()
	case viewStorage:
		content = a.storage.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := max(a.height-headerHeight-footerHeight, 1)

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("coursematrix")
	label := subtitleStyle.Render(" " + a.engine.ActiveSemester().Label())
	gap := max(a.width-lipgloss.Width(title)-lipgloss.Width(label)-lipgloss.Width(tabRow)-4, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, label, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		style := mutedStyle
		if a.statusError {
			style = errorStyle
		}
		status = style.Render(" " + a.status)
	}

	left := footerStyle.Render(helpView)
	right := a.saving.view() + status

	gap := max(a.width-lipgloss.Width(left)-lipgloss.Width(right)-2, 1)
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, right)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export " + a.engine.ActiveSemester().Label())
	formats := []string{"CSV", "JSON"}
	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")
	for i, f := range formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+f))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < 1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(a.exportCursor)
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

func exportName(s model.Semester, ext string, now time.Time) string {
	return fmt.Sprintf("coursematrix-%s-%s.%s", s, now.Format("2006-01-02"), ext)
}

func (a App) doExport(format int) tea.Cmd {
	e, dir := a.engine, a.exportDir
	return func() tea.Msg {
		s := e.ActiveSemester()
		data := e.Snapshot(s)
		now := time.Now()

		if format == 0 {
			path := filepath.Join(dir, exportName(s, "csv", now))
			if err := export.ToCSV(s, data, path); err != nil {
				return statusMsg{text: fmt.Sprintf("CSV error: %v", err), isError: true}
			}
			return exportDoneMsg{path: path}
		}

		path := filepath.Join(dir, exportName(s, "json", now))
		if err := export.ToJSON(s, data, path); err != nil {
			return statusMsg{text: fmt.Sprintf("JSON error: %v", err), isError: true}
		}
		return exportDoneMsg{path: path}
	}
}
