package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/progress"
	"github.com/sadopc/coursematrix/internal/semester"
)

const (
	courseColWidth = 14
	cellWidth      = 12
	totalColWidth  = 8
)

type matrixModel struct {
	engine *semester.Engine
	width  int
	height int

	semester   model.Semester
	data       model.SemesterData
	otherCount int

	row      int
	col      int
	expanded string // task type whose subtasks are shown; "" shows task types

	formActive  bool
	form        *huh.Form
	formType    string // "course", "reset"
	formValue   *string
	formConfirm *bool
}

func newMatrixModel(e *semester.Engine) matrixModel {
	value, confirm := "", false
	return matrixModel{
		engine:      e,
		semester:    e.ActiveSemester(),
		data:        e.Snapshot(e.ActiveSemester()),
		formValue:   &value,
		formConfirm: &confirm,
	}
}

func (m *matrixModel) setSize(w, h int) {
	m.width = w
	m.height = h
}

type matrixDataMsg struct {
	semester   model.Semester
	data       model.SemesterData
	otherCount int
}

func (m matrixModel) refresh() tea.Cmd {
	e := m.engine
	return func() tea.Msg {
		s := e.ActiveSemester()
		return matrixDataMsg{
			semester:   s,
			data:       e.Snapshot(s),
			otherCount: len(e.OtherSemesterCourses()),
		}
	}
}

// columns returns the header names of the current layout.
func (m matrixModel) columns() []string {
	if m.expanded == "" {
		return m.data.Tasks.Names()
	}
	subs, _ := m.data.Tasks.Subtasks(m.expanded)
	return subs
}

func (m matrixModel) selectedCourse() (model.Course, bool) {
	if m.row < 0 || m.row >= len(m.data.Courses) {
		return model.Course{}, false
	}
	return m.data.Courses[m.row], true
}

func (m matrixModel) update(msg tea.Msg) (matrixModel, tea.Cmd) {
	if m.formActive && m.form != nil {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case matrixDataMsg:
		if msg.semester != m.semester {
			m.expanded = ""
			m.row, m.col = 0, 0
		}
		m.semester = msg.semester
		m.data = msg.data
		m.otherCount = msg.otherCount
		if m.expanded != "" && m.data.Tasks.Index(m.expanded) < 0 {
			m.expanded = ""
		}
		m.row = clamp(m.row, 0, len(m.data.Courses)-1)
		m.col = clamp(m.col, 0, len(m.columns())-1)
		return m, nil

	case tea.KeyMsg:
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m matrixModel) updateKeys(msg tea.KeyMsg) (matrixModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(msg, keys.Down):
		if m.row < len(m.data.Courses)-1 {
			m.row++
		}
	case key.Matches(msg, keys.Left):
		if m.col > 0 {
			m.col--
		}
	case key.Matches(msg, keys.Right):
		if m.col < len(m.columns())-1 {
			m.col++
		}
	case key.Matches(msg, keys.Enter):
		if m.expanded == "" && len(m.data.Tasks) > 0 {
			m.expanded = m.data.Tasks[m.col].Name
			m.col = 0
		}
	case key.Matches(msg, keys.Back):
		if m.expanded != "" {
			m.col = max(m.data.Tasks.Index(m.expanded), 0)
			m.expanded = ""
		}
	case key.Matches(msg, keys.Toggle):
		return m.toggle()
	case key.Matches(msg, keys.New):
		return m.showCourseForm()
	case key.Matches(msg, keys.Delete):
		if c, ok := m.selectedCourse(); ok {
			m.engine.RemoveCourse(c.ID)
			return m, tea.Batch(changed, status("Removed "+c.Code))
		}
	case key.Matches(msg, keys.Copy):
		return m, m.copyCourses()
	case key.Matches(msg, keys.Semester):
		m.engine.SetActiveSemester(m.semester.Other())
		return m, changed
	case key.Matches(msg, keys.Reset):
		if len(m.data.Courses) > 0 {
			return m.showResetForm()
		}
	}
	return m, nil
}

func (m matrixModel) toggle() (matrixModel, tea.Cmd) {
	c, ok := m.selectedCourse()
	if !ok {
		return m, nil
	}
	if m.expanded == "" {
		return m, status("Press enter to open a task type")
	}
	subs := m.columns()
	if m.col >= len(subs) {
		return m, nil
	}
	m.engine.ToggleStatus(model.Key(c.ID, m.expanded, subs[m.col]))
	return m, changed
}

func (m matrixModel) copyCourses() tea.Cmd {
	n := m.engine.CopyCourses()
	target := m.semester.Other().Label()
	if n == 0 {
		return status("No new courses to copy to " + target)
	}
	noun := "courses"
	if n == 1 {
		noun = "course"
	}
	return tea.Batch(changed, status(fmt.Sprintf("Copied %d %s to %s", n, noun, target)))
}

func (m matrixModel) showCourseForm() (matrixModel, tea.Cmd) {
	*m.formValue = ""
	m.formType = "course"
	existing := m.data.Courses

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Course Code").
				Placeholder("e.g. MATH101").
				Value(m.formValue).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("course code is required")
					}
					if _, dup := model.FindByCode(existing, s); dup {
						return fmt.Errorf("course already exists")
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m matrixModel) showResetForm() (matrixModel, tea.Cmd) {
	*m.formConfirm = false
	m.formType = "reset"

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Reset all progress for " + m.semester.Label() + "?").
				Description("Courses and tasks are kept; every status goes back to incomplete.").
				Affirmative("Reset").
				Negative("Cancel").
				Value(m.formConfirm),
		),
	).WithShowHelp(true)

	m.formActive = true
	return m, m.form.Init()
}

func (m matrixModel) updateForm(msg tea.Msg) (matrixModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			m.formActive = false
			m.form = nil
			return m, nil
		}
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.formActive = false
		switch m.formType {
		case "course":
			return m.addCourse(*m.formValue)
		case "reset":
			if *m.formConfirm {
				m.engine.ResetProgress()
				return m, tea.Batch(changed, status("Progress reset"))
			}
		}
		return m, nil
	case huh.StateAborted:
		m.formActive = false
		return m, nil
	}

	return m, cmd
}

func (m matrixModel) addCourse(code string) (matrixModel, tea.Cmd) {
	code = strings.TrimSpace(code)
	if !m.engine.AddCourse(code) {
		return m, errorStatus("Could not add " + code)
	}
	m.row = len(m.data.Courses)
	return m, tea.Batch(changed, status("Added "+code))
}

func (m matrixModel) view() string {
	w := m.width - 4

	if m.formActive && m.form != nil {
		title := titleStyle.Render("New Course")
		if m.formType == "reset" {
			title = titleStyle.Render("Reset Progress")
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", m.form.View()),
		)
	}

	header := m.renderSemesterTabs()

	if len(m.data.Courses) == 0 {
		hint := "No courses yet. Press n to add one."
		if m.otherCount > 0 {
			hint = fmt.Sprintf("No courses yet. Press n to add one, or switch semester and press c to copy %d.", m.otherCount)
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, header, "", mutedStyle.Render(hint)),
		)
	}

	nav := "  space: toggle  esc: back  ←/→: subtask"
	if m.expanded == "" {
		nav = "  enter: open task type  n: add  d: remove  c: copy  s: semester  r: reset"
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", m.renderTable(w-4), "", mutedStyle.Render(nav),
		),
	)
}

func (m matrixModel) renderSemesterTabs() string {
	var tabs []string
	for _, s := range model.Semesters {
		if s == m.semester {
			tabs = append(tabs, activeTabStyle.Render(s.Label()))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(s.Label()))
		}
	}
	overall := progress.Overall(m.data.Courses, m.data.Tasks, m.data.TaskStatus)
	title := titleStyle.Render("Courses")
	if m.expanded != "" {
		title = titleStyle.Render(m.expanded)
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		title, "  ", lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...), "  ",
		percentStyle(overall).Render(fmt.Sprintf("%d%% overall", overall)),
	)
}

// visibleColumns returns the window of column indexes that fits in w.
func (m matrixModel) visibleColumns(w, n int) (int, int) {
	fit := max((w-courseColWidth-totalColWidth)/cellWidth, 1)
	if n <= fit {
		return 0, n
	}
	start := clamp(m.col-fit+1, 0, n-fit)
	return start, start + fit
}

func (m matrixModel) renderTable(w int) string {
	cols := m.columns()
	from, to := m.visibleColumns(w, len(cols))

	var rows []string
	head := fmt.Sprintf("  %-*s", courseColWidth-2, "Course")
	for _, c := range cols[from:to] {
		head += fmt.Sprintf("%-*s", cellWidth, truncate(c, cellWidth-1))
	}
	head += fmt.Sprintf("%*s", totalColWidth, "Total")
	rows = append(rows, mutedStyle.Render(head))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", max(min(w-2, courseColWidth+cellWidth*(to-from)+totalColWidth-2), 1))))

	for i, course := range m.data.Courses {
		cursor := "  "
		nameStyle := normalItemStyle
		if i == m.row {
			cursor = "> "
			nameStyle = selectedItemStyle
		}
		line := cursor + nameStyle.Render(fmt.Sprintf("%-*s", courseColWidth-2, truncate(course.Code, courseColWidth-3)))
		for j := from; j < to; j++ {
			cell := m.cell(course.ID, cols[j])
			padded := fmt.Sprintf("%-*s", cellWidth-1, cell.text)
			style := cell.style
			if i == m.row && j == m.col {
				style = style.Inherit(cursorCellStyle)
			}
			line += style.Render(padded) + " "
		}
		total := progress.CourseProgress(course.ID, m.data.Tasks, m.data.TaskStatus)
		line += percentStyle(total).Render(fmt.Sprintf("%*s", totalColWidth, fmt.Sprintf("%d%%", total)))
		rows = append(rows, line)
	}

	if m.expanded == "" {
		footer := fmt.Sprintf("  %-*s", courseColWidth-2, "All")
		for j := from; j < to; j++ {
			p := progress.TaskProgress(cols[j], m.data.Courses, m.data.Tasks, m.data.TaskStatus)
			footer += percentStyle(p).Render(fmt.Sprintf("%-*s", cellWidth, fmt.Sprintf("%d%%", p)))
		}
		rows = append(rows, "", footer)
	}

	return strings.Join(rows, "\n")
}

type matrixCell struct {
	text  string
	style lipgloss.Style
}

func (m matrixModel) cell(courseID int64, column string) matrixCell {
	if m.expanded == "" {
		p := progress.CourseTaskProgress(courseID, column, m.data.Tasks, m.data.TaskStatus)
		return matrixCell{text: fmt.Sprintf("%d%%", p), style: percentStyle(p)}
	}
	glyph := statusGlyph(m.data.TaskStatus.Get(model.Key(courseID, m.expanded, column)))
	return matrixCell{text: " " + glyph, style: cellStyle(glyph)}
}
