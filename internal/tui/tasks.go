package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/semester"
)

// taskRow is one line of the editor: a task type header when subtask is
// empty, otherwise one of its subtasks.
type taskRow struct {
	taskType string
	subtask  string
}

func (r taskRow) isHeader() bool { return r.subtask == "" }

type tasksModel struct {
	engine *semester.Engine
	width  int
	height int

	semester model.Semester
	tasks    model.Tasks
	rows     []taskRow
	cursor   int

	// undo holds the taxonomy replaced by the last reset to defaults. Any
	// other edit clears it.
	undo         model.Tasks
	undoSemester model.Semester

	formActive bool
	form       *huh.Form
	formType   string // "subtask", "type", "rename", "reset"
	formName   *string
	formOK     *bool
	editing    taskRow
}

func newTasksModel(e *semester.Engine) tasksModel {
	name, ok := "", false
	t := tasksModel{
		engine:   e,
		semester: e.ActiveSemester(),
		tasks:    e.Tasks(),
		formName: &name,
		formOK:   &ok,
	}
	t.rows = flatten(t.tasks)
	return t
}

func (t *tasksModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

type tasksDataMsg struct {
	semester model.Semester
	tasks    model.Tasks
}

func (t tasksModel) refresh() tea.Cmd {
	e := t.engine
	return func() tea.Msg {
		return tasksDataMsg{semester: e.ActiveSemester(), tasks: e.Tasks()}
	}
}

func flatten(tasks model.Tasks) []taskRow {
	var rows []taskRow
	for _, tt := range tasks {
		rows = append(rows, taskRow{taskType: tt.Name})
		for _, s := range tt.Subtasks {
			rows = append(rows, taskRow{taskType: tt.Name, subtask: s})
		}
	}
	return rows
}

func (t tasksModel) selected() (taskRow, bool) {
	if t.cursor < 0 || t.cursor >= len(t.rows) {
		return taskRow{}, false
	}
	return t.rows[t.cursor], true
}

func (t tasksModel) canUndo() bool {
	return t.undo != nil && t.undoSemester == t.semester
}

func (t tasksModel) update(msg tea.Msg) (tasksModel, tea.Cmd) {
	if t.formActive && t.form != nil {
		return t.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tasksDataMsg:
		if msg.semester != t.semester {
			t.cursor = 0
		}
		t.semester = msg.semester
		t.tasks = msg.tasks
		t.rows = flatten(msg.tasks)
		t.cursor = clamp(t.cursor, 0, len(t.rows)-1)
		return t, nil

	case tea.KeyMsg:
		return t.updateKeys(msg)
	}
	return t, nil
}

func (t tasksModel) updateKeys(msg tea.KeyMsg) (tasksModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if t.cursor > 0 {
			t.cursor--
		}
	case key.Matches(msg, keys.Down):
		if t.cursor < len(t.rows)-1 {
			t.cursor++
		}
	case key.Matches(msg, keys.New):
		row, ok := t.selected()
		if !ok {
			return t.showForm("type", taskRow{})
		}
		return t.showForm("subtask", taskRow{taskType: row.taskType})
	case key.Matches(msg, keys.NewType):
		return t.showForm("type", taskRow{})
	case key.Matches(msg, keys.Enter):
		if row, ok := t.selected(); ok {
			return t.showForm("rename", row)
		}
	case key.Matches(msg, keys.Delete):
		row, ok := t.selected()
		if !ok {
			return t, nil
		}
		if row.isHeader() {
			return t.apply(t.tasks.RemoveType(row.taskType), "Removed "+row.taskType)
		}
		return t.apply(t.tasks.RemoveSubtask(row.taskType, row.subtask), "Removed "+row.subtask)
	case key.Matches(msg, keys.MoveUp):
		return t.move(-1)
	case key.Matches(msg, keys.MoveDown):
		return t.move(1)
	case key.Matches(msg, keys.Reset):
		return t.showForm("reset", taskRow{})
	case key.Matches(msg, keys.Undo):
		if !t.canUndo() {
			return t, status("Nothing to undo")
		}
		t.engine.SetTasks(t.undo)
		t.undo = nil
		return t, tea.Batch(changed, status("Restored previous tasks"))
	}
	return t, nil
}

func (t tasksModel) move(delta int) (tasksModel, tea.Cmd) {
	row, ok := t.selected()
	if !ok || row.isHeader() {
		return t, nil
	}
	next := t.tasks.MoveSubtask(row.taskType, row.subtask, delta)
	subs, _ := next.Subtasks(row.taskType)
	before, _ := t.tasks.Subtasks(row.taskType)
	if strings.Join(subs, "\x00") == strings.Join(before, "\x00") {
		return t, nil
	}
	t.cursor += delta
	return t.apply(next, "")
}

// apply stores an edited taxonomy. Unchanged results are reported as
// rejected so the user sees why nothing happened.
func (t tasksModel) apply(next model.Tasks, msg string) (tasksModel, tea.Cmd) {
	if sameTasks(t.tasks, next) {
		return t, errorStatus("Name is empty or already in use")
	}
	t.undo = nil
	t.engine.SetTasks(next)
	if msg == "" {
		return t, changed
	}
	return t, tea.Batch(changed, status(msg))
}

func sameTasks(a, b model.Tasks) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name || strings.Join(a[i].Subtasks, "\x00") != strings.Join(b[i].Subtasks, "\x00") {
			return false
		}
		if len(a[i].Subtasks) != len(b[i].Subtasks) {
			return false
		}
	}
	return true
}

func (t tasksModel) showForm(kind string, row taskRow) (tasksModel, tea.Cmd) {
	t.formType = kind
	t.editing = row
	*t.formName = ""
	*t.formOK = false

	var field huh.Field
	switch kind {
	case "reset":
		field = huh.NewConfirm().
			Title("Reset " + t.semester.Label() + " tasks to the defaults?").
			Description("Press u afterwards to undo.").
			Affirmative("Reset").
			Negative("Cancel").
			Value(t.formOK)
	case "rename":
		current := row.subtask
		if row.isHeader() {
			current = row.taskType
		}
		*t.formName = current
		field = huh.NewInput().Title("Rename").Value(t.formName).Validate(required)
	case "type":
		field = huh.NewInput().Title("Task Type").Placeholder("e.g. Labs").Value(t.formName).Validate(required)
	default:
		field = huh.NewInput().Title("Subtask for " + row.taskType).Value(t.formName).Validate(required)
	}

	t.form = huh.NewForm(huh.NewGroup(field)).WithShowHelp(true).WithShowErrors(true)
	t.formActive = true
	return t, t.form.Init()
}

func required(s string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("name is required")
	}
	return nil
}

func (t tasksModel) updateForm(msg tea.Msg) (tasksModel, tea.Cmd) {
	// Check for escape to cancel form
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			t.formActive = false
			t.form = nil
			return t, nil
		}
	}

	form, cmd := t.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		t.form = f
	}

	switch t.form.State {
	case huh.StateCompleted:
		t.formActive = false
		name := strings.TrimSpace(*t.formName)
		row := t.editing
		switch t.formType {
		case "subtask":
			return t.apply(t.tasks.AddSubtask(row.taskType, name), "Added "+name)
		case "type":
			return t.apply(t.tasks.AddType(name), "Added "+name)
		case "rename":
			if row.isHeader() {
				if name == row.taskType {
					return t, nil
				}
				return t.apply(t.tasks.RenameType(row.taskType, name), "Renamed to "+name)
			}
			if name == row.subtask {
				return t, nil
			}
			return t.apply(t.tasks.RenameSubtask(row.taskType, row.subtask, name), "Renamed to "+name)
		case "reset":
			if !*t.formOK {
				return t, nil
			}
			return t.resetToDefaults()
		}
		return t, nil
	case huh.StateAborted:
		t.formActive = false
		return t, nil
	}

	return t, cmd
}

func (t tasksModel) resetToDefaults() (tasksModel, tea.Cmd) {
	t.undo = t.tasks.Clone()
	t.undoSemester = t.semester
	t.engine.ResetTasks()
	return t, tea.Batch(changed, status("Tasks reset to defaults (u to undo)"))
}

func (t tasksModel) view() string {
	w := t.width - 4

	if t.formActive && t.form != nil {
		titles := map[string]string{
			"subtask": "New Subtask",
			"type":    "New Task Type",
			"rename":  "Rename",
			"reset":   "Reset Tasks",
		}
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(titles[t.formType]), "", t.form.View()),
		)
	}

	title := titleStyle.Render("Tasks") + "  " + subtitleStyle.Render(t.semester.Label())

	if len(t.rows) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title, "", mutedStyle.Render("No task types. Press N to add one or r to restore the defaults."),
		))
	}

	var rows []string
	rows = append(rows, title, "")
	for i, row := range t.rows {
		cursor := "  "
		style := normalItemStyle
		if i == t.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		if row.isHeader() {
			subs, _ := t.tasks.Subtasks(row.taskType)
			count := mutedStyle.Render(fmt.Sprintf(" (%d)", len(subs)))
			rows = append(rows, cursor+style.Bold(true).Render(row.taskType)+count)
			continue
		}
		rows = append(rows, cursor+"  "+style.Render(truncate(row.subtask, max(w-10, 8))))
	}

	help := "  n: add subtask  N: add type  enter: rename  d: delete  K/J: move  r: reset"
	if t.canUndo() {
		help += "  u: undo"
	}
	rows = append(rows, "", mutedStyle.Render(help))

	return panelStyle.Width(w).Render(strings.Join(rows, "\n"))
}
