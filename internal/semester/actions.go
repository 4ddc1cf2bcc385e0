package semester

import (
	"strings"

	"github.com/sadopc/coursematrix/internal/model"
)

// AddCourse appends a course with a fresh ID to the active semester. Blank
// codes and codes already present (ignoring case) are rejected.
func (e *Engine) AddCourse(code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.data[e.active]
	if _, exists := model.FindByCode(d.Courses, code); exists {
		return false
	}
	d.Courses = append(d.Courses, model.Course{ID: e.nextIDLocked(), Code: code})
	e.scheduleLocked(DataKey(e.active))
	return true
}

// RemoveCourse drops a course from the active semester. Its statuses stay
// behind until the next load prunes them.
func (e *Engine) RemoveCourse(id int64) bool {
	removed := false
	e.mu.Lock()
	defer e.mu.Unlock()
	d := e.data[e.active]
	kept := d.Courses[:0:0]
	for _, c := range d.Courses {
		if c.ID == id {
			removed = true
			continue
		}
		kept = append(kept, c)
	}
	if !removed {
		return false
	}
	d.Courses = kept
	e.scheduleLocked(DataKey(e.active))
	return true
}

// ToggleStatus advances one triple's status and returns the new value.
func (e *Engine) ToggleStatus(k model.StatusKey) model.Status {
	var next model.Status
	e.UpdateTaskStatus(func(prev model.TaskStatus) model.TaskStatus {
		next = prev.Get(k).Next()
		prev[k] = next
		return prev
	})
	return next
}

// ResetProgress marks every triple of the active semester Incomplete while
// keeping its courses and tasks.
func (e *Engine) ResetProgress() {
	e.mutate(func(d *model.SemesterData) {
		d.TaskStatus = model.ResetStatus(d.Courses, d.Tasks)
	})
}

// ResetTasks restores the active semester's default taxonomy.
func (e *Engine) ResetTasks() {
	e.mu.Lock()
	defaults := e.defaults.For(e.active)
	e.mu.Unlock()
	e.SetTasks(defaults)
}

// Defaults returns the default taxonomy for s.
func (e *Engine) Defaults(s model.Semester) model.Tasks {
	return e.defaults.For(s)
}
