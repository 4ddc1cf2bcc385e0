// Package progress computes completion percentages from a status map.
// Not-applicable entries are left out of both the count and the total.
package progress

import (
	"github.com/sadopc/coursematrix/internal/model"
)

// Tally counts completed and applicable triples.
type Tally struct {
	Completed  int
	Applicable int
}

func (t *Tally) add(s model.Status) {
	switch s {
	case model.NotApplicable:
	case model.Complete:
		t.Completed++
		t.Applicable++
	default:
		t.Applicable++
	}
}

// Percent rounds 100*Completed/Applicable half up, or returns 0 when nothing
// is applicable.
func (t Tally) Percent() int {
	if t.Applicable == 0 {
		return 0
	}
	return (200*t.Completed + t.Applicable) / (2 * t.Applicable)
}

// TaskProgress covers one task type across all courses.
func TaskProgress(taskType string, courses []model.Course, tasks model.Tasks, status model.TaskStatus) int {
	return taskTally(taskType, courses, tasks, status).Percent()
}

func taskTally(taskType string, courses []model.Course, tasks model.Tasks, status model.TaskStatus) Tally {
	var t Tally
	subs, _ := tasks.Subtasks(taskType)
	for _, c := range courses {
		for _, sub := range subs {
			t.add(status.Get(model.Key(c.ID, taskType, sub)))
		}
	}
	return t
}

// CourseTaskProgress covers one task type for one course.
func CourseTaskProgress(courseID int64, taskType string, tasks model.Tasks, status model.TaskStatus) int {
	var t Tally
	subs, _ := tasks.Subtasks(taskType)
	for _, sub := range subs {
		t.add(status.Get(model.Key(courseID, taskType, sub)))
	}
	return t.Percent()
}

// CourseProgress covers every task type for one course.
func CourseProgress(courseID int64, tasks model.Tasks, status model.TaskStatus) int {
	return courseTally(courseID, tasks, status).Percent()
}

func courseTally(courseID int64, tasks model.Tasks, status model.TaskStatus) Tally {
	var t Tally
	for _, tt := range tasks {
		for _, sub := range tt.Subtasks {
			t.add(status.Get(model.Key(courseID, tt.Name, sub)))
		}
	}
	return t
}

// Overall covers every triple of the semester.
func Overall(courses []model.Course, tasks model.Tasks, status model.TaskStatus) int {
	var t Tally
	for _, c := range courses {
		ct := courseTally(c.ID, tasks, status)
		t.Completed += ct.Completed
		t.Applicable += ct.Applicable
	}
	return t.Percent()
}

// Row is one line of a progress summary.
type Row struct {
	Name       string
	Completed  int
	Applicable int
	Percent    int
}

func newRow(name string, t Tally) Row {
	return Row{Name: name, Completed: t.Completed, Applicable: t.Applicable, Percent: t.Percent()}
}

// Summary groups a semester's progress for display.
type Summary struct {
	Overall  int
	ByTask   []Row
	ByCourse []Row
}

// Summarize computes every figure the reports need in one pass over the
// semester. Rows follow task and course display order.
func Summarize(data model.SemesterData) Summary {
	var s Summary
	var total Tally
	for _, tt := range data.Tasks {
		t := taskTally(tt.Name, data.Courses, data.Tasks, data.TaskStatus)
		s.ByTask = append(s.ByTask, newRow(tt.Name, t))
	}
	for _, c := range data.Courses {
		t := courseTally(c.ID, data.Tasks, data.TaskStatus)
		total.Completed += t.Completed
		total.Applicable += t.Applicable
		s.ByCourse = append(s.ByCourse, newRow(c.Code, t))
	}
	s.Overall = total.Percent()
	return s
}
