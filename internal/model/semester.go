package model

import "encoding/json"

// Semester selects one of the two independent data partitions.
type Semester string

const (
	Start Semester = "start"
	End   Semester = "end"
)

var Semesters = []Semester{Start, End}

// ParseSemester returns Start and false for anything but "start" or "end".
func ParseSemester(v string) (Semester, bool) {
	s := Semester(v)
	if !s.Valid() {
		return Start, false
	}
	return s, true
}

func (s Semester) Valid() bool {
	return s == Start || s == End
}

// Other returns the opposite semester. Invalid values map to End so that the
// pair (s, s.Other()) always covers both partitions when s defaults to Start.
func (s Semester) Other() Semester {
	if s == End {
		return Start
	}
	return End
}

func (s Semester) Label() string {
	if s == End {
		return "End of Semester"
	}
	return "Start of Semester"
}

// SemesterData is everything tracked for one semester.
type SemesterData struct {
	Courses    []Course   `json:"courses"`
	Tasks      Tasks      `json:"tasks"`
	TaskStatus TaskStatus `json:"taskStatus"`
}

func NewSemesterData(defaults Tasks) SemesterData {
	return SemesterData{
		Courses:    []Course{},
		Tasks:      defaults.Clone(),
		TaskStatus: TaskStatus{},
	}
}

func (d SemesterData) Clone() SemesterData {
	return SemesterData{
		Courses:    CloneCourses(d.Courses),
		Tasks:      d.Tasks.Clone(),
		TaskStatus: d.TaskStatus.Clone(),
	}
}

func (d SemesterData) MarshalJSON() ([]byte, error) {
	type persisted struct {
		Courses    []Course          `json:"courses"`
		Tasks      Tasks             `json:"tasks"`
		TaskStatus map[string]Status `json:"taskStatus"`
	}
	p := persisted{
		Courses:    d.Courses,
		Tasks:      d.Tasks,
		TaskStatus: d.TaskStatus.flatten(d.Tasks.Keys(d.Courses)),
	}
	if p.Courses == nil {
		p.Courses = []Course{}
	}
	return json.Marshal(p)
}
