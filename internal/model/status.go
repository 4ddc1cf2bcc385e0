package model

import (
	"cmp"
	"encoding/json"
	"slices"
	"strconv"
)

// Status is the tri-state completion of one (course, task type, subtask) triple.
type Status int

const (
	Incomplete Status = iota
	Complete
	NotApplicable
)

// Next advances Incomplete -> Complete -> NotApplicable -> Incomplete.
func (s Status) Next() Status {
	switch s {
	case Incomplete:
		return Complete
	case Complete:
		return NotApplicable
	default:
		return Incomplete
	}
}

func (s Status) String() string {
	switch s {
	case Complete:
		return "complete"
	case NotApplicable:
		return "na"
	default:
		return "incomplete"
	}
}

// MarshalJSON writes the persisted form: true, false or "na".
func (s Status) MarshalJSON() ([]byte, error) {
	switch s {
	case Complete:
		return []byte("true"), nil
	case NotApplicable:
		return []byte(`"na"`), nil
	default:
		return []byte("false"), nil
	}
}

// StatusKey identifies a status entry by its three fields. Task type and
// subtask names may contain hyphens; the key is never rebuilt by splitting
// its string form.
type StatusKey struct {
	CourseID int64
	TaskType string
	Subtask  string
}

func Key(courseID int64, taskType, subtask string) StatusKey {
	return StatusKey{CourseID: courseID, TaskType: taskType, Subtask: subtask}
}

// String returns the persisted composite form "{courseId}-{taskType}-{subtask}".
func (k StatusKey) String() string {
	return strconv.FormatInt(k.CourseID, 10) + "-" + k.TaskType + "-" + k.Subtask
}

// TaskStatus maps triples to their status. Absent entries are Incomplete.
type TaskStatus map[StatusKey]Status

func (ts TaskStatus) Get(k StatusKey) Status {
	return ts[k]
}

func (ts TaskStatus) Clone() TaskStatus {
	out := make(TaskStatus, len(ts))
	for k, v := range ts {
		out[k] = v
	}
	return out
}

func (ts TaskStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(ts.flatten(nil))
}

// flatten keys the map by composite string. Distinct triples can share a
// composite form ("a-b","c" and "a","b-c"); the first one visited keeps it.
// Keys in order are visited first, then the rest sorted by field.
func (ts TaskStatus) flatten(order []StatusKey) map[string]Status {
	flat := make(map[string]Status, len(ts))
	put := func(k StatusKey) {
		v, ok := ts[k]
		if !ok {
			return
		}
		if _, taken := flat[k.String()]; !taken {
			flat[k.String()] = v
		}
	}
	for _, k := range order {
		put(k)
	}
	rest := make([]StatusKey, 0, len(ts))
	for k := range ts {
		rest = append(rest, k)
	}
	slices.SortFunc(rest, compareKeys)
	for _, k := range rest {
		put(k)
	}
	return flat
}

func compareKeys(a, b StatusKey) int {
	return cmp.Or(
		cmp.Compare(a.CourseID, b.CourseID),
		cmp.Compare(a.TaskType, b.TaskType),
		cmp.Compare(a.Subtask, b.Subtask),
	)
}

// ResetStatus marks every triple of courses x tasks Incomplete.
func ResetStatus(courses []Course, tasks Tasks) TaskStatus {
	out := TaskStatus{}
	for _, k := range tasks.Keys(courses) {
		out[k] = Incomplete
	}
	return out
}
