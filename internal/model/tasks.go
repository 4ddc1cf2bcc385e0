package model

import (
	"bytes"
	"encoding/json"
	"strings"
)

// TaskType is a named category holding an ordered list of subtasks.
type TaskType struct {
	Name     string
	Subtasks []string
}

// Tasks is the task taxonomy of one semester. Order is display order and is
// kept across edits; the JSON form is an object in slice order.
type Tasks []TaskType

func (t Tasks) Clone() Tasks {
	if t == nil {
		return nil
	}
	out := make(Tasks, len(t))
	for i, tt := range t {
		subs := make([]string, len(tt.Subtasks))
		copy(subs, tt.Subtasks)
		out[i] = TaskType{Name: tt.Name, Subtasks: subs}
	}
	return out
}

func (t Tasks) Names() []string {
	names := make([]string, len(t))
	for i, tt := range t {
		names[i] = tt.Name
	}
	return names
}

func (t Tasks) Index(name string) int {
	for i, tt := range t {
		if tt.Name == name {
			return i
		}
	}
	return -1
}

func (t Tasks) Subtasks(name string) ([]string, bool) {
	i := t.Index(name)
	if i < 0 {
		return nil, false
	}
	return t[i].Subtasks, true
}

// Keys enumerates every (course, task type, subtask) triple in display order.
func (t Tasks) Keys(courses []Course) []StatusKey {
	var keys []StatusKey
	for _, c := range courses {
		for _, tt := range t {
			for _, sub := range tt.Subtasks {
				keys = append(keys, Key(c.ID, tt.Name, sub))
			}
		}
	}
	return keys
}

func (t Tasks) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, tt := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(tt.Name)
		if err != nil {
			return nil, err
		}
		subs := tt.Subtasks
		if subs == nil {
			subs = []string{}
		}
		list, err := json.Marshal(subs)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(list)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// The editing helpers below return an edited copy. Edits that would leave an
// empty name or a duplicate are discarded and return an unchanged copy.

func (t Tasks) AddType(name string) Tasks {
	name = strings.TrimSpace(name)
	out := t.Clone()
	if name == "" || t.Index(name) >= 0 {
		return out
	}
	return append(out, TaskType{Name: name, Subtasks: []string{}})
}

func (t Tasks) RemoveType(name string) Tasks {
	out := make(Tasks, 0, len(t))
	for _, tt := range t.Clone() {
		if tt.Name != name {
			out = append(out, tt)
		}
	}
	return out
}

func (t Tasks) RenameType(oldName, newName string) Tasks {
	newName = strings.TrimSpace(newName)
	out := t.Clone()
	i := t.Index(oldName)
	if i < 0 || newName == "" || newName == oldName {
		return out
	}
	if t.Index(newName) >= 0 {
		return out
	}
	out[i].Name = newName
	return out
}

func (t Tasks) AddSubtask(typeName, subtask string) Tasks {
	subtask = strings.TrimSpace(subtask)
	out := t.Clone()
	i := t.Index(typeName)
	if i < 0 || subtask == "" || hasFold(out[i].Subtasks, subtask, -1) {
		return out
	}
	out[i].Subtasks = append(out[i].Subtasks, subtask)
	return out
}

func (t Tasks) RemoveSubtask(typeName, subtask string) Tasks {
	out := t.Clone()
	i := t.Index(typeName)
	if i < 0 {
		return out
	}
	subs := out[i].Subtasks[:0]
	for _, s := range out[i].Subtasks {
		if s != subtask {
			subs = append(subs, s)
		}
	}
	out[i].Subtasks = subs
	return out
}

func (t Tasks) RenameSubtask(typeName, oldName, newName string) Tasks {
	newName = strings.TrimSpace(newName)
	out := t.Clone()
	i := t.Index(typeName)
	if i < 0 || newName == "" {
		return out
	}
	j := indexOf(out[i].Subtasks, oldName)
	if j < 0 || hasFold(out[i].Subtasks, newName, j) {
		return out
	}
	out[i].Subtasks[j] = newName
	return out
}

// MoveSubtask shifts a subtask by delta positions, clamped to the list bounds.
func (t Tasks) MoveSubtask(typeName, subtask string, delta int) Tasks {
	out := t.Clone()
	i := t.Index(typeName)
	if i < 0 {
		return out
	}
	subs := out[i].Subtasks
	from := indexOf(subs, subtask)
	if from < 0 {
		return out
	}
	to := from + delta
	if to < 0 {
		to = 0
	}
	if to > len(subs)-1 {
		to = len(subs) - 1
	}
	for from < to {
		subs[from], subs[from+1] = subs[from+1], subs[from]
		from++
	}
	for from > to {
		subs[from], subs[from-1] = subs[from-1], subs[from]
		from--
	}
	return out
}

func indexOf(list []string, v string) int {
	for i, s := range list {
		if s == v {
			return i
		}
	}
	return -1
}

// hasFold reports whether list holds v case-insensitively, ignoring index skip.
func hasFold(list []string, v string, skip int) bool {
	for i, s := range list {
		if i != skip && strings.EqualFold(s, v) {
			return true
		}
	}
	return false
}
