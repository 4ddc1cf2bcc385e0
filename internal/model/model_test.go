package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSemester(t *testing.T) {
	s, ok := ParseSemester("end")
	require.True(t, ok)
	assert.Equal(t, End, s)
	assert.Equal(t, Start, s.Other())
	assert.Equal(t, End, Start.Other())
	assert.Equal(t, "End of Semester", End.Label())

	s, ok = ParseSemester("middle")
	assert.False(t, ok)
	assert.Equal(t, Start, s)
}

func TestCollidingStatusKeysPersistDeterministically(t *testing.T) {
	// "1-a-b-c" is the composite form of both triples.
	first := Key(1, "a-b", "c")
	second := Key(1, "a", "b-c")
	d := SemesterData{
		Courses: []Course{{ID: 1, Code: "X"}},
		Tasks: Tasks{
			{Name: "a-b", Subtasks: []string{"c"}},
			{Name: "a", Subtasks: []string{"b-c"}},
		},
		TaskStatus: TaskStatus{first: Complete, second: NotApplicable},
	}

	for range 20 {
		raw, err := json.Marshal(d)
		require.NoError(t, err)
		var got struct {
			TaskStatus map[string]any `json:"taskStatus"`
		}
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, map[string]any{"1-a-b-c": true}, got.TaskStatus)

		flat, err := json.Marshal(d.TaskStatus)
		require.NoError(t, err)
		assert.JSONEq(t, `{"1-a-b-c":"na"}`, string(flat))
	}
}

func TestStatusNextCycles(t *testing.T) {
	assert.Equal(t, Complete, Incomplete.Next())
	assert.Equal(t, NotApplicable, Complete.Next())
	assert.Equal(t, Incomplete, NotApplicable.Next())
}

func TestStatusKeyString(t *testing.T) {
	assert.Equal(t, "42-Set-up-Check-in", Key(42, "Set-up", "Check-in").String())
}

func TestSemesterDataJSON(t *testing.T) {
	d := SemesterData{
		Tasks: Tasks{
			{Name: "Zeta", Subtasks: []string{"b", "a"}},
			{Name: "Alpha", Subtasks: nil},
		},
		TaskStatus: TaskStatus{
			Key(1, "Zeta", "b"): Complete,
			Key(1, "Zeta", "a"): NotApplicable,
			Key(2, "Zeta", "a"): Incomplete,
		},
	}
	raw, err := json.Marshal(d)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"courses": [],
		"tasks": {"Zeta": ["b", "a"], "Alpha": []},
		"taskStatus": {"1-Zeta-b": true, "1-Zeta-a": "na", "2-Zeta-a": false}
	}`, string(raw))
	// Task order follows the slice, not the alphabet.
	assert.Contains(t, string(raw), `"tasks":{"Zeta":["b","a"],"Alpha":[]}`)
}

func TestCloneIsDeep(t *testing.T) {
	d := NewSemesterData(DefaultStartTasks())
	d.Courses = append(d.Courses, Course{ID: 1, Code: "A"})
	d.TaskStatus[Key(1, "Moodle", "Dates")] = Complete

	c := d.Clone()
	c.Courses[0].Code = "B"
	c.Tasks[0].Subtasks[0] = "changed"
	c.TaskStatus[Key(1, "Moodle", "Dates")] = Incomplete

	assert.Equal(t, "A", d.Courses[0].Code)
	assert.Equal(t, DefaultStartTasks(), d.Tasks)
	assert.Equal(t, Complete, d.TaskStatus[Key(1, "Moodle", "Dates")])
}

func TestFindByCodeIgnoresCase(t *testing.T) {
	courses := []Course{{ID: 1, Code: "MATH101"}}
	c, ok := FindByCode(courses, " math101 ")
	require.True(t, ok)
	assert.Equal(t, int64(1), c.ID)

	_, ok = FindByCode(courses, "CS201")
	assert.False(t, ok)
}

func TestMaxID(t *testing.T) {
	assert.Equal(t, int64(0), MaxID())
	assert.Equal(t, int64(9), MaxID([]Course{{ID: 3}}, []Course{{ID: 9}, {ID: 4}}))
}

func TestResetStatus(t *testing.T) {
	courses := []Course{{ID: 1}, {ID: 2}}
	tasks := Tasks{{Name: "T", Subtasks: []string{"a"}}, {Name: "U", Subtasks: []string{}}}
	assert.Equal(t, TaskStatus{
		Key(1, "T", "a"): Incomplete,
		Key(2, "T", "a"): Incomplete,
	}, ResetStatus(courses, tasks))
}

func TestTaskEditing(t *testing.T) {
	base := Tasks{{Name: "T", Subtasks: []string{"a", "b", "c"}}}

	t.Run("add type", func(t *testing.T) {
		got := base.AddType("  U ")
		assert.Equal(t, []string{"T", "U"}, got.Names())
		assert.Equal(t, []string{"T"}, base.Names(), "receiver untouched")
		assert.Equal(t, base, base.AddType("T"))
		assert.Equal(t, base, base.AddType(" "))
	})

	t.Run("rename type keeps position", func(t *testing.T) {
		tasks := base.AddType("U").RenameType("T", "V")
		assert.Equal(t, []string{"V", "U"}, tasks.Names())
		assert.Equal(t, tasks, tasks.RenameType("V", "U"))
	})

	t.Run("remove type", func(t *testing.T) {
		assert.Empty(t, base.RemoveType("T"))
	})

	t.Run("subtasks", func(t *testing.T) {
		got := base.AddSubtask("T", "d")
		assert.Equal(t, []string{"a", "b", "c", "d"}, got[0].Subtasks)
		assert.Equal(t, base, base.AddSubtask("T", "A"), "case-insensitive duplicate")

		got = base.RenameSubtask("T", "b", "B2")
		assert.Equal(t, []string{"a", "B2", "c"}, got[0].Subtasks)
		assert.Equal(t, base, base.RenameSubtask("T", "b", "C"))
		assert.Equal(t, []string{"a", "B", "c"}, base.RenameSubtask("T", "b", "B")[0].Subtasks)

		got = base.RemoveSubtask("T", "b")
		assert.Equal(t, []string{"a", "c"}, got[0].Subtasks)
		assert.Equal(t, []string{"a", "b", "c"}, base[0].Subtasks)
	})

	t.Run("move subtask clamps", func(t *testing.T) {
		assert.Equal(t, []string{"b", "a", "c"}, base.MoveSubtask("T", "b", -1)[0].Subtasks)
		assert.Equal(t, []string{"b", "c", "a"}, base.MoveSubtask("T", "a", 10)[0].Subtasks)
		assert.Equal(t, []string{"c", "a", "b"}, base.MoveSubtask("T", "c", -5)[0].Subtasks)
		assert.Equal(t, []string{"a", "b", "c"}, base[0].Subtasks)
	})
}

func TestDefaultTasks(t *testing.T) {
	assert.Equal(t, DefaultStartTasks(), DefaultTasks(Start))
	assert.Equal(t, DefaultEndTasks(), DefaultTasks(End))
	for _, tt := range DefaultEndTasks() {
		assert.NotEmpty(t, tt.Subtasks, tt.Name)
	}
}
