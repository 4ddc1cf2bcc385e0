package validate

import (
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/sadopc/coursematrix/internal/model"
)

// Courses validates a course list. Entries without a numeric id and a
// non-empty code are dropped; colliding ids are regenerated above the highest
// id present; later duplicates of a code (compared case-insensitively) are
// dropped. Codes are trimmed.
func Courses(raw json.RawMessage) ([]model.Course, Report) {
	r := newReport()
	var items []json.RawMessage
	if kind(raw) != '[' || json.Unmarshal(raw, &items) != nil {
		r.fail("Courses must be an array")
		return []model.Course{}, r
	}

	type candidate struct {
		id    int64
		whole bool
		code  string
	}
	cands := make([]candidate, 0, len(items))
	var next int64
	for i, item := range items {
		id, whole, code, ok := parseCourse(item)
		if !ok {
			r.warnf("Invalid course at index %d, skipping", i)
			continue
		}
		if whole && id > next {
			next = id
		}
		cands = append(cands, candidate{id: id, whole: whole, code: code})
	}

	out := make([]model.Course, 0, len(cands))
	seenIDs := make(map[int64]bool, len(cands))
	seenCodes := make(map[string]bool, len(cands))
	for _, c := range cands {
		switch {
		case !c.whole:
			next++
			r.warnf("Course %s has a non-integer ID, generating new ID %d", c.code, next)
			c.id = next
		case seenIDs[c.id]:
			next++
			r.warnf("Duplicate course ID %d, generating new ID %d", c.id, next)
			c.id = next
		}
		seenIDs[c.id] = true

		upper := strings.ToUpper(c.code)
		if seenCodes[upper] {
			r.warnf("Duplicate course code %s, skipping", c.code)
			continue
		}
		seenCodes[upper] = true
		out = append(out, model.Course{ID: c.id, Code: c.code})
	}
	return out, r
}

func parseCourse(item json.RawMessage) (id int64, whole bool, code string, ok bool) {
	if kind(item) != '{' {
		return 0, false, "", false
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(item, &fields); err != nil {
		return 0, false, "", false
	}

	rawID := fields["id"]
	if k := kind(rawID); k != '-' && (k < '0' || k > '9') {
		return 0, false, "", false
	}
	num := strings.TrimSpace(string(rawID))
	if n, err := strconv.ParseInt(num, 10, 64); err == nil {
		id, whole = n, true
	} else if f, err := strconv.ParseFloat(num, 64); err == nil {
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			id, whole = int64(f), true
		}
	} else {
		return 0, false, "", false
	}

	if kind(fields["code"]) != '"' || json.Unmarshal(fields["code"], &code) != nil {
		return 0, false, "", false
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return 0, false, "", false
	}
	return id, whole, code, true
}

// Tasks validates a task taxonomy, keeping document order. Blank or repeated
// task type names and non-list values are dropped; within a type, blank and
// case-insensitively repeated subtasks are dropped. A type left without
// subtasks is kept.
func Tasks(raw json.RawMessage) (model.Tasks, Report) {
	r := newReport()
	entries, ok := members(raw)
	if !ok {
		r.fail("Tasks must be an object")
		return model.Tasks{}, r
	}

	out := model.Tasks{}
	for _, e := range entries {
		name := strings.TrimSpace(e.key)
		if name == "" {
			r.warnf("Invalid task type, skipping")
			continue
		}
		if out.Index(name) >= 0 {
			r.warnf("Duplicate task type %q, skipping", name)
			continue
		}
		var items []json.RawMessage
		if kind(e.value) != '[' || json.Unmarshal(e.value, &items) != nil {
			r.warnf("Task type %q must have an array of subtasks, skipping", name)
			continue
		}

		subs := make([]string, 0, len(items))
		seen := make(map[string]bool, len(items))
		for i, item := range items {
			var sub string
			if kind(item) != '"' || json.Unmarshal(item, &sub) != nil || strings.TrimSpace(sub) == "" {
				r.warnf("Invalid subtask at %s[%d], skipping", name, i)
				continue
			}
			sub = strings.TrimSpace(sub)
			low := strings.ToLower(sub)
			if seen[low] {
				r.warnf("Duplicate subtask %q in %s, skipping", sub, name)
				continue
			}
			seen[low] = true
			subs = append(subs, sub)
		}
		out = append(out, model.TaskType{Name: name, Subtasks: subs})
	}
	return out, r
}

// TaskStatus validates a status map against the triples that exist for
// courses and tasks. Keys are matched whole against the composite form of
// existing triples; unknown keys are orphans and are dropped.
func TaskStatus(raw json.RawMessage, courses []model.Course, tasks model.Tasks) (model.TaskStatus, Report) {
	r := newReport()
	entries, ok := members(raw)
	if !ok {
		r.fail("Task status must be an object")
		return model.TaskStatus{}, r
	}

	// Names containing hyphens can make two triples share one composite
	// string; such a stored value applies to all of them.
	valid := make(map[string][]model.StatusKey)
	for _, k := range tasks.Keys(courses) {
		s := k.String()
		valid[s] = append(valid[s], k)
	}

	out := model.TaskStatus{}
	for _, e := range entries {
		if strings.Count(e.key, "-") < 2 {
			r.warnf("Invalid task status key format %q, skipping", e.key)
			continue
		}
		keys, ok := valid[e.key]
		if !ok {
			r.warnf("Orphaned task status %q, removing", e.key)
			continue
		}
		st, ok := parseStatus(e.value)
		if !ok {
			r.warnf("Invalid task status value for %q, resetting to false", e.key)
		}
		for _, k := range keys {
			out[k] = st
		}
	}
	return out, r
}

func parseStatus(raw json.RawMessage) (model.Status, bool) {
	switch strings.TrimSpace(string(raw)) {
	case "true":
		return model.Complete, true
	case "false":
		return model.Incomplete, true
	case `"na"`:
		return model.NotApplicable, true
	}
	return model.Incomplete, false
}

// SemesterData validates a whole semester record: courses, then tasks
// (falling back to defaults when none survive), then statuses against the
// validated courses and tasks.
func SemesterData(raw json.RawMessage, defaults model.Tasks) (model.SemesterData, Report) {
	r := newReport()
	entries, ok := members(raw)
	if !ok {
		r.fail("Semester data must be an object")
		return model.NewSemesterData(defaults), r
	}
	fields := make(map[string]json.RawMessage, len(entries))
	for _, e := range entries {
		fields[e.key] = e.value
	}

	courses, cr := Courses(fields["courses"])
	r.merge(cr)

	tasks, tr := Tasks(fields["tasks"])
	r.merge(tr)
	if len(tasks) == 0 {
		tasks = defaults.Clone()
	}

	status, sr := TaskStatus(fields["taskStatus"], courses, tasks)
	r.merge(sr)

	return model.SemesterData{Courses: courses, Tasks: tasks, TaskStatus: status}, r
}

// SemesterType decodes a persisted active-semester selector.
func SemesterType(raw json.RawMessage) (model.Semester, bool) {
	var v string
	if kind(raw) != '"' || json.Unmarshal(raw, &v) != nil {
		return model.Start, false
	}
	s, ok := model.ParseSemester(v)
	if !ok {
		return model.Start, false
	}
	return s, true
}

// Recover validates raw and logs what had to be fixed.
func Recover(raw json.RawMessage, defaults model.Tasks, logger *slog.Logger) model.SemesterData {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	data, report := SemesterData(raw, defaults)
	if len(report.Warnings) > 0 {
		logger.Warn("data recovery applied fixes", "count", len(report.Warnings), "warnings", report.Warnings)
	}
	if len(report.Errors) > 0 {
		logger.Error("data recovery could not fix all errors", "errors", report.Errors)
	}
	return data
}
