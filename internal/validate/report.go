// Package validate turns loosely typed persisted JSON into well-formed
// semester data. It repairs what it can, records what it changed, and never
// fails: every function returns usable data alongside a Report.
package validate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Report collects the outcome of a validation pass. Warnings record repairs;
// Errors record slices whose top-level JSON type was wrong and were replaced
// wholesale. Valid is false exactly when Errors is non-empty.
type Report struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

func newReport() Report {
	return Report{Valid: true}
}

// Repaired reports whether the pass changed anything.
func (r Report) Repaired() bool {
	return len(r.Errors) > 0 || len(r.Warnings) > 0
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func (r *Report) fail(msg string) {
	r.Valid = false
	r.Errors = append(r.Errors, msg)
}

func (r *Report) merge(o Report) {
	r.Valid = r.Valid && o.Valid
	r.Errors = append(r.Errors, o.Errors...)
	r.Warnings = append(r.Warnings, o.Warnings...)
}

// kind returns the first significant byte of raw, or 0 when raw is empty.
func kind(raw json.RawMessage) byte {
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) == 0 {
		return 0
	}
	return trimmed[0]
}

type member struct {
	key   string
	value json.RawMessage
}

// members decodes a JSON object keeping its keys in document order,
// duplicates included.
func members(raw json.RawMessage) ([]member, bool) {
	if kind(raw) != '{' {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	if _, err := dec.Token(); err != nil {
		return nil, false
	}
	out := []member{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, false
		}
		out = append(out, member{key: key, value: v})
	}
	return out, true
}
