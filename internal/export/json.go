package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/progress"
)

type jsonExport struct {
	ExportedAt string             `json:"exported_at"`
	Semester   model.Semester     `json:"semester"`
	Label      string             `json:"label"`
	Progress   int                `json:"progress"`
	Data       model.SemesterData `json:"data"`
}

// ToJSON writes data in its persisted shape, wrapped with export metadata.
func ToJSON(semester model.Semester, data model.SemesterData, path string) error {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, semester, data); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

func WriteJSON(w io.Writer, semester model.Semester, data model.SemesterData) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Semester:   semester,
		Label:      semester.Label(),
		Progress:   progress.Overall(data.Courses, data.Tasks, data.TaskStatus),
		Data:       data,
	}

	out, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if _, err := w.Write(append(out, '\n')); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// Unwrap returns the semester record inside a file produced by ToJSON, or raw
// itself when it is not such a file.
func Unwrap(raw json.RawMessage) json.RawMessage {
	var wrapped struct {
		ExportedAt string          `json:"exported_at"`
		Data       json.RawMessage `json:"data"`
	}
	if json.Unmarshal(raw, &wrapped) != nil || wrapped.ExportedAt == "" || len(wrapped.Data) == 0 {
		return raw
	}
	return wrapped.Data
}
