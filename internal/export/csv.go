package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/sadopc/coursematrix/internal/model"
)

// ToCSV writes one row per (course, task type, subtask) triple of data.
func ToCSV(semester model.Semester, data model.SemesterData, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	return WriteCSV(f, semester, data)
}

func WriteCSV(out io.Writer, semester model.Semester, data model.SemesterData) error {
	w := csv.NewWriter(out)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"Semester", "Course ID", "Course", "Task Type", "Subtask", "Status"}); err != nil {
		return err
	}

	for _, k := range data.Tasks.Keys(data.Courses) {
		c, _ := model.FindByID(data.Courses, k.CourseID)
		row := []string{
			string(semester),
			strconv.FormatInt(k.CourseID, 10),
			c.Code,
			k.TaskType,
			k.Subtask,
			formatStatus(data.TaskStatus.Get(k)),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func formatStatus(s model.Status) string {
	switch s {
	case model.Complete:
		return "Complete"
	case model.NotApplicable:
		return "N/A"
	default:
		return "Incomplete"
	}
}
