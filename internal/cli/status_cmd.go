package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/progress"
	"github.com/sadopc/coursematrix/internal/semester"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print progress for both semesters",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, app)
		},
	}
}

func runStatus(cmd *cobra.Command, app *App) error {
	s, err := openSession(app.Config, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	w := cmd.OutOrStdout()
	active := s.engine.ActiveSemester()

	fmt.Fprintf(w, "Database: %s\n", app.Config.DBPath)
	fmt.Fprintf(w, "Storage:  %s\n", storageLine(s))
	if msg := s.engine.Status().StorageError; msg != "" {
		fmt.Fprintf(w, "Warning:  %s\n", msg)
	}
	if n := s.engine.LoadReport().Count(); n > 0 {
		fmt.Fprintf(w, "Repaired: %d problems in saved data\n", n)
	}

	for _, sem := range model.Semesters {
		fmt.Fprintln(w)
		printSemester(w, sem, s.engine.Snapshot(sem), sem == active)
	}
	return nil
}

func storageLine(s *session) string {
	if !s.manager.Available() {
		return "unavailable, nothing will be saved"
	}
	info := s.manager.Info()
	line := humanize.Bytes(uint64(max(info.Used, 0))) + " used"
	if q := s.quota(); q > 0 {
		line += " of " + humanize.Bytes(uint64(q))
	}
	if t := lastUpdated(s); !t.IsZero() {
		line += ", saved " + humanize.Time(t)
	}
	return line
}

// lastUpdated is the newest write time of any engine record.
func lastUpdated(s *session) time.Time {
	var latest time.Time
	if s.store == nil {
		return latest
	}
	items, err := s.store.ListItems()
	if err != nil {
		s.log.Warn("failed to list items", "error", err)
		return latest
	}
	keys := map[string]bool{}
	for _, k := range semester.Keys() {
		keys[k] = true
	}
	for _, it := range items {
		if keys[it.Key] && it.UpdatedAt.After(latest) {
			latest = it.UpdatedAt
		}
	}
	return latest
}

func printSemester(w io.Writer, sem model.Semester, data model.SemesterData, active bool) {
	summary := progress.Summarize(data)

	marker := ""
	if active {
		marker = " (active)"
	}
	fmt.Fprintf(w, "%s%s: %d%% overall, %d courses\n", sem.Label(), marker, summary.Overall, len(data.Courses))
	if len(data.Courses) == 0 {
		return
	}
	for _, row := range summary.ByTask {
		fmt.Fprintf(w, "  %-28s %3d%%  (%d/%d)\n", row.Name, row.Percent, row.Completed, row.Applicable)
	}
	fmt.Fprintln(w, "  courses:")
	for _, row := range summary.ByCourse {
		fmt.Fprintf(w, "    %-26s %3d%%\n", row.Name, row.Percent)
	}
}
