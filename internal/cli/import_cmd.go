package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/sadopc/coursematrix/internal/export"
	"github.com/sadopc/coursematrix/internal/model"
	"github.com/sadopc/coursematrix/internal/validate"
	"github.com/spf13/cobra"
)

func newImportCmd(app *App) *cobra.Command {
	var semesterFlag string

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Replace one semester with data from a JSON file",
		Long: `Replace one semester with data from a JSON file.

FILE may be a JSON export or a raw semester record. It is repaired the same way
stored data is repaired on load; every repair is printed. When --semester is not
given, the semester named in an export file is used, otherwise the active one.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import file: %w", err)
			}
			if !json.Valid(raw) {
				return fmt.Errorf("%s is not valid JSON", args[0])
			}

			s, err := openSession(app.Config, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			fallback := s.engine.ActiveSemester()
			if named, ok := exportedSemester(raw); ok {
				fallback = named
			}
			sem, err := parseSemester(semesterFlag, fallback)
			if err != nil {
				return err
			}

			data, report := validate.SemesterData(export.Unwrap(raw), s.engine.Defaults(sem))
			if !report.Valid {
				for _, msg := range report.Errors {
					fmt.Fprintln(cmd.ErrOrStderr(), "error:", msg)
				}
				return fmt.Errorf("%s does not hold semester data", args[0])
			}
			for _, msg := range report.Warnings {
				fmt.Fprintln(cmd.ErrOrStderr(), "repaired:", msg)
			}

			s.engine.ReplaceSemester(sem, data)
			if err := s.commit(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d courses into %s\n", len(data.Courses), sem.Label())
			return nil
		},
	}

	cmd.Flags().StringVar(&semesterFlag, "semester", "", "Semester to replace: start or end")

	return cmd
}

func exportedSemester(raw []byte) (sem model.Semester, ok bool) {
	var wrapped struct {
		Semester json.RawMessage `json:"semester"`
	}
	if json.Unmarshal(raw, &wrapped) != nil || wrapped.Semester == nil {
		return "", false
	}
	return validate.SemesterType(wrapped.Semester)
}
