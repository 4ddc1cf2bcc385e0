package cli

import (
	"fmt"

	"github.com/sadopc/coursematrix/internal/model"
	"github.com/spf13/cobra"
)

func newResetCmd(app *App) *cobra.Command {
	var semesterFlag string
	var tasks bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Mark every task of a semester incomplete",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app.Config, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			sem, err := parseSemester(semesterFlag, s.engine.ActiveSemester())
			if err != nil {
				return err
			}

			data := s.engine.Snapshot(sem)
			if tasks {
				data.Tasks = s.engine.Defaults(sem)
			}
			data.TaskStatus = model.ResetStatus(data.Courses, data.Tasks)
			s.engine.ReplaceSemester(sem, data)
			if err := s.commit(); err != nil {
				return err
			}

			what := "progress"
			if tasks {
				what = "tasks and progress"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Reset %s for %s\n", what, sem.Label())
			return nil
		},
	}

	cmd.Flags().StringVar(&semesterFlag, "semester", "", "Semester to reset: start or end (default: active)")
	cmd.Flags().BoolVar(&tasks, "tasks", false, "Also restore the default task types")

	return cmd
}
