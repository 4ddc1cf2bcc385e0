package cli

import (
	"fmt"
	"time"

	"github.com/sadopc/coursematrix/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(app *App) *cobra.Command {
	var format, semesterFlag, out string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export one semester as CSV or JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("invalid format %q (want csv or json)", format)
			}

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

			if out == "-" {
				if format == "csv" {
					return export.WriteCSV(cmd.OutOrStdout(), sem, data)
				}
				return export.WriteJSON(cmd.OutOrStdout(), sem, data)
			}

			if out == "" {
				out = fmt.Sprintf("coursematrix-%s-%s.%s", sem, time.Now().Format("2006-01-02"), format)
			}
			if format == "csv" {
				err = export.ToCSV(sem, data, out)
			} else {
				err = export.ToJSON(sem, data, out)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", sem.Label(), out)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "Output format: csv or json")
	cmd.Flags().StringVar(&semesterFlag, "semester", "", "Semester to export: start or end (default: active)")
	cmd.Flags().StringVarP(&out, "out", "o", "", `Output file, "-" for stdout`)

	return cmd
}
