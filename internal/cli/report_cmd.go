package cli

import (
	"errors"
	"fmt"

	"github.com/sadopc/coursematrix/internal/export"
	"github.com/spf13/cobra"
)

func newReportCmd(app *App) *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a diagnostic report with the raw stored records",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(app.Config, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			if dir == "" {
				dir = app.Config.ReportDir()
			}

			var cause error
			if msg := s.engine.Status().StorageError; msg != "" {
				cause = errors.New(msg)
			}
			path, err := export.WriteDiagnosticReport(dir, cause, s.rawRecords(), s.errors.Recent())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Diagnostic report written to %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Directory for the report (default: next to the database)")

	return cmd
}
