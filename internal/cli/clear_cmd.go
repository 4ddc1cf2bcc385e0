package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all stored data for both semesters",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete all data without --yes")
			}

			s, err := openSession(app.Config, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			if !s.engine.ClearAll() {
				return errors.New(s.engine.Status().StorageError)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "All data cleared")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deletion")

	return cmd
}
