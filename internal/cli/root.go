package cli

import (
	"github.com/sadopc/coursematrix/internal/config"
	"github.com/sadopc/coursematrix/internal/semester"
	"github.com/sadopc/coursematrix/internal/storage"
	"github.com/sadopc/coursematrix/internal/tui"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// App holds the settings and terminal hooks shared by every command.
type App struct {
	Config config.Config

	// IsInteractive reports whether the full-screen UI can run. When it is
	// nil or returns false the root command prints the status summary.
	IsInteractive func() bool

	// RunTUI starts the interactive UI. Defaults to tui.Run.
	RunTUI func(e *semester.Engine, m *storage.Manager, opts tui.Options) error
}

// NewRootCmd creates the top-level "coursematrix" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "coursematrix",
		Short:         "Course checklist and semester progress tracker",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app.IsInteractive == nil || !app.IsInteractive() {
				return runStatus(cmd, app)
			}
			return runTUI(cmd, app)
		},
	}

	bindFlags(root.PersistentFlags(), &app.Config)

	root.AddCommand(
		newStatusCmd(app),
		newExportCmd(app),
		newImportCmd(app),
		newResetCmd(app),
		newClearCmd(app),
		newReportCmd(app),
	)

	return root
}

// bindFlags layers command-line overrides on top of the environment config.
func bindFlags(fs *pflag.FlagSet, cfg *config.Config) {
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, `sqlite database path (":memory:" keeps nothing)`)
	fs.Int64Var(&cfg.Quota, "quota", cfg.Quota, "byte quota for stored records, 0 disables it")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, `log file path, "-" for stderr`)
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	fs.IntVar(&cfg.Retries, "retries", cfg.Retries, "write retries before a save is reported as failed")
}

func runTUI(cmd *cobra.Command, app *App) error {
	s, err := openSession(app.Config, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer s.Close()

	run := app.RunTUI
	if run == nil {
		run = tui.Run
	}
	return run(s.engine, s.manager, tui.Options{
		Quota:  s.quota(),
		DBPath: app.Config.DBPath,
	})
}
