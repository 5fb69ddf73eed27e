package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/randkey/internal/app"
	"github.com/dotcommander/randkey/internal/output"
	"github.com/dotcommander/randkey/internal/store"
)

func NewDoctorCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check configuration, database connectivity and keyspace health",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			dbPath, dbSource, err := app.ResolveDBPathDetailed()
			if err != nil {
				return cmdErr(err)
			}

			_, settingsErr := app.LoadSettings()

			type resp struct {
				DBPath      string                 `json:"db_path"`
				DBSource    string                 `json:"db_source"`
				DBOK        bool                   `json:"db_ok"`
				DBErr       string                 `json:"db_error,omitempty"`
				ConfigOK    bool                   `json:"config_ok"`
				ConfigErr   string                 `json:"config_error,omitempty"`
				Allocation  app.AllocationSettings `json:"allocation"`
				Diagnostics []store.Diagnostic     `json:"diagnostics,omitempty"`
				Hint        string                 `json:"hint,omitempty"`
			}
			result := resp{
				DBPath:     dbPath,
				DBSource:   dbSource,
				ConfigOK:   settingsErr == nil,
				Allocation: app.EffectiveAllocationSettings(),
			}
			if settingsErr != nil {
				result.ConfigErr = settingsErr.Error()
			}

			db, err := store.InitDBWithPath(dbPath)
			if err != nil {
				result.DBErr = err.Error()
				result.Hint = "If this is running in a sandboxed environment, set db_path to a writable location or use --db-path."
				return output.PrintSuccess(result)
			}
			defer func() { _ = db.Close() }()
			result.DBOK = true

			diags, err := store.RunDiagnostics(ctx, db)
			if err != nil {
				return cmdErr(err)
			}
			result.Diagnostics = diags
			return output.PrintSuccess(result)
		},
	}

	return cmd
}
