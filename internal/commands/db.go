package commands

import (
	"github.com/spf13/cobra"

	"github.com/dotcommander/randkey/internal/app"
	"github.com/dotcommander/randkey/internal/output"
	"github.com/dotcommander/randkey/internal/store"
)

func NewDBCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database utilities",
	}

	cmd.AddCommand(newDBPathCmd())
	cmd.AddCommand(newDBStatusCmd())
	return cmd
}

func newDBPathCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "path",
		Short: "Print the resolved database path",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, source, err := app.ResolveDBPathDetailed()
			if err != nil {
				return cmdErr(err)
			}

			type resp struct {
				Path   string `json:"path"`
				Source string `json:"source"`
			}
			return output.PrintSuccess(resp{Path: path, Source: source})
		},
	}
	return cmd
}

func newDBStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show schema version and per-namespace fill ratios",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			var (
				counts *store.StatusCounts
				latest int64
			)
			if err := withDB(func(db *DB) error {
				c, err := store.GetStatusCounts(ctx, db)
				if err != nil {
					return err
				}
				_, l, err := store.SchemaVersion(db)
				if err != nil {
					return err
				}
				counts, latest = c, l
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				*store.StatusCounts
				LatestSchemaVersion int64 `json:"latest_schema_version"`
			}
			return output.PrintSuccess(resp{StatusCounts: counts, LatestSchemaVersion: latest})
		},
	}
	return cmd
}
