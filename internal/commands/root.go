package commands

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dotcommander/randkey/internal/app"
	"github.com/dotcommander/randkey/internal/output"
)

// Execute runs the CLI application.
func Execute(version string) error {
	settings, settingsErr := app.LoadSettings()
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: parseLogLevel(settings.LogLevel),
	})))
	if settingsErr != nil {
		slog.Warn("config ignored", "error", settingsErr.Error())
	}

	root := NewRootCmd(version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err != nil {
		var pe printedError
		if !errors.As(err, &pe) {
			slog.Error("command failed", "error", err.Error())
		}
	}
	return err
}

// NewRootCmd assembles the command tree.
func NewRootCmd(version string) *cobra.Command {
	root := &cobra.Command{
		Use:           "randkey",
		Short:         "Random, collision-free key allocation (binary, integer, uuid)",
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			showVersion, _ := cmd.Flags().GetBool("version")
			if showVersion {
				type resp struct {
					Version string `json:"version"`
				}
				return output.PrintSuccess(resp{Version: version})
			}
			return cmd.Help()
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := app.EnsureConfigDir(); err != nil {
				return err
			}

			// Wire --db-path into app-level resolver.
			if dbPath, err := cmd.Flags().GetString("db-path"); err == nil && dbPath != "" {
				app.SetDBPathOverride(dbPath)
			}

			return nil
		},
	}

	// Flag parse errors get the same JSON envelope as command errors.
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return cmdErr(err)
	})

	root.PersistentFlags().String("db-path", "", "Override database path")
	root.Flags().BoolP("version", "v", false, "version for randkey")

	root.AddCommand(NewGenerateCmd())
	root.AddCommand(NewAllocateCmd())
	root.AddCommand(NewExistsCmd())
	root.AddCommand(NewListCmd())
	root.AddCommand(NewReleaseCmd())
	root.AddCommand(NewEncodeCmd())
	root.AddCommand(NewDecodeCmd())
	root.AddCommand(NewShowCmd())
	root.AddCommand(NewReserveObjectCmd())
	root.AddCommand(NewReleaseObjectCmd())
	root.AddCommand(NewDBCmd())
	root.AddCommand(NewDoctorCmd())
	root.AddCommand(NewSchemaCmd(root))

	return root
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
