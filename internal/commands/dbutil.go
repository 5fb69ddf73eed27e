package commands

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/dotcommander/randkey/internal/app"
	"github.com/dotcommander/randkey/internal/models"
	"github.com/dotcommander/randkey/internal/output"
	"github.com/dotcommander/randkey/internal/store"
)

// DB is an alias so command code doesn't need to import database/sql.
type DB = sql.DB

type printedError struct {
	err error
}

func (e printedError) Error() string {
	// The JSON error response is the output; the original error is only logged.
	return "error already printed"
}

func (e printedError) Unwrap() error { return e.err }

func openDB() (*DB, func(), error) {
	dbPath, err := app.GetDBPath()
	if err != nil {
		return nil, nil, err
	}

	db, err := store.InitDBWithPath(dbPath)
	if err != nil {
		return nil, nil, err
	}

	return db, func() { _ = db.Close() }, nil
}

func withDB(fn func(db *DB) error) error {
	db, closeDB, err := openDB()
	if err != nil {
		return cmdErr(err)
	}
	defer closeDB()

	if err := fn(db); err != nil {
		return cmdErr(err)
	}
	return nil
}

// cmdErr prints err as the JSON error envelope, logs it, and marks it printed.
func cmdErr(err error) error {
	if err == nil {
		return nil
	}
	_ = output.PrintError(err)

	attrs := []any{"error", err.Error()}
	var recoverable models.RecoverableError
	if errors.As(err, &recoverable) {
		attrs = append(attrs, "error_code", recoverable.ErrorCode())
	}
	slog.Error("command error", attrs...)
	return printedError{err: err}
}

// commandContext returns the command's context, or Background when the
// command runs outside Execute (tests call RunE directly).
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
