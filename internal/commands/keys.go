package commands

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dotcommander/randkey/internal/app"
	"github.com/dotcommander/randkey/internal/models"
	"github.com/dotcommander/randkey/internal/output"
	"github.com/dotcommander/randkey/internal/store"
	"github.com/dotcommander/randkey/pkg/keyspace"
)

func requireNamespace(cmd *cobra.Command) (string, error) {
	ns, _ := cmd.Flags().GetString("namespace")
	ns = strings.TrimSpace(ns)
	if ns == "" {
		return "", errors.New("--namespace is required")
	}
	return ns, nil
}

// namespaceScheme returns the scheme an existing namespace was created with.
// Explicit --scheme/--length flags win so that a mismatch is reported by the
// store instead of silently ignored.
func namespaceScheme(ctx context.Context, cmd *cobra.Command, db *DB, namespace string) (keyspace.Scheme, error) {
	if cmd.Flags().Changed("scheme") || cmd.Flags().Changed("length") {
		return resolveScheme(cmd)
	}
	ns, err := store.GetNamespace(ctx, db, namespace)
	if errors.Is(err, store.ErrKeyNotFound) {
		return resolveScheme(cmd)
	}
	if err != nil {
		return nil, err
	}
	return keyspace.NewScheme(ns.Scheme, ns.Length)
}

// existingNamespaceScheme is namespaceScheme for commands that only make sense
// on a namespace that already holds keys.
func existingNamespaceScheme(ctx context.Context, db *DB, namespace string) (keyspace.Scheme, error) {
	ns, err := store.GetNamespace(ctx, db, namespace)
	if err != nil {
		return nil, err
	}
	return keyspace.NewScheme(ns.Scheme, ns.Length)
}

// canonicalKey decodes display with scheme and re-encodes it, so that e.g. a
// UUID given without hyphens matches its stored form.
func canonicalKey(scheme keyspace.Scheme, display string) (keyspace.ID, string, error) {
	id, err := scheme.Decode(strings.TrimSpace(display))
	if err != nil {
		return nil, "", err
	}
	canonical, err := scheme.Encode(id)
	if err != nil {
		return nil, "", err
	}
	return id, canonical, nil
}

// NewAllocateCmd creates the allocate command.
func NewAllocateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "allocate",
		Short: "Allocate a fresh key and persist it in a namespace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, err := requireNamespace(cmd)
			if err != nil {
				return cmdErr(err)
			}
			label, _ := cmd.Flags().GetString("label")
			requestID := resolveRequestID(cmd)
			timeout, _ := cmd.Flags().GetDuration("timeout")
			maxRetries, _ := cmd.Flags().GetInt("max-retries")
			if maxRetries < 0 {
				maxRetries = app.EffectiveAllocationSettings().MaxConflictRetries
			}

			ctx := commandContext(cmd)
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			var alloc *models.Allocation
			if err := withDB(func(db *DB) error {
				scheme, err := namespaceScheme(ctx, cmd, db, namespace)
				if err != nil {
					return err
				}
				a, err := store.AllocateKey(ctx, db, namespace, scheme, store.AllocateOptions{
					Label:              label,
					RequestID:          requestID,
					MaxConflictRetries: maxRetries,
				})
				if err != nil {
					return err
				}
				alloc = a
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(alloc)
		},
	}

	addSchemeFlags(cmd)
	cmd.Flags().String("namespace", "", "Key namespace (required)")
	cmd.Flags().String("label", "", "Optional label stored with the key")
	cmd.Flags().String("request-id", "", "Idempotency key; repeating it returns the same key (default: $RANDKEY_REQUEST_ID)")
	cmd.Flags().Duration("timeout", 0, "Give up allocating after this long (0 = no limit)")
	cmd.Flags().Int("max-retries", -1, "Retries after losing an insert race (-1 = from config)")

	return cmd
}

// NewExistsCmd creates the exists command.
func NewExistsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exists KEY",
		Short: "Check whether a key is allocated in a namespace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, err := requireNamespace(cmd)
			if err != nil {
				return cmdErr(err)
			}
			ctx := commandContext(cmd)

			var (
				key    string
				exists bool
			)
			if err := withDB(func(db *DB) error {
				scheme, err := existingNamespaceScheme(ctx, db, namespace)
				if err != nil {
					return err
				}
				id, canonical, err := canonicalKey(scheme, args[0])
				if err != nil {
					return err
				}
				ok, err := store.KeyExists(ctx, db, namespace, scheme, id)
				if err != nil {
					return err
				}
				key, exists = canonical, ok
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Namespace string `json:"namespace"`
				Key       string `json:"key"`
				Exists    bool   `json:"exists"`
			}
			return output.PrintSuccess(resp{Namespace: namespace, Key: key, Exists: exists})
		},
	}

	cmd.Flags().String("namespace", "", "Key namespace (required)")

	return cmd
}

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List keys in a namespace, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, err := requireNamespace(cmd)
			if err != nil {
				return cmdErr(err)
			}
			limit, _ := cmd.Flags().GetInt("limit")
			ctx := commandContext(cmd)

			var (
				keys  []*models.Key
				total int64
			)
			if err := withDB(func(db *DB) error {
				k, err := store.ListKeys(ctx, db, namespace, limit)
				if err != nil {
					return err
				}
				n, err := store.CountKeys(ctx, db, namespace)
				if err != nil {
					return err
				}
				keys, total = k, n
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Namespace string        `json:"namespace"`
				Count     int           `json:"count"`
				Total     int64         `json:"total"`
				Keys      []*models.Key `json:"keys"`
			}
			return output.PrintSuccess(resp{
				Namespace: namespace,
				Count:     len(keys),
				Total:     total,
				Keys:      keys,
			})
		},
	}

	cmd.Flags().String("namespace", "", "Key namespace (required)")
	cmd.Flags().Int("limit", 100, "Maximum number of keys to return")

	return cmd
}

// NewReleaseCmd creates the release command.
func NewReleaseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "release KEY",
		Short: "Delete an allocated key so it may be drawn again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, err := requireNamespace(cmd)
			if err != nil {
				return cmdErr(err)
			}
			ctx := commandContext(cmd)

			var key string
			if err := withDB(func(db *DB) error {
				scheme, err := existingNamespaceScheme(ctx, db, namespace)
				if err != nil {
					return err
				}
				_, canonical, err := canonicalKey(scheme, args[0])
				if err != nil {
					return err
				}
				if err := store.DeleteKey(ctx, db, namespace, canonical); err != nil {
					return err
				}
				key = canonical
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Namespace  string    `json:"namespace"`
				Key        string    `json:"key"`
				ReleasedAt time.Time `json:"released_at"`
			}
			return output.PrintSuccess(resp{Namespace: namespace, Key: key, ReleasedAt: time.Now().UTC()})
		},
	}

	cmd.Flags().String("namespace", "", "Key namespace (required)")

	return cmd
}

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show KEY",
		Short: "Show the stored record of an allocated key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			namespace, err := requireNamespace(cmd)
			if err != nil {
				return cmdErr(err)
			}
			ctx := commandContext(cmd)

			var key *models.Key
			if err := withDB(func(db *DB) error {
				scheme, err := existingNamespaceScheme(ctx, db, namespace)
				if err != nil {
					return err
				}
				_, canonical, err := canonicalKey(scheme, args[0])
				if err != nil {
					return err
				}
				key, err = store.LookupKey(ctx, db, namespace, canonical)
				return err
			}); err != nil {
				return err
			}

			return output.PrintSuccess(key)
		},
	}

	cmd.Flags().String("namespace", "", "Key namespace (required)")

	return cmd
}
