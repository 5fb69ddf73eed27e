package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dotcommander/randkey/internal/models"
	"github.com/dotcommander/randkey/pkg/keyspace"
)

// KeyStore is the existence check for one namespace, bound to a Querier.
// Pass a *sql.Tx to make the check part of an enclosing transaction.
type KeyStore struct {
	q         Querier
	namespace string
	scheme    keyspace.Scheme
}

// NewKeyStore binds namespace and scheme to q.
func NewKeyStore(q Querier, namespace string, scheme keyspace.Scheme) *KeyStore {
	return &KeyStore{q: q, namespace: namespace, scheme: scheme}
}

// Exists implements keyspace.ExistenceChecker.
func (k *KeyStore) Exists(ctx context.Context, id keyspace.ID) (bool, error) {
	v, err := k.scheme.Value(id)
	if err != nil {
		return false, err
	}
	var exists bool
	if err := k.q.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM keys WHERE namespace = ? AND key = ?)`,
		k.namespace, v,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("check key in %s: %w", k.namespace, err)
	}
	return exists, nil
}

// Insert records id. A duplicate yields *UniquenessConflictError.
func (k *KeyStore) Insert(ctx context.Context, id keyspace.ID, label string) (*models.Key, error) {
	v, err := k.scheme.Value(id)
	if err != nil {
		return nil, err
	}
	display, err := k.scheme.Encode(id)
	if err != nil {
		return nil, err
	}
	lbl := any(nil)
	if label != "" {
		lbl = label
	}

	if _, err := k.q.ExecContext(ctx, `
		INSERT INTO keys (namespace, key, display, label, created_at)
		VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP)
	`, k.namespace, v, display, lbl); err != nil {
		if IsUniqueViolation(err) {
			return nil, &UniquenessConflictError{Namespace: k.namespace, Key: display}
		}
		return nil, fmt.Errorf("failed to insert key: %w", err)
	}

	return getKey(ctx, k.q, k.namespace, display)
}

// EnsureNamespaceTx registers namespace with scheme on first use and rejects
// later use with a different scheme or length.
func EnsureNamespaceTx(ctx context.Context, q Querier, namespace string, scheme keyspace.Scheme) (*models.Namespace, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace is required")
	}
	if _, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO namespaces (name, scheme, length, created_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
	`, namespace, scheme.Name(), scheme.Length()); err != nil {
		return nil, fmt.Errorf("failed to ensure namespace: %w", err)
	}

	ns, err := getNamespace(ctx, q, namespace)
	if err != nil {
		return nil, err
	}
	if ns.Scheme != scheme.Name() || ns.Length != scheme.Length() {
		return nil, &SchemeMismatchError{
			Namespace:       namespace,
			Scheme:          ns.Scheme,
			Length:          ns.Length,
			RequestedScheme: scheme.Name(),
			RequestedLength: scheme.Length(),
		}
	}
	return ns, nil
}

// AllocateOptions tunes AllocateKey.
type AllocateOptions struct {
	Label string
	// RequestID makes the call idempotent: a second call with the same id
	// in the same namespace returns the first call's key.
	RequestID string
	// MaxConflictRetries bounds how many times the allocate-and-insert
	// transaction is rerun after losing a race to another writer.
	MaxConflictRetries int
	Logger             *slog.Logger
}

// AllocateKey allocates a free key in namespace and persists it. The
// existence check and the insert share one transaction; if another process
// still wins the race, the whole sequence is retried.
func AllocateKey(ctx context.Context, db *sql.DB, namespace string, scheme keyspace.Scheme, opts AllocateOptions) (*models.Allocation, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	alloc := keyspace.Allocator{Logger: logger}

	var result *models.Allocation
	conflicts := 0
	err := RetryOnConflict(ctx, opts.MaxConflictRetries, func() error {
		return Transact(ctx, db, func(tx *sql.Tx) error {
			if _, err := EnsureNamespaceTx(ctx, tx, namespace, scheme); err != nil {
				return err
			}
			if opts.RequestID != "" {
				display, found, err := lookupRequestTx(ctx, tx, namespace, opts.RequestID)
				if err != nil {
					return err
				}
				if found {
					key, err := getKey(ctx, tx, namespace, display)
					if err != nil {
						return err
					}
					result = &models.Allocation{Key: *key, Replayed: true}
					return nil
				}
			}
			ks := NewKeyStore(tx, namespace, scheme)

			id, st, err := alloc.AllocateWithStats(ctx, scheme, ks)
			if err != nil {
				return err
			}
			key, err := ks.Insert(ctx, id, opts.Label)
			if err != nil {
				if errors.Is(err, ErrUniquenessConflict) {
					conflicts++
					logger.WarnContext(ctx, "key insert lost race", "namespace", namespace, "conflicts", conflicts)
				}
				return err
			}
			if opts.RequestID != "" {
				if err := recordRequestTx(ctx, tx, namespace, opts.RequestID, key.Display); err != nil {
					return err
				}
			}
			result = &models.Allocation{Key: *key, Attempts: st.Attempts}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	result.Conflicts = conflicts
	return result, nil
}

// LookupKey returns the key whose display form is display.
func LookupKey(ctx context.Context, db *sql.DB, namespace, display string) (*models.Key, error) {
	var key *models.Key
	err := RetryWithBackoff(func() error {
		k, err := getKey(ctx, db, namespace, display)
		if err != nil {
			return err
		}
		key = k
		return nil
	})
	if err != nil {
		return nil, err
	}
	return key, nil
}

// KeyExists reports whether id is registered in namespace.
func KeyExists(ctx context.Context, db *sql.DB, namespace string, scheme keyspace.Scheme, id keyspace.ID) (bool, error) {
	var exists bool
	err := RetryWithBackoff(func() error {
		v, err := NewKeyStore(db, namespace, scheme).Exists(ctx, id)
		if err != nil {
			return err
		}
		exists = v
		return nil
	})
	return exists, err
}

// ListKeys returns keys in namespace, newest first.
func ListKeys(ctx context.Context, db *sql.DB, namespace string, limit int) ([]*models.Key, error) {
	if limit <= 0 {
		limit = 100
	}
	var keys []*models.Key
	err := RetryWithBackoff(func() error {
		rows, err := db.QueryContext(ctx, `
			SELECT k.namespace, n.scheme, k.display, k.label, k.created_at
			FROM keys k JOIN namespaces n ON n.name = k.namespace
			WHERE k.namespace = ?
			ORDER BY k.created_at DESC, k.rowid DESC
			LIMIT ?
		`, namespace, limit)
		if err != nil {
			return fmt.Errorf("failed to list keys: %w", err)
		}
		defer func() { _ = rows.Close() }()

		keys = keys[:0]
		for rows.Next() {
			var s keyRowScanner
			if err := s.scan(rows); err != nil {
				return fmt.Errorf("failed to scan key: %w", err)
			}
			keys = append(keys, s.get())
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

// CountKeys returns the number of keys in namespace.
func CountKeys(ctx context.Context, db *sql.DB, namespace string) (int64, error) {
	var n int64
	err := RetryWithBackoff(func() error {
		return db.QueryRowContext(ctx, `SELECT COUNT(*) FROM keys WHERE namespace = ?`, namespace).Scan(&n)
	})
	return n, err
}

// DeleteKey releases a key so it may be allocated again.
func DeleteKey(ctx context.Context, db *sql.DB, namespace, display string) error {
	return Transact(ctx, db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM keys WHERE namespace = ? AND display = ?`, namespace, display)
		if err != nil {
			return fmt.Errorf("failed to delete key: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if n == 0 {
			return &KeyNotFoundError{Namespace: namespace, Key: display}
		}
		return nil
	})
}

// GetNamespace returns the namespace record.
func GetNamespace(ctx context.Context, db *sql.DB, namespace string) (*models.Namespace, error) {
	return getNamespace(ctx, db, namespace)
}

func getNamespace(ctx context.Context, q Querier, namespace string) (*models.Namespace, error) {
	var ns models.Namespace
	err := q.QueryRowContext(ctx, `
		SELECT name, scheme, length, created_at FROM namespaces WHERE name = ?
	`, namespace).Scan(&ns.Name, &ns.Scheme, &ns.Length, &ns.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("namespace %q not found: %w", namespace, ErrKeyNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch namespace: %w", err)
	}
	return &ns, nil
}

func getKey(ctx context.Context, q Querier, namespace, display string) (*models.Key, error) {
	var s keyRowScanner
	err := s.scan(q.QueryRowContext(ctx, `
		SELECT k.namespace, n.scheme, k.display, k.label, k.created_at
		FROM keys k JOIN namespaces n ON n.name = k.namespace
		WHERE k.namespace = ? AND k.display = ?
	`, namespace, display))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &KeyNotFoundError{Namespace: namespace, Key: display}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch key: %w", err)
	}
	return s.get(), nil
}
