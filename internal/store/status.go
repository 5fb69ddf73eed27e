package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dotcommander/randkey/pkg/keyspace"
)

// NamespaceStatus summarizes one namespace of the key registry.
type NamespaceStatus struct {
	Name      string  `json:"name"`
	Scheme    string  `json:"scheme"`
	Length    int     `json:"length"`
	Keys      int64   `json:"keys"`
	Capacity  string  `json:"capacity"`
	FillRatio float64 `json:"fill_ratio"`
}

// StatusCounts holds registry-wide summary counts.
type StatusCounts struct {
	SchemaVersion int64             `json:"schema_version"`
	Namespaces    []NamespaceStatus `json:"namespaces"`
	TotalKeys     int64             `json:"total_keys"`
}

// GetStatusCounts returns per-namespace key counts and fill ratios.
func GetStatusCounts(ctx context.Context, db *sql.DB) (*StatusCounts, error) {
	current, _, err := SchemaVersion(db)
	if err != nil {
		return nil, err
	}
	out := &StatusCounts{SchemaVersion: current, Namespaces: []NamespaceStatus{}}

	err = RetryWithBackoff(func() error {
		rows, err := db.QueryContext(ctx, `
			SELECT n.name, n.scheme, n.length, COUNT(k.key)
			FROM namespaces n LEFT JOIN keys k ON k.namespace = n.name
			GROUP BY n.name, n.scheme, n.length
			ORDER BY n.name
		`)
		if err != nil {
			return fmt.Errorf("failed to query namespace counts: %w", err)
		}
		defer func() { _ = rows.Close() }()

		out.Namespaces = out.Namespaces[:0]
		out.TotalKeys = 0
		for rows.Next() {
			var ns NamespaceStatus
			if err := rows.Scan(&ns.Name, &ns.Scheme, &ns.Length, &ns.Keys); err != nil {
				return fmt.Errorf("failed to scan namespace counts: %w", err)
			}
			scheme, err := keyspace.NewScheme(ns.Scheme, ns.Length)
			if err != nil {
				return fmt.Errorf("namespace %s: %w", ns.Name, err)
			}
			ns.Capacity = keyspace.Capacity(scheme).String()
			ns.FillRatio = keyspace.FillRatio(scheme, ns.Keys)
			out.TotalKeys += ns.Keys
			out.Namespaces = append(out.Namespaces, ns)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
