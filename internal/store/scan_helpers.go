package store

import (
	"database/sql"

	"github.com/dotcommander/randkey/internal/models"
)

// scanNullString converts sql.NullString to string (empty if NULL)
func scanNullString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

// keyRowScanner scans the namespace, scheme, display, label, created_at
// projection shared by key queries.
type keyRowScanner struct {
	key   models.Key
	label sql.NullString
}

func (s *keyRowScanner) scan(row interface {
	Scan(dest ...any) error
}) error {
	return row.Scan(
		&s.key.Namespace,
		&s.key.Scheme,
		&s.key.Display,
		&s.label,
		&s.key.CreatedAt,
	)
}

func (s *keyRowScanner) get() *models.Key {
	s.key.Label = scanNullString(s.label)
	k := s.key
	return &k
}
