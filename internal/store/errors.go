package store

import (
	"errors"
	"fmt"

	"github.com/dotcommander/randkey/internal/models"
)

// RecoverableError is an alias for models.RecoverableError.
type RecoverableError = models.RecoverableError

var (
	// ErrUniquenessConflict is returned when another writer persisted the same
	// key between the existence check and the insert.
	ErrUniquenessConflict = errors.New("key already persisted by another writer")
	// ErrKeyNotFound is returned by lookups for keys that were never allocated.
	ErrKeyNotFound = errors.New("key not found")
	// ErrSchemeMismatch is returned when a namespace is used with a scheme
	// other than the one it was created with.
	ErrSchemeMismatch = errors.New("namespace scheme mismatch")
)

// UniquenessConflictError carries the namespace and key that lost the race.
type UniquenessConflictError struct {
	Namespace string
	Key       string
}

func (e *UniquenessConflictError) Error() string { return ErrUniquenessConflict.Error() }
func (e *UniquenessConflictError) ErrorCode() string { return "UNIQUENESS_CONFLICT" }
func (e *UniquenessConflictError) Context() map[string]string {
	return map[string]string{
		"namespace": e.Namespace,
		"key":       e.Key,
	}
}
func (e *UniquenessConflictError) SuggestedAction() string {
	return fmt.Sprintf("randkey allocate --namespace %s", e.Namespace)
}
func (e *UniquenessConflictError) Is(target error) bool { return target == ErrUniquenessConflict }

// KeyNotFoundError replaces ErrKeyNotFound with structured context.
type KeyNotFoundError struct {
	Namespace string
	Key       string
}

func (e *KeyNotFoundError) Error() string { return ErrKeyNotFound.Error() }
func (e *KeyNotFoundError) ErrorCode() string { return "KEY_NOT_FOUND" }
func (e *KeyNotFoundError) Context() map[string]string {
	return map[string]string{
		"namespace": e.Namespace,
		"key":       e.Key,
	}
}
func (e *KeyNotFoundError) SuggestedAction() string {
	return fmt.Sprintf("randkey list --namespace %s", e.Namespace)
}
func (e *KeyNotFoundError) Is(target error) bool { return target == ErrKeyNotFound }

// SchemeMismatchError replaces ErrSchemeMismatch with structured context.
type SchemeMismatchError struct {
	Namespace       string
	Scheme          string
	Length          int
	RequestedScheme string
	RequestedLength int
}

func (e *SchemeMismatchError) Error() string {
	return fmt.Sprintf("%s: namespace %q uses %s/%d, got %s/%d",
		ErrSchemeMismatch.Error(), e.Namespace, e.Scheme, e.Length, e.RequestedScheme, e.RequestedLength)
}
func (e *SchemeMismatchError) ErrorCode() string { return "SCHEME_MISMATCH" }
func (e *SchemeMismatchError) Context() map[string]string {
	return map[string]string{
		"namespace":        e.Namespace,
		"scheme":           e.Scheme,
		"length":           fmt.Sprint(e.Length),
		"requested_scheme": e.RequestedScheme,
		"requested_length": fmt.Sprint(e.RequestedLength),
	}
}
func (e *SchemeMismatchError) SuggestedAction() string {
	return fmt.Sprintf("randkey allocate --namespace %s --scheme %s --length %d", e.Namespace, e.Scheme, e.Length)
}
func (e *SchemeMismatchError) Is(target error) bool { return target == ErrSchemeMismatch }
