// Package keyspace allocates random primary-key values and converts them
// between their storage and display representations.
//
// Three schemes are provided: fixed-length random byte strings, fixed-width
// decimal integers and version-4 UUIDs. Allocation asks an ExistenceChecker
// whether each candidate is already taken and keeps drawing until it finds a
// free one. Persisting the winner is the caller's job.
package keyspace

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ID is an identifier payload. Its concrete type depends on the scheme that
// produced it: []byte, int64 or uuid.UUID.
type ID any

// Scheme generates identifiers of one kind and converts them to and from text.
type Scheme interface {
	Name() string
	Length() int
	Generate() (ID, error)
	Encode(id ID) (string, error)
	Decode(s string) (ID, error)
	// Value returns the form a key store persists and compares.
	Value(id ID) (any, error)
}

// ExistenceChecker reports whether a candidate is already present in a key store.
type ExistenceChecker interface {
	Exists(ctx context.Context, id ID) (bool, error)
}

// ExistenceCheckerFunc adapts a plain function to ExistenceChecker.
type ExistenceCheckerFunc func(ctx context.Context, id ID) (bool, error)

// Exists calls f(ctx, id).
func (f ExistenceCheckerFunc) Exists(ctx context.Context, id ID) (bool, error) {
	return f(ctx, id)
}

var (
	// ErrFormat matches every *FormatError.
	ErrFormat = errors.New("malformed identifier")
	// ErrUnsupportedID is returned when a scheme is handed a payload of the wrong type.
	ErrUnsupportedID = errors.New("identifier type not supported by scheme")
	// ErrInvalidLength is returned when a scheme is configured with an unusable length.
	ErrInvalidLength = errors.New("invalid identifier length")
)

// FormatError describes display input that does not match a scheme's textual shape.
type FormatError struct {
	Scheme string
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: malformed identifier %q: %s", e.Scheme, e.Input, e.Reason)
}

func (e *FormatError) ErrorCode() string { return "MALFORMED_ID" }
func (e *FormatError) Context() map[string]string {
	return map[string]string{
		"scheme": e.Scheme,
		"input":  e.Input,
		"reason": e.Reason,
	}
}
func (e *FormatError) SuggestedAction() string {
	return fmt.Sprintf("pass a value produced by the %s scheme encoder", e.Scheme)
}
func (e *FormatError) Is(target error) bool { return target == ErrFormat }

func formatErr(scheme, input, reason string) error {
	return &FormatError{Scheme: scheme, Input: input, Reason: reason}
}

// readRandom fills b from r, or from crypto/rand when r is nil.
func readRandom(r io.Reader, b []byte) error {
	if r == nil {
		r = rand.Reader
	}
	if _, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("read random bytes: %w", err)
	}
	return nil
}

func randSource(r io.Reader) io.Reader {
	if r == nil {
		return rand.Reader
	}
	return r
}
