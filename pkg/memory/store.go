// Package memory provides an in-process key registry that satisfies
// keyspace.ExistenceChecker. It is meant for tests, batch generation and
// single-process services that do not need durable keys.
package memory

import (
	"errors"
	"time"
)

// ErrDuplicateKey is returned by Insert when the key is already registered.
var ErrDuplicateKey = errors.New("key already registered")

// Store is a namespaced set of encoded keys with optional TTL.
type Store interface {
	Insert(namespace, key string, opts ...Option) error
	Contains(namespace, key string) bool
	Get(namespace, key string) (Entry, bool)
	Delete(namespace, key string) bool
	List(namespace string) []Entry
	Len() int
}

// Entry represents a registered key.
type Entry struct {
	Namespace string     `json:"namespace"`
	Key       string     `json:"key"`
	Label     string     `json:"label,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

type insertOptions struct {
	ttl   time.Duration
	label string
}

// Option configures an Insert operation.
type Option func(*insertOptions)

// WithTTL makes the registration lapse after d. Useful for reservations that
// are confirmed elsewhere.
func WithTTL(d time.Duration) Option {
	return func(o *insertOptions) {
		o.ttl = d
	}
}

// WithLabel attaches a free-form label to the entry.
func WithLabel(label string) Option {
	return func(o *insertOptions) {
		o.label = label
	}
}
