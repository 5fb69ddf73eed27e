package keyspace

import (
	"fmt"
	"sort"
)

// Scheme names accepted by NewScheme.
const (
	SchemeBinary  = "binary"
	SchemeInteger = "integer"
	SchemeUUID    = "uuid"
)

// SchemeNames lists the names accepted by NewScheme in sorted order.
func SchemeNames() []string {
	names := []string{SchemeBinary, SchemeInteger, SchemeUUID}
	sort.Strings(names)
	return names
}

// NewScheme builds a scheme by name. A zero length selects the scheme default;
// the uuid scheme only accepts 0 or 16.
func NewScheme(name string, length int) (Scheme, error) {
	switch name {
	case SchemeBinary:
		if length == 0 {
			length = DefaultBinaryLength
		}
		return NewBinaryScheme(length)
	case SchemeInteger:
		if length == 0 {
			length = DefaultIntegerLength
		}
		return NewIntegerScheme(length)
	case SchemeUUID:
		if length != 0 && length != 16 {
			return nil, fmt.Errorf("%w: uuid length is fixed at 16, got %d", ErrInvalidLength, length)
		}
		return &UUIDScheme{}, nil
	default:
		return nil, fmt.Errorf("unknown scheme %q (want one of %v)", name, SchemeNames())
	}
}
