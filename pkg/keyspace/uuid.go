package keyspace

import (
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"
)

// UUIDScheme produces random (version 4) UUIDs shown in the canonical
// 8-4-4-4-12 form.
type UUIDScheme struct {
	// Rand overrides the random source. Nil uses crypto/rand.
	Rand io.Reader
}

func (s *UUIDScheme) Name() string { return "uuid" }

func (s *UUIDScheme) Length() int { return 16 }

func (s *UUIDScheme) Generate() (ID, error) {
	var u uuid.UUID
	if err := readRandom(s.Rand, u[:]); err != nil {
		return nil, err
	}
	u[6] = (u[6] & 0x0f) | 0x40 // version 4
	u[8] = (u[8] & 0x3f) | 0x80 // RFC 4122 variant
	return u, nil
}

func (s *UUIDScheme) Encode(id ID) (string, error) {
	u, err := s.uuid(id)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// Decode accepts any 32 hex digits once hyphens are removed. Version and
// variant bits are not checked.
func (s *UUIDScheme) Decode(str string) (ID, error) {
	if str == "" {
		return nil, formatErr(s.Name(), str, "empty input")
	}
	raw := strings.ReplaceAll(str, "-", "")
	if len(raw) != 32 {
		return nil, formatErr(s.Name(), str, fmt.Sprintf("expected 32 hex digits, got %d", len(raw)))
	}
	b, err := hex.DecodeString(raw)
	if err != nil {
		return nil, formatErr(s.Name(), str, "contains non-hex characters")
	}
	u, err := uuid.FromBytes(b)
	if err != nil {
		return nil, formatErr(s.Name(), str, err.Error())
	}
	return u, nil
}

func (s *UUIDScheme) Value(id ID) (any, error) {
	u, err := s.uuid(id)
	if err != nil {
		return nil, err
	}
	return u[:], nil
}

func (s *UUIDScheme) uuid(id ID) (uuid.UUID, error) {
	switch v := id.(type) {
	case uuid.UUID:
		return v, nil
	case []byte:
		u, err := uuid.FromBytes(v)
		if err != nil {
			return uuid.Nil, fmt.Errorf("%w: %v", ErrUnsupportedID, err)
		}
		return u, nil
	default:
		return uuid.Nil, fmt.Errorf("%w: uuid scheme got %T", ErrUnsupportedID, id)
	}
}
