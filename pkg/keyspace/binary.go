package keyspace

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
)

// DefaultBinaryLength is the byte count used when BinaryScheme.Len is zero.
const DefaultBinaryLength = 16

// BinaryScheme produces fixed-length random byte strings shown as lowercase hex.
type BinaryScheme struct {
	// Len is the number of bytes per identifier. Zero selects DefaultBinaryLength.
	Len int
	// Rand overrides the random source. Nil uses crypto/rand.
	Rand io.Reader
}

// NewBinaryScheme returns a BinaryScheme of n bytes.
func NewBinaryScheme(n int) (*BinaryScheme, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: binary length %d", ErrInvalidLength, n)
	}
	return &BinaryScheme{Len: n}, nil
}

func (s *BinaryScheme) Name() string { return "binary" }

func (s *BinaryScheme) Length() int {
	if s.Len == 0 {
		return DefaultBinaryLength
	}
	return s.Len
}

func (s *BinaryScheme) checkLength() error {
	if s.Len < 0 {
		return fmt.Errorf("%w: binary length %d", ErrInvalidLength, s.Len)
	}
	return nil
}

func (s *BinaryScheme) Generate() (ID, error) {
	if err := s.checkLength(); err != nil {
		return nil, err
	}
	b := make([]byte, s.Length())
	if err := readRandom(s.Rand, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BinaryScheme) Encode(id ID) (string, error) {
	b, err := s.bytes(id)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (s *BinaryScheme) Decode(str string) (ID, error) {
	if err := s.checkLength(); err != nil {
		return nil, err
	}
	if str == "" {
		return nil, formatErr(s.Name(), str, "empty input")
	}
	if len(str)%2 != 0 {
		return nil, formatErr(s.Name(), str, "odd number of hex digits")
	}
	b, err := hex.DecodeString(str)
	if err != nil {
		return nil, formatErr(s.Name(), str, "contains non-hex characters")
	}
	if len(b) != s.Length() {
		return nil, formatErr(s.Name(), str, fmt.Sprintf("expected %d bytes, got %d", s.Length(), len(b)))
	}
	return b, nil
}

func (s *BinaryScheme) Value(id ID) (any, error) {
	return s.bytes(id)
}

func (s *BinaryScheme) bytes(id ID) ([]byte, error) {
	if err := s.checkLength(); err != nil {
		return nil, err
	}
	b, ok := id.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: binary scheme got %T", ErrUnsupportedID, id)
	}
	if len(b) != s.Length() {
		return nil, fmt.Errorf("%w: binary scheme expects %d bytes, got %d", ErrUnsupportedID, s.Length(), len(b))
	}
	return bytes.Clone(b), nil
}
