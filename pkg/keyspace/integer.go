package keyspace

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
)

const (
	// DefaultIntegerLength is the digit count used when IntegerScheme.Digits is zero.
	DefaultIntegerLength = 12
	// MaxIntegerLength keeps 10^L - 1 inside int64.
	MaxIntegerLength = 18
)

// IntegerScheme produces decimal integers with exactly Digits digits.
type IntegerScheme struct {
	// Digits is the number of decimal digits. Zero selects DefaultIntegerLength.
	Digits int
	// Rand overrides the random source. Nil uses crypto/rand.
	Rand io.Reader
}

// NewIntegerScheme returns an IntegerScheme of n digits. n must be in [1, MaxIntegerLength].
func NewIntegerScheme(n int) (*IntegerScheme, error) {
	if n < 1 || n > MaxIntegerLength {
		return nil, fmt.Errorf("%w: integer length %d outside [1, %d]", ErrInvalidLength, n, MaxIntegerLength)
	}
	return &IntegerScheme{Digits: n}, nil
}

func (s *IntegerScheme) Name() string { return "integer" }

func (s *IntegerScheme) Length() int {
	if s.Digits == 0 {
		return DefaultIntegerLength
	}
	return s.Digits
}

// Bounds returns the inclusive range of values with exactly Length() digits.
// It fails with ErrInvalidLength outside [1, MaxIntegerLength].
func (s *IntegerScheme) Bounds() (lo, hi int64, err error) {
	n := s.Length()
	if n < 1 || n > MaxIntegerLength {
		return 0, 0, fmt.Errorf("%w: integer length %d outside [1, %d]", ErrInvalidLength, n, MaxIntegerLength)
	}
	lo = 1
	for i := 1; i < n; i++ {
		lo *= 10
	}
	return lo, lo*10 - 1, nil
}

func (s *IntegerScheme) Generate() (ID, error) {
	lo, hi, err := s.Bounds()
	if err != nil {
		return nil, err
	}
	// rand.Int rejects out-of-range draws, so the result is uniform over [0, span).
	n, err := rand.Int(randSource(s.Rand), big.NewInt(hi-lo+1))
	if err != nil {
		return nil, fmt.Errorf("draw random integer: %w", err)
	}
	return lo + n.Int64(), nil
}

func (s *IntegerScheme) Encode(id ID) (string, error) {
	v, err := s.int(id)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(v, 10), nil
}

func (s *IntegerScheme) Decode(str string) (ID, error) {
	lo, hi, err := s.Bounds()
	if err != nil {
		return nil, err
	}
	if str == "" {
		return nil, formatErr(s.Name(), str, "empty input")
	}
	for i := 0; i < len(str); i++ {
		if str[i] < '0' || str[i] > '9' {
			return nil, formatErr(s.Name(), str, "contains non-decimal characters")
		}
	}
	if len(str) != s.Length() {
		return nil, formatErr(s.Name(), str, fmt.Sprintf("expected %d digits, got %d", s.Length(), len(str)))
	}
	v, err := strconv.ParseInt(str, 10, 64)
	if err != nil {
		return nil, formatErr(s.Name(), str, "not a 64-bit integer")
	}
	if v < lo || v > hi {
		return nil, formatErr(s.Name(), str, fmt.Sprintf("outside [%d, %d]", lo, hi))
	}
	return v, nil
}

func (s *IntegerScheme) Value(id ID) (any, error) {
	return s.int(id)
}

func (s *IntegerScheme) int(id ID) (int64, error) {
	lo, hi, err := s.Bounds()
	if err != nil {
		return 0, err
	}
	var v int64
	switch n := id.(type) {
	case int64:
		v = n
	case int:
		v = int64(n)
	default:
		return 0, fmt.Errorf("%w: integer scheme got %T", ErrUnsupportedID, id)
	}
	if v < lo || v > hi {
		return 0, fmt.Errorf("%w: %d has the wrong number of digits for length %d", ErrUnsupportedID, v, s.Length())
	}
	return v, nil
}
