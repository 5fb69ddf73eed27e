package keyspace

import (
	"math/big"
)

// Capacity returns the number of distinct identifiers scheme can produce.
// A scheme with an invalid length produces none.
func Capacity(scheme Scheme) *big.Int {
	switch s := scheme.(type) {
	case *IntegerScheme:
		lo, hi, err := s.Bounds()
		if err != nil {
			return new(big.Int)
		}
		return big.NewInt(hi - lo + 1)
	case *UUIDScheme:
		// 6 of 128 bits are fixed by version and variant.
		return new(big.Int).Lsh(big.NewInt(1), 122)
	default:
		if scheme.Length() < 1 {
			return new(big.Int)
		}
		return new(big.Int).Lsh(big.NewInt(1), uint(8*scheme.Length()))
	}
}

// FillRatio is used/Capacity(scheme): the probability that a single candidate
// collides, and so the expected extra attempts per allocation are f/(1-f).
// An empty keyspace reports 1.
func FillRatio(scheme Scheme, used int64) float64 {
	capacity := Capacity(scheme)
	if capacity.Sign() == 0 {
		return 1
	}
	r := new(big.Rat).SetFrac(big.NewInt(used), capacity)
	f, _ := r.Float64()
	return f
}
