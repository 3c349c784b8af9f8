package utils

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
)

// Returns [1, a, a², ..., aⁿ⁻¹ ] in Montgomery form
func Powers(a fr.Element, n int) []fr.Element {
	if n <= 0 {
		return nil
	}
	result := make([]fr.Element, n)
	result[0] = fr.NewElement(1)
	for i := 1; i < n; i++ {
		result[i].Mul(&result[i-1], &a)
	}
	return result
}

// BigInts converts field elements to their canonical integer form.
func BigInts(a []fr.Element) []*big.Int {
	result := make([]*big.Int, len(a))
	for i := range a {
		result[i] = new(big.Int)
		a[i].BigInt(result[i])
	}
	return result
}

// Random returns n uniformly random field elements.
func Random(n int) ([]fr.Element, error) {
	r := make([]fr.Element, n)
	for i := range r {
		if _, err := r[i].SetRandom(); err != nil {
			return nil, err
		}
	}
	return r, nil
}
