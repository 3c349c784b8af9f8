package engine

import (
	"bytes"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/pkg/errors"
)

func init() {
	Register("gnark", func() Engine { return Gnark{} })
}

// Gnark implements Engine on top of gnark-crypto.
type Gnark struct{}

func (Gnark) Name() string { return "gnark" }

// Points are decoded without the subgroup check; callers run InSubgroup* explicitly
// before trusting a point.
func (Gnark) decodeG1(p G1) (bls12381.G1Affine, error) {
	var a bls12381.G1Affine
	dec := bls12381.NewDecoder(bytes.NewReader(p[:]), bls12381.NoSubgroupChecks())
	if err := dec.Decode(&a); err != nil {
		return a, errors.Wrap(ErrInvalidPoint, err.Error())
	}
	return a, nil
}

func (Gnark) decodeG2(p G2) (bls12381.G2Affine, error) {
	var a bls12381.G2Affine
	dec := bls12381.NewDecoder(bytes.NewReader(p[:]), bls12381.NoSubgroupChecks())
	if err := dec.Decode(&a); err != nil {
		return a, errors.Wrap(ErrInvalidPoint, err.Error())
	}
	return a, nil
}

// FromG1 converts an encoded point into its gnark-crypto form.
func FromG1(p G1) (bls12381.G1Affine, error) { return Gnark{}.decodeG1(p) }

// FromG2 converts an encoded point into its gnark-crypto form.
func FromG2(p G2) (bls12381.G2Affine, error) { return Gnark{}.decodeG2(p) }

// ToG1 encodes a gnark-crypto point.
func ToG1(a *bls12381.G1Affine) G1 { return G1(a.Bytes()) }

// ToG2 encodes a gnark-crypto point.
func ToG2(a *bls12381.G2Affine) G2 { return G2(a.Bytes()) }

func (g Gnark) InSubgroupG1(p G1) bool {
	a, err := g.decodeG1(p)
	if err != nil {
		return false
	}
	return a.IsInSubGroup()
}

func (g Gnark) InSubgroupG2(p G2) bool {
	a, err := g.decodeG2(p)
	if err != nil {
		return false
	}
	return a.IsInSubGroup()
}

func (g Gnark) ScalarMulG1(p G1, k *big.Int) (G1, error) {
	a, err := g.decodeG1(p)
	if err != nil {
		return G1{}, err
	}
	a.ScalarMultiplication(&a, k)
	return ToG1(&a), nil
}

func (g Gnark) ScalarMulG2(p G2, k *big.Int) (G2, error) {
	a, err := g.decodeG2(p)
	if err != nil {
		return G2{}, err
	}
	a.ScalarMultiplication(&a, k)
	return ToG2(&a), nil
}

func (g Gnark) MultiExpG1(points []G1, scalars []fr.Element) (G1, error) {
	if len(points) != len(scalars) {
		return G1{}, ErrLengthMismatch
	}
	buff := make([]bls12381.G1Affine, len(points))
	for i := range points {
		var err error
		if buff[i], err = g.decodeG1(points[i]); err != nil {
			return G1{}, errors.Wrapf(err, "point %d", i)
		}
	}
	var res bls12381.G1Affine
	if _, err := res.MultiExp(buff, scalars, ecc.MultiExpConfig{}); err != nil {
		return G1{}, err
	}
	return ToG1(&res), nil
}

func (g Gnark) MultiExpG2(points []G2, scalars []fr.Element) (G2, error) {
	if len(points) != len(scalars) {
		return G2{}, ErrLengthMismatch
	}
	buff := make([]bls12381.G2Affine, len(points))
	for i := range points {
		var err error
		if buff[i], err = g.decodeG2(points[i]); err != nil {
			return G2{}, errors.Wrapf(err, "point %d", i)
		}
	}
	var res bls12381.G2Affine
	if _, err := res.MultiExp(buff, scalars, ecc.MultiExpConfig{}); err != nil {
		return G2{}, err
	}
	return ToG2(&res), nil
}

func (Gnark) HashToG1(msg, dst []byte) (G1, error) {
	p, err := bls12381.HashToG1(msg, dst)
	if err != nil {
		return G1{}, err
	}
	return ToG1(&p), nil
}

// SameRatio checks e(a₁, a₂) = e(b₁, b₂)
func (g Gnark) SameRatio(a1, b1 G1, a2, b2 G2) (bool, error) {
	pa1, err := g.decodeG1(a1)
	if err != nil {
		return false, err
	}
	pb1, err := g.decodeG1(b1)
	if err != nil {
		return false, err
	}
	pa2, err := g.decodeG2(a2)
	if err != nil {
		return false, err
	}
	pb2, err := g.decodeG2(b2)
	if err != nil {
		return false, err
	}
	var na2 bls12381.G2Affine
	na2.Neg(&pa2)
	return bls12381.PairingCheck(
		[]bls12381.G1Affine{pa1, pb1},
		[]bls12381.G2Affine{na2, pb2})
}
