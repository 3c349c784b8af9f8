package engine

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/drand/kyber"
	bls "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/pairing"
	"github.com/pkg/errors"
)

func init() {
	Register("kyber", func() Engine { return NewKyber() })
}

// Kyber implements Engine on top of drand's kyber-bls12381 suite. Its decoder
// always enforces subgroup membership, so non-subgroup points fail to decode.
type Kyber struct {
	suite pairing.Suite
}

func NewKyber() *Kyber {
	return &Kyber{suite: bls.NewBLS12381Suite()}
}

func (*Kyber) Name() string { return "kyber" }

func (k *Kyber) pointG1(p G1) (kyber.Point, error) {
	pt := k.suite.G1().Point()
	if err := pt.UnmarshalBinary(p[:]); err != nil {
		return nil, errors.Wrap(ErrInvalidPoint, err.Error())
	}
	return pt, nil
}

func (k *Kyber) pointG2(p G2) (kyber.Point, error) {
	pt := k.suite.G2().Point()
	if err := pt.UnmarshalBinary(p[:]); err != nil {
		return nil, errors.Wrap(ErrInvalidPoint, err.Error())
	}
	return pt, nil
}

func encodeG1(pt kyber.Point) (G1, error) {
	var out G1
	buf, err := pt.MarshalBinary()
	if err != nil {
		return out, err
	}
	if len(buf) != SizeG1 {
		return out, errors.Wrapf(ErrInvalidPoint, "kyber produced %d bytes", len(buf))
	}
	copy(out[:], buf)
	return out, nil
}

func encodeG2(pt kyber.Point) (G2, error) {
	var out G2
	buf, err := pt.MarshalBinary()
	if err != nil {
		return out, err
	}
	if len(buf) != SizeG2 {
		return out, errors.Wrapf(ErrInvalidPoint, "kyber produced %d bytes", len(buf))
	}
	copy(out[:], buf)
	return out, nil
}

// scalar reduces a big-endian integer into the suite's scalar field.
func (k *Kyber) scalar(v *big.Int) kyber.Scalar {
	return k.suite.G1().Scalar().SetBytes(v.Bytes())
}

func (k *Kyber) InSubgroupG1(p G1) bool {
	_, err := k.pointG1(p)
	return err == nil
}

func (k *Kyber) InSubgroupG2(p G2) bool {
	_, err := k.pointG2(p)
	return err == nil
}

func (k *Kyber) ScalarMulG1(p G1, s *big.Int) (G1, error) {
	pt, err := k.pointG1(p)
	if err != nil {
		return G1{}, err
	}
	return encodeG1(k.suite.G1().Point().Mul(k.scalar(s), pt))
}

func (k *Kyber) ScalarMulG2(p G2, s *big.Int) (G2, error) {
	pt, err := k.pointG2(p)
	if err != nil {
		return G2{}, err
	}
	return encodeG2(k.suite.G2().Point().Mul(k.scalar(s), pt))
}

func (k *Kyber) MultiExpG1(points []G1, scalars []fr.Element) (G1, error) {
	if len(points) != len(scalars) {
		return G1{}, ErrLengthMismatch
	}
	acc := k.suite.G1().Point().Null()
	var bi big.Int
	for i := range points {
		pt, err := k.pointG1(points[i])
		if err != nil {
			return G1{}, errors.Wrapf(err, "point %d", i)
		}
		scalars[i].BigInt(&bi)
		acc = acc.Add(acc, pt.Mul(k.scalar(&bi), pt))
	}
	return encodeG1(acc)
}

func (k *Kyber) MultiExpG2(points []G2, scalars []fr.Element) (G2, error) {
	if len(points) != len(scalars) {
		return G2{}, ErrLengthMismatch
	}
	acc := k.suite.G2().Point().Null()
	var bi big.Int
	for i := range points {
		pt, err := k.pointG2(points[i])
		if err != nil {
			return G2{}, errors.Wrapf(err, "point %d", i)
		}
		scalars[i].BigInt(&bi)
		acc = acc.Add(acc, pt.Mul(k.scalar(&bi), pt))
	}
	return encodeG2(acc)
}

type hashablePoint interface {
	Hash([]byte) kyber.Point
}

func (k *Kyber) HashToG1(msg, dst []byte) (G1, error) {
	suite := bls.NewBLS12381SuiteWithDST(dst, dst)
	pt, ok := suite.G1().Point().(hashablePoint)
	if !ok {
		return G1{}, errors.New("engine: kyber G1 points are not hashable")
	}
	return encodeG1(pt.Hash(msg))
}

func (k *Kyber) SameRatio(a1, b1 G1, a2, b2 G2) (bool, error) {
	pa1, err := k.pointG1(a1)
	if err != nil {
		return false, err
	}
	pb1, err := k.pointG1(b1)
	if err != nil {
		return false, err
	}
	pa2, err := k.pointG2(a2)
	if err != nil {
		return false, err
	}
	pb2, err := k.pointG2(b2)
	if err != nil {
		return false, err
	}
	return k.suite.Pair(pa1, pa2).Equal(k.suite.Pair(pb1, pb2)), nil
}
