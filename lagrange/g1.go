// Package lagrange converts monomial SRS points to the Lagrange basis of an FFT domain.
package lagrange

import (
	"math/big"
	"math/bits"
	"runtime"

	"github.com/consensys/gnark-crypto/ecc"
	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
	"github.com/pkg/errors"

	"github.com/bnb-chain/kzg-ceremony/common"
)

func butterflyG1(a *bls12381.G1Jac, b *bls12381.G1Jac) {
	t := *a
	a.AddAssign(b)
	t.SubAssign(b)
	*b = t
}

// kerDIF8G1 is a kernel that process an FFT of size 8
func kerDIF8G1(a []bls12381.G1Jac, twiddles [][]fr.Element, stage int) {
	butterflyG1(&a[0], &a[4])
	butterflyG1(&a[1], &a[5])
	butterflyG1(&a[2], &a[6])
	butterflyG1(&a[3], &a[7])

	var twiddle big.Int
	twiddles[stage+0][1].BigInt(&twiddle)
	a[5].ScalarMultiplication(&a[5], &twiddle)
	twiddles[stage+0][2].BigInt(&twiddle)
	a[6].ScalarMultiplication(&a[6], &twiddle)
	twiddles[stage+0][3].BigInt(&twiddle)
	a[7].ScalarMultiplication(&a[7], &twiddle)
	butterflyG1(&a[0], &a[2])
	butterflyG1(&a[1], &a[3])
	butterflyG1(&a[4], &a[6])
	butterflyG1(&a[5], &a[7])
	twiddles[stage+1][1].BigInt(&twiddle)
	a[3].ScalarMultiplication(&a[3], &twiddle)
	a[7].ScalarMultiplication(&a[7], &twiddle)
	butterflyG1(&a[0], &a[1])
	butterflyG1(&a[2], &a[3])
	butterflyG1(&a[4], &a[5])
	butterflyG1(&a[6], &a[7])
}

// parallelize threshold for a single butterfly op, if the fft stage is not parallelized already
const butterflyThreshold = 16

func difFFTG1(a []bls12381.G1Jac, twiddles [][]fr.Element, stage, maxSplits int, chDone chan struct{}) {
	if chDone != nil {
		defer close(chDone)
	}

	n := len(a)
	if n == 1 {
		return
	} else if n == 8 {
		kerDIF8G1(a, twiddles, stage)
		return
	}
	m := n >> 1

	if (m > butterflyThreshold) && (stage < maxSplits) {
		// 1 << stage == estimated used CPUs
		numCPU := runtime.NumCPU() / (1 << (stage))
		_ = common.Parallelize(m, func(i int) error {
			var twiddle big.Int
			butterflyG1(&a[i], &a[i+m])
			twiddles[stage][i].BigInt(&twiddle)
			a[i+m].ScalarMultiplication(&a[i+m], &twiddle)
			return nil
		}, numCPU)
	} else {
		// i == 0
		butterflyG1(&a[0], &a[m])
		var twiddle big.Int
		for i := 1; i < m; i++ {
			butterflyG1(&a[i], &a[i+m])
			twiddles[stage][i].BigInt(&twiddle)
			a[i+m].ScalarMultiplication(&a[i+m], &twiddle)
		}
	}

	if m == 1 {
		return
	}

	nextStage := stage + 1
	if stage < maxSplits {
		chDone := make(chan struct{}, 1)
		go difFFTG1(a[m:n], twiddles, nextStage, maxSplits, chDone)
		difFFTG1(a[0:m], twiddles, nextStage, maxSplits, nil)
		<-chDone
	} else {
		difFFTG1(a[0:m], twiddles, nextStage, maxSplits, nil)
		difFFTG1(a[m:n], twiddles, nextStage, maxSplits, nil)
	}
}

// inverseTwiddles returns, for every stage s of a DIF FFT of size n, the powers
// ω⁻ⁱ²ˢ for i < n/2ˢ⁺¹, ω being the generator of the domain.
func inverseTwiddles(domain *fft.Domain) [][]fr.Element {
	n := int(domain.Cardinality)
	nbStages := bits.TrailingZeros64(uint64(n))
	twiddles := make([][]fr.Element, nbStages)

	w := domain.GeneratorInv
	for s := 0; s < nbStages; s++ {
		m := n >> (s + 1)
		twiddles[s] = make([]fr.Element, m)
		twiddles[s][0].SetOne()
		for i := 1; i < m; i++ {
			twiddles[s][i].Mul(&twiddles[s][i-1], &w)
		}
		w.Square(&w)
	}
	return twiddles
}

// ConvertG1 replaces [τⁱ]₁, i < n, by the Lagrange basis [Lᵢ(τ)]₁ of domain, in
// natural order. len(buff) must equal the domain cardinality.
func ConvertG1(buff []bls12381.G1Affine, domain *fft.Domain) error {
	if uint64(len(buff)) != domain.Cardinality {
		return errors.Errorf("got %d points for a domain of size %d", len(buff), domain.Cardinality)
	}
	if len(buff) == 1 {
		return nil
	}
	numCPU := uint64(runtime.NumCPU())
	maxSplits := bits.TrailingZeros64(ecc.NextPowerOfTwo(numCPU))
	jac := make([]bls12381.G1Jac, len(buff))
	for i := 0; i < len(buff); i++ {
		jac[i].FromAffine(&buff[i])
	}

	difFFTG1(jac, inverseTwiddles(domain), 0, maxSplits, nil)
	common.BitReverse(jac)
	var invBigint big.Int
	domain.CardinalityInv.BigInt(&invBigint)
	return common.Parallelize(len(jac), func(i int) error {
		jac[i].ScalarMultiplication(&jac[i], &invBigint)
		buff[i].FromJacobian(&jac[i])
		return nil
	})
}
