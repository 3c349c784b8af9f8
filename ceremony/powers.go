package ceremony

import (
	"sync"

	"github.com/bnb-chain/kzg-ceremony/common"
	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/bnb-chain/kzg-ceremony/utils"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/pkg/errors"
)

// PowersOfTau is the accumulator of one sub-ceremony: [τ⁰]₁ … [τⁿ⁻¹]₁ and [τ⁰]₂ … [τᵐ⁻¹]₂.
type PowersOfTau struct {
	G1 []engine.G1 `json:"G1Powers"`
	G2 []engine.G2 `json:"G2Powers"`
}

// NewPowersOfTau returns the accumulator for τ = 1.
func NewPowersOfTau(size Size) PowersOfTau {
	p := PowersOfTau{
		G1: make([]engine.G1, size.G1),
		G2: make([]engine.G2, size.G2),
	}
	for i := range p.G1 {
		p.G1[i] = engine.GeneratorG1
	}
	for i := range p.G2 {
		p.G2[i] = engine.GeneratorG2
	}
	return p
}

func (p PowersOfTau) Size() Size { return Size{G1: len(p.G1), G2: len(p.G2)} }

func (p PowersOfTau) clone() PowersOfTau {
	return PowersOfTau{
		G1: append([]engine.G1(nil), p.G1...),
		G2: append([]engine.G2(nil), p.G2...),
	}
}

// checkShape requires two powers in each group so that [τ]₁ and [τ]₂ exist.
func (p PowersOfTau) checkShape() error {
	if len(p.G1) < 2 || len(p.G2) < 2 {
		return errors.Wrapf(ErrSizeMismatch, "need at least 2 powers per group, got %d/%d", len(p.G1), len(p.G2))
	}
	return nil
}

// scale multiplies the k-th power by τᵏ. Element 0 stays the generator.
func (c *Ceremony) scale(p PowersOfTau, tau fr.Element) (PowersOfTau, error) {
	if tau.IsZero() {
		return PowersOfTau{}, ErrComputationFailed
	}
	if err := p.checkShape(); err != nil {
		return PowersOfTau{}, err
	}
	n := len(p.G1)
	if len(p.G2) > n {
		n = len(p.G2)
	}
	scalars := utils.BigInts(utils.Powers(tau, n))

	out := p.clone()
	err := common.Parallelize(len(p.G1)-1, func(i int) error {
		k := i + 1
		var err error
		if out.G1[k], err = c.engine.ScalarMulG1(p.G1[k], scalars[k]); err != nil {
			return errors.Wrapf(ErrDeserializationFailed, "G1 power %d: %v", k, err)
		}
		return nil
	}, c.workers)
	if err != nil {
		return PowersOfTau{}, err
	}
	err = common.Parallelize(len(p.G2)-1, func(i int) error {
		k := i + 1
		var err error
		if out.G2[k], err = c.engine.ScalarMulG2(p.G2[k], scalars[k]); err != nil {
			return errors.Wrapf(ErrDeserializationFailed, "G2 power %d: %v", k, err)
		}
		return nil
	}, c.workers)
	if err != nil {
		return PowersOfTau{}, err
	}
	return out, nil
}

// validate runs the subgroup check on every power and stops at the first failure.
func (c *Ceremony) validate(p PowersOfTau) error {
	err := common.Parallelize(len(p.G1), func(i int) error {
		if !c.engine.InSubgroupG1(p.G1[i]) {
			return errors.Wrapf(ErrSubgroupCheckFailed, "G1 power %d", i)
		}
		return nil
	}, c.workers)
	if err != nil {
		return err
	}
	return common.Parallelize(len(p.G2), func(i int) error {
		if !c.engine.InSubgroupG2(p.G2[i]) {
			return errors.Wrapf(ErrSubgroupCheckFailed, "G2 power %d", i)
		}
		return nil
	}, c.workers)
}

// audit runs the subgroup check on every power and reports every failure in order.
func (c *Ceremony) audit(p PowersOfTau, prefix string) []error {
	failedG1 := make([]bool, len(p.G1))
	failedG2 := make([]bool, len(p.G2))
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = common.Parallelize(len(p.G1), func(i int) error {
			failedG1[i] = !c.engine.InSubgroupG1(p.G1[i])
			return nil
		}, c.workers)
	}()
	go func() {
		defer wg.Done()
		_ = common.Parallelize(len(p.G2), func(i int) error {
			failedG2[i] = !c.engine.InSubgroupG2(p.G2[i])
			return nil
		}, c.workers)
	}()
	wg.Wait()

	var errs []error
	for i, failed := range failedG1 {
		if failed {
			errs = append(errs, errors.Wrapf(ErrSubgroupCheckFailed, "%sG1 power %d", prefix, i))
		}
	}
	for i, failed := range failedG2 {
		if failed {
			errs = append(errs, errors.Wrapf(ErrSubgroupCheckFailed, "%sG2 power %d", prefix, i))
		}
	}
	return errs
}

// checkConsistency verifies that G1 and G2 are successive powers of the same τ with
// a random linear combination of consecutive elements:
// e(Σrᵢ[τⁱ]₁, [τ]₂) = e(Σrᵢ[τⁱ⁺¹]₁, g₂) and e(g₁, Σrᵢ[τⁱ⁺¹]₂) = e([τ]₁, Σrᵢ[τⁱ]₂).
func (c *Ceremony) checkConsistency(p PowersOfTau) error {
	if err := p.checkShape(); err != nil {
		return err
	}
	if p.G1[0] != engine.GeneratorG1 || p.G2[0] != engine.GeneratorG2 {
		return errors.Wrap(ErrInvalidPowers, "first power is not the generator")
	}

	r, err := utils.Random(len(p.G1) - 1)
	if err != nil {
		return err
	}
	l1, err := c.engine.MultiExpG1(p.G1[:len(p.G1)-1], r)
	if err != nil {
		return errors.Wrap(ErrDeserializationFailed, err.Error())
	}
	l2, err := c.engine.MultiExpG1(p.G1[1:], r)
	if err != nil {
		return errors.Wrap(ErrDeserializationFailed, err.Error())
	}
	ok, err := c.engine.SameRatio(l1, l2, p.G2[1], engine.GeneratorG2)
	if err != nil {
		return errors.Wrap(ErrDeserializationFailed, err.Error())
	}
	if !ok {
		return errors.Wrap(ErrInvalidPowers, "G1 powers")
	}

	r, err = utils.Random(len(p.G2) - 1)
	if err != nil {
		return err
	}
	m1, err := c.engine.MultiExpG2(p.G2[:len(p.G2)-1], r)
	if err != nil {
		return errors.Wrap(ErrDeserializationFailed, err.Error())
	}
	m2, err := c.engine.MultiExpG2(p.G2[1:], r)
	if err != nil {
		return errors.Wrap(ErrDeserializationFailed, err.Error())
	}
	ok, err = c.engine.SameRatio(engine.GeneratorG1, p.G1[1], m2, m1)
	if err != nil {
		return errors.Wrap(ErrDeserializationFailed, err.Error())
	}
	if !ok {
		return errors.Wrap(ErrInvalidPowers, "G2 powers")
	}
	return nil
}
