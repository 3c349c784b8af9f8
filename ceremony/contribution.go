package ceremony

import (
	"math/big"
	"strconv"

	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Contribution is a participant's update of one sub-ceremony.
type Contribution struct {
	NumG1Powers  int          `json:"numG1Powers"`
	NumG2Powers  int          `json:"numG2Powers"`
	PowersOfTau  PowersOfTau  `json:"powersOfTau"`
	PotPubkey    engine.G2    `json:"potPubkey"`
	BLSSignature Signature    `json:"blsSignature,omitempty"`
	Proof        *UpdateProof `json:"proof,omitempty"`
}

// BatchContribution holds one contribution per sub-ceremony, in sub-ceremony order.
type BatchContribution struct {
	Contributions []Contribution `json:"contributions"`
}

func (bc *BatchContribution) checkDecoded() error {
	if len(bc.Contributions) == 0 {
		return errors.Wrap(ErrDeserializationFailed, "no contributions")
	}
	return nil
}

func (bc *BatchContribution) Sizes() []Size {
	sizes := make([]Size, len(bc.Contributions))
	for i := range bc.Contributions {
		sizes[i] = bc.Contributions[i].PowersOfTau.Size()
	}
	return sizes
}

// Contribute mixes the secret into every sub-ceremony of bc and returns the updated
// batch. The input is not modified. Any failure aborts the whole batch.
func (c *Ceremony) Contribute(bc *BatchContribution, secret *Secret, id Identity) (*BatchContribution, error) {
	if id.IsZero() {
		return nil, errors.Wrap(ErrInvalidIdentity, "empty identity")
	}
	if len(bc.Contributions) == 0 {
		return nil, errors.Wrap(ErrSizeMismatch, "no sub-ceremonies")
	}
	taus, err := DeriveTaus(secret, c.tag, len(bc.Contributions))
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range taus {
			taus[i].SetZero()
		}
	}()

	out := &BatchContribution{Contributions: make([]Contribution, len(bc.Contributions))}
	var eg errgroup.Group
	for i := range bc.Contributions {
		i := i
		eg.Go(func() error {
			contrib, err := c.contribute(&bc.Contributions[i], taus[i], id)
			if err != nil {
				return errors.WithMessagef(err, "sub-ceremony %d", i)
			}
			out.Contributions[i] = *contrib
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	c.log.Infow("contribution computed", "identity", id.String(), "subCeremonies", len(out.Contributions))
	return out, nil
}

func (c *Ceremony) contribute(old *Contribution, tau fr.Element, id Identity) (*Contribution, error) {
	powers, err := c.scale(old.PowersOfTau, tau)
	if err != nil {
		return nil, err
	}
	var tauBi big.Int
	tau.BigInt(&tauBi)
	defer tauBi.SetInt64(0)

	pubkey, err := c.engine.ScalarMulG2(engine.GeneratorG2, &tauBi)
	if err != nil {
		return nil, errors.Wrap(ErrComputationFailed, err.Error())
	}
	sig, err := signIdentity(c.engine, id, &tauBi)
	if err != nil {
		return nil, errors.Wrap(ErrComputationFailed, err.Error())
	}
	c.log.Debugw("sub-ceremony updated", "g1Powers", len(powers.G1), "g2Powers", len(powers.G2), "potPubkey", pubkey.String())
	return &Contribution{
		NumG1Powers:  len(powers.G1),
		NumG2Powers:  len(powers.G2),
		PowersOfTau:  powers,
		PotPubkey:    pubkey,
		BLSSignature: sig,
		Proof: &UpdateProof{
			CommitmentToSecret:  pubkey,
			PreviousAccumulated: old.PowersOfTau.G1[1],
			NewAccumulated:      powers.G1[1],
		},
	}, nil
}

// PotPubkeys derives the per sub-ceremony pubkeys [τ]₂ of a secret without touching
// any accumulator.
func (c *Ceremony) PotPubkeys(secret *Secret, n int) ([]engine.G2, error) {
	taus, err := DeriveTaus(secret, c.tag, n)
	if err != nil {
		return nil, err
	}
	pubkeys := make([]engine.G2, n)
	var tauBi big.Int
	for i := range taus {
		taus[i].BigInt(&tauBi)
		if pubkeys[i], err = c.engine.ScalarMulG2(engine.GeneratorG2, &tauBi); err != nil {
			return nil, errors.Wrap(ErrComputationFailed, err.Error())
		}
		taus[i].SetZero()
	}
	tauBi.SetInt64(0)
	return pubkeys, nil
}

// Validate checks that every point of bc lies in the prime order subgroup and
// returns the first failure.
func (c *Ceremony) Validate(bc *BatchContribution) error {
	for i := range bc.Contributions {
		contrib := &bc.Contributions[i]
		if err := c.validate(contrib.PowersOfTau); err != nil {
			return errors.WithMessagef(err, "sub-ceremony %d", i)
		}
		if !c.engine.InSubgroupG2(contrib.PotPubkey) {
			return errors.Wrapf(ErrSubgroupCheckFailed, "sub-ceremony %d: pot pubkey", i)
		}
	}
	return nil
}

// Audit is Validate in exhaustive mode: every failing point is reported.
func (c *Ceremony) Audit(bc *BatchContribution) error {
	var merr *multierror.Error
	for i := range bc.Contributions {
		contrib := &bc.Contributions[i]
		prefix := "sub-ceremony " + strconv.Itoa(i) + ": "
		merr = multierror.Append(merr, c.audit(contrib.PowersOfTau, prefix)...)
		if !c.engine.InSubgroupG2(contrib.PotPubkey) {
			merr = multierror.Append(merr, errors.Wrapf(ErrSubgroupCheckFailed, "%spot pubkey", prefix))
		}
	}
	return merr.ErrorOrNil()
}

// CheckSizes compares the batch layout with the configured sub-ceremony sizes.
func (c *Ceremony) CheckSizes(bc *BatchContribution) error {
	return c.checkSizes(bc.Sizes())
}

func (c *Ceremony) checkSizes(sizes []Size) error {
	if len(sizes) != len(c.sizes) {
		return errors.Wrapf(ErrSizeMismatch, "expected %d sub-ceremonies, got %d", len(c.sizes), len(sizes))
	}
	for i := range sizes {
		if sizes[i] != c.sizes[i] {
			return errors.Wrapf(ErrSizeMismatch, "sub-ceremony %d: expected %v, got %v", i, c.sizes[i], sizes[i])
		}
	}
	return nil
}
