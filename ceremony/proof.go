package ceremony

import (
	"math/big"

	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/pkg/errors"
)

// UpdateProof binds one contribution step to its predecessor without the witness
// history: NewAccumulated = x·PreviousAccumulated where CommitmentToSecret = x·g₂.
// The witness chain is the system of record; this proof is kept for the earlier
// proof-carrying contribution format.
type UpdateProof struct {
	CommitmentToSecret  engine.G2 `json:"commitmentToSecret"`
	PreviousAccumulated engine.G1 `json:"previousAccumulated"`
	NewAccumulated      engine.G1 `json:"newAccumulated"`
}

// VerifyUpdateProofs checks the proofs carried by next against prev, without
// any secret.
func (c *Ceremony) VerifyUpdateProofs(prev, next *BatchContribution) error {
	if len(prev.Contributions) != len(next.Contributions) {
		return errors.Wrapf(ErrProofMismatch, "%d contributions before, %d after", len(prev.Contributions), len(next.Contributions))
	}
	for i := range next.Contributions {
		if err := c.verifyProof(&prev.Contributions[i], &next.Contributions[i]); err != nil {
			return errors.WithMessagef(err, "sub-ceremony %d", i)
		}
	}
	return nil
}

func (c *Ceremony) verifyProof(prev, next *Contribution) error {
	proof := next.Proof
	if proof == nil {
		return errors.Wrap(ErrProofMismatch, "missing proof")
	}
	if err := prev.PowersOfTau.checkShape(); err != nil {
		return err
	}
	if err := next.PowersOfTau.checkShape(); err != nil {
		return err
	}
	if proof.PreviousAccumulated != prev.PowersOfTau.G1[1] {
		return errors.Wrap(ErrProofMismatch, "previous accumulator differs")
	}
	if proof.NewAccumulated != next.PowersOfTau.G1[1] {
		return errors.Wrap(ErrProofMismatch, "new accumulator differs")
	}
	if proof.CommitmentToSecret != next.PotPubkey {
		return errors.Wrap(ErrProofMismatch, "commitment differs from pot pubkey")
	}
	if proof.CommitmentToSecret.IsZero() {
		return errors.Wrap(ErrZeroPubkey, "commitment to secret")
	}
	ok, err := engine.VerifyPubkey(c.engine, proof.NewAccumulated, proof.PreviousAccumulated, proof.CommitmentToSecret)
	if err != nil {
		return errors.Wrap(ErrProofMismatch, err.Error())
	}
	if !ok {
		return errors.Wrap(ErrProofMismatch, "pairing check failed")
	}
	return nil
}

// VerifyUpdate recomputes the update of prev with secret and requires next to match
// it exactly, proofs included.
func (c *Ceremony) VerifyUpdate(prev, next *BatchContribution, secret *Secret) error {
	if err := c.VerifyUpdateProofs(prev, next); err != nil {
		return err
	}
	taus, err := DeriveTaus(secret, c.tag, len(prev.Contributions))
	if err != nil {
		return err
	}
	defer func() {
		for i := range taus {
			taus[i].SetZero()
		}
	}()
	var tauBi big.Int
	defer tauBi.SetInt64(0)
	for i := range prev.Contributions {
		want, err := c.scale(prev.Contributions[i].PowersOfTau, taus[i])
		if err != nil {
			return errors.WithMessagef(err, "sub-ceremony %d", i)
		}
		taus[i].BigInt(&tauBi)
		pubkey, err := c.engine.ScalarMulG2(engine.GeneratorG2, &tauBi)
		if err != nil {
			return errors.Wrap(ErrComputationFailed, err.Error())
		}
		if pubkey != next.Contributions[i].PotPubkey {
			return errors.Wrapf(ErrProofMismatch, "sub-ceremony %d: pot pubkey is not derived from the secret", i)
		}
		got := next.Contributions[i].PowersOfTau
		if len(got.G1) != len(want.G1) || len(got.G2) != len(want.G2) {
			return errors.Wrapf(ErrProofMismatch, "sub-ceremony %d: sizes differ", i)
		}
		for k := range want.G1 {
			if got.G1[k] != want.G1[k] {
				return errors.Wrapf(ErrProofMismatch, "sub-ceremony %d: G1 power %d", i, k)
			}
		}
		for k := range want.G2 {
			if got.G2[k] != want.G2[k] {
				return errors.Wrapf(ErrProofMismatch, "sub-ceremony %d: G2 power %d", i, k)
			}
		}
	}
	return nil
}
