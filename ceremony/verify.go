package ceremony

import (
	"strconv"

	"github.com/bnb-chain/kzg-ceremony/common"
	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// VerifyInclusion checks that every step of t from index onward is correctly chained
// to its predecessor: no zero pubkey at or after index, and
// e(runningProducts[i], g₂) = e(runningProducts[i-1], potPubkeys[i]) for i ≥ max(index, 1).
// Slot 0 is the initial state and has no predecessor.
func (c *Ceremony) VerifyInclusion(t *Transcript, index int) error {
	w := &t.Witness
	if len(w.RunningProducts) == 0 || len(w.PotPubkeys) != len(w.RunningProducts) {
		return errors.Wrapf(ErrInvalidWitness, "%d products, %d pubkeys", len(w.RunningProducts), len(w.PotPubkeys))
	}
	if index < 0 || index >= w.Len() {
		return errors.Wrapf(ErrInvalidWitness, "index %d out of range [0, %d)", index, w.Len())
	}

	for i := index; i < w.Len(); i++ {
		if w.PotPubkeys[i].IsZero() {
			return errors.Wrapf(ErrZeroPubkey, "step %d", i)
		}
	}

	start := index
	if start < 1 {
		start = 1
	}
	return common.Parallelize(w.Len()-start, func(j int) error {
		i := start + j
		ok, err := engine.VerifyPubkey(c.engine, w.RunningProducts[i], w.RunningProducts[i-1], w.PotPubkeys[i])
		if err != nil {
			return errors.Wrapf(ErrDeserializationFailed, "step %d: %v", i, err)
		}
		if !ok {
			return errors.Wrapf(ErrPubKeyPairingFailed, "step %d", i)
		}
		return nil
	}, c.workers)
}

// Position returns the index of id in participantIds. Unknown and repeated
// identities are errors.
func (bt *BatchTranscript) Position(id Identity) (int, error) {
	pos := -1
	for k := range bt.ParticipantIDs {
		if bt.ParticipantIDs[k] != id {
			continue
		}
		if pos != -1 {
			return 0, errors.Wrapf(ErrDuplicateIdentity, "%s at positions %d and %d", id, pos, k)
		}
		pos = k
	}
	if pos == -1 {
		return 0, errors.Wrapf(ErrIdentityNotFound, "%s", id)
	}
	return pos, nil
}

// VerifyWithID checks that id is a participant and that every sub-ceremony chain is
// intact from its position in participantIds onward.
func (c *Ceremony) VerifyWithID(bt *BatchTranscript, id Identity) error {
	pos, err := bt.Position(id)
	if err != nil {
		return err
	}
	for i := range bt.Transcripts {
		t := &bt.Transcripts[i]
		if pos >= t.Witness.Len() {
			return errors.Wrapf(ErrInvalidWitness, "sub-ceremony %d has no step %d", i, pos)
		}
		if err := c.VerifyInclusion(t, pos); err != nil {
			return errors.WithMessagef(err, "sub-ceremony %d", i)
		}
	}
	c.log.Debugw("identity verified", "identity", id.String(), "position", pos)
	return nil
}

// signatureSlot maps participantIds[k] to its witness slot. The last participant made
// the last step, so a transcript holding a window of a longer ceremony still lines up.
func signatureSlot(k, participants, steps int) int {
	return k + steps - participants
}

// VerifySignatures checks every non-empty BLS signature in the witnesses against the
// identity of the participant who made that step. Slots with no matching participant
// must be unsigned.
func (c *Ceremony) VerifySignatures(bt *BatchTranscript) error {
	n := bt.NumParticipants()
	for i := range bt.Transcripts {
		w := &bt.Transcripts[i].Witness
		if err := w.check(); err != nil {
			return errors.WithMessagef(err, "sub-ceremony %d", i)
		}
		signers := make([]int, w.Len())
		for slot := range signers {
			signers[slot] = -1
		}
		for k := 0; k < n; k++ {
			if slot := signatureSlot(k, n, w.Len()); slot >= 0 {
				signers[slot] = k
			}
		}
		err := common.Parallelize(w.Len(), func(slot int) error {
			if w.BLSSignatures[slot].IsEmpty() {
				return nil
			}
			k := signers[slot]
			if k < 0 {
				return errors.Wrapf(ErrInvalidSignature, "sub-ceremony %d: step %d is signed but has no participant", i, slot)
			}
			if err := verifyIdentity(c.engine, bt.ParticipantIDs[k], w.PotPubkeys[slot], w.BLSSignatures[slot]); err != nil {
				return errors.WithMessagef(err, "sub-ceremony %d step %d", i, slot)
			}
			return nil
		}, c.workers)
		if err != nil {
			return err
		}
	}
	return nil
}

// ValidateTranscript runs the subgroup check on every point of bt, powers and
// witness alike, and returns the first failure.
func (c *Ceremony) ValidateTranscript(bt *BatchTranscript) error {
	for i := range bt.Transcripts {
		t := &bt.Transcripts[i]
		if err := c.validate(t.PowersOfTau); err != nil {
			return errors.WithMessagef(err, "sub-ceremony %d", i)
		}
		err := common.Parallelize(len(t.Witness.RunningProducts), func(k int) error {
			if !c.engine.InSubgroupG1(t.Witness.RunningProducts[k]) {
				return errors.Wrapf(ErrSubgroupCheckFailed, "sub-ceremony %d: running product %d", i, k)
			}
			return nil
		}, c.workers)
		if err != nil {
			return err
		}
		err = common.Parallelize(len(t.Witness.PotPubkeys), func(k int) error {
			if !c.engine.InSubgroupG2(t.Witness.PotPubkeys[k]) {
				return errors.Wrapf(ErrSubgroupCheckFailed, "sub-ceremony %d: pot pubkey %d", i, k)
			}
			return nil
		}, c.workers)
		if err != nil {
			return err
		}
	}
	return nil
}

// AuditTranscript is ValidateTranscript in exhaustive mode.
func (c *Ceremony) AuditTranscript(bt *BatchTranscript) error {
	var merr *multierror.Error
	for i := range bt.Transcripts {
		t := &bt.Transcripts[i]
		prefix := "sub-ceremony " + strconv.Itoa(i) + ": "
		merr = multierror.Append(merr, c.audit(t.PowersOfTau, prefix)...)
		for k, p := range t.Witness.RunningProducts {
			if !c.engine.InSubgroupG1(p) {
				merr = multierror.Append(merr, errors.Wrapf(ErrSubgroupCheckFailed, "%srunning product %d", prefix, k))
			}
		}
		for k, p := range t.Witness.PotPubkeys {
			if !c.engine.InSubgroupG2(p) {
				merr = multierror.Append(merr, errors.Wrapf(ErrSubgroupCheckFailed, "%spot pubkey %d", prefix, k))
			}
		}
	}
	return merr.ErrorOrNil()
}

// Verify runs every check on a full transcript: layout against the configured
// sizes, subgroup membership, witness structure, the pubkey chain, the link between
// the last running product and [τ]₁, the consistency of the powers and the identity
// signatures.
func (c *Ceremony) Verify(bt *BatchTranscript) error {
	if err := c.checkSizes(bt.Sizes()); err != nil {
		return err
	}
	for i := range bt.Transcripts {
		t := &bt.Transcripts[i]
		if t.PowersOfTau.Size() != (Size{G1: t.NumG1Powers, G2: t.NumG2Powers}) {
			return errors.Wrapf(ErrSizeMismatch, "sub-ceremony %d: declares %d/%d powers, holds %d/%d", i,
				t.NumG1Powers, t.NumG2Powers, len(t.PowersOfTau.G1), len(t.PowersOfTau.G2))
		}
	}
	steps, err := bt.checkLockStep()
	if err != nil {
		return err
	}
	if err := c.ValidateTranscript(bt); err != nil {
		return err
	}

	for i := range bt.Transcripts {
		t := &bt.Transcripts[i]
		w := &t.Witness
		c.log.Debugw("verifying sub-ceremony", "subCeremony", i, "steps", steps)

		if w.RunningProducts[0] != engine.GeneratorG1 || w.PotPubkeys[0] != engine.GeneratorG2 {
			return errors.Wrapf(ErrInvalidWitness, "sub-ceremony %d: initial step is not the generator", i)
		}
		if err := c.VerifyInclusion(t, 0); err != nil {
			return errors.WithMessagef(err, "sub-ceremony %d", i)
		}
		if err := t.PowersOfTau.checkShape(); err != nil {
			return errors.WithMessagef(err, "sub-ceremony %d", i)
		}
		if w.RunningProducts[steps-1] != t.PowersOfTau.G1[1] {
			return errors.Wrapf(ErrInvalidPowers, "sub-ceremony %d: last running product is not [τ]₁", i)
		}
		if err := c.checkConsistency(t.PowersOfTau); err != nil {
			return errors.WithMessagef(err, "sub-ceremony %d", i)
		}
	}
	if err := c.VerifySignatures(bt); err != nil {
		return err
	}
	c.log.Infow("transcript verified", "subCeremonies", len(bt.Transcripts), "participants", bt.NumParticipants())
	return nil
}
