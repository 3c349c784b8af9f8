package ceremony

import (
	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/pkg/errors"
)

// Witness records one slot per contribution step. Slot 0 is the initial state.
type Witness struct {
	RunningProducts []engine.G1 `json:"runningProducts"`
	PotPubkeys      []engine.G2 `json:"potPubkeys"`
	BLSSignatures   []Signature `json:"blsSignatures"`
}

func (w *Witness) Len() int { return len(w.RunningProducts) }

// check enforces equal lengths of the three parallel sequences.
func (w *Witness) check() error {
	if len(w.RunningProducts) == 0 {
		return errors.Wrap(ErrInvalidWitness, "empty witness")
	}
	if len(w.PotPubkeys) != len(w.RunningProducts) || len(w.BLSSignatures) != len(w.RunningProducts) {
		return errors.Wrapf(ErrInvalidWitness, "lengths differ: %d products, %d pubkeys, %d signatures",
			len(w.RunningProducts), len(w.PotPubkeys), len(w.BLSSignatures))
	}
	return nil
}

func (w *Witness) clone() Witness {
	return Witness{
		RunningProducts: append([]engine.G1(nil), w.RunningProducts...),
		PotPubkeys:      append([]engine.G2(nil), w.PotPubkeys...),
		BLSSignatures:   append([]Signature(nil), w.BLSSignatures...),
	}
}

// Transcript is the public record of one sub-ceremony.
type Transcript struct {
	NumG1Powers int         `json:"numG1Powers"`
	NumG2Powers int         `json:"numG2Powers"`
	PowersOfTau PowersOfTau `json:"powersOfTau"`
	Witness     Witness     `json:"witness"`
}

// NewTranscript returns a transcript holding only the initial state.
func NewTranscript(size Size) Transcript {
	return Transcript{
		NumG1Powers: size.G1,
		NumG2Powers: size.G2,
		PowersOfTau: NewPowersOfTau(size),
		Witness: Witness{
			RunningProducts: []engine.G1{engine.GeneratorG1},
			PotPubkeys:      []engine.G2{engine.GeneratorG2},
			BLSSignatures:   []Signature{{}},
		},
	}
}

func (t *Transcript) clone() Transcript {
	return Transcript{
		NumG1Powers: t.NumG1Powers,
		NumG2Powers: t.NumG2Powers,
		PowersOfTau: t.PowersOfTau.clone(),
		Witness:     t.Witness.clone(),
	}
}

// BatchTranscript is the record of every sub-ceremony plus the participants, in
// contribution order. participantIds[k] made step k+1 of every transcript.
type BatchTranscript struct {
	Transcripts                []Transcript `json:"transcripts"`
	ParticipantIDs             []Identity   `json:"participantIds"`
	ParticipantEcdsaSignatures []Signature  `json:"participantEcdsaSignatures"`
}

// NewBatchTranscript starts a ceremony with the given sub-ceremony sizes.
func NewBatchTranscript(sizes []Size) *BatchTranscript {
	bt := &BatchTranscript{
		Transcripts:                make([]Transcript, len(sizes)),
		ParticipantIDs:             []Identity{},
		ParticipantEcdsaSignatures: []Signature{},
	}
	for i, size := range sizes {
		bt.Transcripts[i] = NewTranscript(size)
	}
	return bt
}

func (bt *BatchTranscript) checkDecoded() error {
	if len(bt.Transcripts) == 0 {
		return errors.Wrap(ErrDeserializationFailed, "no transcripts")
	}
	return nil
}

// NumParticipants is the number of accepted contributions.
func (bt *BatchTranscript) NumParticipants() int { return len(bt.ParticipantIDs) }

func (bt *BatchTranscript) Sizes() []Size {
	sizes := make([]Size, len(bt.Transcripts))
	for i := range bt.Transcripts {
		sizes[i] = Size{G1: bt.Transcripts[i].NumG1Powers, G2: bt.Transcripts[i].NumG2Powers}
	}
	return sizes
}

// Contribution returns the current accumulators as the starting point of the
// next participant. bt must be a well formed transcript.
func (bt *BatchTranscript) Contribution() (*BatchContribution, error) {
	if _, err := bt.checkLockStep(); err != nil {
		return nil, err
	}
	bc := &BatchContribution{Contributions: make([]Contribution, len(bt.Transcripts))}
	for i := range bt.Transcripts {
		t := &bt.Transcripts[i]
		w := &t.Witness
		bc.Contributions[i] = Contribution{
			NumG1Powers: t.NumG1Powers,
			NumG2Powers: t.NumG2Powers,
			PowersOfTau: t.PowersOfTau.clone(),
			PotPubkey:   w.PotPubkeys[len(w.PotPubkeys)-1],
		}
	}
	return bc, nil
}

func (bt *BatchTranscript) Clone() *BatchTranscript {
	out := &BatchTranscript{
		Transcripts:                make([]Transcript, len(bt.Transcripts)),
		ParticipantIDs:             append([]Identity(nil), bt.ParticipantIDs...),
		ParticipantEcdsaSignatures: append([]Signature(nil), bt.ParticipantEcdsaSignatures...),
	}
	for i := range bt.Transcripts {
		out.Transcripts[i] = bt.Transcripts[i].clone()
	}
	return out
}

// checkLockStep requires every witness to be well formed and of the same length L,
// with L-1 participants.
func (bt *BatchTranscript) checkLockStep() (int, error) {
	if len(bt.Transcripts) == 0 {
		return 0, errors.Wrap(ErrInvalidWitness, "no transcripts")
	}
	steps := bt.Transcripts[0].Witness.Len()
	for i := range bt.Transcripts {
		w := &bt.Transcripts[i].Witness
		if err := w.check(); err != nil {
			return 0, errors.WithMessagef(err, "sub-ceremony %d", i)
		}
		if w.Len() != steps {
			return 0, errors.Wrapf(ErrInvalidWitness, "sub-ceremony %d has %d steps, sub-ceremony 0 has %d", i, w.Len(), steps)
		}
	}
	if len(bt.ParticipantIDs) != steps-1 {
		return 0, errors.Wrapf(ErrInvalidWitness, "%d participants for %d steps", len(bt.ParticipantIDs), steps)
	}
	if len(bt.ParticipantEcdsaSignatures) != len(bt.ParticipantIDs) {
		return 0, errors.Wrapf(ErrInvalidWitness, "%d ecdsa signatures for %d participants",
			len(bt.ParticipantEcdsaSignatures), len(bt.ParticipantIDs))
	}
	return steps, nil
}

// Append checks bc against the latest state of bt and returns a new transcript with
// the contribution recorded as the next step. bt is left untouched.
func (c *Ceremony) Append(bt *BatchTranscript, bc *BatchContribution, id Identity, ecdsa Signature) (*BatchTranscript, error) {
	if id.IsZero() {
		return nil, errors.Wrap(ErrInvalidIdentity, "empty identity")
	}
	if _, err := bt.checkLockStep(); err != nil {
		return nil, err
	}
	if len(bc.Contributions) != len(bt.Transcripts) {
		return nil, errors.Wrapf(ErrSizeMismatch, "%d contributions for %d transcripts", len(bc.Contributions), len(bt.Transcripts))
	}
	for i := range bc.Contributions {
		if bc.Contributions[i].PowersOfTau.Size() != bt.Transcripts[i].PowersOfTau.Size() {
			return nil, errors.Wrapf(ErrSizeMismatch, "sub-ceremony %d: expected %v, got %v", i,
				bt.Transcripts[i].PowersOfTau.Size(), bc.Contributions[i].PowersOfTau.Size())
		}
	}
	if err := c.Validate(bc); err != nil {
		return nil, err
	}

	for i := range bc.Contributions {
		contrib := &bc.Contributions[i]
		if contrib.PotPubkey.IsZero() {
			return nil, errors.Wrapf(ErrZeroPubkey, "sub-ceremony %d", i)
		}
		if err := contrib.PowersOfTau.checkShape(); err != nil {
			return nil, errors.WithMessagef(err, "sub-ceremony %d", i)
		}
		prev := bt.Transcripts[i].PowersOfTau.G1[1]
		ok, err := engine.VerifyPubkey(c.engine, contrib.PowersOfTau.G1[1], prev, contrib.PotPubkey)
		if err != nil {
			return nil, errors.Wrapf(ErrDeserializationFailed, "sub-ceremony %d: %v", i, err)
		}
		if !ok {
			return nil, errors.Wrapf(ErrPubKeyPairingFailed, "sub-ceremony %d", i)
		}
		if err := c.checkConsistency(contrib.PowersOfTau); err != nil {
			return nil, errors.WithMessagef(err, "sub-ceremony %d", i)
		}
		if !contrib.BLSSignature.IsEmpty() {
			if err := verifyIdentity(c.engine, id, contrib.PotPubkey, contrib.BLSSignature); err != nil {
				return nil, errors.WithMessagef(err, "sub-ceremony %d", i)
			}
		}
	}

	out := bt.Clone()
	for i := range out.Transcripts {
		t := &out.Transcripts[i]
		contrib := &bc.Contributions[i]
		t.PowersOfTau = contrib.PowersOfTau.clone()
		t.Witness.RunningProducts = append(t.Witness.RunningProducts, contrib.PowersOfTau.G1[1])
		t.Witness.PotPubkeys = append(t.Witness.PotPubkeys, contrib.PotPubkey)
		t.Witness.BLSSignatures = append(t.Witness.BLSSignatures, append(Signature{}, contrib.BLSSignature...))
	}
	out.ParticipantIDs = append(out.ParticipantIDs, id)
	out.ParticipantEcdsaSignatures = append(out.ParticipantEcdsaSignatures, append(Signature{}, ecdsa...))
	if _, err := out.checkLockStep(); err != nil {
		return nil, err
	}
	c.log.Infow("contribution appended", "identity", id.String(), "step", out.NumParticipants())
	return out, nil
}
