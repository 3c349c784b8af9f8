package ceremony

import (
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/pkg/errors"
)

// BLSDomain is the hash-to-curve domain separation tag of identity signatures.
const BLSDomain = "BLS_SIG_BLS12381G1_XMD:SHA-256_SSWU_RO_POP_"

// Signature is an opaque hex encoded signature. An empty signature marks an
// unsigned step and serializes as "".
type Signature []byte

func (s Signature) IsEmpty() bool { return len(s) == 0 }

func (s Signature) String() string {
	if s.IsEmpty() {
		return ""
	}
	return "0x" + hex.EncodeToString(s)
}

func (s Signature) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *Signature) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*s = Signature{}
		return nil
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(string(text), "0x"))
	if err != nil {
		return errors.Wrap(ErrDeserializationFailed, err.Error())
	}
	*s = raw
	return nil
}

// signIdentity computes tau·H(identity) in G1, a BLS signature under the key whose
// public part is the step's pot pubkey.
func signIdentity(e engine.Engine, id Identity, tau *big.Int) (Signature, error) {
	h, err := e.HashToG1([]byte(id.String()), []byte(BLSDomain))
	if err != nil {
		return nil, err
	}
	sig, err := e.ScalarMulG1(h, tau)
	if err != nil {
		return nil, err
	}
	return Signature(sig[:]), nil
}

// verifyIdentity checks e(sig, g2) == e(H(identity), pubkey).
func verifyIdentity(e engine.Engine, id Identity, pubkey engine.G2, sig Signature) error {
	if len(sig) != engine.SizeG1 {
		return errors.Wrapf(ErrInvalidSignature, "signature has %d bytes", len(sig))
	}
	var point engine.G1
	copy(point[:], sig)
	if !e.InSubgroupG1(point) {
		return errors.Wrap(ErrInvalidSignature, "signature is not a subgroup point")
	}
	h, err := e.HashToG1([]byte(id.String()), []byte(BLSDomain))
	if err != nil {
		return err
	}
	ok, err := e.SameRatio(point, h, engine.GeneratorG2, pubkey)
	if err != nil {
		return errors.Wrap(ErrInvalidSignature, err.Error())
	}
	if !ok {
		return errors.Wrapf(ErrInvalidSignature, "identity %s", id)
	}
	return nil
}
