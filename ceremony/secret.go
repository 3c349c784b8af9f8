package ceremony

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"io"
	"strings"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/pkg/errors"
	"golang.org/x/crypto/hkdf"
)

// SecretSize is the length of participant entropy in bytes.
const SecretSize = 32

// DefaultTag salts the tau derivation.
const DefaultTag = "kzg-ceremony/tau/v1"

// Secret is participant entropy. It never serializes and never prints.
type Secret struct {
	b [SecretSize]byte
}

// ParseSecret decodes 64 hex characters, with or without a 0x prefix.
func ParseSecret(s string) (*Secret, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s) != 2*SecretSize {
		return nil, errors.Wrapf(ErrInvalidSecretEncoding, "got %d hex characters", len(s))
	}
	var secret Secret
	if _, err := hex.Decode(secret.b[:], []byte(s)); err != nil {
		return nil, errors.Wrap(ErrInvalidSecretEncoding, err.Error())
	}
	return &secret, nil
}

// NewSecret copies raw entropy, which must be exactly 32 bytes.
func NewSecret(raw []byte) (*Secret, error) {
	if len(raw) != SecretSize {
		return nil, errors.Wrapf(ErrInvalidSecretEncoding, "got %d bytes", len(raw))
	}
	var secret Secret
	copy(secret.b[:], raw)
	return &secret, nil
}

// Zeroize wipes the entropy.
func (s *Secret) Zeroize() {
	for i := range s.b {
		s.b[i] = 0
	}
}

func (s *Secret) String() string   { return "Secret(redacted)" }
func (s *Secret) GoString() string { return s.String() }

func (s *Secret) MarshalText() ([]byte, error) {
	return nil, errors.New("secrets are not serializable")
}

// DeriveTaus expands the secret into one scalar per sub-ceremony with
// HKDF-SHA256(ikm=secret, salt=tag, info="sub-ceremony"||index). 64 bytes of output
// are reduced modulo r, so the bias is negligible.
func DeriveTaus(secret *Secret, tag []byte, n int) ([]fr.Element, error) {
	if secret == nil {
		return nil, ErrInvalidSecretEncoding
	}
	taus := make([]fr.Element, n)
	buf := make([]byte, 64)
	for i := 0; i < n; i++ {
		info := make([]byte, 0, len("sub-ceremony")+4)
		info = append(info, "sub-ceremony"...)
		info = binary.BigEndian.AppendUint32(info, uint32(i))

		r := hkdf.New(sha256.New, secret.b[:], tag, info)
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, errors.Wrap(ErrComputationFailed, err.Error())
		}
		taus[i].SetBytes(buf)
		if taus[i].IsZero() {
			return nil, errors.Wrapf(ErrComputationFailed, "sub-ceremony %d", i)
		}
	}
	for i := range buf {
		buf[i] = 0
	}
	return taus, nil
}
