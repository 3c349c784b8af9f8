package ceremony

import "github.com/pkg/errors"

var (
	ErrInvalidSecretEncoding = errors.New("secret must be 32 hex encoded bytes")
	ErrInvalidIdentity       = errors.New("identity must be eth|0x<address> or git|<handle>")
	ErrDeserializationFailed = errors.New("deserialization failed")
	ErrComputationFailed     = errors.New("derived scalar is zero")
	ErrZeroPubkey            = errors.New("zero pot pubkey")
	ErrPubKeyPairingFailed   = errors.New("pubkey pairing check failed")
	ErrSubgroupCheckFailed   = errors.New("point is not in the prime order subgroup")
	ErrIdentityNotFound      = errors.New("identity not found in participant ids")
	ErrProofMismatch         = errors.New("update proof does not match")

	ErrDuplicateIdentity = errors.New("identity appears more than once in participant ids")
	ErrInvalidWitness    = errors.New("malformed witness")
	ErrInvalidPowers     = errors.New("powers of tau are inconsistent")
	ErrInvalidSignature  = errors.New("invalid bls signature")
	ErrSizeMismatch      = errors.New("unexpected sub-ceremony sizes")
)
