// Package engine wraps the BLS12-381 group operations the ceremony needs behind a
// narrow interface, so the protocol code never touches a concrete curve library.
package engine

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/pkg/errors"
)

// Compressed point sizes (zcash encoding).
const (
	SizeG1 = 48
	SizeG2 = 96
)

// compressed | infinity flags
const infinityFlag = 0xc0

var (
	ErrInvalidPoint   = errors.New("engine: invalid point encoding")
	ErrUnknownEngine  = errors.New("engine: unknown engine")
	ErrLengthMismatch = errors.New("engine: points and scalars length mismatch")
)

// G1 is a compressed point of the first pairing group.
type G1 [SizeG1]byte

// G2 is a compressed point of the second pairing group.
type G2 [SizeG2]byte

var (
	GeneratorG1 = mustG1("0x97f1d3a73197d7942695638c4fa9ac0fc3688c4f9774b905a14e3a3f171bac586c55e83ff97a1aeffb3af00adb22c6bb")
	GeneratorG2 = mustG2("0x93e02b6052719f607dacd3a088274f65596bd0d09920b61ab5da61bbdc7f5049334cf11213945d57e5ac7d055d042b7e024aa2b2f08f0a91260805272dc51051c6e47ad4fa403b02b4510b647ae3d1770bac0326a805bbefd48056c8c121bdb8")
)

// ZeroG1 returns the encoding of the point at infinity in G1.
func ZeroG1() G1 {
	var p G1
	p[0] = infinityFlag
	return p
}

// ZeroG2 returns the encoding of the point at infinity in G2.
func ZeroG2() G2 {
	var p G2
	p[0] = infinityFlag
	return p
}

func (p G1) IsZero() bool { return p == ZeroG1() }
func (p G2) IsZero() bool { return p == ZeroG2() }

func (p G1) String() string { return "0x" + hex.EncodeToString(p[:]) }
func (p G2) String() string { return "0x" + hex.EncodeToString(p[:]) }

func (p G1) MarshalText() ([]byte, error) { return []byte(p.String()), nil }
func (p G2) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *G1) UnmarshalText(text []byte) error { return decodeHex(p[:], string(text)) }
func (p *G2) UnmarshalText(text []byte) error { return decodeHex(p[:], string(text)) }

// ParseG1 decodes a "0x"-prefixed compressed G1 point. Only the length is checked.
func ParseG1(s string) (G1, error) {
	var p G1
	err := decodeHex(p[:], s)
	return p, err
}

// ParseG2 decodes a "0x"-prefixed compressed G2 point. Only the length is checked.
func ParseG2(s string) (G2, error) {
	var p G2
	err := decodeHex(p[:], s)
	return p, err
}

func decodeHex(dst []byte, s string) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return errors.Wrap(ErrInvalidPoint, err.Error())
	}
	if len(raw) != len(dst) {
		return errors.Wrapf(ErrInvalidPoint, "expected %d bytes, got %d", len(dst), len(raw))
	}
	copy(dst, raw)
	return nil
}

func mustG1(s string) G1 {
	p, err := ParseG1(s)
	if err != nil {
		panic(err)
	}
	return p
}

func mustG2(s string) G2 {
	p, err := ParseG2(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Engine is the curve capability consumed by the ceremony. Implementations are
// stateless and safe for concurrent use.
type Engine interface {
	Name() string

	// InSubgroupG1 reports whether p decodes to a point of the prime order subgroup.
	InSubgroupG1(p G1) bool
	InSubgroupG2(p G2) bool

	ScalarMulG1(p G1, k *big.Int) (G1, error)
	ScalarMulG2(p G2, k *big.Int) (G2, error)

	// MultiExpG1 returns Σ scalars[i]·points[i].
	MultiExpG1(points []G1, scalars []fr.Element) (G1, error)
	MultiExpG2(points []G2, scalars []fr.Element) (G2, error)

	HashToG1(msg, dst []byte) (G1, error)

	// SameRatio checks e(a1, a2) == e(b1, b2).
	SameRatio(a1, b1 G1, a2, b2 G2) (bool, error)
}

// VerifyPubkey checks that product = prev·x where pubkey = x·g2, i.e.
// e(product, g2) == e(prev, pubkey).
func VerifyPubkey(e Engine, product, prev G1, pubkey G2) (bool, error) {
	return e.SameRatio(product, prev, GeneratorG2, pubkey)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]func() Engine{}
)

// Register makes an engine constructor available through New.
func Register(name string, ctor func() Engine) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("engine: %s registered twice", name))
	}
	registry[name] = ctor
}

// New returns the engine registered under name.
func New(name string) (Engine, error) {
	registryMu.RLock()
	ctor, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Wrapf(ErrUnknownEngine, "%q (available: %s)", name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names lists the registered engines in lexical order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Default is the engine used when none is configured.
const Default = "gnark"
