package ceremony

import (
	"math/big"
	"testing"

	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/bnb-chain/kzg-ceremony/log/testlogger"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSizes = []Size{{G1: 8, G2: 3}, {G1: 4, G2: 2}}

var testIDs = []Identity{
	MustParseIdentity("eth|0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"),
	MustParseIdentity("git|alice"),
	MustParseIdentity("git|1234|bob"),
	MustParseIdentity("eth|0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359"),
}

func newTestCeremony(t *testing.T, name string) *Ceremony {
	e, err := engine.New(name)
	require.NoError(t, err)
	return New(e, WithSizes(testSizes), WithWorkers(2), WithLogger(testlogger.New(t)))
}

// forEachEngine runs fn once per registered engine.
func forEachEngine(t *testing.T, fn func(t *testing.T, c *Ceremony)) {
	for _, name := range engine.Names() {
		name := name
		t.Run(name, func(t *testing.T) {
			fn(t, newTestCeremony(t, name))
		})
	}
}

// buildChain runs one contribution per identity, each with its own secret.
func buildChain(t *testing.T, c *Ceremony, ids []Identity) *BatchTranscript {
	bt := NewBatchTranscript(c.Sizes())
	for k, id := range ids {
		bc, err := c.Contribute(currentOf(t, bt), testSecret(t, byte(k+1)), id)
		require.NoError(t, err)
		bt, err = c.Append(bt, bc, id, nil)
		require.NoError(t, err)
	}
	return bt
}

func currentOf(t *testing.T, bt *BatchTranscript) *BatchContribution {
	bc, err := bt.Contribution()
	require.NoError(t, err)
	return bc
}

func TestContribute(t *testing.T) {
	forEachEngine(t, func(t *testing.T, c *Ceremony) {
		start := currentOf(t, NewBatchTranscript(c.Sizes()))
		before := start.Contributions[0].PowersOfTau.clone()

		out, err := c.Contribute(start, testSecret(t, 7), testIDs[0])
		require.NoError(t, err)
		require.Len(t, out.Contributions, len(testSizes))
		require.NoError(t, c.Validate(out))
		require.NoError(t, c.CheckSizes(out))

		// input untouched
		assert.Equal(t, before, start.Contributions[0].PowersOfTau)

		for i, contrib := range out.Contributions {
			assert.Equal(t, testSizes[i], contrib.PowersOfTau.Size())
			assert.Equal(t, testSizes[i].G1, contrib.NumG1Powers)
			assert.Equal(t, engine.GeneratorG1, contrib.PowersOfTau.G1[0])
			assert.Equal(t, engine.GeneratorG2, contrib.PowersOfTau.G2[0])
			assert.NotEqual(t, engine.GeneratorG1, contrib.PowersOfTau.G1[1])
			assert.False(t, contrib.PotPubkey.IsZero())
			require.NoError(t, c.checkConsistency(contrib.PowersOfTau))
			require.NoError(t, verifyIdentity(c.engine, testIDs[0], contrib.PotPubkey, contrib.BLSSignature))
			assert.ErrorIs(t, verifyIdentity(c.engine, testIDs[1], contrib.PotPubkey, contrib.BLSSignature), ErrInvalidSignature)
		}
		assert.NotEqual(t, out.Contributions[0].PotPubkey, out.Contributions[1].PotPubkey)

		again, err := c.Contribute(start, testSecret(t, 7), testIDs[0])
		require.NoError(t, err)
		assert.Equal(t, out, again)

		other, err := c.Contribute(start, testSecret(t, 8), testIDs[0])
		require.NoError(t, err)
		assert.NotEqual(t, out.Contributions[0].PotPubkey, other.Contributions[0].PotPubkey)
	})
}

func TestContributeMatchesTau(t *testing.T) {
	c := newTestCeremony(t, engine.Default)
	secret := testSecret(t, 3)
	out, err := c.Contribute(currentOf(t, NewBatchTranscript(c.Sizes())), secret, testIDs[0])
	require.NoError(t, err)

	taus, err := DeriveTaus(secret, []byte(DefaultTag), len(testSizes))
	require.NoError(t, err)
	for i, contrib := range out.Contributions {
		var pow fr.Element
		pow.SetOne()
		for k := range contrib.PowersOfTau.G1 {
			var bi big.Int
			pow.BigInt(&bi)
			want, err := c.engine.ScalarMulG1(engine.GeneratorG1, &bi)
			require.NoError(t, err)
			assert.Equal(t, want, contrib.PowersOfTau.G1[k], "sub-ceremony %d power %d", i, k)
			pow.Mul(&pow, &taus[i])
		}
	}
}

func TestContributeErrors(t *testing.T) {
	c := newTestCeremony(t, engine.Default)
	start := currentOf(t, NewBatchTranscript(c.Sizes()))

	_, err := c.Contribute(start, testSecret(t, 1), Identity{})
	assert.ErrorIs(t, err, ErrInvalidIdentity)

	_, err = c.Contribute(&BatchContribution{}, testSecret(t, 1), testIDs[0])
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = c.Contribute(start, nil, testIDs[0])
	assert.ErrorIs(t, err, ErrInvalidSecretEncoding)

	tiny := &BatchContribution{Contributions: []Contribution{{PowersOfTau: NewPowersOfTau(Size{G1: 1, G2: 1})}}}
	_, err = c.Contribute(tiny, testSecret(t, 1), testIDs[0])
	assert.ErrorIs(t, err, ErrSizeMismatch)

	_, err = c.scale(NewPowersOfTau(Size{G1: 4, G2: 2}), fr.Element{})
	assert.ErrorIs(t, err, ErrComputationFailed)
}

func TestPotPubkeys(t *testing.T) {
	c := newTestCeremony(t, engine.Default)
	secret := testSecret(t, 5)
	pubkeys, err := c.PotPubkeys(secret, len(testSizes))
	require.NoError(t, err)
	require.Len(t, pubkeys, len(testSizes))

	out, err := c.Contribute(currentOf(t, NewBatchTranscript(c.Sizes())), secret, testIDs[0])
	require.NoError(t, err)
	for i := range pubkeys {
		s := pubkeys[i].String()
		assert.Len(t, s, 2+2*engine.SizeG2)
		assert.Equal(t, "0x", s[:2])
		assert.Equal(t, out.Contributions[i].PotPubkey, pubkeys[i])
	}
}

func TestValidateAndAudit(t *testing.T) {
	forEachEngine(t, func(t *testing.T, c *Ceremony) {
		bc, err := c.Contribute(currentOf(t, NewBatchTranscript(c.Sizes())), testSecret(t, 1), testIDs[0])
		require.NoError(t, err)
		require.NoError(t, c.Audit(bc))

		bc.Contributions[0].PowersOfTau.G1[2][engine.SizeG1-1] ^= 0x01
		bc.Contributions[1].PowersOfTau.G2[1][engine.SizeG2-1] ^= 0x01
		bc.Contributions[1].PotPubkey[engine.SizeG2-1] ^= 0x01

		assert.ErrorIs(t, c.Validate(bc), ErrSubgroupCheckFailed)

		err = c.Audit(bc)
		require.Error(t, err)
		merr, ok := err.(*multierror.Error)
		require.True(t, ok)
		assert.Len(t, merr.Errors, 3)
		for _, e := range merr.Errors {
			assert.ErrorIs(t, e, ErrSubgroupCheckFailed)
		}
		assert.Contains(t, merr.Errors[0].Error(), "sub-ceremony 0: G1 power 2")
	})
}

func TestCheckSizes(t *testing.T) {
	c := newTestCeremony(t, engine.Default)
	bc := currentOf(t, NewBatchTranscript(c.Sizes()))
	require.NoError(t, c.CheckSizes(bc))

	bc.Contributions = bc.Contributions[:1]
	assert.ErrorIs(t, c.CheckSizes(bc), ErrSizeMismatch)

	bc = currentOf(t, NewBatchTranscript([]Size{{G1: 8, G2: 3}, {G1: 8, G2: 2}}))
	assert.ErrorIs(t, c.CheckSizes(bc), ErrSizeMismatch)
}
