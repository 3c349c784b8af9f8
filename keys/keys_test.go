package keys

import (
	"bufio"
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/kzg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnb-chain/kzg-ceremony/ceremony"
	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/bnb-chain/kzg-ceremony/log/testlogger"
)

var sizes = []ceremony.Size{{G1: 8, G2: 2}}

// setup runs one contribution and returns the transcript with its τ.
func setup(t *testing.T) (*ceremony.BatchTranscript, fr.Element) {
	e, err := engine.New(engine.Default)
	require.NoError(t, err)
	c := ceremony.New(e, ceremony.WithSizes(sizes), ceremony.WithLogger(testlogger.New(t)))

	secret, err := ceremony.NewSecret(bytes.Repeat([]byte{0x42}, ceremony.SecretSize))
	require.NoError(t, err)
	id := ceremony.MustParseIdentity("git|alice")

	bt := ceremony.NewBatchTranscript(sizes)
	start, err := bt.Contribution()
	require.NoError(t, err)
	bc, err := c.Contribute(start, secret, id)
	require.NoError(t, err)
	bt, err = c.Append(bt, bc, id, nil)
	require.NoError(t, err)

	taus, err := ceremony.DeriveTaus(secret, []byte(ceremony.DefaultTag), 1)
	require.NoError(t, err)
	return bt, taus[0]
}

func eval(p []fr.Element, x fr.Element) fr.Element {
	var r fr.Element
	for i := len(p) - 1; i >= 0; i-- {
		r.Mul(&r, &x)
		r.Add(&r, &p[i])
	}
	return r
}

func mulG1(s fr.Element) bls12381.G1Affine {
	_, _, g1, _ := bls12381.Generators()
	var bi big.Int
	s.BigInt(&bi)
	var p bls12381.G1Affine
	p.ScalarMultiplication(&g1, &bi)
	return p
}

func randomPoly(t *testing.T, n int) []fr.Element {
	p := make([]fr.Element, n)
	for i := range p {
		_, err := p[i].SetRandom()
		require.NoError(t, err)
	}
	return p
}

func TestExtractSRS(t *testing.T) {
	bt, tau := setup(t)
	srs, err := ExtractSRS(&bt.Transcripts[0])
	require.NoError(t, err)
	require.Len(t, srs.Pk.G1, 8)

	p := randomPoly(t, 8)
	digest, err := kzg.Commit(p, srs.Pk)
	require.NoError(t, err)
	want := mulG1(eval(p, tau))
	assert.True(t, want.Equal(&digest))

	var point fr.Element
	point.SetUint64(17)
	proof, err := kzg.Open(p, point, srs.Pk)
	require.NoError(t, err)
	require.NoError(t, kzg.Verify(&digest, &proof, point, srs.Vk))

	proof.ClaimedValue.SetUint64(1)
	assert.Error(t, kzg.Verify(&digest, &proof, point, srs.Vk))
}

func TestLagrangeG1(t *testing.T) {
	bt, tau := setup(t)
	points, err := LagrangeG1(&bt.Transcripts[0])
	require.NoError(t, err)
	require.Len(t, points, 8)

	// committing to evaluations over the domain equals committing to the coefficients
	p := randomPoly(t, 8)
	domain := fft.NewDomain(8)
	evals := make([]fr.Element, 8)
	var w fr.Element
	w.SetOne()
	for i := range evals {
		evals[i] = eval(p, w)
		w.Mul(&w, &domain.Generator)
	}
	e, err := engine.New(engine.Default)
	require.NoError(t, err)
	got, err := e.MultiExpG1(points, evals)
	require.NoError(t, err)
	want := mulG1(eval(p, tau))
	assert.Equal(t, engine.ToG1(&want), got)

	odd := ceremony.NewTranscript(ceremony.Size{G1: 6, G2: 2})
	_, err = LagrangeG1(&odd)
	assert.ErrorIs(t, err, ceremony.ErrSizeMismatch)
}

func TestWriteTrustedSetup(t *testing.T) {
	bt, _ := setup(t)
	tr := &bt.Transcripts[0]
	var buf bytes.Buffer
	require.NoError(t, WriteTrustedSetup(&buf, tr))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2+8+2+8)
	nG1, err := strconv.Atoi(lines[0])
	require.NoError(t, err)
	nG2, err := strconv.Atoi(lines[1])
	require.NoError(t, err)
	assert.Equal(t, 8, nG1)
	assert.Equal(t, 2, nG2)

	lagrangeG1, err := LagrangeG1(tr)
	require.NoError(t, err)
	for i := 0; i < 8; i++ {
		assert.Equal(t, lagrangeG1[i].String(), "0x"+lines[2+i])
		assert.Equal(t, tr.PowersOfTau.G1[i].String(), "0x"+lines[12+i])
		assert.Len(t, lines[2+i], 2*engine.SizeG1)
	}
	assert.Equal(t, tr.PowersOfTau.G2[1].String(), "0x"+lines[11])
}

func TestExport(t *testing.T) {
	bt, _ := setup(t)
	dir := t.TempDir()

	txt := filepath.Join(dir, "trusted_setup.txt")
	require.NoError(t, Export(bt, 0, txt, false))
	f, err := os.Open(txt)
	require.NoError(t, err)
	scanner := bufio.NewScanner(f)
	require.True(t, scanner.Scan())
	assert.Equal(t, "8", scanner.Text())
	require.NoError(t, f.Close())

	bin := filepath.Join(dir, "srs.bin")
	require.NoError(t, Export(bt, 0, bin, true))
	f, err = os.Open(bin)
	require.NoError(t, err)
	defer f.Close()
	var srs kzg.SRS
	_, err = srs.ReadFrom(f)
	require.NoError(t, err)
	want, err := ExtractSRS(&bt.Transcripts[0])
	require.NoError(t, err)
	assert.Equal(t, want.Pk.G1, srs.Pk.G1)
	assert.True(t, want.Vk.G2[1].Equal(&srs.Vk.G2[1]))

	assert.Error(t, Export(bt, 1, filepath.Join(dir, "missing.txt"), false))
}
