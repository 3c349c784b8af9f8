// Package keys turns a finished sub-ceremony into usable KZG parameters.
package keys

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	bls12381 "github.com/consensys/gnark-crypto/ecc/bls12-381"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/fft"
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr/kzg"
	"github.com/pkg/errors"

	"github.com/bnb-chain/kzg-ceremony/ceremony"
	"github.com/bnb-chain/kzg-ceremony/common"
	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/bnb-chain/kzg-ceremony/lagrange"
)

func decodeG1(points []engine.G1) ([]bls12381.G1Affine, error) {
	out := make([]bls12381.G1Affine, len(points))
	err := common.Parallelize(len(points), func(i int) error {
		var err error
		if out[i], err = engine.FromG1(points[i]); err != nil {
			return errors.WithMessagef(err, "G1 power %d", i)
		}
		return nil
	})
	return out, err
}

// ExtractSRS returns the monomial SRS of t: all G1 powers for the prover, g₁, g₂
// and [τ]₂ for the verifier.
func ExtractSRS(t *ceremony.Transcript) (*kzg.SRS, error) {
	p := t.PowersOfTau
	if len(p.G1) < 1 || len(p.G2) < 2 {
		return nil, errors.Wrapf(ceremony.ErrSizeMismatch, "%d G1 and %d G2 powers", len(p.G1), len(p.G2))
	}
	g1, err := decodeG1(p.G1)
	if err != nil {
		return nil, err
	}
	var srs kzg.SRS
	srs.Pk.G1 = g1
	srs.Vk.G1 = g1[0]
	for i := 0; i < 2; i++ {
		if srs.Vk.G2[i], err = engine.FromG2(p.G2[i]); err != nil {
			return nil, errors.WithMessagef(err, "G2 power %d", i)
		}
	}
	return &srs, nil
}

// LagrangeG1 returns the G1 powers of t in the Lagrange basis of the domain of
// size len(G1), which must be a power of two.
func LagrangeG1(t *ceremony.Transcript) ([]engine.G1, error) {
	n := len(t.PowersOfTau.G1)
	if n == 0 || n&(n-1) != 0 {
		return nil, errors.Wrapf(ceremony.ErrSizeMismatch, "%d G1 powers is not a power of two", n)
	}
	buff, err := decodeG1(t.PowersOfTau.G1)
	if err != nil {
		return nil, err
	}
	domain := fft.NewDomain(uint64(n))
	if err := lagrange.ConvertG1(buff, domain); err != nil {
		return nil, err
	}
	out := make([]engine.G1, n)
	for i := range buff {
		out[i] = engine.ToG1(&buff[i])
	}
	return out, nil
}

// WriteTrustedSetup writes t in the text layout read by EIP-4844 KZG libraries:
// the G1 and G2 counts, the Lagrange G1 points, the monomial G2 points and the
// monomial G1 points, one hex point per line.
func WriteTrustedSetup(w io.Writer, t *ceremony.Transcript) error {
	lagrangeG1, err := LagrangeG1(t)
	if err != nil {
		return err
	}
	writer := bufio.NewWriter(w)
	fmt.Fprintf(writer, "%d\n%d\n", len(t.PowersOfTau.G1), len(t.PowersOfTau.G2))
	for _, p := range lagrangeG1 {
		fmt.Fprintln(writer, strings.TrimPrefix(p.String(), "0x"))
	}
	for _, p := range t.PowersOfTau.G2 {
		fmt.Fprintln(writer, strings.TrimPrefix(p.String(), "0x"))
	}
	for _, p := range t.PowersOfTau.G1 {
		fmt.Fprintln(writer, strings.TrimPrefix(p.String(), "0x"))
	}
	return writer.Flush()
}

// Export writes sub-ceremony index of bt to path, either as a trusted setup text
// file or, with binary set, as a gnark-crypto SRS.
func Export(bt *ceremony.BatchTranscript, index int, path string, binary bool) error {
	if index < 0 || index >= len(bt.Transcripts) {
		return errors.Errorf("sub-ceremony %d out of range [0, %d)", index, len(bt.Transcripts))
	}
	t := &bt.Transcripts[index]

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if binary {
		var srs *kzg.SRS
		if srs, err = ExtractSRS(t); err == nil {
			writer := bufio.NewWriter(f)
			if _, err = srs.WriteTo(writer); err == nil {
				err = writer.Flush()
			}
		}
	} else {
		err = WriteTrustedSetup(f, t)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
