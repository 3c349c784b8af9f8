package ceremony

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContributeFile(t *testing.T) {
	c := newTestCeremony(t, engine.Default)
	dir := t.TempDir()
	in := filepath.Join(dir, "initial.json")
	out := filepath.Join(dir, "contribution.json")

	bt := NewBatchTranscript(c.Sizes())
	require.NoError(t, WriteFile(in, currentOf(t, bt)))
	require.NoError(t, c.CheckSubgroupFile(in))

	secret := testSecret(t, 1)
	require.NoError(t, c.ContributeFile(in, out, secret, testIDs[0]))
	require.NoError(t, c.CheckSubgroupFile(out))

	var bc BatchContribution
	require.NoError(t, ReadFile(out, &bc))
	require.NoError(t, c.VerifyUpdate(currentOf(t, bt), &bc, secret))

	next, err := c.Append(bt, &bc, testIDs[0], nil)
	require.NoError(t, err)
	path := filepath.Join(dir, "transcript.json")
	require.NoError(t, WriteFile(path, next))
	require.NoError(t, c.VerifyFile(path))

	raw, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "0101010101010101")
}

func TestFileErrors(t *testing.T) {
	c := newTestCeremony(t, engine.Default)
	dir := t.TempDir()

	err := c.CheckSubgroupFile(filepath.Join(dir, "missing.json"))
	assert.True(t, os.IsNotExist(err))

	garbage := filepath.Join(dir, "garbage.json")
	require.NoError(t, os.WriteFile(garbage, []byte(`{"contributions": [{"potPubkey": "0x12"}]}`), 0o644))
	assert.ErrorIs(t, c.CheckSubgroupFile(garbage), ErrDeserializationFailed)
	assert.ErrorIs(t, c.VerifyFile(garbage), ErrDeserializationFailed)
	assert.ErrorIs(t, c.ContributeFile(garbage, filepath.Join(dir, "out.json"), testSecret(t, 1), testIDs[0]), ErrDeserializationFailed)

	var bt BatchTranscript
	assert.ErrorIs(t, Decode(strings.NewReader(`{"participantIds": ["nobody"]}`), &bt), ErrDeserializationFailed)
}

func TestFileShapes(t *testing.T) {
	c := newTestCeremony(t, engine.Default)
	dir := t.TempDir()

	transcript := filepath.Join(dir, "transcript.json")
	require.NoError(t, WriteFile(transcript, NewBatchTranscript(c.Sizes())))
	contribution := filepath.Join(dir, "contribution.json")
	require.NoError(t, WriteFile(contribution, currentOf(t, NewBatchTranscript(c.Sizes()))))

	tests := []struct {
		name    string
		content string
	}{
		{"empty object", `{}`},
		{"empty contributions", `{"contributions": []}`},
		{"empty transcripts", `{"transcripts": []}`},
		{"unknown field", `{"contributions": [], "extra": 1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, "input.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			assert.ErrorIs(t, c.CheckSubgroupFile(path), ErrDeserializationFailed)
			assert.ErrorIs(t, c.VerifyFile(path), ErrDeserializationFailed)
		})
	}

	// a file of one shape is not accepted as the other
	assert.ErrorIs(t, c.CheckSubgroupFile(transcript), ErrDeserializationFailed)
	assert.ErrorIs(t, c.VerifyFile(contribution), ErrDeserializationFailed)
	require.NoError(t, c.CheckSubgroupFile(contribution))
	require.NoError(t, c.VerifyFile(transcript))
}
