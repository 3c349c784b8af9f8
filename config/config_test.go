package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnb-chain/kzg-ceremony/ceremony"
	"github.com/bnb-chain/kzg-ceremony/log/testlogger"
)

func TestDefault(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	assert.Equal(t, ceremony.DefaultSizes, c.Sizes())
	assert.Equal(t, "gnark", c.Engine)
	assert.Equal(t, ceremony.DefaultTag, c.Tag)

	// callers may modify the result
	c.SubCeremonies[0].G1Powers = 2
	assert.Equal(t, 4096, Default().SubCeremonies[0].G1Powers)
}

func TestParse(t *testing.T) {
	c, err := Parse([]byte(`
engine = "kyber"
workers = 3
log_level = "debug"

[[sub_ceremony]]
g1_powers = 8
g2_powers = 3

[[sub_ceremony]]
g1_powers = 4
g2_powers = 2
`))
	require.NoError(t, err)
	assert.Equal(t, "kyber", c.Engine)
	assert.Equal(t, 3, c.Workers)
	assert.Equal(t, "debug", c.LogLevel)
	assert.Equal(t, ceremony.DefaultTag, c.Tag)
	assert.Equal(t, []ceremony.Size{{G1: 8, G2: 3}, {G1: 4, G2: 2}}, c.Sizes())

	c, err = Parse([]byte(`log_json = true`))
	require.NoError(t, err)
	assert.True(t, c.LogJSON)
	assert.Equal(t, ceremony.DefaultSizes, c.Sizes())
}

func TestParseErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		toml string
	}{
		{"syntax", `engine = `},
		{"unknown key", `engnie = "gnark"`},
		{"unknown engine", `engine = "blst"`},
		{"negative workers", `workers = -1`},
		{"empty tag", `tag = ""`},
		{"log level", `log_level = "loud"`},
		{"small sub-ceremony", "[[sub_ceremony]]\ng1_powers = 1\ng2_powers = 2\n"},
		{"empty layout", `sub_ceremony = []`},
	} {
		_, err := Parse([]byte(tc.toml))
		assert.Error(t, err, tc.name)
	}
}

func TestWriteLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ceremony.toml")
	c := Default()
	c.Engine = "kyber"
	c.SubCeremonies = []SubCeremony{{G1Powers: 16, G2Powers: 4}}
	require.NoError(t, c.Write(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, c, loaded)
	assert.Contains(t, c.String(), "[[sub_ceremony]]")

	_, err = Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestCeremony(t *testing.T) {
	c := Default()
	c.SubCeremonies = []SubCeremony{{G1Powers: 4, G2Powers: 2}}
	cer, err := c.Ceremony(testlogger.New(t))
	require.NoError(t, err)
	assert.Equal(t, "gnark", cer.Engine().Name())
	assert.Equal(t, c.Sizes(), cer.Sizes())

	_, err = c.Logger()
	require.NoError(t, err)

	c.Engine = "blst"
	_, err = c.Ceremony(testlogger.New(t))
	assert.Error(t, err)
}
