// Package config holds the ceremony layout and runtime settings, read from TOML.
package config

import (
	"bytes"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"github.com/bnb-chain/kzg-ceremony/ceremony"
	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/bnb-chain/kzg-ceremony/log"
)

// SubCeremony is one entry of the ceremony layout.
type SubCeremony struct {
	G1Powers int `toml:"g1_powers"`
	G2Powers int `toml:"g2_powers"`
}

type Config struct {
	Engine        string        `toml:"engine"`
	Tag           string        `toml:"tag"`
	Workers       int           `toml:"workers,omitempty"`
	LogLevel      string        `toml:"log_level"`
	LogJSON       bool          `toml:"log_json"`
	SubCeremonies []SubCeremony `toml:"sub_ceremony"`
}

// Default is the EIP-4844 layout on the default engine.
func Default() *Config {
	c := &Config{
		Engine:   engine.Default,
		Tag:      ceremony.DefaultTag,
		LogLevel: "info",
	}
	for _, s := range ceremony.DefaultSizes {
		c.SubCeremonies = append(c.SubCeremonies, SubCeremony{G1Powers: s.G1, G2Powers: s.G2})
	}
	return c
}

// Load overlays the TOML file at path on the defaults. A file that lists
// sub-ceremonies replaces the default layout.
func Load(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(buf)
	if err != nil {
		return nil, errors.WithMessage(err, path)
	}
	return c, nil
}

func Parse(buf []byte) (*Config, error) {
	c := Default()
	c.SubCeremonies = nil
	md, err := toml.Decode(string(buf), c)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if !md.IsDefined("sub_ceremony") {
		c.SubCeremonies = Default().SubCeremonies
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) Validate() error {
	if len(c.SubCeremonies) == 0 {
		return errors.New("at least one sub-ceremony is required")
	}
	for i, s := range c.SubCeremonies {
		if s.G1Powers < 2 || s.G2Powers < 2 {
			return errors.Errorf("sub-ceremony %d: need at least 2 powers per group, got %d/%d", i, s.G1Powers, s.G2Powers)
		}
	}
	known := false
	for _, name := range engine.Names() {
		known = known || name == c.Engine
	}
	if !known {
		return errors.Errorf("unknown engine %q, expected one of %s", c.Engine, strings.Join(engine.Names(), ", "))
	}
	if c.Workers < 0 {
		return errors.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.Tag == "" {
		return errors.New("empty tag")
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

func (c *Config) Sizes() []ceremony.Size {
	sizes := make([]ceremony.Size, len(c.SubCeremonies))
	for i, s := range c.SubCeremonies {
		sizes[i] = ceremony.Size{G1: s.G1Powers, G2: s.G2Powers}
	}
	return sizes
}

// Ceremony returns the ceremony described by c.
func (c *Config) Ceremony(l log.Logger) (*ceremony.Ceremony, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	e, err := engine.New(c.Engine)
	if err != nil {
		return nil, err
	}
	return ceremony.New(e,
		ceremony.WithSizes(c.Sizes()),
		ceremony.WithTag(c.Tag),
		ceremony.WithWorkers(c.Workers),
		ceremony.WithLogger(l),
	), nil
}

// Logger builds a logger from the log settings.
func (c *Config) Logger() (log.Logger, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	return log.New(nil, level, c.LogJSON), nil
}

func (c *Config) String() string {
	var b bytes.Buffer
	_ = toml.NewEncoder(&b).Encode(c)
	return b.String()
}

// Write saves c as TOML to path.
func (c *Config) Write(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(c); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
