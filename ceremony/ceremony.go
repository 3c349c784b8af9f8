// Package ceremony implements the KZG powers-of-tau contribution chain: updating the
// accumulator with participant entropy, appending contributions to the transcript
// and verifying transcripts, identities and update proofs.
package ceremony

import (
	"runtime"

	"github.com/bnb-chain/kzg-ceremony/engine"
	"github.com/bnb-chain/kzg-ceremony/log"
)

// Size is the number of G1 and G2 powers of one sub-ceremony.
type Size struct {
	G1 int
	G2 int
}

// DefaultSizes are the four sub-ceremonies of the EIP-4844 setup.
var DefaultSizes = []Size{{4096, 65}, {8192, 65}, {16384, 65}, {32768, 65}}

// Ceremony binds the protocol operations to an engine and a ceremony layout.
// It holds no mutable state and is safe for concurrent use.
type Ceremony struct {
	engine  engine.Engine
	sizes   []Size
	tag     []byte
	workers int
	log     log.Logger
}

type Option func(*Ceremony)

func WithSizes(sizes []Size) Option {
	return func(c *Ceremony) { c.sizes = append([]Size(nil), sizes...) }
}

// WithTag sets the salt of the tau derivation.
func WithTag(tag string) Option {
	return func(c *Ceremony) { c.tag = []byte(tag) }
}

// WithWorkers bounds the number of goroutines used by parallel checks.
func WithWorkers(n int) Option {
	return func(c *Ceremony) {
		if n > 0 {
			c.workers = n
		}
	}
}

func WithLogger(l log.Logger) Option {
	return func(c *Ceremony) { c.log = l }
}

func New(e engine.Engine, opts ...Option) *Ceremony {
	c := &Ceremony{
		engine:  e,
		sizes:   DefaultSizes,
		tag:     []byte(DefaultTag),
		workers: runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = log.DefaultLogger()
	}
	c.log = c.log.Named("ceremony").With("engine", e.Name())
	return c
}

func (c *Ceremony) Engine() engine.Engine { return c.engine }
func (c *Ceremony) Sizes() []Size         { return append([]Size(nil), c.sizes...) }
