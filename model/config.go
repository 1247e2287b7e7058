// Package model implements the attention-pooling rating model: a small
// transformer encoder over beatmap tokens whose outputs are pooled into a
// single difficulty rating, optionally with a predicted variance.
package model

import (
	"fmt"

	"bsrating/beatmap"
	"bsrating/tokens"
)

type Variant int

const (
	// Simple emits a rating only.
	Simple Variant = iota
	// Uncertainty emits a mean rating and a heteroscedastic variance.
	Uncertainty
)

func (v Variant) String() string {
	if v == Simple {
		return "simple"
	}
	return "uncertainty"
}

// Config is the architecture of a model. A checkpoint can only be loaded
// into a model with the same Config.
type Config struct {
	TokenDim   int
	TypeCount  int
	ModelDim   int
	Heads      int
	Layers     int
	FFDim      int
	UncHidden1 int
	UncHidden2 int
	Variant    Variant
}

func DefaultConfig() Config {
	return Config{
		TokenDim:   tokens.Width,
		TypeCount:  beatmap.TokenTypes,
		ModelDim:   128,
		Heads:      4,
		Layers:     3,
		FFDim:      512,
		UncHidden1: 128,
		UncHidden2: 64,
		Variant:    Uncertainty,
	}
}

func (c Config) Validate() error {
	switch {
	case c.TokenDim < 1:
		return fmt.Errorf("token dim must be positive, got %d", c.TokenDim)
	case c.TypeCount <= int(tokens.Pad):
		return fmt.Errorf("type count %d does not cover the padding tag %d", c.TypeCount, tokens.Pad)
	case c.ModelDim < 1 || c.Heads < 1:
		return fmt.Errorf("model dim %d and heads %d must be positive", c.ModelDim, c.Heads)
	case c.ModelDim%c.Heads != 0:
		return fmt.Errorf("model dim %d is not divisible by %d heads", c.ModelDim, c.Heads)
	case c.Layers < 1:
		return fmt.Errorf("need at least one attention layer, got %d", c.Layers)
	case c.FFDim < 1:
		return fmt.Errorf("feed-forward dim must be positive, got %d", c.FFDim)
	case c.Variant == Uncertainty && (c.UncHidden1 < 1 || c.UncHidden2 < 1):
		return fmt.Errorf("uncertainty hidden dims must be positive, got %d/%d", c.UncHidden1, c.UncHidden2)
	case c.Variant != Simple && c.Variant != Uncertainty:
		return fmt.Errorf("unknown variant %d", c.Variant)
	}
	return nil
}
