package model

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"

	"bsrating/beatmap"
	"bsrating/tokens"
)

const (
	// MinVariance is the floor applied to every predicted variance.
	MinVariance = 1e-6
	maxLogVar   = 80
)

// ShapeError reports input that breaks the encoder/model contract: bad
// shapes, unknown types, or token values that are not finite or overflow
// the forward pass. It always indicates a programming error.
type ShapeError struct {
	Reason string
}

func (e *ShapeError) Error() string { return "model input shape: " + e.Reason }

// Prediction is the model output for one sequence. Variance is only set by
// the Uncertainty variant. Weights are the pooling weights per position.
type Prediction struct {
	Rating   float64
	Variance float64
	Weights  []float64
}

type Model struct {
	Config Config

	TokenEmbed *Linear
	TypeEmbed  *Embedding
	Layers     []*EncoderLayer
	Pool       *AttentionPool

	// Simple variant
	Head *Linear

	// Uncertainty variant
	Unc1   *Linear
	Unc2   *Linear
	Mean   *Linear
	LogVar *Linear
}

// New builds a randomly initialised model. The same seed always yields the
// same parameters.
func New(cfg Config, seed uint64) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	d := cfg.ModelDim
	m := &Model{
		Config:     cfg,
		TokenEmbed: newLinear(rng, cfg.TokenDim, d),
		TypeEmbed:  newEmbedding(rng, cfg.TypeCount, d, int(tokens.Pad)),
		Pool:       &AttentionPool{Score: newLinear(rng, d, 1)},
	}
	for range cfg.Layers {
		m.Layers = append(m.Layers, newEncoderLayer(rng, d, cfg.Heads, cfg.FFDim))
	}
	switch cfg.Variant {
	case Simple:
		m.Head = newLinear(rng, d, 1)
	case Uncertainty:
		m.Unc1 = newLinear(rng, d, cfg.UncHidden1)
		m.Unc2 = newLinear(rng, cfg.UncHidden1, cfg.UncHidden2)
		m.Mean = newLinear(rng, cfg.UncHidden2+d, 1)
		m.LogVar = newLinear(rng, cfg.UncHidden2+d, 1)
	}
	return m, nil
}

func (m *Model) check(features [][]float64, types []beatmap.ElementType, mask []bool) ([]int, error) {
	if len(features) != len(types) || len(types) != len(mask) {
		return nil, &ShapeError{Reason: fmt.Sprintf("features/types/mask lengths %d/%d/%d differ", len(features), len(types), len(mask))}
	}
	ids := make([]int, len(types))
	unmasked := 0
	for i, t := range types {
		if len(features[i]) != m.Config.TokenDim {
			return nil, &ShapeError{Reason: fmt.Sprintf("token %d has width %d, want %d", i, len(features[i]), m.Config.TokenDim)}
		}
		for j, f := range features[i] {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return nil, &ShapeError{Reason: fmt.Sprintf("token %d feature %d is %v", i, j, f)}
			}
		}
		if t < 0 || int(t) >= m.Config.TypeCount {
			return nil, &ShapeError{Reason: fmt.Sprintf("token %d has type %d outside [0,%d)", i, t, m.Config.TypeCount)}
		}
		ids[i] = int(t)
		if !mask[i] {
			unmasked++
		}
	}
	if unmasked == 0 {
		return nil, &ShapeError{Reason: "sequence has no unmasked positions"}
	}
	return ids, nil
}

// Predict rates one token sequence. mask[i] is true at padded positions.
func (m *Model) Predict(features [][]float64, types []beatmap.ElementType, mask []bool) (Prediction, error) {
	ids, err := m.check(features, types, mask)
	if err != nil {
		return Prediction{}, err
	}

	flat := make([]float64, 0, len(features)*m.Config.TokenDim)
	for _, f := range features {
		flat = append(flat, f...)
	}
	x := m.TokenEmbed.Forward(mat.NewDense(len(features), m.Config.TokenDim, flat))
	x.Add(x, m.TypeEmbed.Lookup(ids))
	addPositionalEncoding(x)

	for _, l := range m.Layers {
		x = l.Forward(x, mask)
	}
	pooled, weights := m.Pool.Forward(x, mask)

	var p Prediction
	if m.Config.Variant == Simple {
		p = Prediction{Rating: m.Head.ForwardVec(pooled)[0], Weights: weights}
	} else {
		z := reluVec(m.Unc2.ForwardVec(reluVec(m.Unc1.ForwardVec(pooled))))
		stacked := append(z, pooled...)
		p = Prediction{
			Rating:   m.Mean.ForwardVec(stacked)[0],
			Variance: varianceFromLog(m.LogVar.ForwardVec(stacked)[0]),
			Weights:  weights,
		}
	}
	// finite tokens can still overflow inside the encoder
	if math.IsNaN(p.Rating) || math.IsInf(p.Rating, 0) {
		return Prediction{}, &ShapeError{Reason: fmt.Sprintf("rating is %v, token magnitudes overflow the model", p.Rating)}
	}
	return p, nil
}

// varianceFromLog returns exp(logVar), floored at MinVariance and capped so
// the result stays finite.
func varianceFromLog(logVar float64) float64 {
	if math.IsNaN(logVar) {
		return MinVariance
	}
	return max(math.Exp(min(logVar, maxLogVar)), MinVariance)
}

// PredictSequence rates an unpadded encoded sequence.
func (m *Model) PredictSequence(s tokens.Sequence) (Prediction, error) {
	return m.Predict(s.Features, s.Types, make([]bool, s.Len()))
}

// PredictBatch rates every sequence of b using up to workers goroutines.
// Results are in batch order. The first error cancels the rest.
func (m *Model) PredictBatch(ctx context.Context, b tokens.Batch, workers int) ([]Prediction, error) {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	out := make([]Prediction, b.Size())
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range b.Size() {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := m.Predict(b.Features[i], b.Types[i], b.Mask[i])
			if err != nil {
				return fmt.Errorf("sequence %d: %w", i, err)
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
