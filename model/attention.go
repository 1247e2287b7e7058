package model

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
)

// maskedScore replaces the score of padded positions so that their softmax
// weight underflows to zero.
const maskedScore = -1e9

// SelfAttention is multi-head scaled dot-product self-attention with a key
// padding mask.
type SelfAttention struct {
	Heads int
	Query *Linear
	Key   *Linear
	Val   *Linear
	Out   *Linear
}

func newSelfAttention(rng *rand.Rand, dim, heads int) *SelfAttention {
	return &SelfAttention{
		Heads: heads,
		Query: newLinear(rng, dim, dim),
		Key:   newLinear(rng, dim, dim),
		Val:   newLinear(rng, dim, dim),
		Out:   newLinear(rng, dim, dim),
	}
}

// Forward attends every position of x (seq x dim) to the unmasked
// positions. mask[j] is true when position j is padding.
func (a *SelfAttention) Forward(x *mat.Dense, mask []bool) *mat.Dense {
	n, dim := x.Dims()
	dh := dim / a.Heads
	scale := 1 / math.Sqrt(float64(dh))

	q := a.Query.Forward(x)
	k := a.Key.Forward(x)
	v := a.Val.Forward(x)

	concat := mat.NewDense(n, dim, nil)
	var scores, head mat.Dense
	for h := 0; h < a.Heads; h++ {
		lo, hi := h*dh, (h+1)*dh
		qh := q.Slice(0, n, lo, hi)
		kh := k.Slice(0, n, lo, hi)
		vh := v.Slice(0, n, lo, hi)

		scores.Reset()
		scores.Mul(qh, kh.T())
		scores.Scale(scale, &scores)
		for i := 0; i < n; i++ {
			row := scores.RawRowView(i)
			for j, padded := range mask {
				if padded {
					row[j] = maskedScore
				}
			}
			softmaxRow(row)
		}

		head.Reset()
		head.Mul(&scores, vh)
		concat.Slice(0, n, lo, hi).(*mat.Dense).Copy(&head)
	}
	return a.Out.Forward(concat)
}

// EncoderLayer is a post-norm transformer encoder block:
// x = norm1(x + attn(x)); x = norm2(x + ff(x)).
type EncoderLayer struct {
	Attn  *SelfAttention
	FF1   *Linear
	FF2   *Linear
	Norm1 *LayerNorm
	Norm2 *LayerNorm
}

func newEncoderLayer(rng *rand.Rand, dim, heads, ffDim int) *EncoderLayer {
	return &EncoderLayer{
		Attn:  newSelfAttention(rng, dim, heads),
		FF1:   newLinear(rng, dim, ffDim),
		FF2:   newLinear(rng, ffDim, dim),
		Norm1: newLayerNorm(dim),
		Norm2: newLayerNorm(dim),
	}
}

func (l *EncoderLayer) Forward(x *mat.Dense, mask []bool) *mat.Dense {
	attn := l.Attn.Forward(x, mask)
	attn.Add(attn, x)
	x = l.Norm1.Forward(attn)

	ff := l.FF2.Forward(relu(l.FF1.Forward(x)))
	ff.Add(ff, x)
	return l.Norm2.Forward(ff)
}

// AttentionPool collapses a sequence into one vector using a learned score
// per position, normalised with a softmax over the real positions.
type AttentionPool struct {
	Score *Linear
}

// Forward returns the pooled vector and the weight given to each position.
// Padded positions receive a weight of effectively zero.
func (p *AttentionPool) Forward(x *mat.Dense, mask []bool) (pooled, weights []float64) {
	n, dim := x.Dims()
	s := p.Score.Forward(x)
	weights = make([]float64, n)
	for i := range weights {
		if mask[i] {
			weights[i] = maskedScore
		} else {
			weights[i] = s.At(i, 0)
		}
	}
	softmaxRow(weights)

	pooled = make([]float64, dim)
	for i, w := range weights {
		if w == 0 {
			continue
		}
		for j, v := range x.RawRowView(i) {
			pooled[j] += w * v
		}
	}
	return pooled, weights
}
