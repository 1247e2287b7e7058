package model

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Linear is y = xW + b with W stored in x out.
type Linear struct {
	W *mat.Dense
	B []float64
}

// newLinear initialises weights and bias uniformly in +-1/sqrt(in).
func newLinear(rng *rand.Rand, in, out int) *Linear {
	bound := 1 / math.Sqrt(float64(in))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = (2*rng.Float64() - 1) * bound
	}
	b := make([]float64, out)
	for i := range b {
		b[i] = (2*rng.Float64() - 1) * bound
	}
	return &Linear{W: mat.NewDense(in, out, w), B: b}
}

func (l *Linear) Forward(x mat.Matrix) *mat.Dense {
	var y mat.Dense
	y.Mul(x, l.W)
	r, _ := y.Dims()
	for i := 0; i < r; i++ {
		floats.Add(y.RawRowView(i), l.B)
	}
	return &y
}

// ForwardVec applies the layer to a single row vector.
func (l *Linear) ForwardVec(x []float64) []float64 {
	y := l.Forward(mat.NewDense(1, len(x), x))
	return y.RawRowView(0)
}

type LayerNorm struct {
	Gamma []float64
	Beta  []float64
	Eps   float64
}

func newLayerNorm(dim int) *LayerNorm {
	gamma := make([]float64, dim)
	for i := range gamma {
		gamma[i] = 1
	}
	return &LayerNorm{Gamma: gamma, Beta: make([]float64, dim), Eps: 1e-5}
}

// Forward normalises every row of x in place and returns it.
func (n *LayerNorm) Forward(x *mat.Dense) *mat.Dense {
	r, c := x.Dims()
	for i := 0; i < r; i++ {
		row := x.RawRowView(i)
		mean := floats.Sum(row) / float64(c)
		variance := 0.0
		for _, v := range row {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(c)
		inv := 1 / math.Sqrt(variance+n.Eps)
		for j, v := range row {
			row[j] = (v-mean)*inv*n.Gamma[j] + n.Beta[j]
		}
	}
	return x
}

func relu(x *mat.Dense) *mat.Dense {
	x.Apply(func(_, _ int, v float64) float64 { return max(v, 0) }, x)
	return x
}

func reluVec(x []float64) []float64 {
	for i, v := range x {
		x[i] = max(v, 0)
	}
	return x
}

// softmaxRow replaces row with its softmax.
func softmaxRow(row []float64) {
	m := floats.Max(row)
	for i, v := range row {
		row[i] = math.Exp(v - m)
	}
	floats.Scale(1/floats.Sum(row), row)
}

// Embedding maps type ids to learned vectors. The row at PaddingIdx is
// fixed at zero.
type Embedding struct {
	Table      *mat.Dense
	PaddingIdx int
}

func newEmbedding(rng *rand.Rand, count, dim, paddingIdx int) *Embedding {
	data := make([]float64, count*dim)
	for i := range data {
		data[i] = rng.NormFloat64()
	}
	e := &Embedding{Table: mat.NewDense(count, dim, data), PaddingIdx: paddingIdx}
	e.zeroPadding()
	return e
}

func (e *Embedding) zeroPadding() {
	row := e.Table.RawRowView(e.PaddingIdx)
	for i := range row {
		row[i] = 0
	}
}

// Lookup returns one row per id; ids must already be in range.
func (e *Embedding) Lookup(ids []int) *mat.Dense {
	_, dim := e.Table.Dims()
	out := mat.NewDense(len(ids), dim, nil)
	for i, id := range ids {
		out.SetRow(i, e.Table.RawRowView(id))
	}
	return out
}

// addPositionalEncoding adds the sinusoidal position signal to x in place.
func addPositionalEncoding(x *mat.Dense) {
	r, c := x.Dims()
	for pos := 0; pos < r; pos++ {
		row := x.RawRowView(pos)
		for i := 0; i < c; i += 2 {
			freq := math.Exp(-float64(i) * math.Log(10000) / float64(c))
			row[i] += math.Sin(float64(pos) * freq)
			if i+1 < c {
				row[i+1] += math.Cos(float64(pos) * freq)
			}
		}
	}
}
