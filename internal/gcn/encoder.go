// Package gcn implements the graph convolutional encoder of the two-stage
// pipeline: a configurable stack of spectral graph convolutions trained
// full-batch by supervised cross-entropy, whose final layer output doubles
// as the per-sample embedding.
package gcn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"clinsev/internal/graph"
)

// LayerSpec describes one graph convolution in the stack. The stack is an
// ordered sequence of these records processed uniformly, so depth and
// widths change without touching the training loop.
type LayerSpec struct {
	Out     int
	Norm    bool
	ReLU    bool
	Dropout bool
}

// DefaultLayers builds the reference stack: every hidden layer carries
// norm, ReLU and dropout; the output layer is bare.
func DefaultLayers(hidden []int, outputDim int) []LayerSpec {
	specs := make([]LayerSpec, 0, len(hidden)+1)
	for _, h := range hidden {
		specs = append(specs, LayerSpec{Out: h, Norm: true, ReLU: true, Dropout: true})
	}
	specs = append(specs, LayerSpec{Out: outputDim})
	return specs
}

type convLayer struct {
	spec LayerSpec
	w    *param // in x out
	b    *param // 1 x out
	bn   *batchNorm

	// forward caches for the backward pass
	agg  *mat.Dense // A_hat * H_in
	z    *mat.Dense // agg*W + b
	act  *mat.Dense // layer output before dropout
	mask *mat.Dense // inverted-dropout mask, nil outside training
}

// Encoder owns the layer stack and the normalized adjacency of the cohort
// graph it was built for. Parameters are mutated only through a Trainer;
// after training the encoder is used read-only.
type Encoder struct {
	specs  []LayerSpec
	layers []*convLayer
	adj    *mat.Dense
	keep   float64
	rng    *rand.Rand
}

// New builds an encoder over g. inDim is the feature width; keep is the
// dropout keep-probability applied where a layer asks for it.
func New(inDim int, specs []LayerSpec, g *graph.Graph, keep float64, seed int64) (*Encoder, error) {
	if inDim <= 0 {
		return nil, fmt.Errorf("gcn: input dim %d must be positive", inDim)
	}
	if len(specs) == 0 {
		return nil, fmt.Errorf("gcn: empty layer stack")
	}
	if keep <= 0 || keep > 1 {
		return nil, fmt.Errorf("gcn: dropout keep %.3f outside (0, 1]", keep)
	}
	e := &Encoder{
		specs: specs,
		adj:   normalizedAdjacency(g),
		keep:  keep,
		rng:   rand.New(rand.NewSource(seed)),
	}
	in := inDim
	for _, s := range specs {
		if s.Out <= 0 {
			return nil, fmt.Errorf("gcn: layer width %d must be positive", s.Out)
		}
		l := &convLayer{
			spec: s,
			w:    newParam(in, s.Out, true),
			b:    newParam(1, s.Out, false),
		}
		glorot(l.w.val, e.rng)
		if s.Norm {
			l.bn = newBatchNorm(s.Out)
		}
		e.layers = append(e.layers, l)
		in = s.Out
	}
	return e, nil
}

// OutputDim is the width of the final layer, i.e. the embedding length.
func (e *Encoder) OutputDim() int { return e.specs[len(e.specs)-1].Out }

func glorot(w *mat.Dense, rng *rand.Rand) {
	r, c := w.Dims()
	limit := math.Sqrt(6 / float64(r+c))
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			w.Set(i, j, (rng.Float64()*2-1)*limit)
		}
	}
}

// normalizedAdjacency builds A_hat = D^{-1/2}(A+I)D^{-1/2} densely. The
// graph lists both orientations of every pair, so A is symmetric and so is
// A_hat.
func normalizedAdjacency(g *graph.Graph) *mat.Dense {
	n := g.N
	a := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		a.Set(i, i, 1)
	}
	for _, e := range g.Edges {
		a.Set(e[0], e[1], 1)
	}
	deg := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			deg[i] += a.At(i, j)
		}
	}
	for i := range deg {
		deg[i] = 1 / math.Sqrt(deg[i])
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if v := a.At(i, j); v != 0 {
				a.Set(i, j, v*deg[i]*deg[j])
			}
		}
	}
	return a
}

// forward runs the whole stack. With training=false dropout is off and
// norm layers use running statistics, so the pass is deterministic.
func (e *Encoder) forward(x *mat.Dense, training bool) *mat.Dense {
	h := x
	for _, l := range e.layers {
		var agg, z mat.Dense
		agg.Mul(e.adj, h)
		z.Mul(&agg, l.w.val)
		rows, cols := z.Dims()
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				z.Set(i, j, z.At(i, j)+l.b.val.At(0, j))
			}
		}

		out := &z
		if l.bn != nil {
			out = l.bn.forward(out, training)
		}
		if l.spec.ReLU {
			relu := mat.NewDense(rows, cols, nil)
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					if v := out.At(i, j); v > 0 {
						relu.Set(i, j, v)
					}
				}
			}
			out = relu
		}

		l.agg, l.z, l.act, l.mask = &agg, &z, out, nil
		if l.spec.Dropout && training && e.keep < 1 {
			mask := mat.NewDense(rows, cols, nil)
			dropped := mat.NewDense(rows, cols, nil)
			inv := 1 / e.keep
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					if e.rng.Float64() < e.keep {
						mask.Set(i, j, inv)
						dropped.Set(i, j, out.At(i, j)*inv)
					}
				}
			}
			l.mask = mask
			out = dropped
		}
		h = out
	}
	return h
}

// backward pushes dL/dLogits through the stack, filling parameter
// gradients. Must follow a training-mode forward pass.
func (e *Encoder) backward(dout *mat.Dense) {
	g := dout
	for li := len(e.layers) - 1; li >= 0; li-- {
		l := e.layers[li]
		rows, cols := g.Dims()

		if l.mask != nil {
			masked := mat.NewDense(rows, cols, nil)
			masked.MulElem(g, l.mask)
			g = masked
		}
		if l.spec.ReLU {
			dr := mat.NewDense(rows, cols, nil)
			for i := 0; i < rows; i++ {
				for j := 0; j < cols; j++ {
					if l.act.At(i, j) > 0 {
						dr.Set(i, j, g.At(i, j))
					}
				}
			}
			g = dr
		}
		if l.bn != nil {
			g = l.bn.backward(g)
		}

		// z = agg*W + b
		l.w.grad.Mul(l.agg.T(), g)
		for j := 0; j < cols; j++ {
			s := 0.0
			for i := 0; i < rows; i++ {
				s += g.At(i, j)
			}
			l.b.grad.Set(0, j, s)
		}
		if li > 0 {
			var dagg, dh mat.Dense
			dagg.Mul(g, l.w.val.T())
			dh.Mul(e.adj, &dagg) // adj is symmetric
			g = &dh
		}
	}
}

func (e *Encoder) params() []*param {
	var ps []*param
	for _, l := range e.layers {
		ps = append(ps, l.w, l.b)
		if l.bn != nil {
			ps = append(ps, l.bn.params()...)
		}
	}
	return ps
}

// Embed runs a single inference pass and returns one embedding per node.
// Deterministic for fixed parameters: no dropout, running norm statistics.
func (e *Encoder) Embed(X [][]float64) [][]float64 {
	out := e.forward(denseFromRows(X), false)
	n, d := out.Dims()
	emb := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := 0; j < d; j++ {
			row[j] = out.At(i, j)
		}
		emb[i] = row
	}
	return emb
}

func denseFromRows(X [][]float64) *mat.Dense {
	n := len(X)
	d := len(X[0])
	m := mat.NewDense(n, d, nil)
	for i, row := range X {
		m.SetRow(i, row)
	}
	return m
}
