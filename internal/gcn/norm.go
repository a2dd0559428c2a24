package gcn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// batchNorm normalizes each feature column by batch statistics while
// training and by accumulated running statistics at inference.
type batchNorm struct {
	gamma *param // 1 x d
	beta  *param // 1 x d

	runMean []float64
	runVar  []float64

	momentum float64
	eps      float64

	// backward caches, valid after a training forward
	xmu    *mat.Dense
	xhat   *mat.Dense
	invStd []float64
}

func newBatchNorm(d int) *batchNorm {
	bn := &batchNorm{
		gamma:    newParam(1, d, false),
		beta:     newParam(1, d, false),
		runMean:  make([]float64, d),
		runVar:   make([]float64, d),
		momentum: 0.1,
		eps:      1e-5,
	}
	for j := 0; j < d; j++ {
		bn.gamma.val.Set(0, j, 1)
		bn.runVar[j] = 1
	}
	return bn
}

func (bn *batchNorm) forward(x *mat.Dense, training bool) *mat.Dense {
	n, d := x.Dims()
	out := mat.NewDense(n, d, nil)
	if !training {
		for j := 0; j < d; j++ {
			inv := 1 / math.Sqrt(bn.runVar[j]+bn.eps)
			g := bn.gamma.val.At(0, j)
			b := bn.beta.val.At(0, j)
			mu := bn.runMean[j]
			for i := 0; i < n; i++ {
				out.Set(i, j, g*(x.At(i, j)-mu)*inv+b)
			}
		}
		return out
	}

	bn.xmu = mat.NewDense(n, d, nil)
	bn.xhat = mat.NewDense(n, d, nil)
	bn.invStd = make([]float64, d)
	nf := float64(n)
	for j := 0; j < d; j++ {
		mu := 0.0
		for i := 0; i < n; i++ {
			mu += x.At(i, j)
		}
		mu /= nf
		va := 0.0
		for i := 0; i < n; i++ {
			dv := x.At(i, j) - mu
			va += dv * dv
			bn.xmu.Set(i, j, dv)
		}
		va /= nf
		inv := 1 / math.Sqrt(va+bn.eps)
		bn.invStd[j] = inv
		g := bn.gamma.val.At(0, j)
		b := bn.beta.val.At(0, j)
		for i := 0; i < n; i++ {
			xh := bn.xmu.At(i, j) * inv
			bn.xhat.Set(i, j, xh)
			out.Set(i, j, g*xh+b)
		}
		bn.runMean[j] = (1-bn.momentum)*bn.runMean[j] + bn.momentum*mu
		bn.runVar[j] = (1-bn.momentum)*bn.runVar[j] + bn.momentum*va
	}
	return out
}

// backward consumes dL/dOut, fills gamma/beta gradients and returns dL/dX.
func (bn *batchNorm) backward(dout *mat.Dense) *mat.Dense {
	n, d := dout.Dims()
	nf := float64(n)
	dx := mat.NewDense(n, d, nil)
	for j := 0; j < d; j++ {
		g := bn.gamma.val.At(0, j)
		inv := bn.invStd[j]

		var dgamma, dbeta, sumDxhat, sumDxhatXhat float64
		for i := 0; i < n; i++ {
			do := dout.At(i, j)
			xh := bn.xhat.At(i, j)
			dgamma += do * xh
			dbeta += do
			dxh := do * g
			sumDxhat += dxh
			sumDxhatXhat += dxh * xh
		}
		bn.gamma.grad.Set(0, j, dgamma)
		bn.beta.grad.Set(0, j, dbeta)

		for i := 0; i < n; i++ {
			dxh := dout.At(i, j) * g
			xh := bn.xhat.At(i, j)
			dx.Set(i, j, inv*(dxh-sumDxhat/nf-xh*sumDxhatXhat/nf))
		}
	}
	return dx
}

func (bn *batchNorm) params() []*param { return []*param{bn.gamma, bn.beta} }
