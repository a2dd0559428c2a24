package gcn

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// param is one trainable tensor with its gradient and Adam moments.
// Weight decay applies only to parameters flagged decay (the convolution
// weights, not biases or norm scales).
type param struct {
	val   *mat.Dense
	grad  *mat.Dense
	m, v  *mat.Dense
	decay bool
}

func newParam(r, c int, decay bool) *param {
	return &param{
		val:   mat.NewDense(r, c, nil),
		grad:  mat.NewDense(r, c, nil),
		m:     mat.NewDense(r, c, nil),
		v:     mat.NewDense(r, c, nil),
		decay: decay,
	}
}

func (p *param) zeroGrad() { p.grad.Zero() }

// adam is the moment-based optimizer driving full-batch training.
type adam struct {
	lr          float64
	beta1       float64
	beta2       float64
	eps         float64
	weightDecay float64
	t           int
}

func newAdam(lr, weightDecay float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-8, weightDecay: weightDecay}
}

func (a *adam) step(params []*param) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for _, p := range params {
		r, c := p.val.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				g := p.grad.At(i, j)
				if p.decay {
					g += a.weightDecay * p.val.At(i, j)
				}
				m := a.beta1*p.m.At(i, j) + (1-a.beta1)*g
				v := a.beta2*p.v.At(i, j) + (1-a.beta2)*g*g
				p.m.Set(i, j, m)
				p.v.Set(i, j, v)
				mh := m / c1
				vh := v / c2
				p.val.Set(i, j, p.val.At(i, j)-a.lr*mh/(math.Sqrt(vh)+a.eps))
			}
		}
	}
}
