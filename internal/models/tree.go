package models

import (
	"math"
	"sort"
)

// regNode is one node of a second-order regression tree fit to
// gradient/hessian pairs.
type regNode struct {
	Feature   int
	Threshold float64
	Left      *regNode
	Right     *regNode
	IsLeaf    bool
	Weight    float64
}

type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	maxThresholds  int
	regAlpha       float64
	regLambda      float64
}

// leafWeight is the L1-soft-thresholded, L2-shrunk optimal leaf value.
func leafWeight(g, h float64, p treeParams) float64 {
	t := math.Abs(g) - p.regAlpha
	if t <= 0 {
		return 0
	}
	if g > 0 {
		t = -t
	}
	return t / (h + p.regLambda)
}

func leafScore(g, h float64, p treeParams) float64 {
	w := leafWeight(g, h, p)
	return -(g*w + 0.5*(h+p.regLambda)*w*w)
}

// buildTree grows a depth-limited tree over idx greedily by gain. feats is
// the column subsample for this tree. gains accumulates per-feature split
// gain for the importance report.
func buildTree(X [][]float64, grad, hess []float64, idx, feats []int, depth int, p treeParams, gains []float64) *regNode {
	var G, H float64
	for _, i := range idx {
		G += grad[i]
		H += hess[i]
	}
	leaf := func() *regNode {
		return &regNode{IsLeaf: true, Weight: leafWeight(G, H, p)}
	}
	if depth >= p.maxDepth || len(idx) < 2*p.minSamplesLeaf {
		return leaf()
	}

	parentScore := leafScore(G, H, p)
	bestGain := 0.0
	bestFeature := -1
	bestThr := 0.0
	for _, f := range feats {
		for _, thr := range candidateThresholds(X, idx, f, p.maxThresholds) {
			var gl, hl float64
			nl := 0
			for _, i := range idx {
				if X[i][f] <= thr {
					gl += grad[i]
					hl += hess[i]
					nl++
				}
			}
			nr := len(idx) - nl
			if nl < p.minSamplesLeaf || nr < p.minSamplesLeaf {
				continue
			}
			gain := leafScore(gl, hl, p) + leafScore(G-gl, H-hl, p) - parentScore
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThr = thr
			}
		}
	}
	if bestFeature == -1 {
		return leaf()
	}
	gains[bestFeature] += bestGain

	lIdx := make([]int, 0, len(idx))
	rIdx := make([]int, 0, len(idx))
	for _, i := range idx {
		if X[i][bestFeature] <= bestThr {
			lIdx = append(lIdx, i)
		} else {
			rIdx = append(rIdx, i)
		}
	}
	return &regNode{
		Feature:   bestFeature,
		Threshold: bestThr,
		Left:      buildTree(X, grad, hess, lIdx, feats, depth+1, p, gains),
		Right:     buildTree(X, grad, hess, rIdx, feats, depth+1, p, gains),
	}
}

func (n *regNode) predict(x []float64) float64 {
	for !n.IsLeaf {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Weight
}

// candidateThresholds picks up to nCand quantile cut points of column f
// over idx.
func candidateThresholds(X [][]float64, idx []int, f, nCand int) []float64 {
	if nCand <= 0 {
		nCand = 16
	}
	vals := make([]float64, len(idx))
	for k, i := range idx {
		vals[k] = X[i][f]
	}
	sort.Float64s(vals)
	n := len(vals)
	out := make([]float64, 0, nCand)
	for k := 1; k < nCand; k++ {
		j := int(math.Round(float64(k) / float64(nCand) * float64(n-1)))
		if j <= 0 || j >= n {
			continue
		}
		thr := vals[j]
		if len(out) == 0 || thr != out[len(out)-1] {
			out = append(out, thr)
		}
	}
	return out
}
