package eval

import (
	"math"
	"sort"
)

// Curve is one ROC curve with its area.
type Curve struct {
	FPR []float64 `json:"fpr"`
	TPR []float64 `json:"tpr"`
	AUC float64   `json:"auc"`
}

// BinaryROC ranks scores descending and walks thresholds, emitting one
// point per distinct score; AUC by trapezoid. Degenerate inputs (a single
// class present) return a zero-area curve.
func BinaryROC(y []int, score []float64) Curve {
	n := len(y)
	type pair struct {
		s float64
		y int
	}
	pairs := make([]pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = pair{score[i], y[i]}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].s > pairs[j].s })

	var pos, neg int
	for _, p := range pairs {
		if p.y == 1 {
			pos++
		} else {
			neg++
		}
	}
	if pos == 0 || neg == 0 {
		return Curve{FPR: []float64{0, 1}, TPR: []float64{0, 1}}
	}

	c := Curve{FPR: []float64{0}, TPR: []float64{0}}
	tp, fp := 0, 0
	prevS := math.Inf(1)
	var prevTPR, prevFPR float64
	for i := 0; i < n; i++ {
		if pairs[i].s != prevS {
			tpr := float64(tp) / float64(pos)
			fpr := float64(fp) / float64(neg)
			if fpr != prevFPR || tpr != prevTPR {
				c.AUC += (fpr - prevFPR) * (tpr + prevTPR) / 2
				c.FPR = append(c.FPR, fpr)
				c.TPR = append(c.TPR, tpr)
				prevTPR, prevFPR = tpr, fpr
			}
			prevS = pairs[i].s
		}
		if pairs[i].y == 1 {
			tp++
		} else {
			fp++
		}
	}
	c.AUC += (1 - prevFPR) * (1 + prevTPR) / 2
	c.FPR = append(c.FPR, 1)
	c.TPR = append(c.TPR, 1)
	return c
}

// PerClassROC computes one-vs-rest curves for each class column of proba.
func PerClassROC(y []int, proba [][]float64, numClasses int) []Curve {
	out := make([]Curve, numClasses)
	bin := make([]int, len(y))
	score := make([]float64, len(y))
	for c := 0; c < numClasses; c++ {
		for i := range y {
			if y[i] == c {
				bin[i] = 1
			} else {
				bin[i] = 0
			}
			score[i] = proba[i][c]
		}
		out[c] = BinaryROC(bin, score)
	}
	return out
}

// MicroROC pools every one-vs-rest label/score pair into a single binary
// problem before computing one curve.
func MicroROC(y []int, proba [][]float64, numClasses int) Curve {
	bin := make([]int, 0, len(y)*numClasses)
	score := make([]float64, 0, len(y)*numClasses)
	for i := range y {
		for c := 0; c < numClasses; c++ {
			if y[i] == c {
				bin = append(bin, 1)
			} else {
				bin = append(bin, 0)
			}
			score = append(score, proba[i][c])
		}
	}
	return BinaryROC(bin, score)
}

// MacroROC interpolates every per-class curve onto the union of observed
// FPR points and averages the TPRs.
func MacroROC(curves []Curve) Curve {
	grid := map[float64]bool{}
	for _, c := range curves {
		for _, f := range c.FPR {
			grid[f] = true
		}
	}
	fprs := make([]float64, 0, len(grid))
	for f := range grid {
		fprs = append(fprs, f)
	}
	sort.Float64s(fprs)

	out := Curve{FPR: fprs, TPR: make([]float64, len(fprs))}
	for _, c := range curves {
		for i, f := range fprs {
			out.TPR[i] += interpTPR(c, f)
		}
	}
	for i := range out.TPR {
		out.TPR[i] /= float64(len(curves))
	}
	for i := 1; i < len(fprs); i++ {
		out.AUC += (fprs[i] - fprs[i-1]) * (out.TPR[i] + out.TPR[i-1]) / 2
	}
	return out
}

// interpTPR linearly interpolates a curve's TPR at the given FPR. Curves
// are monotone in FPR; at a vertical step the highest TPR is used.
func interpTPR(c Curve, fpr float64) float64 {
	i := sort.SearchFloat64s(c.FPR, fpr)
	if i < len(c.FPR) && c.FPR[i] == fpr {
		// step curves can repeat an FPR; take the last occurrence
		for i+1 < len(c.FPR) && c.FPR[i+1] == fpr {
			i++
		}
		return c.TPR[i]
	}
	if i == 0 {
		return c.TPR[0]
	}
	if i >= len(c.FPR) {
		return c.TPR[len(c.TPR)-1]
	}
	f0, f1 := c.FPR[i-1], c.FPR[i]
	t0, t1 := c.TPR[i-1], c.TPR[i]
	if f1 == f0 {
		return t1
	}
	return t0 + (t1-t0)*(fpr-f0)/(f1-f0)
}
