// Package eval computes classification metrics from predicted labels and
// probabilities. Read-only consumer of the pipeline's outputs.
package eval

import (
	"fmt"
	"math"
)

// Accuracy is the fraction of exact label matches.
func Accuracy(y, pred []int) float64 {
	if len(y) == 0 {
		return 0
	}
	c := 0
	for i := range y {
		if y[i] == pred[i] {
			c++
		}
	}
	return float64(c) / float64(len(y))
}

// ConfusionMatrix returns counts[true][pred] for numClasses classes.
func ConfusionMatrix(y, pred []int, numClasses int) [][]int {
	cm := make([][]int, numClasses)
	for i := range cm {
		cm[i] = make([]int, numClasses)
	}
	for i := range y {
		cm[y[i]][pred[i]]++
	}
	return cm
}

// ClassReport is one row of the per-class classification report.
type ClassReport struct {
	Class     string  `json:"class"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report computes per-class precision/recall/F1 with supports.
func Report(y, pred []int, classes []string) []ClassReport {
	k := len(classes)
	tp := make([]int, k)
	fp := make([]int, k)
	fn := make([]int, k)
	support := make([]int, k)
	for i := range y {
		support[y[i]]++
		if y[i] == pred[i] {
			tp[y[i]]++
		} else {
			fp[pred[i]]++
			fn[y[i]]++
		}
	}
	out := make([]ClassReport, k)
	for c := 0; c < k; c++ {
		var p, r, f1 float64
		if tp[c]+fp[c] > 0 {
			p = float64(tp[c]) / float64(tp[c]+fp[c])
		}
		if tp[c]+fn[c] > 0 {
			r = float64(tp[c]) / float64(tp[c]+fn[c])
		}
		if p+r > 0 {
			f1 = 2 * p * r / (p + r)
		}
		out[c] = ClassReport{Class: classes[c], Precision: p, Recall: r, F1: f1, Support: support[c]}
	}
	return out
}

// Weighted collapses a per-class report into support-weighted
// precision/recall/F1.
func Weighted(report []ClassReport) (precision, recall, f1 float64) {
	total := 0
	for _, r := range report {
		total += r.Support
	}
	if total == 0 {
		return 0, 0, 0
	}
	for _, r := range report {
		w := float64(r.Support) / float64(total)
		precision += w * r.Precision
		recall += w * r.Recall
		f1 += w * r.F1
	}
	return precision, recall, f1
}

// LogLoss is the mean negative log probability of the true class.
func LogLoss(y []int, proba [][]float64) (float64, error) {
	if len(y) != len(proba) {
		return 0, fmt.Errorf("eval: %d labels but %d probability rows", len(y), len(proba))
	}
	loss := 0.0
	for i, p := range proba {
		v := p[y[i]]
		if v < 1e-15 {
			v = 1e-15
		}
		loss -= math.Log(v)
	}
	return loss / float64(len(y)), nil
}
