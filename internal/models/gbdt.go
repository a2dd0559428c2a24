package models

import (
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"
)

// GBDT is a multi-class gradient-boosted tree ensemble with softmax
// objective, per-tree row/column subsampling, L1/L2 leaf regularization
// and eval-set log-loss early stopping.
type GBDT struct {
	NumClasses      int
	Rounds          int
	LearningRate    float64
	MaxDepth        int
	MinSamplesLeaf  int
	MaxThresholds   int
	Subsample       float64
	ColsampleByTree float64
	RegAlpha        float64
	RegLambda       float64
	EarlyStopping   int
	Seed            int64
	Logger          *zap.Logger

	trees           [][]*regNode // [round][class]
	baseScore       []float64
	nFeatures       int
	bestRound       int // rounds kept after early stopping
	importanceGains []float64
	EvalLoss        []float64 // per-round eval log-loss, empty without eval set
}

var _ Model = (*GBDT)(nil)

func NewGBDT(numClasses int) *GBDT {
	return &GBDT{
		NumClasses:      numClasses,
		Rounds:          2000,
		LearningRate:    0.05,
		MaxDepth:        6,
		MinSamplesLeaf:  5,
		MaxThresholds:   32,
		Subsample:       0.8,
		ColsampleByTree: 0.8,
		RegLambda:       1,
		EarlyStopping:   100,
		Seed:            42,
	}
}

func (g *GBDT) Name() string { return "GBDT" }

// Fit trains without a validation set: no early stopping, all rounds kept.
func (g *GBDT) Fit(X [][]float64, y []int) error {
	return g.FitEval(X, y, nil, nil)
}

// FitEval trains on X/y and, when an eval set is given, tracks its
// log-loss each round, stopping once it has not improved for
// EarlyStopping rounds. Predictions afterwards use the best round, not
// the last one.
func (g *GBDT) FitEval(X [][]float64, y []int, evalX [][]float64, evalY []int) error {
	n := len(X)
	if n == 0 {
		return fmt.Errorf("models: empty training set")
	}
	if len(y) != n {
		return fmt.Errorf("models: %d rows but %d labels", n, len(y))
	}
	k := g.NumClasses
	for i, c := range y {
		if c < 0 || c >= k {
			return fmt.Errorf("models: label %d at row %d outside [0, %d)", c, i, k)
		}
	}
	g.nFeatures = len(X[0])
	g.trees = nil
	g.EvalLoss = nil

	// log prior per class as base score
	counts := make([]float64, k)
	for _, c := range y {
		counts[c]++
	}
	g.baseScore = make([]float64, k)
	for c := 0; c < k; c++ {
		p := counts[c] / float64(n)
		if p < 1e-6 {
			p = 1e-6
		}
		g.baseScore[c] = math.Log(p)
	}

	F := make([][]float64, n)
	for i := range F {
		F[i] = append([]float64(nil), g.baseScore...)
	}
	var evalF [][]float64
	for range evalX {
		evalF = append(evalF, append([]float64(nil), g.baseScore...))
	}

	rng := rand.New(rand.NewSource(g.Seed))
	tp := treeParams{
		maxDepth:       g.MaxDepth,
		minSamplesLeaf: g.MinSamplesLeaf,
		maxThresholds:  g.MaxThresholds,
		regAlpha:       g.RegAlpha,
		regLambda:      g.RegLambda,
	}
	gains := make([]float64, g.nFeatures)

	bestLoss := math.Inf(1)
	best := 0
	sinceBest := 0

	prob := make([]float64, k)
	for m := 0; m < g.Rounds; m++ {
		rows := g.sampleRows(n, rng)
		feats := g.sampleCols(rng)

		round := make([]*regNode, k)
		grad := make([]float64, n)
		hess := make([]float64, n)
		for c := 0; c < k; c++ {
			for _, i := range rows {
				softmaxInto(F[i], prob)
				p := prob[c]
				t := 0.0
				if y[i] == c {
					t = 1
				}
				grad[i] = p - t
				h := p * (1 - p)
				if h < 1e-16 {
					h = 1e-16
				}
				hess[i] = h
			}
			round[c] = buildTree(X, grad, hess, rows, feats, 0, tp, gains)
		}
		g.trees = append(g.trees, round)

		for i := 0; i < n; i++ {
			for c := 0; c < k; c++ {
				F[i][c] += g.LearningRate * round[c].predict(X[i])
			}
		}

		if evalX == nil {
			best = m + 1
			continue
		}
		for i := range evalX {
			for c := 0; c < k; c++ {
				evalF[i][c] += g.LearningRate * round[c].predict(evalX[i])
			}
		}
		loss := logLossScores(evalF, evalY)
		g.EvalLoss = append(g.EvalLoss, loss)
		if loss < bestLoss {
			bestLoss = loss
			best = m + 1
			sinceBest = 0
		} else {
			sinceBest++
		}
		if g.Logger != nil && m%100 == 0 {
			g.Logger.Info("boost round", zap.Int("round", m), zap.Float64("eval_logloss", loss))
		}
		if g.EarlyStopping > 0 && sinceBest >= g.EarlyStopping {
			break
		}
	}
	g.bestRound = best
	g.importanceGains = gains
	return nil
}

// BestRound is the number of rounds the final model actually uses.
func (g *GBDT) BestRound() int { return g.bestRound }

// scores accumulates raw margin scores through the best round.
func (g *GBDT) scores(x []float64) []float64 {
	f := append([]float64(nil), g.baseScore...)
	for m := 0; m < g.bestRound && m < len(g.trees); m++ {
		for c := range f {
			f[c] += g.LearningRate * g.trees[m][c].predict(x)
		}
	}
	return f
}

func (g *GBDT) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		f := g.scores(X[i])
		p := make([]float64, len(f))
		softmaxInto(f, p)
		out[i] = p
	}
	return out
}

func (g *GBDT) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	for i := range X {
		f := g.scores(X[i])
		arg := 0
		for c := 1; c < len(f); c++ {
			if f[c] > f[arg] {
				arg = c
			}
		}
		out[i] = arg
	}
	return out
}

// FeatureImportance returns total split gain per feature, normalized to
// sum to one when any split occurred.
func (g *GBDT) FeatureImportance() []float64 {
	out := append([]float64(nil), g.importanceGains...)
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for i := range out {
			out[i] /= total
		}
	}
	return out
}

func (g *GBDT) sampleRows(n int, rng *rand.Rand) []int {
	if g.Subsample >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	m := int(g.Subsample * float64(n))
	if m < 1 {
		m = 1
	}
	perm := rng.Perm(n)
	return perm[:m]
}

func (g *GBDT) sampleCols(rng *rand.Rand) []int {
	d := g.nFeatures
	if g.ColsampleByTree >= 1 {
		idx := make([]int, d)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	m := int(g.ColsampleByTree * float64(d))
	if m < 1 {
		m = 1
	}
	perm := rng.Perm(d)
	return perm[:m]
}

func softmaxInto(f, out []float64) {
	maxv := f[0]
	for _, v := range f[1:] {
		if v > maxv {
			maxv = v
		}
	}
	sum := 0.0
	for c, v := range f {
		e := math.Exp(v - maxv)
		out[c] = e
		sum += e
	}
	for c := range out {
		out[c] /= sum
	}
}

// logLossScores computes multi-class log-loss from raw margin scores.
func logLossScores(F [][]float64, y []int) float64 {
	if len(F) == 0 {
		return 0
	}
	loss := 0.0
	p := make([]float64, len(F[0]))
	for i, f := range F {
		softmaxInto(f, p)
		v := p[y[i]]
		if v < 1e-15 {
			v = 1e-15
		}
		loss -= math.Log(v)
	}
	return loss / float64(len(F))
}
