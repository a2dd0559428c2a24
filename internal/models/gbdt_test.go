package models

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// separable builds a fused-style feature set where the class is a
// deterministic function of the first two dimensions.
func separable(n, d int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		row := make([]float64, d)
		for j := range row {
			row[j] = rng.Float64()
		}
		X[i] = row
		switch {
		case row[0] > 0.6:
			y[i] = 2
		case row[1] > 0.5:
			y[i] = 1
		default:
			y[i] = 0
		}
	}
	return X, y
}

func TestSeparableAccuracy(t *testing.T) {
	X, y := separable(600, 6, 21)
	cut := 480
	gb := NewGBDT(3)
	gb.Rounds = 200
	gb.EarlyStopping = 50
	require.NoError(t, gb.FitEval(X[:cut], y[:cut], X[cut:], y[cut:]))

	pred := gb.Predict(X[cut:])
	correct := 0
	for i, p := range pred {
		if p == y[cut+i] {
			correct++
		}
	}
	acc := float64(correct) / float64(len(pred))
	assert.GreaterOrEqual(t, acc, 0.95, "accuracy %f", acc)
}

func TestPredictProbaRowsSumToOne(t *testing.T) {
	X, y := separable(200, 4, 3)
	gb := NewGBDT(3)
	gb.Rounds = 20
	require.NoError(t, gb.Fit(X, y))

	for _, p := range gb.PredictProba(X[:10]) {
		require.Len(t, p, 3)
		sum := 0.0
		for _, v := range p {
			sum += v
		}
		assert.InDelta(t, 1, sum, 1e-9)
	}
}

func TestEarlyStoppingKeepsBestRound(t *testing.T) {
	X, y := separable(300, 4, 5)
	// noise labels on the eval set so its loss plateaus quickly
	rng := rand.New(rand.NewSource(8))
	evalX := make([][]float64, 100)
	evalY := make([]int, 100)
	for i := range evalX {
		row := make([]float64, 4)
		for j := range row {
			row[j] = rng.Float64()
		}
		evalX[i] = row
		evalY[i] = rng.Intn(3)
	}

	gb := NewGBDT(3)
	gb.Rounds = 500
	gb.EarlyStopping = 20
	require.NoError(t, gb.FitEval(X, y, evalX, evalY))

	assert.Less(t, len(gb.EvalLoss), 500, "early stopping should trigger")
	assert.LessOrEqual(t, gb.BestRound(), len(gb.EvalLoss))
	assert.Greater(t, gb.BestRound(), 0)

	// the model must score with the best iteration, whose eval loss is the
	// minimum observed
	best := gb.EvalLoss[gb.BestRound()-1]
	for _, l := range gb.EvalLoss {
		assert.GreaterOrEqual(t, l, best)
	}
}

func TestFeatureImportanceHighlightsInformativeColumns(t *testing.T) {
	X, y := separable(400, 6, 13)
	gb := NewGBDT(3)
	gb.Rounds = 60
	gb.ColsampleByTree = 1
	require.NoError(t, gb.Fit(X, y))

	imp := gb.FeatureImportance()
	require.Len(t, imp, 6)
	total := 0.0
	for _, v := range imp {
		total += v
	}
	assert.InDelta(t, 1, total, 1e-9)
	// class is a function of columns 0 and 1 only
	for j := 2; j < 6; j++ {
		assert.Greater(t, imp[0], imp[j])
		assert.Greater(t, imp[1], imp[j])
	}
}

func TestFitValidation(t *testing.T) {
	gb := NewGBDT(3)
	require.Error(t, gb.Fit(nil, nil))
	require.Error(t, gb.Fit([][]float64{{1}}, []int{0, 1}))
	require.Error(t, gb.Fit([][]float64{{1}}, []int{5}))
}

func TestFitWithoutEvalUsesAllRounds(t *testing.T) {
	X, y := separable(120, 4, 2)
	gb := NewGBDT(3)
	gb.Rounds = 15
	require.NoError(t, gb.Fit(X, y))
	assert.Equal(t, 15, gb.BestRound())
	assert.Empty(t, gb.EvalLoss)
}
