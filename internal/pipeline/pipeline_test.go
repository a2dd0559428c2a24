package pipeline

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"clinsev/internal/config"
	"clinsev/internal/data"
	"clinsev/internal/features"
)

func smallConfig() *config.Config {
	cfg := config.Default()
	cfg.SimilarityThreshold = 0.5
	cfg.Encoder.HiddenDims = []int{32, 16}
	cfg.Encoder.OutputDim = 8
	cfg.Encoder.Epochs = 40
	cfg.Boost.Rounds = 80
	cfg.Boost.EarlyStopping = 30
	return cfg
}

// blobPrepared builds three separable clusters pre-standardized, as the
// core entry contract expects.
func blobPrepared(n, d int, seed int64) *features.Prepared {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := 0; i < n; i++ {
		c := i % 3
		row := make([]float64, d)
		for j := range row {
			row[j] = rng.NormFloat64() * 0.3
		}
		row[c] += 4
		X[i] = row
		y[i] = c
	}
	Xs, means, stds := features.Standardize(X)
	cols := make([]string, d)
	for j := range cols {
		cols[j] = "f" + strconv.Itoa(j)
	}
	return &features.Prepared{
		X: Xs, Y: y, Columns: cols,
		Classes: []string{"mild", "moderate", "severe"},
		Means:   means, Stds: stds,
	}
}

func TestRunPreparedEndToEnd(t *testing.T) {
	prep := blobPrepared(120, 8, 17)
	cfg := smallConfig()
	art, err := RunPrepared(prep, cfg, zap.NewNop())
	require.NoError(t, err)

	// graph is non-trivial
	assert.Greater(t, art.Metrics.EdgeCount, 0)
	assert.Less(t, art.Metrics.EdgeCount, 120*119)

	// ordering invariant: embeddings, fused rows, raw rows all aligned
	require.Len(t, art.Embeddings, 120)
	require.Len(t, art.Fused, 120)
	for i := range art.Fused {
		require.Len(t, art.Fused[i], 8+cfg.Encoder.OutputDim)
		assert.Equal(t, prep.X[i], art.Fused[i][:8])
		assert.Equal(t, art.Embeddings[i], art.Fused[i][8:])
	}

	// encoder loss history recorded for the full run
	assert.Len(t, art.TrainLoss, cfg.Encoder.Epochs)

	// separable blobs should classify well on the held-out split
	assert.GreaterOrEqual(t, art.Metrics.Accuracy, 0.85)
	assert.Greater(t, art.Metrics.Micro.AUC, 0.9)
	assert.Greater(t, art.Metrics.BestRound, 0)
	require.Len(t, art.Proba, len(art.Split.YTest))
	require.Len(t, art.Pred, len(art.Split.YTest))
	assert.Len(t, art.FeatureGain, 8+cfg.Encoder.OutputDim)
}

func TestRunPreparedRejectsNarrowEncoder(t *testing.T) {
	prep := blobPrepared(30, 4, 3)
	cfg := smallConfig()
	cfg.Encoder.OutputDim = 2 // three classes cannot index two logits
	_, err := RunPrepared(prep, cfg, zap.NewNop())
	require.Error(t, err)
}

func TestRunFromDataset(t *testing.T) {
	ds := &data.Dataset{
		Columns: []string{"id", "a_baseline", "b_baseline", "c_week4", "severity"},
		Rows:    make([][]string, 0, 60),
	}
	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 60; i++ {
		c := i % 2
		a := rng.NormFloat64()*0.2 + float64(c*3)
		b := rng.NormFloat64() * 0.2
		label := "mild"
		if c == 1 {
			label = "severe"
		}
		ds.Rows = append(ds.Rows, []string{
			"P" + strconv.Itoa(i),
			strconv.FormatFloat(a, 'f', 4, 64),
			strconv.FormatFloat(b, 'f', 4, 64),
			strconv.FormatFloat(rng.NormFloat64(), 'f', 4, 64),
			label,
		})
	}
	cfg := smallConfig()
	cfg.Encoder.HiddenDims = []int{16}
	cfg.Encoder.OutputDim = 4
	cfg.Encoder.Epochs = 25
	cfg.Boost.Rounds = 40

	art, err := Run(ds, cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{"mild", "severe"}, art.Prepared.Classes)
	assert.Equal(t, []string{"a_baseline", "b_baseline"}, art.Prepared.Columns)
	assert.GreaterOrEqual(t, art.Metrics.Accuracy, 0.8)
}
