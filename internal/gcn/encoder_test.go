package gcn

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinsev/internal/graph"
)

// clusters builds three well-separated gaussian blobs.
func clusters(n, d int, seed int64) ([][]float64, []int) {
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
	return X, y
}

func buildEncoder(t *testing.T, X [][]float64, hidden []int, out int, tau float64) (*Encoder, *graph.Graph) {
	t.Helper()
	g, err := graph.Build(X, tau)
	require.NoError(t, err)
	enc, err := New(len(X[0]), DefaultLayers(hidden, out), g, 0.8, 5)
	require.NoError(t, err)
	return enc, g
}

func TestTrainingLossDecreases(t *testing.T) {
	X, y := clusters(100, 20, 9)
	enc, g := buildEncoder(t, X, []int{16, 8}, 3, 0.5)
	require.Greater(t, g.EdgeCount(), 0)
	require.Less(t, g.EdgeCount(), g.N*(g.N-1))

	tr := NewTrainer(enc, 0.01, 5e-4)
	losses, err := tr.Run(X, y, 80, nil)
	require.NoError(t, err)
	require.Len(t, losses, 80)

	head, tail := 0.0, 0.0
	for i := 0; i < 10; i++ {
		head += losses[i]
		tail += losses[len(losses)-1-i]
	}
	assert.Less(t, tail, head, "smoothed loss should decrease")
}

func TestEmbedDeterministic(t *testing.T) {
	X, y := clusters(60, 10, 4)
	enc, _ := buildEncoder(t, X, []int{12}, 6, 0.4)
	tr := NewTrainer(enc, 0.01, 0)
	_, err := tr.Run(X, y, 20, nil)
	require.NoError(t, err)

	a := enc.Embed(X)
	b := enc.Embed(X)
	assert.Equal(t, a, b)
}

func TestEmbedShape(t *testing.T) {
	X, _ := clusters(30, 6, 2)
	enc, _ := buildEncoder(t, X, []int{8}, 5, 0.4)
	emb := enc.Embed(X)
	require.Len(t, emb, 30)
	for _, row := range emb {
		assert.Len(t, row, 5)
	}
	assert.Equal(t, 5, enc.OutputDim())
}

func TestRunRejectsNarrowOutput(t *testing.T) {
	X, y := clusters(30, 6, 2)
	enc, _ := buildEncoder(t, X, []int{8}, 2, 0.4)
	tr := NewTrainer(enc, 0.01, 0)
	_, err := tr.Run(X, y, 5, nil)
	require.Error(t, err) // labels reach 2, output dim is 2
}

func TestRunRowLabelMismatch(t *testing.T) {
	X, y := clusters(30, 6, 2)
	enc, _ := buildEncoder(t, X, []int{8}, 4, 0.4)
	tr := NewTrainer(enc, 0.01, 0)
	_, err := tr.Run(X, y[:10], 5, nil)
	require.Error(t, err)
}

func TestEdgelessGraphStillTrains(t *testing.T) {
	X, y := clusters(30, 6, 7)
	g, err := graph.Build(X, 0.999999)
	require.NoError(t, err)
	require.Equal(t, 0, g.EdgeCount())

	enc, err := New(len(X[0]), DefaultLayers([]int{8}, 3), g, 0.8, 1)
	require.NoError(t, err)
	tr := NewTrainer(enc, 0.01, 0)
	losses, err := tr.Run(X, y, 10, nil)
	require.NoError(t, err)
	assert.Len(t, losses, 10)
}

func TestNewValidation(t *testing.T) {
	g := &graph.Graph{N: 3}
	_, err := New(0, DefaultLayers([]int{4}, 2), g, 0.8, 1)
	require.Error(t, err)
	_, err = New(4, nil, g, 0.8, 1)
	require.Error(t, err)
	_, err = New(4, DefaultLayers([]int{4}, 2), g, 0, 1)
	require.Error(t, err)
	_, err = New(4, DefaultLayers([]int{0}, 2), g, 0.8, 1)
	require.Error(t, err)
}
