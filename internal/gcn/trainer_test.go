package gcn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gonum.org/v1/gonum/mat"
)

func TestRunDetectsDivergence(t *testing.T) {
	X, y := clusters(20, 6, 3)
	enc, _ := buildEncoder(t, X, []int{8}, 3, 0.4)

	// an absurd learning rate blows the parameters up after the first
	// update; the loss stays finite but grows without bound
	tr := NewTrainer(enc, 1e12, 0)
	losses, err := tr.Run(X, y, 10, nil)
	require.Error(t, err)

	var te *TrainingError
	require.ErrorAs(t, err, &te)
	assert.GreaterOrEqual(t, te.Epoch, 1)
	assert.Less(t, len(losses), 10, "training must stop at the diverged epoch")
}

func TestRunLossCeilingConfigurable(t *testing.T) {
	X, y := clusters(30, 6, 2)
	enc, _ := buildEncoder(t, X, []int{8}, 4, 0.4)
	tr := NewTrainer(enc, 0.01, 0)
	tr.MaxLoss = 1e-9 // below any reachable cross-entropy

	losses, err := tr.Run(X, y, 5, nil)
	require.Error(t, err)
	var te *TrainingError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.Epoch)
	assert.Empty(t, losses)
}

func TestTrainingErrorMessage(t *testing.T) {
	err := &TrainingError{Epoch: 42, Loss: math.NaN()}
	assert.Contains(t, err.Error(), "42")
	assert.Contains(t, err.Error(), "NaN")
}

func TestSoftmaxCrossEntropy(t *testing.T) {
	// uniform logits: loss = ln(k), gradient rows sum to zero
	logits := mat.NewDense(2, 3, nil)
	loss, dl := softmaxCrossEntropy(logits, []int{0, 2})
	assert.InDelta(t, math.Log(3), loss, 1e-12)

	for i := 0; i < 2; i++ {
		sum := 0.0
		for j := 0; j < 3; j++ {
			sum += dl.At(i, j)
		}
		assert.InDelta(t, 0, sum, 1e-12)
	}
	// true-class gradient is negative, others positive
	assert.Negative(t, dl.At(0, 0))
	assert.Positive(t, dl.At(0, 1))
}

func TestSoftmaxCrossEntropyConfident(t *testing.T) {
	logits := mat.NewDense(1, 2, []float64{10, -10})
	loss, _ := softmaxCrossEntropy(logits, []int{0})
	assert.Less(t, loss, 1e-6)

	lossWrong, _ := softmaxCrossEntropy(logits, []int{1})
	require.Greater(t, lossWrong, 19.0)
}
