package gcn

import (
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// defaultMaxLoss is the divergence ceiling. Cross-entropy over C classes
// starts near ln C, so a loss anywhere near this value means the optimizer
// has blown up even when the stable softmax keeps it finite.
const defaultMaxLoss = 1e6

// TrainingError reports a diverged epoch with enough context to diagnose.
type TrainingError struct {
	Epoch int
	Loss  float64
}

func (e *TrainingError) Error() string {
	return fmt.Sprintf("gcn: training diverged, loss %v at epoch %d", e.Loss, e.Epoch)
}

// Trainer owns the optimizer state and epoch counter for one encoder.
// Each Step is one synchronous full-batch forward/backward/update over the
// whole graph.
type Trainer struct {
	enc   *Encoder
	opt   *adam
	epoch int

	// MaxLoss is the per-epoch loss ceiling; any epoch at or above it
	// fails with a TrainingError, as do NaN and Inf.
	MaxLoss float64
}

func NewTrainer(enc *Encoder, lr, weightDecay float64) *Trainer {
	return &Trainer{enc: enc, opt: newAdam(lr, weightDecay), MaxLoss: defaultMaxLoss}
}

// Step runs one training epoch and returns the cross-entropy loss.
func (t *Trainer) Step(x *mat.Dense, y []int) (float64, error) {
	t.epoch++
	logits := t.enc.forward(x, true)
	loss, dlogits := softmaxCrossEntropy(logits, y)
	if math.IsNaN(loss) || math.IsInf(loss, 0) || loss >= t.MaxLoss {
		return loss, &TrainingError{Epoch: t.epoch, Loss: loss}
	}
	for _, p := range t.enc.params() {
		p.zeroGrad()
	}
	t.enc.backward(dlogits)
	t.opt.step(t.enc.params())
	return loss, nil
}

// Run trains for the configured number of epochs and returns the per-epoch
// loss history. The final layer is read directly as class logits, so its
// width must cover the label range.
func (t *Trainer) Run(X [][]float64, y []int, epochs int, logger *zap.Logger) ([]float64, error) {
	if len(X) != len(y) {
		return nil, fmt.Errorf("gcn: %d feature rows but %d labels", len(X), len(y))
	}
	maxLabel := 0
	for _, c := range y {
		if c > maxLabel {
			maxLabel = c
		}
	}
	if maxLabel >= t.enc.OutputDim() {
		return nil, fmt.Errorf("gcn: output dim %d cannot index class %d", t.enc.OutputDim(), maxLabel)
	}

	x := denseFromRows(X)
	losses := make([]float64, 0, epochs)
	for ep := 0; ep < epochs; ep++ {
		loss, err := t.Step(x, y)
		if err != nil {
			return losses, err
		}
		losses = append(losses, loss)
		if logger != nil && (ep%100 == 0 || ep == epochs-1) {
			logger.Info("encoder epoch", zap.Int("epoch", ep), zap.Float64("loss", loss))
		}
	}
	return losses, nil
}

// softmaxCrossEntropy returns the mean negative log-likelihood and the
// gradient with respect to the logits.
func softmaxCrossEntropy(logits *mat.Dense, y []int) (float64, *mat.Dense) {
	n, k := logits.Dims()
	dl := mat.NewDense(n, k, nil)
	loss := 0.0
	inv := 1 / float64(n)
	for i := 0; i < n; i++ {
		maxv := math.Inf(-1)
		for j := 0; j < k; j++ {
			if v := logits.At(i, j); v > maxv {
				maxv = v
			}
		}
		sum := 0.0
		for j := 0; j < k; j++ {
			sum += math.Exp(logits.At(i, j) - maxv)
		}
		logZ := maxv + math.Log(sum)
		loss -= (logits.At(i, y[i]) - logZ) * inv
		for j := 0; j < k; j++ {
			p := math.Exp(logits.At(i, j) - logZ)
			if j == y[i] {
				p -= 1
			}
			dl.Set(i, j, p*inv)
		}
	}
	return loss, dl
}
