// Package pipeline wires the two-stage model end to end: feature
// preparation, similarity graph, graph encoder training, embedding
// extraction, fusion, boosted ensemble, evaluation. Strictly linear and
// single-pass; every artifact is created once and read-only afterwards.
package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	"clinsev/internal/config"
	"clinsev/internal/data"
	"clinsev/internal/eval"
	"clinsev/internal/features"
	"clinsev/internal/gcn"
	"clinsev/internal/graph"
	"clinsev/internal/models"
)

// Metrics is the evaluation summary over the held-out split.
type Metrics struct {
	Accuracy  float64            `json:"accuracy"`
	Precision float64            `json:"precision"`
	Recall    float64            `json:"recall"`
	F1        float64            `json:"f1"`
	LogLoss   float64            `json:"log_loss"`
	Report    []eval.ClassReport `json:"report"`
	Confusion [][]int            `json:"confusion"`
	PerClass  []eval.Curve       `json:"per_class_roc"`
	Micro     eval.Curve         `json:"micro_roc"`
	Macro     eval.Curve         `json:"macro_roc"`
	EdgeCount int                `json:"edge_count"`
	BestRound int                `json:"best_round"`
}

// Artifacts is everything a reporting layer consumes.
type Artifacts struct {
	Prepared    *features.Prepared
	Graph       *graph.Graph
	Encoder     *gcn.Encoder
	TrainLoss   []float64
	Embeddings  [][]float64
	Fused       [][]float64
	Model       *models.GBDT
	Split       *features.Split
	Pred        []int
	Proba       [][]float64
	Metrics     Metrics
	FeatureGain []float64
}

// Run executes the pipeline on a raw dataset.
func Run(ds *data.Dataset, cfg *config.Config, logger *zap.Logger) (*Artifacts, error) {
	prep, err := features.Prepare(ds, cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("features prepared",
		zap.Int("samples", len(prep.X)),
		zap.Int("features", len(prep.Columns)),
		zap.Int("classes", prep.NumClasses()),
	)
	art, err := RunPrepared(prep, cfg, logger)
	if err != nil {
		return nil, err
	}
	return art, nil
}

// RunPrepared is the core entry contract: standardized features plus
// encoded labels in, embeddings/encoder/ensemble/predictions out.
func RunPrepared(prep *features.Prepared, cfg *config.Config, logger *zap.Logger) (*Artifacts, error) {
	if prep.NumClasses() > cfg.Encoder.OutputDim {
		return nil, fmt.Errorf("pipeline: %d classes exceed encoder output dim %d", prep.NumClasses(), cfg.Encoder.OutputDim)
	}
	art := &Artifacts{Prepared: prep}

	g, err := graph.Build(prep.X, cfg.SimilarityThreshold)
	if err != nil {
		return nil, err
	}
	art.Graph = g
	art.Metrics.EdgeCount = g.EdgeCount()
	if g.EdgeCount() == 0 {
		// degenerate but trainable: self-connections only
		logger.Warn("similarity graph has no edges",
			zap.Float64("threshold", cfg.SimilarityThreshold))
	} else {
		logger.Info("similarity graph built",
			zap.Int("nodes", g.N),
			zap.Int("edges", g.EdgeCount()),
			zap.Float64("threshold", cfg.SimilarityThreshold),
		)
	}

	specs := gcn.DefaultLayers(cfg.Encoder.HiddenDims, cfg.Encoder.OutputDim)
	enc, err := gcn.New(len(prep.Columns), specs, g, cfg.Encoder.DropoutKeep, cfg.Seed)
	if err != nil {
		return nil, err
	}
	art.Encoder = enc

	tr := gcn.NewTrainer(enc, cfg.Encoder.LearningRate, cfg.Encoder.WeightDecay)
	losses, err := tr.Run(prep.X, prep.Y, cfg.Encoder.Epochs, logger)
	if err != nil {
		return nil, err
	}
	art.TrainLoss = losses
	logger.Info("encoder trained",
		zap.Int("epochs", len(losses)),
		zap.Float64("final_loss", losses[len(losses)-1]),
	)

	art.Embeddings = enc.Embed(prep.X)

	fused, err := features.Fuse(prep.X, art.Embeddings)
	if err != nil {
		return nil, err
	}
	art.Fused = fused

	split, err := features.StratifiedSplit(fused, prep.Y, cfg.TestFraction, cfg.Seed)
	if err != nil {
		return nil, err
	}
	art.Split = split

	gb := models.NewGBDT(prep.NumClasses())
	gb.Rounds = cfg.Boost.Rounds
	gb.LearningRate = cfg.Boost.LearningRate
	gb.MaxDepth = cfg.Boost.MaxDepth
	gb.MinSamplesLeaf = cfg.Boost.MinSamplesLeaf
	gb.Subsample = cfg.Boost.Subsample
	gb.ColsampleByTree = cfg.Boost.ColsampleByTree
	gb.RegAlpha = cfg.Boost.RegAlpha
	gb.RegLambda = cfg.Boost.RegLambda
	gb.EarlyStopping = cfg.Boost.EarlyStopping
	gb.Seed = cfg.Seed
	gb.Logger = logger
	if err := gb.FitEval(split.XTrain, split.YTrain, split.XTest, split.YTest); err != nil {
		return nil, err
	}
	art.Model = gb
	art.Metrics.BestRound = gb.BestRound()
	art.FeatureGain = gb.FeatureImportance()
	logger.Info("ensemble trained",
		zap.Int("rounds", len(gb.EvalLoss)),
		zap.Int("best_round", gb.BestRound()),
	)

	art.Pred = gb.Predict(split.XTest)
	art.Proba = gb.PredictProba(split.XTest)
	evaluate(art, prep)
	logger.Info("evaluation",
		zap.Float64("accuracy", art.Metrics.Accuracy),
		zap.Float64("f1", art.Metrics.F1),
		zap.Float64("micro_auc", art.Metrics.Micro.AUC),
		zap.Float64("macro_auc", art.Metrics.Macro.AUC),
	)
	return art, nil
}

func evaluate(art *Artifacts, prep *features.Prepared) {
	k := prep.NumClasses()
	yTest := art.Split.YTest
	m := &art.Metrics
	m.Accuracy = eval.Accuracy(yTest, art.Pred)
	m.Report = eval.Report(yTest, art.Pred, prep.Classes)
	m.Precision, m.Recall, m.F1 = eval.Weighted(m.Report)
	m.Confusion = eval.ConfusionMatrix(yTest, art.Pred, k)
	m.PerClass = eval.PerClassROC(yTest, art.Proba, k)
	m.Micro = eval.MicroROC(yTest, art.Proba, k)
	m.Macro = eval.MacroROC(m.PerClass)
	if ll, err := eval.LogLoss(yTest, art.Proba); err == nil {
		m.LogLoss = ll
	}
}
