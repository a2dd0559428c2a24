package main

import (
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"go.uber.org/zap"

	"clinsev/internal/config"
	"clinsev/internal/data"
	"clinsev/internal/pipeline"
	"clinsev/internal/report"
	"clinsev/pkg/utils"
)

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	cfgPath := flag.String("config", "", "YAML config (defaults apply when empty)")
	dataPath := flag.String("data", "data/cohort.csv", "Input CSV")
	regen := flag.Bool("regen", false, "Regenerate the synthetic cohort first")
	n := flag.Int("n", 2000, "Synthetic cohort size")
	outDir := flag.String("out", "artifacts", "Artifact output directory")
	charts := flag.Bool("charts", true, "Render charts after training")
	threshold := flag.Float64("threshold", 0, "Override similarity threshold (0 keeps config)")
	epochs := flag.Int("epochs", 0, "Override encoder epochs (0 keeps config)")
	rounds := flag.Int("rounds", 0, "Override boosting rounds (0 keeps config)")
	seed := flag.Int64("seed", 0, "Override random seed (0 keeps config)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}
	if *threshold != 0 {
		cfg.SimilarityThreshold = *threshold
	}
	if *epochs != 0 {
		cfg.Encoder.Epochs = *epochs
	}
	if *rounds != 0 {
		cfg.Boost.Rounds = *rounds
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	if *regen {
		logger.Info("generating synthetic cohort", zap.Int("n", *n), zap.String("out", *dataPath))
		if err := data.GenerateSyntheticCohort(*n, cfg.Seed, *dataPath); err != nil {
			logger.Fatal("generate cohort", zap.Error(err))
		}
	}

	ds, err := data.LoadCSV(*dataPath)
	if err != nil {
		logger.Fatal("load dataset", zap.Error(err))
	}

	art, err := pipeline.Run(ds, cfg, logger)
	if err != nil {
		logger.Fatal("pipeline", zap.Error(err))
	}

	if err := writeArtifacts(*outDir, art); err != nil {
		logger.Fatal("write artifacts", zap.Error(err))
	}
	logger.Info("artifacts written", zap.String("dir", *outDir))

	if *charts {
		if err := renderCharts(*outDir, art); err != nil {
			logger.Warn("render charts", zap.Error(err))
		} else {
			logger.Info("charts rendered", zap.String("dir", filepath.Join(*outDir, "charts")))
		}
	}
}

// metricsFile is the JSON document consumed by cmd/report and the
// dashboard.
type metricsFile struct {
	Classes []string         `json:"classes"`
	Columns []string         `json:"columns"`
	Metrics pipeline.Metrics `json:"metrics"`
	Gain    []float64        `json:"feature_gain"`
}

func writeArtifacts(dir string, art *pipeline.Artifacts) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	mf := metricsFile{
		Classes: art.Prepared.Classes,
		Columns: fusedColumns(art),
		Metrics: art.Metrics,
		Gain:    art.FeatureGain,
	}
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "metrics.json"), b, 0o644); err != nil {
		return err
	}

	if err := writeSeriesCSV(filepath.Join(dir, "encoder_loss.csv"), "epoch", "loss", art.TrainLoss); err != nil {
		return err
	}
	if err := writeSeriesCSV(filepath.Join(dir, "boost_eval_loss.csv"), "round", "logloss", art.Model.EvalLoss); err != nil {
		return err
	}
	return writeEmbeddingsCSV(filepath.Join(dir, "embeddings.csv"), art)
}

func fusedColumns(art *pipeline.Artifacts) []string {
	cols := append([]string(nil), art.Prepared.Columns...)
	for j := 0; j < art.Encoder.OutputDim(); j++ {
		cols = append(cols, "emb_"+strconv.Itoa(j))
	}
	return cols
}

func writeSeriesCSV(path, xName, yName string, series []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()
	if err := w.Write([]string{xName, yName}); err != nil {
		return err
	}
	for i, v := range series {
		if err := w.Write([]string{strconv.Itoa(i), fmt.Sprintf("%.6f", v)}); err != nil {
			return err
		}
	}
	return nil
}

func writeEmbeddingsCSV(path string, art *pipeline.Artifacts) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := csv.NewWriter(f)
	defer w.Flush()

	dim := art.Encoder.OutputDim()
	header := make([]string, 0, dim+1)
	header = append(header, "label")
	for j := 0; j < dim; j++ {
		header = append(header, "emb_"+strconv.Itoa(j))
	}
	if err := w.Write(header); err != nil {
		return err
	}
	for i, row := range art.Embeddings {
		rec := make([]string, 0, dim+1)
		rec = append(rec, art.Prepared.Classes[art.Prepared.Y[i]])
		for _, v := range row {
			rec = append(rec, fmt.Sprintf("%.6f", v))
		}
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func renderCharts(dir string, art *pipeline.Artifacts) error {
	charts := filepath.Join(dir, "charts")
	prep := art.Prepared
	if err := report.LossCurve(filepath.Join(charts, "encoder_loss.png"), "Encoder training loss", art.TrainLoss); err != nil {
		return err
	}
	if len(art.Model.EvalLoss) > 0 {
		if err := report.LossCurve(filepath.Join(charts, "boost_eval_loss.png"), "Boosting eval log-loss", art.Model.EvalLoss); err != nil {
			return err
		}
	}
	m := art.Metrics
	if err := report.ROCChart(filepath.Join(charts, "roc.png"), m.PerClass, prep.Classes, m.Micro, m.Macro); err != nil {
		return err
	}
	if err := report.PCAScatter(filepath.Join(charts, "embedding_pca.png"), art.Embeddings, prep.Y, prep.Classes); err != nil {
		return err
	}
	if err := report.ConfusionHeatmap(filepath.Join(charts, "confusion.png"), m.Confusion, prep.Classes); err != nil {
		return err
	}
	return report.ImportanceBars(filepath.Join(charts, "importance.png"), fusedColumns(art), art.FeatureGain, 20)
}
