// Regenerates the chart suite from a previously written artifact
// directory, without re-running the pipeline.
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

	"clinsev/internal/pipeline"
	"clinsev/internal/report"
	"clinsev/pkg/utils"
)

type metricsFile struct {
	Classes []string         `json:"classes"`
	Columns []string         `json:"columns"`
	Metrics pipeline.Metrics `json:"metrics"`
	Gain    []float64        `json:"feature_gain"`
}

func main() {
	logger := utils.Logger()
	defer logger.Sync()

	artDir := flag.String("artifacts", "artifacts", "Artifact directory written by cmd/pipeline")
	outDir := flag.String("out", "", "Chart output directory (default <artifacts>/charts)")
	topK := flag.Int("top_features", 20, "Features shown in the importance chart")
	flag.Parse()

	charts := *outDir
	if charts == "" {
		charts = filepath.Join(*artDir, "charts")
	}

	mf, err := readMetrics(filepath.Join(*artDir, "metrics.json"))
	if err != nil {
		logger.Fatal("read metrics", zap.Error(err))
	}

	if losses, err := readSeriesCSV(filepath.Join(*artDir, "encoder_loss.csv")); err != nil {
		logger.Warn("encoder loss series", zap.Error(err))
	} else if err := report.LossCurve(filepath.Join(charts, "encoder_loss.png"), "Encoder training loss", losses); err != nil {
		logger.Warn("encoder loss chart", zap.Error(err))
	}
	if losses, err := readSeriesCSV(filepath.Join(*artDir, "boost_eval_loss.csv")); err != nil {
		logger.Warn("boost loss series", zap.Error(err))
	} else if len(losses) > 0 {
		if err := report.LossCurve(filepath.Join(charts, "boost_eval_loss.png"), "Boosting eval log-loss", losses); err != nil {
			logger.Warn("boost loss chart", zap.Error(err))
		}
	}

	m := mf.Metrics
	if err := report.ROCChart(filepath.Join(charts, "roc.png"), m.PerClass, mf.Classes, m.Micro, m.Macro); err != nil {
		logger.Warn("roc chart", zap.Error(err))
	}
	if err := report.ConfusionHeatmap(filepath.Join(charts, "confusion.png"), m.Confusion, mf.Classes); err != nil {
		logger.Warn("confusion chart", zap.Error(err))
	}
	if err := report.ImportanceBars(filepath.Join(charts, "importance.png"), mf.Columns, mf.Gain, *topK); err != nil {
		logger.Warn("importance chart", zap.Error(err))
	}

	emb, labels, err := readEmbeddingsCSV(filepath.Join(*artDir, "embeddings.csv"), mf.Classes)
	if err != nil {
		logger.Warn("embeddings", zap.Error(err))
	} else if err := report.PCAScatter(filepath.Join(charts, "embedding_pca.png"), emb, labels, mf.Classes); err != nil {
		logger.Warn("pca chart", zap.Error(err))
	}

	logger.Info("charts regenerated", zap.String("dir", charts))
}

func readMetrics(path string) (*metricsFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var mf metricsFile
	if err := json.Unmarshal(b, &mf); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &mf, nil
}

func readSeriesCSV(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		v, err := strconv.ParseFloat(rows[i][1], 64)
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w", path, i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func readEmbeddingsCSV(path string, classes []string) ([][]float64, []int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("%s: no embedding rows", path)
	}
	classIdx := map[string]int{}
	for i, c := range classes {
		classIdx[c] = i
	}
	emb := make([][]float64, 0, len(rows)-1)
	labels := make([]int, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		row := rows[i]
		c, ok := classIdx[row[0]]
		if !ok {
			return nil, nil, fmt.Errorf("%s row %d: unknown class %q", path, i, row[0])
		}
		v := make([]float64, len(row)-1)
		for j := 1; j < len(row); j++ {
			f, err := strconv.ParseFloat(row[j], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("%s row %d col %d: %w", path, i, j, err)
			}
			v[j-1] = f
		}
		emb = append(emb, v)
		labels = append(labels, c)
	}
	return emb, labels, nil
}
