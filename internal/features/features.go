package features

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"clinsev/internal/config"
	"clinsev/internal/data"
)

// Prepared holds the aligned output of feature preparation. Row i of X,
// entry i of Y and the original dataset row all refer to the same sample;
// every downstream stage relies on that ordering.
type Prepared struct {
	X       [][]float64 // standardized baseline features
	Y       []int       // encoded labels in [0, C)
	Columns []string    // selected feature column names
	Classes []string    // index -> class name
	Means   []float64
	Stds    []float64
}

func (p *Prepared) NumClasses() int { return len(p.Classes) }

// Prepare runs the full preparation contract: drop rows with a missing
// label, select baseline-only numeric columns, encode the label
// alphabetically, standardize. Row/label misalignment is an error, never a
// silent truncation.
func Prepare(ds *data.Dataset, cfg *config.Config) (*Prepared, error) {
	labelIdx := ds.Column(cfg.LabelColumn)
	if labelIdx < 0 {
		return nil, fmt.Errorf("features: label column %q not found", cfg.LabelColumn)
	}

	rows := make([][]string, 0, len(ds.Rows))
	labels := make([]string, 0, len(ds.Rows))
	for _, row := range ds.Rows {
		if labelIdx >= len(row) || strings.TrimSpace(row[labelIdx]) == "" {
			continue
		}
		rows = append(rows, row)
		labels = append(labels, strings.TrimSpace(row[labelIdx]))
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("features: label column %q has no non-null values", cfg.LabelColumn)
	}

	candidates := selectBaseline(ds.Columns, labelIdx, cfg.BaselineSuffix, cfg.TimepointSuffixes)
	cols, X, err := numericMatrix(ds.Columns, rows, candidates)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("features: no numeric baseline columns after filtering")
	}

	y, classes := EncodeLabels(labels)
	if len(y) != len(X) {
		return nil, fmt.Errorf("features: %d feature rows but %d labels", len(X), len(y))
	}

	Xs, means, stds := Standardize(X)
	return &Prepared{X: Xs, Y: y, Columns: cols, Classes: classes, Means: means, Stds: stds}, nil
}

// selectBaseline keeps columns ending in the baseline suffix plus columns
// carrying no timepoint suffix at all. The label column is never a feature.
func selectBaseline(columns []string, labelIdx int, baselineSuffix string, timepoints []string) []int {
	out := make([]int, 0, len(columns))
	for i, name := range columns {
		if i == labelIdx {
			continue
		}
		if strings.HasSuffix(name, baselineSuffix) {
			out = append(out, i)
			continue
		}
		timepointed := false
		for _, sfx := range timepoints {
			if strings.HasSuffix(name, sfx) {
				timepointed = true
				break
			}
		}
		if !timepointed {
			out = append(out, i)
		}
	}
	return out
}

// numericMatrix keeps the candidate columns whose every value parses as a
// float and materializes them row-major.
func numericMatrix(columns []string, rows [][]string, candidates []int) ([]string, [][]float64, error) {
	numeric := make([]int, 0, len(candidates))
	for _, c := range candidates {
		ok := true
		for _, row := range rows {
			if c >= len(row) {
				return nil, nil, fmt.Errorf("features: row has %d fields, column %q is index %d", len(row), columns[c], c)
			}
			if _, err := strconv.ParseFloat(strings.TrimSpace(row[c]), 64); err != nil {
				ok = false
				break
			}
		}
		if ok {
			numeric = append(numeric, c)
		}
	}

	names := make([]string, len(numeric))
	X := make([][]float64, len(rows))
	for j, c := range numeric {
		names[j] = columns[c]
	}
	for i, row := range rows {
		v := make([]float64, len(numeric))
		for j, c := range numeric {
			f, _ := strconv.ParseFloat(strings.TrimSpace(row[c]), 64)
			v[j] = f
		}
		X[i] = v
	}
	return names, X, nil
}

// EncodeLabels maps class names to [0, C) alphabetically so the encoding
// is stable under row shuffling. Returns the encoded vector and the
// index->name table for inverse lookup.
func EncodeLabels(labels []string) ([]int, []string) {
	seen := map[string]bool{}
	for _, l := range labels {
		seen[l] = true
	}
	classes := make([]string, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Strings(classes)
	idx := make(map[string]int, len(classes))
	for i, c := range classes {
		idx[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = idx[l]
	}
	return y, classes
}

// Standardize shifts and scales each column to zero mean and unit
// variance. Constant columns get scale 1 so they pass through centered.
func Standardize(X [][]float64) (out [][]float64, means, stds []float64) {
	if len(X) == 0 {
		return nil, nil, nil
	}
	n := float64(len(X))
	d := len(X[0])
	means = make([]float64, d)
	stds = make([]float64, d)
	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			dv := v - means[j]
			stds[j] += dv * dv
		}
	}
	for j := range stds {
		stds[j] = math.Sqrt(stds[j] / n)
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	out = make([][]float64, len(X))
	for i, row := range X {
		v := make([]float64, d)
		for j := range row {
			v[j] = (row[j] - means[j]) / stds[j]
		}
		out[i] = v
	}
	return out, means, stds
}

// Fuse concatenates standardized features with embeddings row-wise,
// preserving sample order. Row-count mismatch is an error.
func Fuse(X, emb [][]float64) ([][]float64, error) {
	if len(X) != len(emb) {
		return nil, fmt.Errorf("features: fuse %d feature rows with %d embedding rows", len(X), len(emb))
	}
	out := make([][]float64, len(X))
	for i := range X {
		v := make([]float64, 0, len(X[i])+len(emb[i]))
		v = append(v, X[i]...)
		v = append(v, emb[i]...)
		out[i] = v
	}
	return out, nil
}
