// Package report renders the pipeline's numeric artifacts into charts.
// Presentation only; nothing here feeds back into the core.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"clinsev/internal/eval"
)

func ensureDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// LossCurve plots a per-step loss series.
func LossCurve(path, title string, losses []float64) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Loss"
	pts := make(plotter.XYs, len(losses))
	for i, l := range losses {
		pts[i].X = float64(i)
		pts[i].Y = l
	}
	if err := plotutil.AddLines(p, "loss", pts); err != nil {
		return err
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}

// ROCChart draws the per-class curves plus the micro and macro averages.
func ROCChart(path string, perClass []eval.Curve, classes []string, micro, macro eval.Curve) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = "ROC curves"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1

	args := make([]interface{}, 0, 2*(len(perClass)+2))
	for c, cv := range perClass {
		name := fmt.Sprintf("%s (AUC %.3f)", classes[c], cv.AUC)
		args = append(args, name, curveXYs(cv))
	}
	args = append(args,
		fmt.Sprintf("micro (AUC %.3f)", micro.AUC), curveXYs(micro),
		fmt.Sprintf("macro (AUC %.3f)", macro.AUC), curveXYs(macro),
	)
	if err := plotutil.AddLines(p, args...); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

func curveXYs(c eval.Curve) plotter.XYs {
	pts := make(plotter.XYs, len(c.FPR))
	for i := range c.FPR {
		pts[i].X = c.FPR[i]
		pts[i].Y = c.TPR[i]
	}
	return pts
}

// PCAScatter projects the embedding matrix onto its first two principal
// components and scatters the samples colored by class.
func PCAScatter(path string, emb [][]float64, y []int, classes []string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	n := len(emb)
	if n == 0 {
		return fmt.Errorf("report: empty embedding matrix")
	}
	d := len(emb[0])
	m := mat.NewDense(n, d, nil)
	for i, row := range emb {
		m.SetRow(i, row)
	}
	var pc stat.PC
	if ok := pc.PrincipalComponents(m, nil); !ok {
		return fmt.Errorf("report: PCA failed on %dx%d embedding matrix", n, d)
	}
	var vec mat.Dense
	pc.VectorsTo(&vec)
	k := 2
	if d < 2 {
		k = d
	}
	var proj mat.Dense
	proj.Mul(m, vec.Slice(0, d, 0, k))

	p := plot.New()
	p.Title.Text = "Embedding PCA projection"
	p.X.Label.Text = "PC1"
	p.Y.Label.Text = "PC2"

	args := make([]interface{}, 0, 2*len(classes))
	for c, name := range classes {
		pts := plotter.XYs{}
		for i := 0; i < n; i++ {
			if y[i] != c {
				continue
			}
			x := proj.At(i, 0)
			yy := 0.0
			if k > 1 {
				yy = proj.At(i, 1)
			}
			pts = append(pts, plotter.XY{X: x, Y: yy})
		}
		args = append(args, name, pts)
	}
	if err := plotutil.AddScatters(p, args...); err != nil {
		return err
	}
	return p.Save(6*vg.Inch, 6*vg.Inch, path)
}

type confusionGrid struct {
	cm [][]int
}

func (g confusionGrid) Dims() (int, int)   { return len(g.cm), len(g.cm) }
func (g confusionGrid) X(c int) float64    { return float64(c) }
func (g confusionGrid) Y(r int) float64    { return float64(len(g.cm) - 1 - r) }
func (g confusionGrid) Z(c, r int) float64 { return float64(g.cm[len(g.cm)-1-r][c]) }

// ConfusionHeatmap renders the confusion matrix with true classes on Y and
// predicted on X.
func ConfusionHeatmap(path string, cm [][]int, classes []string) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = "Confusion matrix"
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "True"
	hm := plotter.NewHeatMap(confusionGrid{cm: cm}, palette.Heat(16, 1))
	p.Add(hm)
	p.NominalX(classes...)
	rev := make([]string, len(classes))
	for i, c := range classes {
		rev[len(classes)-1-i] = c
	}
	p.NominalY(rev...)
	return p.Save(5*vg.Inch, 5*vg.Inch, path)
}

// ImportanceBars draws the top-k gain-based feature importances.
func ImportanceBars(path string, names []string, gains []float64, topK int) error {
	if err := ensureDir(path); err != nil {
		return err
	}
	type fg struct {
		name string
		gain float64
	}
	all := make([]fg, len(names))
	for i := range names {
		all[i] = fg{names[i], gains[i]}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].gain > all[j].gain })
	if topK > 0 && topK < len(all) {
		all = all[:topK]
	}

	vals := make(plotter.Values, len(all))
	labels := make([]string, len(all))
	for i, f := range all {
		vals[i] = f.gain
		labels[i] = f.name
	}
	bars, err := plotter.NewBarChart(vals, vg.Points(20))
	if err != nil {
		return err
	}
	p := plot.New()
	p.Title.Text = "Feature importance (gain)"
	p.Y.Label.Text = "Normalized gain"
	p.Add(bars)
	p.NominalX(labels...)
	p.X.Tick.Label.Rotation = 1.2
	p.X.Tick.Label.XAlign = -0.9
	return p.Save(8*vg.Inch, 4*vg.Inch, path)
}
