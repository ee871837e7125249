package report

import (
	"fmt"
	"image/color"
	"math"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/ezoic/persona/dataset"
	"github.com/ezoic/persona/metrics"
	personaErrors "github.com/ezoic/persona/pkg/errors"
)

const paletteSize = 255

var nanColor = color.Gray{Y: 0xcc}

// writePlots renders every chart the report has data for.
func (w *Writer) writePlots(r *Report) ([]string, error) {
	var paths []string
	save := func(name string, build func() (*plot.Plot, error)) error {
		p, err := build()
		if err != nil {
			return personaErrors.Wrapf(err, "build %s", name)
		}
		path := filepath.Join(w.Dir, name)
		if err := p.Save(w.Width, w.Height, path); err != nil {
			return personaErrors.Wrapf(err, "save %s", path)
		}
		paths = append(paths, path)
		return nil
	}

	if err := save("class_distribution.png", func() (*plot.Plot, error) {
		return ClassDistributionPlot(r.Classes)
	}); err != nil {
		return paths, err
	}
	if r.Correlation != nil {
		if err := save("correlation_heatmap.png", func() (*plot.Plot, error) {
			return CorrelationHeatmap(r.CorrelationNames, r.Correlation)
		}); err != nil {
			return paths, err
		}
	}

	for _, m := range r.Models {
		if err := save("confusion_"+m.Name+".png", func() (*plot.Plot, error) {
			return ConfusionHeatmap(m.Title, m.Summary.Confusion)
		}); err != nil {
			return paths, err
		}
		if len(m.Importances) > 0 {
			if err := save("feature_importance_"+m.Name+".png", func() (*plot.Plot, error) {
				return FeatureImportancePlot(m.Title, m.FeatureNames, m.Importances)
			}); err != nil {
				return paths, err
			}
		}
	}

	if len(r.Models) > 0 {
		if err := save("roc_curves.png", func() (*plot.Plot, error) {
			return ROCPlot(r.Models)
		}); err != nil {
			return paths, err
		}
		if err := save("threshold_sweep.png", func() (*plot.Plot, error) {
			return ThresholdSweepPlot(r.Models)
		}); err != nil {
			return paths, err
		}
	}
	return paths, nil
}

// ClassDistributionPlot draws one bar per class.
func ClassDistributionPlot(c dataset.ClassCounts) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Class distribution"
	p.Y.Label.Text = "Records"

	bars, err := plotter.NewBarChart(plotter.Values{float64(c.Extrovert), float64(c.Introvert)}, vg.Points(50))
	if err != nil {
		return nil, err
	}
	bars.Color = plotutil.Color(0)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalX(dataset.LabelExtrovert, dataset.LabelIntrovert)
	p.Y.Min = 0
	return p, nil
}

// matrixGrid adapts a matrix to plotter.GridXYZ with row 0 drawn at the top.
type matrixGrid struct {
	m mat.Matrix
}

func (g matrixGrid) Dims() (c, r int) {
	r, c = g.m.Dims()
	return c, r
}

func (g matrixGrid) Z(c, r int) float64 {
	rows, _ := g.m.Dims()
	return g.m.At(rows-1-r, c)
}

func (g matrixGrid) X(c int) float64 { return float64(c) }
func (g matrixGrid) Y(r int) float64 { return float64(r) }

// heatmap builds a labelled heat map of m over [lo, hi].
func heatmap(title string, m mat.Matrix, pal palette.Palette, lo, hi float64,
	xNames, yNames []string, format func(float64) string) (*plot.Plot, error) {

	p := plot.New()
	p.Title.Text = title

	h := plotter.NewHeatMap(matrixGrid{m}, pal)
	h.Min, h.Max = lo, hi
	h.NaN = nanColor
	p.Add(h)

	rows, cols := m.Dims()
	var xys plotter.XYs
	var labels []string
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			xys = append(xys, plotter.XY{X: float64(j), Y: float64(rows - 1 - i)})
			labels = append(labels, format(m.At(i, j)))
		}
	}
	l, err := plotter.NewLabels(plotter.XYLabels{XYs: xys, Labels: labels})
	if err != nil {
		return nil, err
	}
	for i := range l.TextStyle {
		l.TextStyle[i].XAlign = draw.XCenter
		l.TextStyle[i].YAlign = draw.YCenter
	}
	p.Add(l)

	reversed := make([]string, len(yNames))
	for i, name := range yNames {
		reversed[len(yNames)-1-i] = name
	}
	p.NominalX(xNames...)
	p.NominalY(reversed...)
	p.X.Padding = 0
	p.Y.Padding = 0
	return p, nil
}

// CorrelationHeatmap draws a correlation matrix on a diverging blue-red
// scale fixed to [-1, 1].
func CorrelationHeatmap(names []string, corr mat.Symmetric) (*plot.Plot, error) {
	n := corr.SymmetricDim()
	if len(names) != n {
		return nil, personaErrors.NewDimensionError("CorrelationHeatmap", n, len(names), 0)
	}
	pal := moreland.SmoothBlueRed().Palette(paletteSize)
	p, err := heatmap("Feature correlation", corr, pal, -1, 1, names, names, func(v float64) string {
		if math.IsNaN(v) {
			return "-"
		}
		return fmt.Sprintf("%.2f", v)
	})
	if err != nil {
		return nil, err
	}
	p.X.Tick.Label.Rotation = math.Pi / 4
	p.X.Tick.Label.XAlign = draw.XRight
	return p, nil
}

// ConfusionHeatmap draws the 2x2 confusion counts; rows are actual classes
// and columns predicted classes.
func ConfusionHeatmap(title string, c metrics.Confusion) (*plot.Plot, error) {
	m := c.Matrix()
	hi := mat.Max(m)
	if hi == 0 {
		hi = 1
	}
	classes := []string{dataset.LabelIntrovert, dataset.LabelExtrovert}
	pal := moreland.SmoothBlueTan().Palette(paletteSize)
	p, err := heatmap("Confusion matrix: "+title, m, pal, 0, hi, classes, classes, func(v float64) string {
		return fmt.Sprintf("%d", int(v))
	})
	if err != nil {
		return nil, err
	}
	p.X.Label.Text = "Predicted"
	p.Y.Label.Text = "Actual"
	return p, nil
}

// FeatureImportancePlot draws horizontal bars, the most important feature
// at the top.
func FeatureImportancePlot(title string, names []string, importances []float64) (*plot.Plot, error) {
	if len(names) != len(importances) {
		return nil, personaErrors.NewDimensionError("FeatureImportancePlot", len(importances), len(names), 0)
	}

	order := rankByImportance(importances)
	values := make(plotter.Values, len(order))
	labels := make([]string, len(order))
	for i, idx := range order {
		// bars are drawn bottom-up
		values[len(order)-1-i] = importances[idx]
		labels[len(order)-1-i] = names[idx]
	}

	p := plot.New()
	p.Title.Text = "Feature importance: " + title
	p.X.Label.Text = "Importance"

	bars, err := plotter.NewBarChart(values, vg.Points(12))
	if err != nil {
		return nil, err
	}
	bars.Horizontal = true
	bars.Color = plotutil.Color(1)
	bars.LineStyle.Width = 0
	p.Add(bars)
	p.NominalY(labels...)
	p.X.Min = 0
	if floats.Max(values) == 0 {
		p.X.Max = 1
	}
	return p, nil
}

// ROCPlot overlays the ROC curve of every model with the chance diagonal.
func ROCPlot(models []ModelReport) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "ROC curves"
	p.X.Label.Text = "False positive rate"
	p.Y.Label.Text = "True positive rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = false
	p.Legend.Left = false

	var lines []interface{}
	for _, m := range models {
		if len(m.ROC.FPR) == 0 || len(m.ROC.FPR) != len(m.ROC.TPR) {
			continue
		}
		xys := make(plotter.XYs, len(m.ROC.FPR))
		for i := range xys {
			xys[i] = plotter.XY{X: m.ROC.FPR[i], Y: m.ROC.TPR[i]}
		}
		lines = append(lines, fmt.Sprintf("%s (AUC %.3f)", m.Title, m.Summary.AUC), xys)
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, err
	}

	chance := plotter.NewFunction(func(x float64) float64 { return x })
	chance.XMin, chance.XMax = 0, 1
	chance.Color = color.Gray{Y: 0x99}
	chance.Dashes = []vg.Length{vg.Points(4), vg.Points(4)}
	p.Add(chance)
	p.Legend.Add("Chance", chance)
	return p, nil
}

// ThresholdSweepPlot draws sensitivity and specificity against the cutoff
// for every model. Undefined rates are left out of the lines.
func ThresholdSweepPlot(models []ModelReport) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = "Cutoff sensitivity sweep"
	p.X.Label.Text = "Cutoff"
	p.Y.Label.Text = "Rate"
	p.X.Min, p.X.Max = 0, 1
	p.Y.Min, p.Y.Max = 0, 1
	p.Legend.Top = false
	p.Legend.Left = true

	var series []interface{}
	for _, m := range models {
		var sens, spec plotter.XYs
		for _, r := range m.Thresholds {
			if r.SensitivityDefined() {
				sens = append(sens, plotter.XY{X: r.Cutoff, Y: r.Sensitivity})
			}
			if r.SpecificityDefined() {
				spec = append(spec, plotter.XY{X: r.Cutoff, Y: r.Specificity})
			}
		}
		if len(sens) > 0 {
			series = append(series, m.Title+" sensitivity", sens)
		}
		if len(spec) > 0 {
			series = append(series, m.Title+" specificity", spec)
		}
	}
	if err := plotutil.AddLinePoints(p, series...); err != nil {
		return nil, err
	}
	return p, nil
}
