// Package report renders the results of an analysis run as text tables,
// CSV and JSON files, and PNG charts.
package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/plot/vg"

	"github.com/ezoic/persona/dataset"
	"github.com/ezoic/persona/metrics"
	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/pkg/log"
)

// Undefined is printed in place of a rate whose denominator is zero.
const Undefined = "undefined"

// ModelReport holds the test-set evaluation of one trained model.
type ModelReport struct {
	// Name is a file-safe identifier such as "random_forest".
	Name string `json:"name"`

	// Title is the human readable model name.
	Title string `json:"title"`

	BestParams map[string]interface{} `json:"best_params"`
	CVScoring  string                 `json:"cv_scoring"`
	CVScore    float64                `json:"cv_score"`
	CVStd      float64                `json:"cv_std"`

	Summary    metrics.Summary           `json:"summary"`
	Thresholds []metrics.ThresholdResult `json:"thresholds"`

	// BestCutoff is the sweep row with the highest Youden's J, if any.
	BestCutoff *metrics.ThresholdResult `json:"best_cutoff,omitempty"`

	ROC ROCCurve `json:"roc"`

	FeatureNames []string  `json:"feature_names"`
	Importances  []float64 `json:"importances"`
}

// ROCCurve holds the points of a receiver operating characteristic curve.
type ROCCurve struct {
	FPR []float64 `json:"fpr"`
	TPR []float64 `json:"tpr"`
}

// Failure records a model whose evaluation could not complete.
type Failure struct {
	Model string `json:"model"`
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// Report is everything an analysis run produces.
type Report struct {
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
	Seed        int64     `json:"seed"`
	TestSize    float64   `json:"test_size"`
	CVFolds     int       `json:"cv_folds"`

	Rows      int `json:"rows"`
	TrainRows int `json:"train_rows"`
	TestRows  int `json:"test_rows"`

	Classes  dataset.ClassCounts      `json:"classes"`
	Cleaning *dataset.CleaningReport  `json:"cleaning"`
	Features []dataset.FeatureSummary `json:"features"`

	// CorrelationNames labels the rows and columns of Correlation.
	CorrelationNames []string      `json:"-"`
	Correlation      *mat.SymDense `json:"-"`

	Models   []ModelReport `json:"models"`
	Failures []Failure     `json:"failures,omitempty"`
}

// Writer writes a Report to a directory.
type Writer struct {
	Dir    string
	Plots  bool
	Width  vg.Length
	Height vg.Length

	logger log.Logger
}

// Option configures a Writer.
type Option func(*Writer)

// WithPlots enables or disables PNG charts.
func WithPlots(enabled bool) Option {
	return func(w *Writer) {
		w.Plots = enabled
	}
}

// WithPlotSize sets the chart size in inches.
func WithPlotSize(width, height float64) Option {
	return func(w *Writer) {
		w.Width = vg.Length(width) * vg.Inch
		w.Height = vg.Length(height) * vg.Inch
	}
}

// WithLogger sets the logger used for progress messages.
func WithLogger(logger log.Logger) Option {
	return func(w *Writer) {
		w.logger = logger
	}
}

// NewWriter creates a Writer for dir with plots enabled at 6x4 inches.
func NewWriter(dir string, opts ...Option) *Writer {
	w := &Writer{
		Dir:    dir,
		Plots:  true,
		Width:  6 * vg.Inch,
		Height: 4 * vg.Inch,
		logger: log.GetLoggerWithName("report"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write creates the output directory and writes summary.txt, report.json,
// one thresholds_<model>.csv per model and, when enabled, the charts. It
// returns the paths written, in order.
func (w *Writer) Write(r *Report) (paths []string, err error) {
	defer personaErrors.Recover(&err, "Writer.Write")

	if r == nil {
		return nil, personaErrors.NewValueError("Writer.Write", "report is nil")
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return nil, personaErrors.Wrapf(err, "create output directory %s", w.Dir)
	}

	save := func(name string, fn func(io.Writer) error) error {
		path := filepath.Join(w.Dir, name)
		f, err := os.Create(path)
		if err != nil {
			return personaErrors.Wrapf(err, "create %s", path)
		}
		if err := fn(f); err != nil {
			_ = f.Close()
			return personaErrors.Wrapf(err, "write %s", path)
		}
		if err := f.Close(); err != nil {
			return personaErrors.Wrapf(err, "close %s", path)
		}
		paths = append(paths, path)
		return nil
	}

	if err := save("summary.txt", func(out io.Writer) error { return WriteSummary(out, r) }); err != nil {
		return paths, err
	}
	for _, m := range r.Models {
		thresholds := m.Thresholds
		if err := save("thresholds_"+m.Name+".csv", func(out io.Writer) error {
			return WriteThresholdsCSV(out, thresholds)
		}); err != nil {
			return paths, err
		}
	}
	if err := save("report.json", func(out io.Writer) error { return WriteJSON(out, r) }); err != nil {
		return paths, err
	}

	if w.Plots {
		charts, err := w.writePlots(r)
		paths = append(paths, charts...)
		if err != nil {
			return paths, err
		}
	}

	w.logger.Info("Report written",
		log.PathKey, w.Dir,
		"report.files", len(paths),
	)
	return paths, nil
}

// FormatRate formats a rate with four decimals, or Undefined for NaN.
func FormatRate(v float64) string {
	if math.IsNaN(v) {
		return Undefined
	}
	return strconv.FormatFloat(v, 'f', 4, 64)
}

// WriteThresholdsCSV writes one row per cutoff: the rates and the confusion
// counts. Undefined rates are written as Undefined.
func WriteThresholdsCSV(out io.Writer, results []metrics.ThresholdResult) error {
	cw := csv.NewWriter(out)
	if err := cw.Write([]string{"cutoff", "accuracy", "sensitivity", "specificity", "tp", "fp", "tn", "fn"}); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			strconv.FormatFloat(r.Cutoff, 'f', -1, 64),
			FormatRate(r.Accuracy),
			FormatRate(r.Sensitivity),
			FormatRate(r.Specificity),
			strconv.Itoa(r.Confusion.TP),
			strconv.Itoa(r.Confusion.FP),
			strconv.Itoa(r.Confusion.TN),
			strconv.Itoa(r.Confusion.FN),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// jsonFloat encodes NaN and infinities as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}

type jsonFeature struct {
	Name   string    `json:"name"`
	Mean   jsonFloat `json:"mean"`
	Std    jsonFloat `json:"std"`
	Min    jsonFloat `json:"min"`
	Median jsonFloat `json:"median"`
	Max    jsonFloat `json:"max"`
}

type jsonCorrelation struct {
	Names  []string      `json:"names"`
	Matrix [][]jsonFloat `json:"matrix"`
}

// WriteJSON writes r as indented JSON. Undefined values become null.
func WriteJSON(out io.Writer, r *Report) error {
	doc := struct {
		*Report
		Features    []jsonFeature    `json:"features"`
		Correlation *jsonCorrelation `json:"correlation,omitempty"`
	}{Report: r}

	for _, f := range r.Features {
		doc.Features = append(doc.Features, jsonFeature{
			Name: f.Name, Mean: jsonFloat(f.Mean), Std: jsonFloat(f.Std),
			Min: jsonFloat(f.Min), Median: jsonFloat(f.Median), Max: jsonFloat(f.Max),
		})
	}
	if r.Correlation != nil {
		n := r.Correlation.SymmetricDim()
		corr := &jsonCorrelation{Names: r.CorrelationNames, Matrix: make([][]jsonFloat, n)}
		for i := 0; i < n; i++ {
			corr.Matrix[i] = make([]jsonFloat, n)
			for j := 0; j < n; j++ {
				corr.Matrix[i][j] = jsonFloat(r.Correlation.At(i, j))
			}
		}
		doc.Correlation = corr
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return personaErrors.Wrap(enc.Encode(doc), "encode report")
}
