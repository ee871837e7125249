package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/ezoic/persona/dataset"
	"github.com/ezoic/persona/metrics"
)

// WriteSummary writes the human readable report: dataset overview, cleaning,
// the model performance table and one cutoff table per model.
func WriteSummary(out io.Writer, r *Report) error {
	b := &errWriter{w: out}

	b.printf("PERSONALITY CLASSIFICATION REPORT\n")
	b.printf("=================================\n\n")
	b.printf("Source: %s\n", r.Source)
	if !r.GeneratedAt.IsZero() {
		b.printf("Generated: %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05"))
	}
	b.printf("Rows: %d (train %d, test %d, test size %.2f, seed %d)\n\n",
		r.Rows, r.TrainRows, r.TestRows, r.TestSize, r.Seed)

	b.printf("CLASS DISTRIBUTION\n")
	b.printf("------------------\n")
	writeClassDistribution(b, r.Classes)
	b.printf("\n")

	if r.Cleaning != nil {
		b.printf("MISSING VALUES\n")
		b.printf("--------------\n")
		writeCleaning(b, r.Cleaning)
		b.printf("\n")
	}

	if len(r.Models) > 0 {
		b.printf("MODEL PERFORMANCE (test set, cutoff %.2f)\n", metrics.DefaultDecisionCutoff)
		b.printf("-----------------------------------------\n")
		writeModelTable(b, r.Models)
		b.printf("\n")
	}

	for _, m := range r.Models {
		b.printf("CUTOFF SWEEP: %s\n", m.Title)
		b.printf("%s\n", strings.Repeat("-", len("CUTOFF SWEEP: ")+len(m.Title)))
		if b.err == nil {
			b.err = WriteThresholdTable(b, m.Thresholds)
		}
		if m.BestCutoff != nil {
			b.printf("Best cutoff by Youden's J: %.2f (sensitivity %s, specificity %s)\n",
				m.BestCutoff.Cutoff, FormatRate(m.BestCutoff.Sensitivity), FormatRate(m.BestCutoff.Specificity))
		}
		if len(m.Importances) > 0 {
			b.printf("Top features: %s\n", strings.Join(topFeatures(m.FeatureNames, m.Importances, 3), ", "))
		}
		b.printf("\n")
	}

	if len(r.Failures) > 0 {
		b.printf("FAILURES\n")
		b.printf("--------\n")
		for _, f := range r.Failures {
			b.printf("%s (%s): %s\n", f.Model, f.Stage, f.Error)
		}
	}
	return b.err
}

// WriteThresholdTable writes the per-cutoff rates, printing Undefined for
// rates with an empty denominator.
func WriteThresholdTable(out io.Writer, results []metrics.ThresholdResult) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Cutoff\tAccuracy\tSensitivity\tSpecificity\tTP\tFP\tTN\tFN\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%.2f\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t\n",
			r.Cutoff, FormatRate(r.Accuracy), FormatRate(r.Sensitivity), FormatRate(r.Specificity),
			r.Confusion.TP, r.Confusion.FP, r.Confusion.TN, r.Confusion.FN)
	}
	return tw.Flush()
}

func writeModelTable(b *errWriter, models []ModelReport) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Model\tAccuracy\tPrecision\tRecall\tF1\tAUC\tLogLoss\tBrier\tAvgPrec\tCV\tBest params")
	for _, m := range models {
		s := m.Summary
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s ± %s\t%s\n",
			m.Title,
			FormatRate(s.Accuracy), FormatRate(s.Precision), FormatRate(s.Recall), FormatRate(s.F1),
			FormatRate(s.AUC), FormatRate(s.LogLoss), FormatRate(s.Brier), FormatRate(s.AveragePrecision),
			FormatRate(m.CVScore), FormatRate(m.CVStd),
			formatParams(m.BestParams))
	}
	if err := tw.Flush(); err != nil && b.err == nil {
		b.err = err
	}
}

func writeClassDistribution(b *errWriter, c dataset.ClassCounts) {
	b.printf("%-10s %6d  %s\n", dataset.LabelExtrovert, c.Extrovert, FormatRate(c.Proportion(dataset.Extrovert)))
	b.printf("%-10s %6d  %s\n", dataset.LabelIntrovert, c.Introvert, FormatRate(c.Proportion(dataset.Introvert)))
}

func writeCleaning(b *errWriter, c *dataset.CleaningReport) {
	tw := tabwriter.NewWriter(b, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Column\tKind\tMissing\tStrategy\tFill")
	for _, col := range c.Columns {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", col.Name, col.Kind, col.Missing, col.Strategy, col.Fill)
	}
	if err := tw.Flush(); err != nil && b.err == nil {
		b.err = err
	}
	b.printf("Total filled: %d of %d rows\n", c.TotalMissing(), c.Rows)
}

// formatParams renders params as "k=v" pairs in key order.
func formatParams(params map[string]interface{}) string {
	if len(params) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, params[k])
	}
	return strings.Join(parts, " ")
}

// topFeatures returns up to n feature names by descending importance.
func topFeatures(names []string, importances []float64, n int) []string {
	order := rankByImportance(importances)
	if len(order) > n {
		order = order[:n]
	}
	out := make([]string, len(order))
	for i, idx := range order {
		name := fmt.Sprintf("x%d", idx)
		if idx < len(names) {
			name = names[idx]
		}
		out[i] = fmt.Sprintf("%s (%.3f)", name, importances[idx])
	}
	return out
}

// rankByImportance returns indices sorted by descending importance; equal
// importances keep their original order.
func rankByImportance(importances []float64) []int {
	order := make([]int, len(importances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return importances[order[a]] > importances[order[b]]
	})
	return order
}

// errWriter remembers the first write error so that a long report can be
// written without checking every call.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) Write(p []byte) (int, error) {
	if e.err != nil {
		return 0, e.err
	}
	n, err := e.w.Write(p)
	e.err = err
	return n, err
}

func (e *errWriter) printf(format string, args ...interface{}) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
