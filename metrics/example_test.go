package metrics_test

import (
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/metrics"
)

// ExampleEvaluateThresholds sweeps three cutoffs over four predictions.
func ExampleEvaluateThresholds() {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	proba := mat.NewVecDense(4, []float64{0.2, 0.4, 0.6, 0.8})

	results, err := metrics.EvaluateThresholds(yTrue, proba, []float64{0.3, 0.5, 0.9})
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	for _, r := range results {
		fmt.Printf("cutoff=%.2f accuracy=%.2f sensitivity=%.2f specificity=%.2f\n",
			r.Cutoff, r.Accuracy, r.Sensitivity, r.Specificity)
	}

	// Output: cutoff=0.30 accuracy=0.75 sensitivity=1.00 specificity=0.50
	// cutoff=0.50 accuracy=1.00 sensitivity=1.00 specificity=1.00
	// cutoff=0.90 accuracy=0.50 sensitivity=0.00 specificity=1.00
}

// ExampleDefaultCutoffs shows the default sweep grid.
func ExampleDefaultCutoffs() {
	grid := metrics.DefaultCutoffs()
	fmt.Println(len(grid), grid[0], grid[len(grid)-1])

	// Output: 17 0.1 0.9
}

// ExampleAUC demonstrates ranking quality of probability scores.
func ExampleAUC() {
	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
	yPred := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})

	auc, err := metrics.AUC(yTrue, yPred)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("AUC: %.2f\n", auc)

	// Output: AUC: 0.75
}

// ExampleSummarize computes headline metrics at the default 0.5 cutoff.
func ExampleSummarize() {
	yTrue := mat.NewVecDense(6, []float64{0, 0, 1, 1, 1, 0})
	proba := mat.NewVecDense(6, []float64{0.1, 0.6, 0.7, 0.9, 0.4, 0.2})

	s, err := metrics.Summarize(yTrue, proba, metrics.DefaultDecisionCutoff)
	if err != nil {
		slog.Error("Test failed", "error", err)
		return
	}

	fmt.Printf("accuracy=%.3f precision=%.3f recall=%.3f f1=%.3f\n", s.Accuracy, s.Precision, s.Recall, s.F1)
	fmt.Printf("TP=%d FP=%d TN=%d FN=%d\n", s.Confusion.TP, s.Confusion.FP, s.Confusion.TN, s.Confusion.FN)

	// Output: accuracy=0.667 precision=0.667 recall=0.667 f1=0.667
	// TP=2 FP=1 TN=2 FN=1
}
