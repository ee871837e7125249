// Package metrics provides evaluation metrics for binary classifiers.
//
// Label vectors hold 0 (Negative, Introvert) and 1 (Positive, Extrovert);
// score vectors hold positive-class probabilities from PredictProba.
//
// Hard-prediction metrics:
//   - Accuracy, ClassificationError
//   - Precision, Recall, F1Score, Specificity, BinaryConfusion
//
// Probability metrics:
//   - AUC and ROCCurve
//   - BinaryLogLoss, BrierScore, AveragePrecision
//
// Cutoff sensitivity:
//   - EvaluateThresholds sweeps a list of cutoffs and reports accuracy,
//     sensitivity and specificity at each
//   - CutoffGrid and DefaultCutoffs build the cutoff list
//
// Example usage:
//
//	results, err := metrics.EvaluateThresholds(yTest, proba, metrics.DefaultCutoffs())
//	if err != nil {
//		return err
//	}
//	for _, r := range results {
//		fmt.Printf("%.2f %.3f\n", r.Cutoff, r.Accuracy)
//	}
package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// MSE calculates the Mean Squared Error between yTrue and yPred.
//
//	MSE = (1/n) * Σ(yTrue - yPred)²
func MSE(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("MSE", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := 0; i < n; i++ {
		diff := yTrue.AtVec(i) - yPred.AtVec(i)
		sum += diff * diff
	}

	return sum / float64(n), nil
}

// RMSE is the square root of MSE.
func RMSE(yTrue, yPred *mat.VecDense) (float64, error) {
	mse, err := MSE(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(mse), nil
}

// BrierScore is the MSE between binary labels and positive-class
// probabilities. Lower is better; 0.25 is the score of a constant 0.5.
func BrierScore(yTrue, proba *mat.VecDense) (float64, error) {
	if _, err := validatePair("BrierScore", yTrue, proba); err != nil {
		return 0, err
	}
	if _, err := validateBinaryLabels("yTrue", yTrue); err != nil {
		return 0, err
	}
	if err := validateProbabilities("proba", proba); err != nil {
		return 0, personaErrors.Wrap(err, "BrierScore")
	}
	return MSE(yTrue, proba)
}
