package metrics

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// Positive and Negative are the encoded class labels. Extrovert is Positive.
const (
	Positive = 1.0
	Negative = 0.0
)

// validatePair checks the shape of a (labels, scores) pair.
func validatePair(op string, yTrue, yPred *mat.VecDense) (int, error) {
	if yTrue == nil || yPred == nil {
		return 0, personaErrors.NewValueError(op, "input vectors cannot be nil")
	}

	n := yTrue.Len()
	if n == 0 {
		return 0, personaErrors.NewValueError(op, "input vectors cannot be empty")
	}

	if n != yPred.Len() {
		return 0, personaErrors.NewDimensionError(op, n, yPred.Len(), 0)
	}
	return n, nil
}

// validateBinaryLabels checks that every label is 0 or 1 and counts positives.
func validateBinaryLabels(param string, y *mat.VecDense) (int, error) {
	positives := 0
	for i := 0; i < y.Len(); i++ {
		val := y.AtVec(i)
		if val != Negative && val != Positive {
			return 0, personaErrors.NewValidationError(
				param,
				fmt.Sprintf("must contain only binary values (0 or 1), found %v at index %d", val, i),
				val,
			)
		}
		if val == Positive {
			positives++
		}
	}
	return positives, nil
}

// validateProbabilities checks that every value lies in [0, 1].
func validateProbabilities(param string, p *mat.VecDense) error {
	for i := 0; i < p.Len(); i++ {
		v := p.AtVec(i)
		if math.IsNaN(v) || v < 0 || v > 1 {
			return personaErrors.NewValidationError(
				param,
				fmt.Sprintf("probabilities must lie in [0, 1], found %v at index %d", v, i),
				v,
			)
		}
	}
	return nil
}

// AUC calculates the Area Under the ROC Curve for binary classification.
//
// The AUC is the probability that a randomly chosen positive instance is
// scored higher than a randomly chosen negative one. Ties in score count as
// one half.
//
// When yTrue holds a single class the AUC is undefined: an
// UndefinedMetricWarning is raised and 0.5 is returned.
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	yPred := mat.NewVecDense(4, []float64{0.1, 0.4, 0.35, 0.8})
//	auc, err := AUC(yTrue, yPred) // 0.75
func AUC(yTrue, yPred *mat.VecDense) (float64, error) {
	fpr, tpr, _, err := ROCCurve(yTrue, yPred)
	if err != nil {
		if personaErrors.Is(err, errSingleClass) {
			personaErrors.Warn(personaErrors.NewUndefinedMetricWarning("roc_auc", "only one class present in y_true", 0.5))
			return 0.5, nil
		}
		return 0, err
	}

	auc := 0.0
	for i := 1; i < len(fpr); i++ {
		width := fpr[i] - fpr[i-1]
		height := (tpr[i] + tpr[i-1]) / 2
		auc += width * height
	}

	return auc, nil
}

// BinaryLogLoss calculates the binary cross-entropy loss.
//
// Predictions are clipped to [1e-15, 1-1e-15] before taking logarithms.
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{0, 0, 1, 1})
//	yPred := mat.NewVecDense(4, []float64{0.1, 0.2, 0.8, 0.9})
//	loss, err := BinaryLogLoss(yTrue, yPred)
func BinaryLogLoss(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("BinaryLogLoss", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	if _, err := validateBinaryLabels("yTrue", yTrue); err != nil {
		return 0, err
	}

	const epsilon = 1e-15
	loss := 0.0

	for i := 0; i < n; i++ {
		y := yTrue.AtVec(i)
		p := yPred.AtVec(i)

		if p < epsilon {
			p = epsilon
		} else if p > 1-epsilon {
			p = 1 - epsilon
		}

		if y == Positive {
			loss -= math.Log(p)
		} else {
			loss -= math.Log(1 - p)
		}
	}

	return loss / float64(n), nil
}

// ClassificationError calculates the fraction of incorrect predictions.
//
// Example:
//
//	yTrue := mat.NewVecDense(5, []float64{0, 1, 1, 1, 0})
//	yPred := mat.NewVecDense(5, []float64{0, 1, 0, 1, 0})
//	errorRate, err := ClassificationError(yTrue, yPred) // 0.2
func ClassificationError(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("ClassificationError", yTrue, yPred)
	if err != nil {
		return 0, err
	}

	errors := 0
	for i := 0; i < n; i++ {
		if yTrue.AtVec(i) != yPred.AtVec(i) {
			errors++
		}
	}

	return float64(errors) / float64(n), nil
}

// Accuracy calculates the fraction of correct predictions.
func Accuracy(yTrue, yPred *mat.VecDense) (float64, error) {
	errorRate, err := ClassificationError(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return 1.0 - errorRate, nil
}

// PositiveColumn extracts column 1 of a PredictProba result, the
// probability of the positive class.
func PositiveColumn(proba mat.Matrix) (*mat.VecDense, error) {
	if proba == nil {
		return nil, personaErrors.NewValueError("PositiveColumn", "probability matrix cannot be nil")
	}
	r, c := proba.Dims()
	if c != 2 {
		return nil, personaErrors.NewDimensionError("PositiveColumn", 2, c, 1)
	}
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, proba.At(i, 1))
	}
	return out, nil
}

// ColumnVector copies the first column of m into a vector.
func ColumnVector(m mat.Matrix) *mat.VecDense {
	if v, ok := m.(*mat.VecDense); ok {
		return v
	}
	r, _ := m.Dims()
	out := mat.NewVecDense(r, nil)
	for i := 0; i < r; i++ {
		out.SetVec(i, m.At(i, 0))
	}
	return out
}
