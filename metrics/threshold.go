package metrics

import (
	"encoding/json"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/core/model"
	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// ThresholdResult is the outcome of classifying one probability vector at a
// single cutoff. Sensitivity and Specificity are NaN when undefined.
type ThresholdResult struct {
	Cutoff      float64   `json:"cutoff"`
	Accuracy    float64   `json:"accuracy"`
	Sensitivity float64   `json:"sensitivity"`
	Specificity float64   `json:"specificity"`
	Confusion   Confusion `json:"confusion"`
}

// SensitivityDefined reports whether the evaluated set held any positives.
func (r ThresholdResult) SensitivityDefined() bool {
	return !math.IsNaN(r.Sensitivity)
}

// SpecificityDefined reports whether the evaluated set held any negatives.
func (r ThresholdResult) SpecificityDefined() bool {
	return !math.IsNaN(r.Specificity)
}

// MarshalJSON encodes undefined rates as null.
func (r ThresholdResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Cutoff      float64   `json:"cutoff"`
		Accuracy    *float64  `json:"accuracy"`
		Sensitivity *float64  `json:"sensitivity"`
		Specificity *float64  `json:"specificity"`
		Confusion   Confusion `json:"confusion"`
	}{
		Cutoff:      r.Cutoff,
		Accuracy:    finiteOrNil(r.Accuracy),
		Sensitivity: finiteOrNil(r.Sensitivity),
		Specificity: finiteOrNil(r.Specificity),
		Confusion:   r.Confusion,
	})
}

func finiteOrNil(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// YoudenJ returns sensitivity + specificity - 1, NaN when either is undefined.
func (r ThresholdResult) YoudenJ() float64 {
	return r.Sensitivity + r.Specificity - 1
}

// Default cutoff grid bounds.
const (
	DefaultCutoffStart = 0.10
	DefaultCutoffStop  = 0.90
	DefaultCutoffStep  = 0.05
)

// MaxCutoffPoints caps the length of a grid built by CutoffGrid.
const MaxCutoffPoints = 1_000_000

// gridDecimals bounds the rounding applied to grid points so that
// 0.10 + 16*0.05 is exactly 0.90.
const gridDecimals = 1e9

// CutoffGrid returns start, start+step, ... up to and including stop.
// Each point is computed as start + i*step and rounded to nine decimals,
// so accumulated float error never adds or drops an endpoint.
func CutoffGrid(start, stop, step float64) ([]float64, error) {
	bounds := []struct {
		name  string
		value float64
	}{{"start", start}, {"stop", stop}, {"step", step}}
	for _, b := range bounds {
		if math.IsNaN(b.value) || math.IsInf(b.value, 0) {
			return nil, personaErrors.NewValidationError(b.name, "must be finite", b.value)
		}
	}
	if step <= 0 {
		return nil, personaErrors.NewValidationError("step", "must be positive", step)
	}
	if stop < start {
		return nil, personaErrors.NewValidationError("stop", fmt.Sprintf("must not be below start %v", start), stop)
	}

	span := math.Floor((stop-start)/step + 1e-9)
	if math.IsInf(span, 0) || span+1 > MaxCutoffPoints {
		return nil, personaErrors.NewValidationError("step",
			fmt.Sprintf("too small: grid would exceed %d points", MaxCutoffPoints), step)
	}
	count := int(span) + 1
	grid := make([]float64, count)
	for i := range grid {
		grid[i] = math.Round((start+float64(i)*step)*gridDecimals) / gridDecimals
	}
	return grid, nil
}

// DefaultCutoffs returns the 17-point grid 0.10, 0.15, ..., 0.90.
func DefaultCutoffs() []float64 {
	grid, _ := CutoffGrid(DefaultCutoffStart, DefaultCutoffStop, DefaultCutoffStep)
	return grid
}

// EvaluateThresholds classifies each probability against every cutoff and
// reports accuracy, sensitivity and specificity per cutoff.
//
// A sample is predicted Positive when its probability is >= the cutoff.
// yTrue must hold 0 (Negative) or 1 (Positive); proba must lie in [0, 1].
// One result is returned per cutoff, in input order. Cutoffs outside [0, 1]
// are accepted and produce the all-positive or all-negative confusion.
//
// Sensitivity (TP/(TP+FN)) and Specificity (TN/(TN+FP)) are NaN when their
// denominator is zero; an UndefinedMetricWarning is raised once per call for
// each such rate. Invalid inputs return an error satisfying
// errors.Is(err, errors.ErrInvalidInput).
//
// Example:
//
//	yTrue := mat.NewVecDense(4, []float64{1, 0, 1, 0})
//	proba := mat.NewVecDense(4, []float64{0.9, 0.4, 0.6, 0.2})
//	results, err := metrics.EvaluateThresholds(yTrue, proba, []float64{0.5})
//	// results[0]: accuracy 1.0, sensitivity 1.0, specificity 1.0
func EvaluateThresholds(yTrue, proba *mat.VecDense, cutoffs []float64) ([]ThresholdResult, error) {
	n, err := validatePair("EvaluateThresholds", yTrue, proba)
	if err != nil {
		return nil, err
	}
	if len(cutoffs) == 0 {
		return nil, personaErrors.NewValidationError("cutoffs", "must contain at least one cutoff", 0)
	}
	for i, c := range cutoffs {
		if math.IsNaN(c) {
			return nil, personaErrors.NewValidationError("cutoffs", fmt.Sprintf("cutoff at index %d is NaN", i), c)
		}
	}
	positives, err := validateBinaryLabels("yTrue", yTrue)
	if err != nil {
		return nil, err
	}
	if err := validateProbabilities("proba", proba); err != nil {
		return nil, err
	}

	results := make([]ThresholdResult, len(cutoffs))
	for k, cutoff := range cutoffs {
		var c Confusion
		for i := 0; i < n; i++ {
			c.add(yTrue.AtVec(i) == Positive, proba.AtVec(i) >= cutoff)
		}
		results[k] = ThresholdResult{
			Cutoff:      cutoff,
			Accuracy:    c.Accuracy(),
			Sensitivity: c.Sensitivity(),
			Specificity: c.Specificity(),
			Confusion:   c,
		}
	}

	if positives == 0 {
		personaErrors.Warn(personaErrors.NewUndefinedMetricWarning("sensitivity", "no positive samples in y_true", math.NaN()))
	}
	if positives == n {
		personaErrors.Warn(personaErrors.NewUndefinedMetricWarning("specificity", "no negative samples in y_true", math.NaN()))
	}

	return results, nil
}

// EvaluateClassifierThresholds runs EvaluateThresholds on the positive-class
// probabilities clf assigns to X.
func EvaluateClassifierThresholds(clf model.ProbabilisticClassifier, X mat.Matrix, yTrue *mat.VecDense, cutoffs []float64) ([]ThresholdResult, error) {
	if clf == nil {
		return nil, personaErrors.NewValueError("EvaluateClassifierThresholds", "classifier cannot be nil")
	}
	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, personaErrors.Wrap(err, "EvaluateClassifierThresholds")
	}
	positive, err := PositiveColumn(proba)
	if err != nil {
		return nil, err
	}
	return EvaluateThresholds(yTrue, positive, cutoffs)
}

// Criterion selects the figure of merit used by BestThreshold.
type Criterion string

const (
	CriterionYoudenJ  Criterion = "youden"
	CriterionAccuracy Criterion = "accuracy"
)

// BestThreshold returns the result maximising the criterion. Rows with an
// undefined score are skipped; ties keep the earliest row. ok is false when
// no row has a defined score or the criterion is unknown.
func BestThreshold(results []ThresholdResult, criterion Criterion) (best ThresholdResult, ok bool) {
	bestScore := math.Inf(-1)
	for _, r := range results {
		var score float64
		switch criterion {
		case CriterionAccuracy:
			score = r.Accuracy
		case CriterionYoudenJ:
			score = r.YoudenJ()
		default:
			return ThresholdResult{}, false
		}
		if math.IsNaN(score) {
			continue
		}
		if score > bestScore {
			best, bestScore, ok = r, score, true
		}
	}
	return best, ok
}
