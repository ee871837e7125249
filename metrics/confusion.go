package metrics

import (
	"math"

	"gonum.org/v1/gonum/mat"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// Confusion holds the four outcome counts of a binary classification.
type Confusion struct {
	TP int `json:"tp"`
	FP int `json:"fp"`
	TN int `json:"tn"`
	FN int `json:"fn"`
}

// Total returns TP+FP+TN+FN.
func (c Confusion) Total() int {
	return c.TP + c.FP + c.TN + c.FN
}

// Accuracy returns (TP+TN)/n, or NaN for an empty confusion.
func (c Confusion) Accuracy() float64 {
	return ratio(c.TP+c.TN, c.Total())
}

// Sensitivity returns TP/(TP+FN) (recall), NaN when there are no positives.
func (c Confusion) Sensitivity() float64 {
	return ratio(c.TP, c.TP+c.FN)
}

// Specificity returns TN/(TN+FP), NaN when there are no negatives.
func (c Confusion) Specificity() float64 {
	return ratio(c.TN, c.TN+c.FP)
}

// Precision returns TP/(TP+FP), NaN when nothing was predicted positive.
func (c Confusion) Precision() float64 {
	return ratio(c.TP, c.TP+c.FP)
}

// F1 returns the harmonic mean of precision and recall, NaN when both
// denominators vanish or when TP is zero with no false outcomes to weigh.
func (c Confusion) F1() float64 {
	return ratio(2*c.TP, 2*c.TP+c.FP+c.FN)
}

// Matrix returns the counts as a 2x2 matrix with rows for the actual class
// and columns for the predicted class, Negative first:
//
//	[[TN FP]
//	 [FN TP]]
func (c Confusion) Matrix() *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		float64(c.TN), float64(c.FP),
		float64(c.FN), float64(c.TP),
	})
}

func ratio(num, den int) float64 {
	if den == 0 {
		return math.NaN()
	}
	return float64(num) / float64(den)
}

// BinaryConfusion counts outcomes of hard predictions yPred against yTrue.
// Both vectors must hold only 0 and 1.
func BinaryConfusion(yTrue, yPred *mat.VecDense) (Confusion, error) {
	n, err := validatePair("BinaryConfusion", yTrue, yPred)
	if err != nil {
		return Confusion{}, err
	}
	if _, err := validateBinaryLabels("yTrue", yTrue); err != nil {
		return Confusion{}, err
	}
	if _, err := validateBinaryLabels("yPred", yPred); err != nil {
		return Confusion{}, err
	}

	var c Confusion
	for i := 0; i < n; i++ {
		c.add(yTrue.AtVec(i) == Positive, yPred.AtVec(i) == Positive)
	}
	return c, nil
}

func (c *Confusion) add(actualPositive, predictedPositive bool) {
	switch {
	case actualPositive && predictedPositive:
		c.TP++
	case actualPositive:
		c.FN++
	case predictedPositive:
		c.FP++
	default:
		c.TN++
	}
}

// Precision calculates TP/(TP+FP) for hard predictions. When no sample is
// predicted positive the score is ill-defined: an UndefinedMetricWarning is
// raised and 0 is returned.
func Precision(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return zeroDivision("precision", "no predicted samples", c.Precision()), nil
}

// Recall calculates TP/(TP+FN). Returns 0 with a warning when yTrue holds
// no positives.
func Recall(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return zeroDivision("recall", "no true samples", c.Sensitivity()), nil
}

// F1Score calculates the harmonic mean of precision and recall. Returns 0
// with a warning when it is ill-defined.
func F1Score(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return zeroDivision("f1", "no true nor predicted samples", c.F1()), nil
}

// Specificity calculates TN/(TN+FP). Returns 0 with a warning when yTrue
// holds no negatives.
func Specificity(yTrue, yPred *mat.VecDense) (float64, error) {
	c, err := BinaryConfusion(yTrue, yPred)
	if err != nil {
		return 0, err
	}
	return zeroDivision("specificity", "no negative samples", c.Specificity()), nil
}

func zeroDivision(metric, condition string, v float64) float64 {
	if math.IsNaN(v) {
		personaErrors.Warn(personaErrors.NewUndefinedMetricWarning(metric, condition, 0))
		return 0
	}
	return v
}
