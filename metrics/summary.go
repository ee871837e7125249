package metrics

import (
	"gonum.org/v1/gonum/mat"
)

// DefaultDecisionCutoff is the cutoff used for hard predictions in Summarize.
const DefaultDecisionCutoff = 0.5

// Summary collects the headline test-set metrics of one model.
type Summary struct {
	Accuracy         float64   `json:"accuracy"`
	Precision        float64   `json:"precision"`
	Recall           float64   `json:"recall"`
	F1               float64   `json:"f1"`
	Specificity      float64   `json:"specificity"`
	AUC              float64   `json:"auc"`
	LogLoss          float64   `json:"log_loss"`
	Brier            float64   `json:"brier"`
	AveragePrecision float64   `json:"average_precision"`
	Confusion        Confusion `json:"confusion"`
}

// Summarize computes a Summary from labels and positive-class probabilities,
// deriving hard predictions at cutoff (p >= cutoff is Positive).
func Summarize(yTrue, proba *mat.VecDense, cutoff float64) (Summary, error) {
	n, err := validatePair("Summarize", yTrue, proba)
	if err != nil {
		return Summary{}, err
	}
	if err := validateProbabilities("proba", proba); err != nil {
		return Summary{}, err
	}

	yPred := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		if proba.AtVec(i) >= cutoff {
			yPred.SetVec(i, Positive)
		}
	}

	var s Summary
	if s.Confusion, err = BinaryConfusion(yTrue, yPred); err != nil {
		return Summary{}, err
	}
	s.Accuracy = s.Confusion.Accuracy()
	s.Precision = zeroDivision("precision", "no predicted samples", s.Confusion.Precision())
	s.Recall = zeroDivision("recall", "no true samples", s.Confusion.Sensitivity())
	s.F1 = zeroDivision("f1", "no true nor predicted samples", s.Confusion.F1())
	s.Specificity = zeroDivision("specificity", "no negative samples", s.Confusion.Specificity())

	if s.AUC, err = AUC(yTrue, proba); err != nil {
		return Summary{}, err
	}
	if s.LogLoss, err = BinaryLogLoss(yTrue, proba); err != nil {
		return Summary{}, err
	}
	if s.Brier, err = BrierScore(yTrue, proba); err != nil {
		return Summary{}, err
	}
	if s.AveragePrecision, err = AveragePrecision(yTrue, proba); err != nil {
		return Summary{}, err
	}
	return s, nil
}
