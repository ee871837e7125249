package metrics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

var errSingleClass = personaErrors.New("only one class present in y_true")

// ROCCurve computes the receiver operating characteristic curve.
//
// Points are produced at every distinct score, from the highest down, starting
// at (0, 0) and ending at (1, 1). thresholds[i] is the score at which the
// point (fpr[i], tpr[i]) is reached; the first threshold is +Inf.
//
// An error wrapping a single-class condition is returned when yTrue holds
// only positives or only negatives.
func ROCCurve(yTrue, scores *mat.VecDense) (fpr, tpr, thresholds []float64, err error) {
	n, err := validatePair("ROCCurve", yTrue, scores)
	if err != nil {
		return nil, nil, nil, err
	}
	totalPos, err := validateBinaryLabels("yTrue", yTrue)
	if err != nil {
		return nil, nil, nil, err
	}
	totalNeg := n - totalPos
	if totalPos == 0 || totalNeg == 0 {
		return nil, nil, nil, personaErrors.Wrap(errSingleClass, "ROCCurve")
	}

	type pair struct {
		score float64
		label float64
	}
	pairs := make([]pair, n)
	for i := 0; i < n; i++ {
		pairs[i] = pair{score: scores.AtVec(i), label: yTrue.AtVec(i)}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairs[i].score > pairs[j].score
	})

	fpr = append(fpr, 0)
	tpr = append(tpr, 0)
	thresholds = append(thresholds, math.Inf(1))

	tp, fp := 0.0, 0.0
	for i := 0; i < n; {
		score := pairs[i].score
		for i < n && pairs[i].score == score {
			if pairs[i].label == Positive {
				tp++
			} else {
				fp++
			}
			i++
		}
		fpr = append(fpr, fp/float64(totalNeg))
		tpr = append(tpr, tp/float64(totalPos))
		thresholds = append(thresholds, score)
	}

	return fpr, tpr, thresholds, nil
}
