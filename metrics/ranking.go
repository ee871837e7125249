package metrics

import (
	"sort"

	"gonum.org/v1/gonum/mat"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// AveragePrecision summarises the precision-recall trade-off of a score
// ranking as the mean of precision@k over every rank k holding a positive:
//
//	AP = Σ(Precision@k × rel_k) / number_of_positives
//
// Samples are ranked by descending score; equal scores keep input order.
// When yTrue holds no positives an UndefinedMetricWarning is raised and 0
// is returned.
//
// Example:
//
//	yTrue := mat.NewVecDense(5, []float64{1, 0, 1, 0, 1})
//	yPred := mat.NewVecDense(5, []float64{0.9, 0.8, 0.7, 0.6, 0.5})
//	ap, err := AveragePrecision(yTrue, yPred) // (1 + 2/3 + 3/5) / 3
func AveragePrecision(yTrue, yPred *mat.VecDense) (float64, error) {
	n, err := validatePair("AveragePrecision", yTrue, yPred)
	if err != nil {
		return 0, err
	}
	positives, err := validateBinaryLabels("yTrue", yTrue)
	if err != nil {
		return 0, err
	}
	if positives == 0 {
		personaErrors.Warn(personaErrors.NewUndefinedMetricWarning("average_precision", "no positive samples in y_true", 0))
		return 0, nil
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return yPred.AtVec(order[a]) > yPred.AtVec(order[b])
	})

	sumPrecisions := 0.0
	hits := 0
	for rank, idx := range order {
		if yTrue.AtVec(idx) == Positive {
			hits++
			sumPrecisions += float64(hits) / float64(rank+1)
		}
	}

	return sumPrecisions / float64(positives), nil
}
