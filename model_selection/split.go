// Package model_selection provides stratified data splitting, k-fold
// cross-validation and exhaustive hyperparameter search.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/pkg/errors"
)

// newRand returns the PCG source used by every splitter, so that one seed
// value reproduces a split across runs and platforms.
func newRand(seed int64) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
}

// groupByClass returns the row indices of every distinct label, with the
// labels in ascending order.
func groupByClass(y *mat.VecDense) ([]float64, map[float64][]int, error) {
	groups := make(map[float64][]int)
	for i := 0; i < y.Len(); i++ {
		v := y.AtVec(i)
		if math.IsNaN(v) {
			return nil, nil, errors.NewValidationError("y", "labels must not be NaN", i)
		}
		groups[v] = append(groups[v], i)
	}
	classes := make([]float64, 0, len(groups))
	for c := range groups {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	return classes, groups, nil
}

// TrainTestSplit partitions the rows of X into a training and a test set,
// stratified on y. Within each class the rows are shuffled with a PCG source
// seeded from seed and the first round(testSize·n_class) become test rows.
// Both index sets are returned sorted; they are disjoint and together cover
// every row.
func TrainTestSplit(X mat.Matrix, y *mat.VecDense, testSize float64, seed int64) (train, test []int, err error) {
	if X == nil || y == nil {
		return nil, nil, errors.NewValueError("TrainTestSplit", "X and y cannot be nil")
	}
	nSamples, _ := X.Dims()
	if nSamples != y.Len() {
		return nil, nil, errors.NewDimensionError("TrainTestSplit", nSamples, y.Len(), 0)
	}
	if nSamples < 2 {
		return nil, nil, errors.NewValueError("TrainTestSplit", "at least two samples are required")
	}
	if !(testSize > 0 && testSize < 1) {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}

	classes, groups, err := groupByClass(y)
	if err != nil {
		return nil, nil, err
	}

	r := newRand(seed)
	for _, c := range classes {
		indices := groups[c]
		r.Shuffle(len(indices), func(i, j int) {
			indices[i], indices[j] = indices[j], indices[i]
		})
		nTest := int(math.Round(testSize * float64(len(indices))))
		test = append(test, indices[:nTest]...)
		train = append(train, indices[nTest:]...)
	}

	if len(test) == 0 || len(train) == 0 {
		return nil, nil, errors.NewValidationError("test_size",
			"produces an empty train or test partition for this dataset", testSize)
	}

	sort.Ints(train)
	sort.Ints(test)
	return train, test, nil
}

// SelectRows copies the rows named by indices into a new matrix.
func SelectRows(X mat.Matrix, indices []int) *mat.Dense {
	_, c := X.Dims()
	out := mat.NewDense(len(indices), c, nil)
	for i, idx := range indices {
		for j := 0; j < c; j++ {
			out.Set(i, j, X.At(idx, j))
		}
	}
	return out
}

// SelectVec copies the elements named by indices into a new vector.
func SelectVec(y mat.Vector, indices []int) *mat.VecDense {
	out := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		out.SetVec(i, y.AtVec(idx))
	}
	return out
}
