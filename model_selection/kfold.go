package model_selection

import (
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/pkg/errors"
)

// Fold holds the train and test row indices of one cross-validation split.
type Fold struct {
	TrainIndices []int
	TestIndices  []int
}

// StratifiedKFold splits rows into NSplits folds that each preserve the
// class proportions of y.
type StratifiedKFold struct {
	NSplits int
	Shuffle bool
	Seed    int64
}

// NewStratifiedKFold creates a new stratified k-fold splitter
func NewStratifiedKFold(nSplits int, shuffle bool, seed int64) *StratifiedKFold {
	return &StratifiedKFold{
		NSplits: nSplits,
		Shuffle: shuffle,
		Seed:    seed,
	}
}

// GetNSplits returns the number of splits
func (skf *StratifiedKFold) GetNSplits() int {
	return skf.NSplits
}

// Split assigns every row to exactly one test fold. Rows of each class are
// dealt round-robin across folds, continuing where the previous class
// stopped, so fold sizes differ by at most one. Indices are sorted.
func (skf *StratifiedKFold) Split(y *mat.VecDense) ([]Fold, error) {
	if y == nil || y.Len() == 0 {
		return nil, errors.NewValueError("StratifiedKFold.Split", "y cannot be empty")
	}
	if skf.NSplits < 2 {
		return nil, errors.NewValidationError("n_splits", "must be at least 2", skf.NSplits)
	}
	if skf.NSplits > y.Len() {
		return nil, errors.NewValidationError("n_splits", "cannot exceed the number of samples", skf.NSplits)
	}

	classes, groups, err := groupByClass(y)
	if err != nil {
		return nil, err
	}

	r := newRand(skf.Seed)
	assignment := make([]int, y.Len())
	next := 0
	for _, c := range classes {
		indices := groups[c]
		if skf.Shuffle {
			r.Shuffle(len(indices), func(i, j int) {
				indices[i], indices[j] = indices[j], indices[i]
			})
		}
		for _, idx := range indices {
			assignment[idx] = next
			next = (next + 1) % skf.NSplits
		}
	}

	folds := make([]Fold, skf.NSplits)
	for idx, f := range assignment {
		for k := range folds {
			if k == f {
				folds[k].TestIndices = append(folds[k].TestIndices, idx)
			} else {
				folds[k].TrainIndices = append(folds[k].TrainIndices, idx)
			}
		}
	}
	return folds, nil
}
