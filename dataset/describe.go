package dataset

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/preprocessing"
)

// ClassCounts is the class balance of a dataset.
type ClassCounts struct {
	Extrovert int `json:"extrovert"`
	Introvert int `json:"introvert"`
}

// Total returns the number of records counted.
func (c ClassCounts) Total() int {
	return c.Extrovert + c.Introvert
}

// Proportion returns the share of label, or NaN for an empty count.
func (c ClassCounts) Proportion(label Label) float64 {
	if c.Total() == 0 {
		return math.NaN()
	}
	if label == Extrovert {
		return float64(c.Extrovert) / float64(c.Total())
	}
	return float64(c.Introvert) / float64(c.Total())
}

// ClassDistribution counts the records of each class.
func ClassDistribution(ds *Dataset) ClassCounts {
	var counts ClassCounts
	for _, r := range ds.Records {
		if r.Personality == Extrovert {
			counts.Extrovert++
		} else {
			counts.Introvert++
		}
	}
	return counts
}

// FeatureSummary holds descriptive statistics of one design-matrix column.
type FeatureSummary struct {
	Name   string  `json:"name"`
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
}

// Describe summarises every column of X. names labels the columns.
func Describe(X mat.Matrix, names []string) ([]FeatureSummary, error) {
	r, c := X.Dims()
	if r == 0 {
		return nil, personaErrors.NewValueError("dataset.Describe", "matrix is empty")
	}
	if len(names) != c {
		return nil, personaErrors.NewDimensionError("dataset.Describe", c, len(names), 1)
	}

	out := make([]FeatureSummary, c)
	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, std := stat.MeanStdDev(col, nil)
		out[j] = FeatureSummary{
			Name:   names[j],
			Mean:   mean,
			Std:    std,
			Min:    floats.Min(col),
			Median: preprocessing.Median(col),
			Max:    floats.Max(col),
		}
	}
	return out, nil
}

// CorrelationMatrix returns the Pearson correlation of the columns of X
// together with the target y as the last column. Constant columns correlate
// as NaN.
func CorrelationMatrix(X mat.Matrix, y mat.Vector) (*mat.SymDense, error) {
	r, c := X.Dims()
	if r < 2 {
		return nil, personaErrors.NewValueError("dataset.CorrelationMatrix", "at least two rows are required")
	}
	if y.Len() != r {
		return nil, personaErrors.NewDimensionError("dataset.CorrelationMatrix", r, y.Len(), 0)
	}

	joined := mat.NewDense(r, c+1, nil)
	joined.Slice(0, r, 0, c).(*mat.Dense).Copy(X)
	joined.Slice(0, r, c, c+1).(*mat.Dense).Copy(y)

	corr := mat.NewSymDense(c+1, nil)
	stat.CorrelationMatrix(corr, joined, nil)
	return corr, nil
}
