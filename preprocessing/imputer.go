package preprocessing

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/persona/core/model"
	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// Imputation strategies.
const (
	StrategyMedian       = "median"
	StrategyMean         = "mean"
	StrategyMostFrequent = "most_frequent"
	StrategyConstant     = "constant"
)

// SimpleImputer replaces missing (NaN) numeric values column by column.
//
// With StrategyMedian the fill value is the median of the observed values of
// the column, averaging the two middle values for an even count. A column with
// no observed values cannot be imputed and fails Fit.
type SimpleImputer struct {
	model.BaseEstimator

	Strategy string

	// FillValue is used by StrategyConstant.
	FillValue float64

	// Statistics holds the fitted fill value per column.
	Statistics []float64

	// MissingCounts holds the number of NaN values per column seen during Fit.
	MissingCounts []int

	NFeatures int
}

// NewSimpleImputer creates an imputer with the given strategy.
func NewSimpleImputer(strategy string) *SimpleImputer {
	return &SimpleImputer{Strategy: strategy}
}

// Fit computes the fill value of every column of X, ignoring NaN entries.
func (s *SimpleImputer) Fit(X mat.Matrix) (err error) {
	defer personaErrors.Recover(&err, "SimpleImputer.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return personaErrors.NewModelError("SimpleImputer.Fit", "empty data", personaErrors.ErrEmptyData)
	}

	switch s.Strategy {
	case StrategyMedian, StrategyMean, StrategyMostFrequent, StrategyConstant:
	default:
		return personaErrors.NewValidationError("strategy", "must be one of median, mean, most_frequent, constant", s.Strategy)
	}

	s.NFeatures = c
	s.Statistics = make([]float64, c)
	s.MissingCounts = make([]int, c)

	observed := make([]float64, 0, r)
	for j := 0; j < c; j++ {
		observed = observed[:0]
		for i := 0; i < r; i++ {
			if v := X.At(i, j); math.IsNaN(v) {
				s.MissingCounts[j]++
			} else {
				observed = append(observed, v)
			}
		}

		if s.Strategy == StrategyConstant {
			s.Statistics[j] = s.FillValue
			continue
		}
		if len(observed) == 0 {
			return personaErrors.NewValueError("SimpleImputer.Fit", "column has no observed values to impute from")
		}

		switch s.Strategy {
		case StrategyMedian:
			s.Statistics[j] = Median(observed)
		case StrategyMean:
			s.Statistics[j] = stat.Mean(observed, nil)
		case StrategyMostFrequent:
			s.Statistics[j] = modeFloat(observed)
		}
	}

	s.SetFitted()
	return nil
}

// Transform returns a copy of X with every NaN replaced by its column's fill value.
func (s *SimpleImputer) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "SimpleImputer.Transform")
	if !s.IsFitted() {
		return nil, personaErrors.NewNotFittedError("SimpleImputer", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, personaErrors.NewDimensionError("SimpleImputer.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		if math.IsNaN(v) {
			return s.Statistics[j]
		}
		return v
	}, X)
	return result, nil
}

// FitTransform fits on X and returns X imputed.
func (s *SimpleImputer) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "SimpleImputer.FitTransform")
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// Median returns the median of values, averaging the two middle values when
// the count is even. values is not modified. NaN is returned for no values.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// modeFloat returns the most frequent value; ties go to the value seen first.
func modeFloat(values []float64) float64 {
	counts := make(map[float64]int, len(values))
	best, bestCount := values[0], 0
	for _, v := range values {
		counts[v]++
	}
	for _, v := range values {
		if counts[v] > bestCount {
			best, bestCount = v, counts[v]
		}
	}
	return best
}

// CategoricalImputer replaces missing string values (the empty string)
// column by column with the column mode. Ties between equally frequent
// categories are broken in favour of the category encountered first.
type CategoricalImputer struct {
	model.BaseEstimator

	// Strategy is StrategyMostFrequent or StrategyConstant.
	Strategy string

	// FillValue is used by StrategyConstant.
	FillValue string

	Statistics    []string
	MissingCounts []int
	NFeatures     int
}

// NewCategoricalImputer creates a most-frequent categorical imputer.
func NewCategoricalImputer() *CategoricalImputer {
	return &CategoricalImputer{Strategy: StrategyMostFrequent}
}

// IsMissing reports whether a raw cell counts as missing.
func IsMissing(cell string) bool {
	return cell == ""
}

// Fit computes the fill value of every column of data.
func (c *CategoricalImputer) Fit(data [][]string) (err error) {
	defer personaErrors.Recover(&err, "CategoricalImputer.Fit")
	if len(data) == 0 || len(data[0]) == 0 {
		return personaErrors.NewModelError("CategoricalImputer.Fit", "empty data", personaErrors.ErrEmptyData)
	}
	if c.Strategy != StrategyMostFrequent && c.Strategy != StrategyConstant {
		return personaErrors.NewValidationError("strategy", "must be most_frequent or constant", c.Strategy)
	}

	nFeatures := len(data[0])
	for i, row := range data {
		if len(row) != nFeatures {
			return personaErrors.NewDimensionError("CategoricalImputer.Fit", nFeatures, len(row), i)
		}
	}

	c.NFeatures = nFeatures
	c.Statistics = make([]string, nFeatures)
	c.MissingCounts = make([]int, nFeatures)

	for j := 0; j < nFeatures; j++ {
		counts := make(map[string]int)
		var order []string
		for _, row := range data {
			v := row[j]
			if IsMissing(v) {
				c.MissingCounts[j]++
				continue
			}
			if counts[v] == 0 {
				order = append(order, v)
			}
			counts[v]++
		}

		if c.Strategy == StrategyConstant {
			c.Statistics[j] = c.FillValue
			continue
		}
		if len(order) == 0 {
			return personaErrors.NewValueError("CategoricalImputer.Fit", "column has no observed values to impute from")
		}

		best := order[0]
		for _, v := range order[1:] {
			if counts[v] > counts[best] {
				best = v
			}
		}
		c.Statistics[j] = best
	}

	c.SetFitted()
	return nil
}

// Transform returns a copy of data with missing cells filled.
func (c *CategoricalImputer) Transform(data [][]string) (_ [][]string, err error) {
	defer personaErrors.Recover(&err, "CategoricalImputer.Transform")
	if !c.IsFitted() {
		return nil, personaErrors.NewNotFittedError("CategoricalImputer", "Transform")
	}

	out := make([][]string, len(data))
	for i, row := range data {
		if len(row) != c.NFeatures {
			return nil, personaErrors.NewDimensionError("CategoricalImputer.Transform", c.NFeatures, len(row), 1)
		}
		filled := make([]string, len(row))
		for j, v := range row {
			if IsMissing(v) {
				v = c.Statistics[j]
			}
			filled[j] = v
		}
		out[i] = filled
	}
	return out, nil
}

// FitTransform fits on data and returns data imputed.
func (c *CategoricalImputer) FitTransform(data [][]string) (_ [][]string, err error) {
	defer personaErrors.Recover(&err, "CategoricalImputer.FitTransform")
	if err := c.Fit(data); err != nil {
		return nil, err
	}
	return c.Transform(data)
}
