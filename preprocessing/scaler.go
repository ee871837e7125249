// Package preprocessing provides the feature transformers of the analysis.
//
//   - SimpleImputer: fills missing numeric values with the column median and
//     missing categorical values with the column mode
//   - OneHotEncoder: encodes categorical columns (the Yes/No flags) as 0/1 columns
//   - StandardScaler and MinMaxScaler: rescale features ahead of the
//     regularized logistic regression, whose penalty is scale sensitive
//
// Numeric transformers follow the Fit / Transform / FitTransform pattern on
// gonum matrices and satisfy model.Transformer, so they can be placed in a
// pipeline:
//
//	scaler := preprocessing.NewStandardScaler(true, true)
//	if err := scaler.Fit(Xtrain); err != nil {
//		return err
//	}
//	Xscaled, err := scaler.Transform(Xtest)
package preprocessing

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/persona/core/model"
	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// constantTolerance is the spread below which a column is treated as constant
// and left unscaled.
const constantTolerance = 1e-8

// StandardScaler rescales each feature to zero mean and unit variance using
// the population standard deviation.
type StandardScaler struct {
	model.BaseEstimator

	// Mean is the per-feature mean seen during Fit.
	Mean []float64

	// Scale is the per-feature standard deviation, 1 for constant features.
	Scale []float64

	NFeatures int

	WithMean bool
	WithStd  bool
}

// NewStandardScaler creates a StandardScaler. withMean centers features,
// withStd divides by the standard deviation.
func NewStandardScaler(withMean, withStd bool) *StandardScaler {
	return &StandardScaler{
		WithMean: withMean,
		WithStd:  withStd,
	}
}

// NewStandardScalerDefault centers and scales.
func NewStandardScalerDefault() *StandardScaler {
	return NewStandardScaler(true, true)
}

// Fit computes the per-feature mean and standard deviation of X.
func (s *StandardScaler) Fit(X mat.Matrix) (err error) {
	defer personaErrors.Recover(&err, "StandardScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return personaErrors.NewModelError("StandardScaler.Fit", "empty data", personaErrors.ErrEmptyData)
	}

	s.NFeatures = c
	s.Mean = make([]float64, c)
	s.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		mean, std := stat.PopMeanStdDev(col, nil)

		if s.WithMean {
			s.Mean[j] = mean
		}
		s.Scale[j] = 1.0
		if s.WithStd && std >= constantTolerance {
			s.Scale[j] = std
		}
	}

	s.SetFitted()
	return nil
}

// Transform applies (X - mean) / scale with the fitted statistics.
func (s *StandardScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "StandardScaler.Transform")
	if !s.IsFitted() {
		return nil, personaErrors.NewNotFittedError("StandardScaler", "Transform")
	}

	r, c := X.Dims()
	if c != s.NFeatures {
		return nil, personaErrors.NewDimensionError("StandardScaler.Transform", s.NFeatures, c, 1)
	}

	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v - s.Mean[j]) / s.Scale[j]
	}, X)

	return result, nil
}

// FitTransform fits on X and returns X transformed.
func (s *StandardScaler) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "StandardScaler.FitTransform")
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// String returns the scaler's configuration.
func (s *StandardScaler) String() string {
	if !s.IsFitted() {
		return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t)", s.WithMean, s.WithStd)
	}
	return fmt.Sprintf("StandardScaler(with_mean=%t, with_std=%t, n_features=%d)",
		s.WithMean, s.WithStd, s.NFeatures)
}

// MinMaxScaler maps each feature linearly onto FeatureRange using the
// minimum and maximum seen during Fit.
type MinMaxScaler struct {
	model.BaseEstimator

	DataMin []float64
	DataMax []float64

	// Scale is DataMax - DataMin, 1 for constant features.
	Scale []float64

	NFeatures int

	// FeatureRange is the target [min, max].
	FeatureRange [2]float64
}

// NewMinMaxScaler creates a MinMaxScaler targeting featureRange.
func NewMinMaxScaler(featureRange [2]float64) *MinMaxScaler {
	return &MinMaxScaler{
		FeatureRange: featureRange,
	}
}

// NewMinMaxScalerDefault targets [0, 1].
func NewMinMaxScalerDefault() *MinMaxScaler {
	return NewMinMaxScaler([2]float64{0.0, 1.0})
}

// Fit records the per-feature minimum and maximum of X.
func (m *MinMaxScaler) Fit(X mat.Matrix) (err error) {
	defer personaErrors.Recover(&err, "MinMaxScaler.Fit")
	r, c := X.Dims()
	if r == 0 || c == 0 {
		return personaErrors.NewModelError("MinMaxScaler.Fit", "empty data", personaErrors.ErrEmptyData)
	}
	if m.FeatureRange[0] >= m.FeatureRange[1] {
		return personaErrors.NewValidationError("feature_range", "minimum must be below maximum", m.FeatureRange)
	}

	m.NFeatures = c
	m.DataMin = make([]float64, c)
	m.DataMax = make([]float64, c)
	m.Scale = make([]float64, c)

	col := make([]float64, r)
	for j := 0; j < c; j++ {
		mat.Col(col, j, X)
		m.DataMin[j] = floats.Min(col)
		m.DataMax[j] = floats.Max(col)

		m.Scale[j] = m.DataMax[j] - m.DataMin[j]
		if m.Scale[j] < constantTolerance {
			m.Scale[j] = 1.0
		}
	}

	m.SetFitted()
	return nil
}

// Transform scales X onto FeatureRange. Values outside the fitted range map
// outside FeatureRange.
func (m *MinMaxScaler) Transform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "MinMaxScaler.Transform")
	if !m.IsFitted() {
		return nil, personaErrors.NewNotFittedError("MinMaxScaler", "Transform")
	}

	r, c := X.Dims()
	if c != m.NFeatures {
		return nil, personaErrors.NewDimensionError("MinMaxScaler.Transform", m.NFeatures, c, 1)
	}

	width := m.FeatureRange[1] - m.FeatureRange[0]
	result := mat.NewDense(r, c, nil)
	result.Apply(func(i, j int, v float64) float64 {
		return (v-m.DataMin[j])/m.Scale[j]*width + m.FeatureRange[0]
	}, X)

	return result, nil
}

// FitTransform fits on X and returns X transformed.
func (m *MinMaxScaler) FitTransform(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "MinMaxScaler.FitTransform")
	if err := m.Fit(X); err != nil {
		return nil, err
	}
	return m.Transform(X)
}

// NewScaler returns the scaler registered under name: "standard" or "minmax".
func NewScaler(name string) (model.Transformer, error) {
	switch name {
	case "standard", "":
		return NewStandardScalerDefault(), nil
	case "minmax":
		return NewMinMaxScalerDefault(), nil
	default:
		return nil, personaErrors.NewValidationError("scaler", "must be \"standard\" or \"minmax\"", name)
	}
}
