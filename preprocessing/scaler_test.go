package preprocessing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/preprocessing"
	personaErrors "github.com/ezoic/persona/pkg/errors"
)

const epsilon = 1e-10

func TestStandardScaler_BasicFunctionality(t *testing.T) {
	// Feature 1: [1, 2, 3] -> mean=2, std=0.816
	// Feature 2: [4, 5, 6] -> mean=5, std=0.816
	X := mat.NewDense(3, 2, []float64{
		1.0, 4.0,
		2.0, 5.0,
		3.0, 6.0,
	})

	scaler := preprocessing.NewStandardScalerDefault()
	require.NoError(t, scaler.Fit(X))

	assert.InDeltaSlice(t, []float64{2.0, 5.0}, scaler.Mean, epsilon)
	assert.InDeltaSlice(t, []float64{0.816496580927726, 0.816496580927726}, scaler.Scale, epsilon)

	XScaled, err := scaler.Transform(X)
	require.NoError(t, err)

	expected := []float64{
		-1.224744871391589, -1.224744871391589,
		0.0, 0.0,
		1.224744871391589, 1.224744871391589,
	}
	r, c := XScaled.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 2, c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			assert.InDelta(t, expected[i*c+j], XScaled.At(i, j), epsilon)
		}
	}
}

func TestStandardScaler_WithoutMeanOrStd(t *testing.T) {
	X := mat.NewDense(2, 1, []float64{2, 4})

	noMean := preprocessing.NewStandardScaler(false, true)
	out, err := noMean.FitTransform(X)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, out.At(0, 0), epsilon)
	assert.InDelta(t, 4.0, out.At(1, 0), epsilon)

	noStd := preprocessing.NewStandardScaler(true, false)
	out, err = noStd.FitTransform(X)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, out.At(0, 0), epsilon)
	assert.InDelta(t, 1.0, out.At(1, 0), epsilon)
}

func TestStandardScaler_ConstantFeature(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{5, 1, 5, 2, 5, 3})

	scaler := preprocessing.NewStandardScalerDefault()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, 1.0, scaler.Scale[0])
	for i := 0; i < 3; i++ {
		assert.Equal(t, 0.0, out.At(i, 0))
	}
}

func TestStandardScaler_ErrorCases(t *testing.T) {
	scaler := preprocessing.NewStandardScalerDefault()

	_, err := scaler.Transform(mat.NewDense(1, 1, []float64{1}))
	var nf *personaErrors.NotFittedError
	assert.True(t, personaErrors.As(err, &nf))

	require.NoError(t, scaler.Fit(mat.NewDense(2, 2, []float64{1, 2, 3, 4})))
	_, err = scaler.Transform(mat.NewDense(1, 3, nil))
	assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput))

	err = preprocessing.NewStandardScalerDefault().Fit(&mat.Dense{})
	assert.True(t, personaErrors.Is(err, personaErrors.ErrEmptyData))

	assert.Contains(t, scaler.String(), "n_features=2")
}

func TestMinMaxScaler_BasicFunctionality(t *testing.T) {
	X := mat.NewDense(3, 2, []float64{
		1, 10,
		2, 20,
		3, 40,
	})

	scaler := preprocessing.NewMinMaxScalerDefault()
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 10}, scaler.DataMin)
	assert.Equal(t, []float64{3, 40}, scaler.DataMax)
	assert.InDelta(t, 0.0, out.At(0, 0), epsilon)
	assert.InDelta(t, 0.5, out.At(1, 0), epsilon)
	assert.InDelta(t, 1.0/3.0, out.At(1, 1), epsilon)
	assert.InDelta(t, 1.0, out.At(2, 1), epsilon)
}

func TestMinMaxScaler_CustomRangeAndConstant(t *testing.T) {
	X := mat.NewDense(2, 2, []float64{0, 7, 10, 7})

	scaler := preprocessing.NewMinMaxScaler([2]float64{-1, 1})
	out, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, -1.0, out.At(0, 0), epsilon)
	assert.InDelta(t, 1.0, out.At(1, 0), epsilon)
	assert.InDelta(t, -1.0, out.At(0, 1), epsilon)

	bad := preprocessing.NewMinMaxScaler([2]float64{1, 1})
	assert.True(t, personaErrors.Is(bad.Fit(X), personaErrors.ErrInvalidInput))
}

func TestNewScaler(t *testing.T) {
	s, err := preprocessing.NewScaler("standard")
	require.NoError(t, err)
	assert.IsType(t, &preprocessing.StandardScaler{}, s)

	s, err = preprocessing.NewScaler("minmax")
	require.NoError(t, err)
	assert.IsType(t, &preprocessing.MinMaxScaler{}, s)

	_, err = preprocessing.NewScaler("robust")
	assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput))
}
