package preprocessing_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ezoic/persona/preprocessing"
	personaErrors "github.com/ezoic/persona/pkg/errors"
)

func TestOneHotEncoder_Fit(t *testing.T) {
	data := [][]string{
		{"Yes", "red"},
		{"No", "blue"},
		{"Yes", "green"},
	}

	encoder := preprocessing.NewOneHotEncoder()
	require.NoError(t, encoder.Fit(data))

	assert.Equal(t, [][]string{{"No", "Yes"}, {"blue", "green", "red"}}, encoder.Categories)
	assert.Equal(t, 5, encoder.NOutputs)
}

func TestOneHotEncoder_Transform(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()
	out, err := encoder.FitTransform([][]string{{"b"}, {"a"}, {"c"}})
	require.NoError(t, err)

	r, c := out.Dims()
	require.Equal(t, 3, r)
	require.Equal(t, 3, c)
	assert.Equal(t, 1.0, out.At(0, 1))
	assert.Equal(t, 1.0, out.At(1, 0))
	assert.Equal(t, 1.0, out.At(2, 2))
	assert.Equal(t, 0.0, out.At(0, 0))
}

func TestOneHotEncoder_DropIfBinary(t *testing.T) {
	data := [][]string{
		{"Yes", "No", "x"},
		{"No", "No", "y"},
		{"Yes", "Yes", "z"},
	}

	encoder := preprocessing.NewOneHotEncoder()
	encoder.Drop = preprocessing.DropIfBinary
	out, err := encoder.FitTransform(data)
	require.NoError(t, err)

	assert.Equal(t,
		[]string{"Stage_fear_Yes", "Drained_Yes", "tag_x", "tag_y", "tag_z"},
		encoder.GetFeatureNamesOut([]string{"Stage_fear", "Drained", "tag"}),
	)

	_, c := out.Dims()
	require.Equal(t, 5, c)
	assert.Equal(t, []float64{1, 0, 1, 0, 0}, rowOf(out, 0))
	assert.Equal(t, []float64{0, 0, 0, 1, 0}, rowOf(out, 1))
	assert.Equal(t, []float64{1, 1, 0, 0, 1}, rowOf(out, 2))
}

func TestOneHotEncoder_DropFirst(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()
	encoder.Drop = preprocessing.DropFirst
	out, err := encoder.FitTransform([][]string{{"a"}, {"b"}, {"c"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"x0_b", "x0_c"}, encoder.GetFeatureNamesOut(nil))
	assert.Equal(t, []float64{0, 0}, rowOf(out, 0))
	assert.Equal(t, []float64{0, 1}, rowOf(out, 2))
}

func TestOneHotEncoder_FixedCategories(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoderWithCategories([][]string{{"Yes", "No"}}, preprocessing.DropIfBinary)
	out, err := encoder.FitTransform([][]string{{"No"}, {"No"}})
	require.NoError(t, err)

	_, c := out.Dims()
	assert.Equal(t, 1, c)
	assert.Equal(t, []string{"flag_Yes"}, encoder.GetFeatureNamesOut([]string{"flag"}))
}

func TestOneHotEncoder_UnknownCategory(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()
	require.NoError(t, encoder.Fit([][]string{{"a"}, {"b"}}))

	out, err := encoder.Transform([][]string{{"zzz"}})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0}, rowOf(out, 0))
}

func TestOneHotEncoder_Errors(t *testing.T) {
	encoder := preprocessing.NewOneHotEncoder()

	_, err := encoder.Transform([][]string{{"a"}})
	var nf *personaErrors.NotFittedError
	assert.True(t, personaErrors.As(err, &nf))
	assert.Nil(t, encoder.GetFeatureNamesOut(nil))

	assert.True(t, personaErrors.Is(encoder.Fit(nil), personaErrors.ErrEmptyData))
	assert.True(t, personaErrors.Is(encoder.Fit([][]string{{"a", "b"}, {"c"}}), personaErrors.ErrInvalidInput))

	encoder.Drop = "last"
	assert.True(t, personaErrors.Is(encoder.Fit([][]string{{"a"}}), personaErrors.ErrInvalidInput))

	encoder.Drop = preprocessing.DropNone
	require.NoError(t, encoder.Fit([][]string{{"a", "b"}}))
	_, err = encoder.Transform([][]string{{"a"}})
	assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput))
}
