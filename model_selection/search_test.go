package model_selection_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/model_selection"
	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/sklearn/linear_model"
)

// shiftModel scores every row as sigmoid(x0 - shift); the "shift" parameter
// closest to the true boundary wins.
type shiftModel struct {
	shift float64
	fits  int
}

func (m *shiftModel) Fit(X, y mat.Matrix) error {
	m.fits++
	return nil
}

func (m *shiftModel) PredictProba(X mat.Matrix) (mat.Matrix, error) {
	n, _ := X.Dims()
	out := mat.NewDense(n, 2, nil)
	for i := 0; i < n; i++ {
		p := 1 / (1 + math.Exp(-(X.At(i, 0) - m.shift)))
		out.Set(i, 0, 1-p)
		out.Set(i, 1, p)
	}
	return out, nil
}

func (m *shiftModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	proba, err := m.PredictProba(X)
	if err != nil {
		return nil, err
	}
	n, _ := X.Dims()
	out := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		if proba.At(i, 1) >= 0.5 {
			out.Set(i, 0, 1)
		}
	}
	return out, nil
}

func (m *shiftModel) SetParams(params map[string]interface{}) error {
	for k, v := range params {
		if k != "shift" {
			return personaErrors.NewValidationError(k, "unknown parameter", v)
		}
		m.shift = v.(float64)
	}
	return nil
}

// thresholdData has a class boundary at x0 = 5.
func thresholdData() (*mat.Dense, *mat.VecDense) {
	X := mat.NewDense(40, 1, nil)
	y := mat.NewVecDense(40, nil)
	for i := 0; i < 40; i++ {
		x := float64(i) / 4
		X.Set(i, 0, x)
		if x >= 5 {
			y.SetVec(i, 1)
		}
	}
	return X, y
}

func TestParamGrid_Candidates(t *testing.T) {
	grid := model_selection.ParamGrid{
		"b": {1, 2},
		"a": {"x", "y", "z"},
	}
	candidates, err := grid.Candidates()
	require.NoError(t, err)
	require.Len(t, candidates, 6)

	assert.Equal(t, map[string]interface{}{"a": "x", "b": 1}, candidates[0])
	assert.Equal(t, map[string]interface{}{"a": "x", "b": 2}, candidates[1])
	assert.Equal(t, map[string]interface{}{"a": "z", "b": 2}, candidates[5])

	empty, err := model_selection.ParamGrid{}.Candidates()
	require.NoError(t, err)
	assert.Equal(t, []map[string]interface{}{{}}, empty)

	_, err = model_selection.ParamGrid{"a": {}}.Candidates()
	assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput))
}

func TestGridSearchCV_PicksBestCandidate(t *testing.T) {
	X, y := thresholdData()

	factory := func() model_selection.Estimator { return &shiftModel{} }

	for _, scoring := range []string{
		model_selection.ScoringAccuracy,
		model_selection.ScoringNegLogLoss,
	} {
		t.Run(scoring, func(t *testing.T) {
			search := model_selection.NewGridSearchCV(factory, model_selection.ParamGrid{
				"shift": {0.0, 4.9, 9.0},
			})
			search.Scoring = scoring
			search.CV = model_selection.NewStratifiedKFold(4, true, 1)
			require.NoError(t, search.Fit(context.Background(), X, y))

			assert.Equal(t, 4.9, search.BestParams["shift"])
			assert.Equal(t, 1, search.BestIndex)
			assert.Len(t, search.Results, 3)
			assert.Equal(t, 1, search.Results[1].Rank)
			assert.Len(t, search.Results[1].FoldScores, 4)
			assert.Equal(t, search.Results[1].MeanScore, search.BestScore)

			require.IsType(t, &shiftModel{}, search.BestEstimator)
			refit := search.BestEstimator.(*shiftModel)
			assert.Equal(t, 4.9, refit.shift)
			assert.Equal(t, 1, refit.fits)
		})
	}
}

func TestGridSearchCV_TiesKeepFirstCandidate(t *testing.T) {
	X, y := thresholdData()

	search := model_selection.NewGridSearchCV(
		func() model_selection.Estimator { return &shiftModel{} },
		model_selection.ParamGrid{"shift": {4.8, 4.9}},
	)
	search.Scoring = model_selection.ScoringAccuracy
	search.Refit = false
	require.NoError(t, search.Fit(context.Background(), X, y))

	assert.Equal(t, 4.8, search.BestParams["shift"])
	assert.Nil(t, search.BestEstimator)
	assert.Equal(t, 1, search.Results[0].Rank)
	assert.Equal(t, 1, search.Results[1].Rank)
}

func TestGridSearchCV_LogisticRegression(t *testing.T) {
	X, y := thresholdData()

	search := model_selection.NewGridSearchCV(
		func() model_selection.Estimator { return linear_model.NewLogisticRegression() },
		model_selection.ParamGrid{
			"penalty":  {"elasticnet"},
			"C":        {0.1, 1.0},
			"l1_ratio": {0.2, 0.8},
			"max_iter": {500},
		},
	)
	require.NoError(t, search.Fit(context.Background(), X, y))

	assert.Len(t, search.Results, 4)
	assert.Greater(t, search.BestScore, 0.9)

	proba, err := search.BestEstimator.PredictProba(X)
	require.NoError(t, err)
	assert.Greater(t, proba.At(39, 1), proba.At(0, 1))
}

func TestGridSearchCV_Cancelled(t *testing.T) {
	X, y := thresholdData()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	search := model_selection.NewGridSearchCV(
		func() model_selection.Estimator { return &shiftModel{} },
		model_selection.ParamGrid{"shift": {1.0}},
	)
	err := search.Fit(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGridSearchCV_Errors(t *testing.T) {
	X, y := thresholdData()
	factory := func() model_selection.Estimator { return &shiftModel{} }

	search := model_selection.NewGridSearchCV(factory, nil)
	search.Scoring = "f2"
	assert.True(t, personaErrors.Is(search.Fit(context.Background(), X, y), personaErrors.ErrInvalidInput))

	search = model_selection.NewGridSearchCV(factory, model_selection.ParamGrid{"depth": {1}})
	assert.True(t, personaErrors.Is(search.Fit(context.Background(), X, y), personaErrors.ErrInvalidInput))

	search = model_selection.NewGridSearchCV(nil, nil)
	assert.True(t, personaErrors.Is(search.Fit(context.Background(), X, y), personaErrors.ErrInvalidInput))
}

func TestCrossValScore(t *testing.T) {
	X, y := thresholdData()
	folds, err := model_selection.NewStratifiedKFold(5, false, 0).Split(y)
	require.NoError(t, err)

	scorer, err := model_selection.GetScorer(model_selection.ScoringROCAUC)
	require.NoError(t, err)

	scores, err := model_selection.CrossValScore(context.Background(),
		func() model_selection.Estimator { return &shiftModel{} },
		map[string]interface{}{"shift": 5.0}, X, y, folds, scorer, 2)
	require.NoError(t, err)
	require.Len(t, scores, 5)
	for _, s := range scores {
		assert.Equal(t, 1.0, s)
	}
}
