package metrics

import (
	"encoding/json"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	personaErrors "github.com/ezoic/persona/pkg/errors"
)

// captureWarnings collects warnings raised while fn runs.
func captureWarnings(t *testing.T, fn func()) []error {
	t.Helper()
	var (
		mu  sync.Mutex
		got []error
	)
	personaErrors.SetWarningHandler(func(w error) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, w)
	})
	defer personaErrors.SetWarningHandler(func(error) {})
	fn()
	return got
}

func vec(values ...float64) *mat.VecDense {
	return mat.NewVecDense(len(values), values)
}

func TestEvaluateThresholdsConcreteScenario(t *testing.T) {
	proba := vec(0.2, 0.4, 0.6, 0.8)
	labels := vec(Negative, Negative, Positive, Positive)

	results, err := EvaluateThresholds(labels, proba, []float64{0.5, 0.9})
	require.NoError(t, err)
	require.Len(t, results, 2)

	at05 := results[0]
	assert.Equal(t, Confusion{TP: 2, FP: 0, TN: 2, FN: 0}, at05.Confusion)
	assert.Equal(t, 1.0, at05.Accuracy)
	assert.Equal(t, 1.0, at05.Sensitivity)
	assert.Equal(t, 1.0, at05.Specificity)

	at09 := results[1]
	assert.Equal(t, Confusion{TP: 0, FP: 0, TN: 2, FN: 2}, at09.Confusion)
	assert.Equal(t, 0.0, at09.Sensitivity)
	assert.True(t, at09.SensitivityDefined())
	assert.Equal(t, 1.0, at09.Specificity)
	assert.Equal(t, 0.5, at09.Accuracy)
}

func TestEvaluateThresholdsInclusiveBoundary(t *testing.T) {
	results, err := EvaluateThresholds(vec(Positive), vec(0.5), []float64{0.5})
	require.NoError(t, err)
	assert.Equal(t, 1, results[0].Confusion.TP)
	assert.Equal(t, 0, results[0].Confusion.FN)
}

func TestEvaluateThresholdsExtremeCutoffs(t *testing.T) {
	proba := vec(0.05, 0.3, 0.55, 0.7, 0.95, 0.0, 1.0)
	labels := vec(0, 1, 0, 1, 1, 0, 1)

	results, err := EvaluateThresholds(labels, proba, []float64{0.0, 1.0, 1.5})
	require.NoError(t, err)

	allPositive := results[0]
	assert.Equal(t, 1.0, allPositive.Sensitivity)
	assert.Equal(t, 0.0, allPositive.Specificity)
	assert.Equal(t, 0, allPositive.Confusion.TN+allPositive.Confusion.FN)

	// p == 1.0 is still Positive at cutoff 1.0
	atOne := results[1]
	assert.Equal(t, 1, atOne.Confusion.TP)

	aboveMax := results[2]
	assert.Equal(t, 0.0, aboveMax.Sensitivity)
	assert.Equal(t, 1.0, aboveMax.Specificity)
	assert.Equal(t, 0, aboveMax.Confusion.TP+aboveMax.Confusion.FP)
}

func TestEvaluateThresholdsPreservesCutoffOrder(t *testing.T) {
	cutoffs := []float64{0.7, 0.1, 0.9, 0.1, 0.4}
	results, err := EvaluateThresholds(vec(0, 1, 1, 0), vec(0.2, 0.8, 0.5, 0.45), cutoffs)
	require.NoError(t, err)
	require.Len(t, results, len(cutoffs))
	for i, r := range results {
		assert.Equal(t, cutoffs[i], r.Cutoff)
	}
	assert.Equal(t, results[1], results[3])
}

func TestEvaluateThresholdsMonotonePredictedPositives(t *testing.T) {
	proba := vec(0.12, 0.33, 0.5, 0.5, 0.61, 0.74, 0.88, 0.15, 0.9, 0.05)
	labels := vec(0, 0, 1, 0, 1, 1, 1, 0, 1, 0)

	results, err := EvaluateThresholds(labels, proba, DefaultCutoffs())
	require.NoError(t, err)

	prev := math.MaxInt
	for _, r := range results {
		predicted := r.Confusion.TP + r.Confusion.FP
		assert.LessOrEqual(t, predicted, prev, "cutoff %v", r.Cutoff)
		assert.Equal(t, proba.Len(), r.Confusion.Total())
		prev = predicted
	}
}

func TestEvaluateThresholdsDeterministic(t *testing.T) {
	proba := vec(0.11, 0.52, 0.49, 0.97, 0.3)
	labels := vec(0, 1, 0, 1, 1)
	cutoffs := DefaultCutoffs()

	first, err := EvaluateThresholds(labels, proba, cutoffs)
	require.NoError(t, err)
	second, err := EvaluateThresholds(labels, proba, cutoffs)
	require.NoError(t, err)

	require.Len(t, second, len(first))
	for i := range first {
		assert.Equal(t, math.Float64bits(first[i].Accuracy), math.Float64bits(second[i].Accuracy))
		assert.Equal(t, math.Float64bits(first[i].Sensitivity), math.Float64bits(second[i].Sensitivity))
		assert.Equal(t, math.Float64bits(first[i].Specificity), math.Float64bits(second[i].Specificity))
	}
}

func TestEvaluateThresholdsUndefinedRates(t *testing.T) {
	var results []ThresholdResult
	warnings := captureWarnings(t, func() {
		var err error
		results, err = EvaluateThresholds(vec(0, 0, 0), vec(0.1, 0.6, 0.9), []float64{0.5})
		require.NoError(t, err)
	})

	r := results[0]
	assert.False(t, r.SensitivityDefined())
	assert.True(t, math.IsNaN(r.Sensitivity))
	assert.True(t, r.SpecificityDefined())
	assert.InDelta(t, 1.0/3.0, r.Specificity, 1e-12)

	require.Len(t, warnings, 1)
	var umw *personaErrors.UndefinedMetricWarning
	require.True(t, personaErrors.As(warnings[0], &umw))
	assert.Equal(t, "sensitivity", umw.Metric)

	warnings = captureWarnings(t, func() {
		results, _ = EvaluateThresholds(vec(1, 1), vec(0.2, 0.7), []float64{0.5})
	})
	assert.False(t, results[0].SpecificityDefined())
	assert.Len(t, warnings, 1)
}

func TestEvaluateThresholdsInvalidInput(t *testing.T) {
	tests := []struct {
		name    string
		yTrue   *mat.VecDense
		proba   *mat.VecDense
		cutoffs []float64
	}{
		{"length mismatch", vec(0, 1), vec(0.5), []float64{0.5}},
		{"probability above one", vec(0, 1), vec(0.5, 1.2), []float64{0.5}},
		{"negative probability", vec(0, 1), vec(-0.1, 0.3), []float64{0.5}},
		{"NaN probability", vec(0, 1), vec(math.NaN(), 0.3), []float64{0.5}},
		{"empty cutoffs", vec(0, 1), vec(0.1, 0.3), nil},
		{"NaN cutoff", vec(0, 1), vec(0.1, 0.3), []float64{0.2, math.NaN()}},
		{"non-binary label", vec(0, 2), vec(0.1, 0.3), []float64{0.5}},
		{"nil labels", nil, vec(0.1), []float64{0.5}},
		{"empty vectors", &mat.VecDense{}, &mat.VecDense{}, []float64{0.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := EvaluateThresholds(tt.yTrue, tt.proba, tt.cutoffs)
			require.Error(t, err)
			assert.Nil(t, results)
			assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput), "got %v", err)
		})
	}
}

func TestCutoffGrid(t *testing.T) {
	grid := DefaultCutoffs()
	require.Len(t, grid, 17)
	assert.Equal(t, 0.10, grid[0])
	assert.Equal(t, 0.15, grid[1])
	assert.Equal(t, 0.5, grid[8])
	assert.Equal(t, 0.90, grid[16])

	grid, err := CutoffGrid(0, 1, 0.1)
	require.NoError(t, err)
	require.Len(t, grid, 11)
	assert.Equal(t, 0.3, grid[3])
	assert.Equal(t, 1.0, grid[10])

	grid, err = CutoffGrid(0.5, 0.5, 0.05)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.5}, grid)

	grid, err = CutoffGrid(0, 1, 1e-5)
	require.NoError(t, err)
	assert.Greater(t, len(grid), 99_000)
	assert.LessOrEqual(t, len(grid), MaxCutoffPoints)

	for _, bad := range [][3]float64{
		{0.1, 0.9, 0},
		{0.9, 0.1, 0.05},
		{math.NaN(), 0.9, 0.05},
		{0.1, math.Inf(1), 0.05},
		{0, 1, 1e-300},
		{0, 1, 1e-7},
		{-1e300, 1e300, 1e-300},
	} {
		_, err := CutoffGrid(bad[0], bad[1], bad[2])
		assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput), "%v", bad)
	}
}

func TestBestThreshold(t *testing.T) {
	results := []ThresholdResult{
		{Cutoff: 0.3, Accuracy: 0.7, Sensitivity: 0.95, Specificity: 0.40},
		{Cutoff: 0.5, Accuracy: 0.9, Sensitivity: 0.90, Specificity: 0.90},
		{Cutoff: 0.6, Accuracy: 0.9, Sensitivity: 0.85, Specificity: 0.95},
		{Cutoff: 0.9, Accuracy: 0.5, Sensitivity: math.NaN(), Specificity: 1},
	}

	best, ok := BestThreshold(results, CriterionYoudenJ)
	require.True(t, ok)
	assert.Equal(t, 0.5, best.Cutoff)

	best, ok = BestThreshold(results, CriterionAccuracy)
	require.True(t, ok)
	assert.Equal(t, 0.5, best.Cutoff)

	_, ok = BestThreshold(results[3:], CriterionYoudenJ)
	assert.False(t, ok)

	best, ok = BestThreshold(results, Criterion("f1"))
	assert.False(t, ok)
	assert.Equal(t, ThresholdResult{}, best)
}

func TestThresholdResultJSONUndefined(t *testing.T) {
	r := ThresholdResult{Cutoff: 0.5, Accuracy: 0.5, Sensitivity: math.NaN(), Specificity: 0.5, Confusion: Confusion{TN: 1, FP: 1}}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"cutoff":0.5,"accuracy":0.5,"sensitivity":null,"specificity":0.5,"confusion":{"tp":0,"fp":1,"tn":1,"fn":0}}`, string(data))
}

type fixedProba struct {
	proba *mat.Dense
	err   error
}

func (f fixedProba) Fit(X, y mat.Matrix) error { return nil }

func (f fixedProba) Predict(X mat.Matrix) (mat.Matrix, error) { return nil, nil }

func (f fixedProba) PredictProba(X mat.Matrix) (mat.Matrix, error) { return f.proba, f.err }

func TestEvaluateClassifierThresholds(t *testing.T) {
	clf := fixedProba{proba: mat.NewDense(4, 2, []float64{
		0.8, 0.2,
		0.6, 0.4,
		0.4, 0.6,
		0.2, 0.8,
	})}
	X := mat.NewDense(4, 1, nil)

	results, err := EvaluateClassifierThresholds(clf, X, vec(0, 0, 1, 1), []float64{0.5})
	require.NoError(t, err)
	assert.Equal(t, 1.0, results[0].Accuracy)

	_, err = EvaluateClassifierThresholds(nil, X, vec(0, 0, 1, 1), []float64{0.5})
	assert.Error(t, err)

	_, err = EvaluateClassifierThresholds(fixedProba{proba: mat.NewDense(4, 1, nil)}, X, vec(0, 0, 1, 1), []float64{0.5})
	assert.True(t, personaErrors.Is(err, personaErrors.ErrInvalidInput))
}
