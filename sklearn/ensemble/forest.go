// Package ensemble provides a bagged random forest of CART trees.
package ensemble

import (
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/core/model"
	"github.com/ezoic/persona/core/parallel"
	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/pkg/log"
	"github.com/ezoic/persona/sklearn/tree"
)

// RandomForestClassifier averages the class probabilities of n_estimators
// decision trees, each fit on a bootstrap sample with a random feature subset
// at every split. Tree i is seeded with random_state+i, so a forest is fully
// reproducible for a given random_state regardless of scheduling.
type RandomForestClassifier struct {
	state *model.StateManager

	// Hyperparameters
	nEstimators     int
	criterion       string
	maxDepth        int // 0 = unlimited
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     string
	bootstrap       bool
	randomState     int64
	nJobs           int // 0 = one worker per CPU

	estimators_         []*tree.DecisionTreeClassifier
	nFeatures_          int
	featureImportances_ []float64

	logger log.Logger
}

// RandomForestOption is a functional option for RandomForestClassifier
type RandomForestOption func(*RandomForestClassifier)

// NewRandomForestClassifier creates a forest with scikit-learn's defaults:
// 100 trees, gini, unlimited depth, max_features "sqrt", bootstrap on.
func NewRandomForestClassifier(opts ...RandomForestOption) *RandomForestClassifier {
	rf := &RandomForestClassifier{
		state:           model.NewStateManager(),
		nEstimators:     100,
		criterion:       "gini",
		minSamplesSplit: 2,
		minSamplesLeaf:  1,
		maxFeatures:     tree.MaxFeaturesSqrt,
		bootstrap:       true,
	}
	for _, opt := range opts {
		opt(rf)
	}
	rf.logger = log.GetLoggerWithName("RandomForestClassifier").With(
		log.ModelNameKey, "RandomForestClassifier",
	)
	return rf
}

// WithNEstimators sets the number of trees
func WithNEstimators(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.nEstimators = n }
}

// WithRFCriterion sets the split criterion of every tree
func WithRFCriterion(criterion string) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.criterion = criterion }
}

// WithRFMaxDepth sets the maximum tree depth; 0 means unlimited.
func WithRFMaxDepth(depth int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.maxDepth = depth }
}

// WithRFMinSamplesSplit sets minimum samples to split a node
func WithRFMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.minSamplesSplit = n }
}

// WithRFMinSamplesLeaf sets minimum samples in a leaf
func WithRFMinSamplesLeaf(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.minSamplesLeaf = n }
}

// WithRFMaxFeatures sets the per-split feature policy ("sqrt", "log2", "all" or an integer)
func WithRFMaxFeatures(policy string) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.maxFeatures = policy }
}

// WithBootstrap toggles bootstrap sampling
func WithBootstrap(b bool) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.bootstrap = b }
}

// WithRFRandomState sets the base seed
func WithRFRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.randomState = seed }
}

// WithNJobs caps the number of trees fit concurrently
func WithNJobs(n int) RandomForestOption {
	return func(rf *RandomForestClassifier) { rf.nJobs = n }
}

// Fit trains all trees concurrently.
func (rf *RandomForestClassifier) Fit(X, y mat.Matrix) (err error) {
	defer personaErrors.Recover(&err, "RandomForestClassifier.Fit")

	if rf.nEstimators < 1 {
		return personaErrors.NewValidationError("n_estimators", "must be >= 1", rf.nEstimators)
	}
	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return personaErrors.NewModelError("RandomForestClassifier.Fit", "empty data", personaErrors.ErrEmptyData)
	}
	if yRows, _ := y.Dims(); yRows != nSamples {
		return personaErrors.NewDimensionError("RandomForestClassifier.Fit", nSamples, yRows, 0)
	}
	if _, err := tree.ResolveMaxFeatures(rf.maxFeatures, nFeatures); err != nil {
		return err
	}

	start := time.Now()
	rf.logger.Info("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.HyperParamsKey, rf.GetParams(),
	)

	rf.state.Reset()
	trees := make([]*tree.DecisionTreeClassifier, rf.nEstimators)
	err = parallel.ForEach(rf.nEstimators, rf.nJobs, func(i int) error {
		seed := rf.randomState + int64(i)
		dt := tree.NewDecisionTreeClassifier(
			tree.WithCriterion(rf.criterion),
			tree.WithMaxDepth(rf.maxDepth),
			tree.WithMinSamplesSplit(rf.minSamplesSplit),
			tree.WithMinSamplesLeaf(rf.minSamplesLeaf),
			tree.WithMaxFeatures(rf.maxFeatures),
			tree.WithDTRandomState(seed),
		)
		if err := dt.FitIndices(X, y, rf.sampleIndices(nSamples, seed)); err != nil {
			return personaErrors.Wrapf(err, "tree %d", i)
		}
		trees[i] = dt
		return nil
	})
	if err != nil {
		return err
	}

	rf.estimators_ = trees
	rf.nFeatures_ = nFeatures
	rf.featureImportances_ = rf.aggregateImportances()
	rf.state.SetDimensions(nFeatures, nSamples)
	rf.state.SetFitted()

	rf.logger.Info("Training completed",
		log.OperationKey, log.OperationFit,
		"forest.trees", len(trees),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// sampleIndices draws a bootstrap sample, or returns every row when
// bootstrap is off.
func (rf *RandomForestClassifier) sampleIndices(n int, seed int64) []int {
	indices := make([]int, n)
	if !rf.bootstrap {
		for j := range indices {
			indices[j] = j
		}
		return indices
	}
	r := rand.New(rand.NewPCG(uint64(seed), uint64(seed)))
	for j := range indices {
		indices[j] = r.IntN(n)
	}
	return indices
}

// aggregateImportances averages the importances of trees that split at least
// once and renormalises the mean to sum to 1.
func (rf *RandomForestClassifier) aggregateImportances() []float64 {
	mean := make([]float64, rf.nFeatures_)
	used := 0
	for _, dt := range rf.estimators_ {
		if dt.GetNLeaves() < 2 {
			continue
		}
		imp, err := dt.FeatureImportances()
		if err != nil {
			continue
		}
		floats.Add(mean, imp)
		used++
	}
	if total := floats.Sum(mean); used > 0 && total > 0 {
		floats.Scale(1/total, mean)
	}
	return mean
}

// PredictProba returns the mean of the trees' leaf class frequencies as an
// (n_samples, 2) matrix.
func (rf *RandomForestClassifier) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "RandomForestClassifier.PredictProba")
	if err := rf.state.RequireFitted("RandomForestClassifier", "PredictProba"); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != rf.nFeatures_ {
		return nil, personaErrors.NewDimensionError("RandomForestClassifier.PredictProba", rf.nFeatures_, nFeatures, 1)
	}

	sum := mat.NewDense(nSamples, 2, nil)
	for _, dt := range rf.estimators_ {
		proba, err := dt.PredictProba(X)
		if err != nil {
			return nil, err
		}
		sum.Add(sum, proba)
	}
	sum.Scale(1/float64(len(rf.estimators_)), sum)
	return sum, nil
}

// Predict returns the class with the highest mean probability; ties go to 0.
func (rf *RandomForestClassifier) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "RandomForestClassifier.Predict")
	proba, err := rf.PredictProba(X)
	if err != nil {
		return nil, err
	}

	dense := proba.(*mat.Dense)
	nSamples, _ := dense.Dims()
	predictions := mat.NewDense(nSamples, 1, nil)
	for i := 0; i < nSamples; i++ {
		predictions.Set(i, 0, float64(floats.MaxIdx(dense.RawRowView(i))))
	}
	return predictions, nil
}

// FeatureImportances returns the mean impurity-decrease importances.
func (rf *RandomForestClassifier) FeatureImportances() ([]float64, error) {
	if err := rf.state.RequireFitted("RandomForestClassifier", "FeatureImportances"); err != nil {
		return nil, err
	}
	return append([]float64(nil), rf.featureImportances_...), nil
}

// Estimators returns the fitted trees.
func (rf *RandomForestClassifier) Estimators() []*tree.DecisionTreeClassifier {
	return rf.estimators_
}

// GetParams returns the model hyperparameters
func (rf *RandomForestClassifier) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_estimators":      rf.nEstimators,
		"criterion":         rf.criterion,
		"max_depth":         rf.maxDepth,
		"min_samples_split": rf.minSamplesSplit,
		"min_samples_leaf":  rf.minSamplesLeaf,
		"max_features":      rf.maxFeatures,
		"bootstrap":         rf.bootstrap,
		"random_state":      rf.randomState,
	}
}

// SetParams sets the model hyperparameters. Numeric values may be given as
// int, int64 or float64; a nil max_depth means unlimited.
func (rf *RandomForestClassifier) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "n_estimators":
			rf.nEstimators, err = model.ParamInt(key, value)
		case "criterion":
			rf.criterion, err = model.ParamString(key, value)
		case "max_depth":
			rf.maxDepth, err = model.ParamInt(key, value)
		case "min_samples_split":
			rf.minSamplesSplit, err = model.ParamInt(key, value)
		case "min_samples_leaf":
			rf.minSamplesLeaf, err = model.ParamInt(key, value)
		case "max_features":
			rf.maxFeatures, err = model.ParamString(key, value)
		case "bootstrap":
			rf.bootstrap, err = model.ParamBool(key, value)
		case "random_state":
			var seed int
			seed, err = model.ParamInt(key, value)
			rf.randomState = int64(seed)
		case "n_jobs":
			rf.nJobs, err = model.ParamInt(key, value)
		default:
			return personaErrors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
