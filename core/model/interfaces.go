package model

import (
	"gonum.org/v1/gonum/mat"
)

// Fitter is a supervised model that learns from X and a column vector y.
type Fitter interface {
	Fit(X, y mat.Matrix) error
}

// Predictor produces one prediction per row of X.
type Predictor interface {
	Predict(X mat.Matrix) (mat.Matrix, error)
}

// Transformer learns a feature transformation and applies it.
type Transformer interface {
	Fit(X mat.Matrix) error
	Transform(X mat.Matrix) (mat.Matrix, error)
	FitTransform(X mat.Matrix) (mat.Matrix, error)
}

// Classifier is a fitted-or-fittable binary classifier.
type Classifier interface {
	Fitter
	Predictor
}

// ProbabilisticClassifier exposes class probabilities. PredictProba returns an
// (n_samples, 2) matrix whose column 1 is the probability of the positive class.
type ProbabilisticClassifier interface {
	Classifier
	PredictProba(X mat.Matrix) (mat.Matrix, error)
}

// FeatureImporter reports one non-negative importance per input feature.
type FeatureImporter interface {
	FeatureImportances() ([]float64, error)
}

// ParamSetter accepts hyperparameters by name, as used by grid search.
type ParamSetter interface {
	SetParams(params map[string]interface{}) error
}
