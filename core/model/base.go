// Package model provides the core abstractions shared by persona's estimators.
//
// Two ways of tracking fitted state are available:
//
//   - BaseEstimator: embedded by lightweight transformers (scalers, encoders, imputers)
//   - StateManager: held by composition in classifiers that are fitted concurrently
//     and therefore need a lock around their state
//
// The capability interfaces (Fitter, Predictor, Transformer, ProbabilisticClassifier)
// let the evaluation code stay agnostic of the concrete model:
//
//	var clf model.ProbabilisticClassifier = ensemble.NewRandomForestClassifier()
//	if err := clf.Fit(X, y); err != nil {
//		return err
//	}
//	proba, err := clf.PredictProba(Xtest) // column 1 is P(positive)
package model

// EstimatorState represents the learning state of a model
type EstimatorState int

const (
	// NotFitted indicates the model is not yet trained
	NotFitted EstimatorState = iota
	// Fitted indicates the model has been trained
	Fitted
)

// BaseEstimator is embedded by single-goroutine transformers (scalers,
// encoders, imputers) to track whether Fit has run. It carries no lock;
// classifiers fitted from several goroutines use StateManager instead.
type BaseEstimator struct {
	State EstimatorState
}

// IsFitted reports whether Fit has completed.
func (e *BaseEstimator) IsFitted() bool {
	return e.State == Fitted
}

// SetFitted marks the estimator as fitted. Called by Fit implementations.
func (e *BaseEstimator) SetFitted() {
	e.State = Fitted
}

// Reset returns the estimator to NotFitted.
func (e *BaseEstimator) Reset() {
	e.State = NotFitted
}
