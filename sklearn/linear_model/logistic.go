// Package linear_model provides binary logistic regression with l2, l1 and
// elastic-net penalties.
package linear_model

import (
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/ezoic/persona/core/model"
	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/pkg/log"
)

// Penalties.
const (
	PenaltyL2         = "l2"
	PenaltyL1         = "l1"
	PenaltyElasticNet = "elasticnet"
	PenaltyNone       = "none"
)

// Solvers. SolverAuto picks lbfgs for l2/none and saga for l1/elasticnet.
const (
	SolverAuto  = "auto"
	SolverLBFGS = "lbfgs"
	SolverSAGA  = "saga"
)

const (
	backtrackShrink = 0.5
	minStep         = 1e-12
)

// LogisticRegression implements binary logistic regression.
//
// The objective follows scikit-learn's scaling: the mean log loss plus
// (1-l1_ratio)/(2·C·n)·‖w‖² and l1_ratio/(C·n)·‖w‖₁, with the intercept left
// unpenalised. Smooth problems (l2, none) are solved with L-BFGS; l1 and
// elastic-net use accelerated proximal gradient with soft-thresholding.
// Weights start at zero, so fits are deterministic.
type LogisticRegression struct {
	state *model.StateManager

	// Hyperparameters
	penalty      string
	C            float64 // Inverse regularization strength
	l1Ratio      float64 // Elastic-net mixing, 0 = l2, 1 = l1
	fitIntercept bool
	solver       string
	maxIter      int
	tol          float64

	// Model parameters
	coef_      []float64
	intercept_ float64
	nFeatures_ int
	nIter_     int

	logger log.Logger
}

// LogisticRegressionOption is a functional option for LogisticRegression
type LogisticRegressionOption func(*LogisticRegression)

// NewLogisticRegression creates a new LogisticRegression classifier
func NewLogisticRegression(opts ...LogisticRegressionOption) *LogisticRegression {
	lr := &LogisticRegression{
		state:        model.NewStateManager(),
		penalty:      PenaltyL2,
		C:            1.0,
		l1Ratio:      0.5,
		fitIntercept: true,
		solver:       SolverAuto,
		maxIter:      100,
		tol:          1e-4,
	}

	for _, opt := range opts {
		opt(lr)
	}

	lr.logger = log.GetLoggerWithName("LogisticRegression").With(
		log.ModelNameKey, "LogisticRegression",
	)
	return lr
}

// WithLRPenalty sets the regularization type
func WithLRPenalty(penalty string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.penalty = penalty
	}
}

// WithLRC sets the inverse regularization strength
func WithLRC(c float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.C = c
	}
}

// WithL1Ratio sets the elastic-net mixing parameter
func WithL1Ratio(ratio float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.l1Ratio = ratio
	}
}

// WithLogisticFitIntercept sets whether to fit intercept
func WithLogisticFitIntercept(fit bool) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.fitIntercept = fit
	}
}

// WithLRSolver sets the optimization solver
func WithLRSolver(solver string) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.solver = solver
	}
}

// WithLRMaxIter sets the maximum number of iterations
func WithLRMaxIter(maxIter int) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.maxIter = maxIter
	}
}

// WithLRTol sets the tolerance for stopping criteria
func WithLRTol(tol float64) LogisticRegressionOption {
	return func(lr *LogisticRegression) {
		lr.tol = tol
	}
}

// resolveSolver validates the solver and penalty combination.
func (lr *LogisticRegression) resolveSolver() (string, error) {
	switch lr.penalty {
	case PenaltyL2, PenaltyNone, PenaltyL1, PenaltyElasticNet:
	default:
		return "", personaErrors.NewValidationError("penalty", "must be l2, l1, elasticnet or none", lr.penalty)
	}
	smooth := lr.penalty == PenaltyL2 || lr.penalty == PenaltyNone

	switch lr.solver {
	case SolverAuto, "":
		if smooth {
			return SolverLBFGS, nil
		}
		return SolverSAGA, nil
	case SolverLBFGS:
		if !smooth {
			return "", personaErrors.NewValidationError("solver", "lbfgs supports only l2 or none penalty", lr.solver)
		}
		return SolverLBFGS, nil
	case SolverSAGA:
		return SolverSAGA, nil
	default:
		return "", personaErrors.NewValidationError("solver", "must be auto, lbfgs or saga", lr.solver)
	}
}

func (lr *LogisticRegression) validateParams() error {
	if lr.penalty != PenaltyNone && !(lr.C > 0) {
		return personaErrors.NewValidationError("C", "must be > 0", lr.C)
	}
	if lr.l1Ratio < 0 || lr.l1Ratio > 1 {
		return personaErrors.NewValidationError("l1_ratio", "must be in [0, 1]", lr.l1Ratio)
	}
	if lr.maxIter < 1 {
		return personaErrors.NewValidationError("max_iter", "must be >= 1", lr.maxIter)
	}
	if !(lr.tol > 0) {
		return personaErrors.NewValidationError("tol", "must be > 0", lr.tol)
	}
	return nil
}

// penaltyWeights splits the penalty into the l2 and l1 coefficients applied
// to the mean loss.
func (lr *LogisticRegression) penaltyWeights(nSamples int) (l2, l1 float64) {
	if lr.penalty == PenaltyNone {
		return 0, 0
	}
	scale := 1.0 / (lr.C * float64(nSamples))
	switch lr.penalty {
	case PenaltyL1:
		return 0, scale
	case PenaltyElasticNet:
		return (1 - lr.l1Ratio) * scale, lr.l1Ratio * scale
	default:
		return scale, 0
	}
}

// Fit trains the logistic regression model. y must hold 0/1 labels.
func (lr *LogisticRegression) Fit(X, y mat.Matrix) (err error) {
	defer personaErrors.Recover(&err, "LogisticRegression.Fit")

	if err := lr.validateParams(); err != nil {
		return err
	}
	solver, err := lr.resolveSolver()
	if err != nil {
		return err
	}

	nSamples, nFeatures := X.Dims()
	yRows, yCols := y.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return personaErrors.NewModelError("LogisticRegression.Fit", "empty data", personaErrors.ErrEmptyData)
	}
	if nSamples != yRows {
		return personaErrors.NewDimensionError("LogisticRegression.Fit", nSamples, yRows, 0)
	}
	if yCols != 1 {
		return personaErrors.NewDimensionError("LogisticRegression.Fit", 1, yCols, 1)
	}

	labels := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		switch v := y.At(i, 0); v {
		case 0, 1:
			labels.SetVec(i, v)
		default:
			return personaErrors.NewValidationError("y", "labels must be 0 or 1", v)
		}
	}

	l2, l1 := lr.penaltyWeights(nSamples)
	obj := &objective{
		X:            mat.DenseCopyOf(X),
		y:            labels,
		l2:           l2,
		fitIntercept: lr.fitIntercept,
	}

	start := time.Now()
	lr.logger.Debug("Training started",
		log.OperationKey, log.OperationFit,
		log.SamplesKey, nSamples,
		log.FeaturesKey, nFeatures,
		log.RegularizationKey, lr.penalty,
		"solver", solver,
	)

	lr.state.Reset()
	var w []float64
	var b float64
	var iters int
	if solver == SolverLBFGS {
		w, b, iters, err = lr.fitLBFGS(obj)
	} else {
		w, b, iters = lr.fitProximal(obj, l1)
	}
	if err != nil {
		return err
	}
	if err := personaErrors.CheckNumericalStability("LogisticRegression.Fit", w, iters); err != nil {
		return err
	}

	lr.coef_ = w
	lr.intercept_ = b
	lr.nFeatures_ = nFeatures
	lr.nIter_ = iters
	lr.state.SetDimensions(nFeatures, nSamples)
	lr.state.SetFitted()

	lr.logger.Debug("Training completed",
		log.OperationKey, log.OperationFit,
		log.IterationKey, iters,
		log.LossKey, obj.loss(w, b)+l1*floats.Norm(w, 1),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// objective is the smooth part of the loss: mean log loss plus an l2 term.
type objective struct {
	X            *mat.Dense
	y            *mat.VecDense
	l2           float64
	fitIntercept bool
}

func (o *objective) decision(w []float64, b float64) *mat.VecDense {
	n, _ := o.X.Dims()
	z := mat.NewVecDense(n, nil)
	z.MulVec(o.X, mat.NewVecDense(len(w), w))
	if b != 0 {
		for i := 0; i < n; i++ {
			z.SetVec(i, z.AtVec(i)+b)
		}
	}
	return z
}

func (o *objective) loss(w []float64, b float64) float64 {
	z := o.decision(w, b)
	n := z.Len()
	total := 0.0
	for i := 0; i < n; i++ {
		total += softplus(z.AtVec(i)) - o.y.AtVec(i)*z.AtVec(i)
	}
	return total/float64(n) + 0.5*o.l2*floats.Dot(w, w)
}

// grad writes the weight gradient into gw and returns the intercept gradient.
func (o *objective) grad(gw, w []float64, b float64) float64 {
	z := o.decision(w, b)
	n := z.Len()
	residual := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		residual.SetVec(i, stableSigmoid(z.AtVec(i))-o.y.AtVec(i))
	}

	g := mat.NewVecDense(len(gw), gw)
	g.MulVec(o.X.T(), residual)
	g.ScaleVec(1/float64(n), g)
	floats.AddScaled(gw, o.l2, w)

	if !o.fitIntercept {
		return 0
	}
	return mat.Sum(residual) / float64(n)
}

// fitLBFGS minimises the smooth objective over θ = [w, b].
func (lr *LogisticRegression) fitLBFGS(obj *objective) ([]float64, float64, int, error) {
	_, d := obj.X.Dims()
	split := func(theta []float64) ([]float64, float64) {
		if obj.fitIntercept {
			return theta[:d], theta[d]
		}
		return theta[:d], 0
	}

	dim := d
	if obj.fitIntercept {
		dim++
	}

	prob := optimize.Problem{
		Func: func(theta []float64) float64 {
			w, b := split(theta)
			return obj.loss(w, b)
		},
		Grad: func(grad, theta []float64) {
			w, b := split(theta)
			gb := obj.grad(grad[:d], w, b)
			if obj.fitIntercept {
				grad[d] = gb
			}
		},
	}

	settings := optimize.Settings{
		GradientThreshold: lr.tol,
		MajorIterations:   lr.maxIter,
	}
	result, err := optimize.Minimize(prob, make([]float64, dim), &settings, &optimize.LBFGS{})
	if result == nil {
		return nil, 0, 0, personaErrors.Wrap(err, "lbfgs optimization failed")
	}
	if err != nil || result.Status == optimize.IterationLimit {
		msg := "maximum number of iterations reached"
		if err != nil {
			msg = err.Error()
		}
		personaErrors.Warn(personaErrors.NewConvergenceWarning("lbfgs", result.Stats.MajorIterations, msg))
	}

	w, b := split(result.X)
	return append([]float64(nil), w...), b, result.Stats.MajorIterations, nil
}

// fitProximal runs FISTA with backtracking on the smooth objective and
// soft-thresholds the weights by the l1 coefficient. It stops when no
// coordinate moves more than tol.
func (lr *LogisticRegression) fitProximal(obj *objective, l1 float64) ([]float64, float64, int) {
	_, d := obj.X.Dims()

	w := make([]float64, d)
	b := 0.0
	vw := make([]float64, d) // extrapolated point
	vb := 0.0
	gw := make([]float64, d)
	nextW := make([]float64, d)
	momentum := 1.0
	step := 1.0

	iter := 0
	converged := false
	for iter < lr.maxIter {
		iter++

		fv := obj.loss(vw, vb)
		gb := obj.grad(gw, vw, vb)

		var nextB float64
		for {
			for j := range nextW {
				nextW[j] = softThreshold(vw[j]-step*gw[j], step*l1)
			}
			nextB = vb
			if obj.fitIntercept {
				nextB = vb - step*gb
			}

			// sufficient decrease of the quadratic upper bound
			diffSq, lin := 0.0, 0.0
			for j := range nextW {
				dj := nextW[j] - vw[j]
				diffSq += dj * dj
				lin += gw[j] * dj
			}
			db := nextB - vb
			diffSq += db * db
			lin += gb * db

			if obj.loss(nextW, nextB) <= fv+lin+diffSq/(2*step) || step < minStep {
				break
			}
			step *= backtrackShrink
		}

		maxChange := math.Abs(nextB - b)
		for j := range w {
			maxChange = math.Max(maxChange, math.Abs(nextW[j]-w[j]))
		}

		nextMomentum := (1 + math.Sqrt(1+4*momentum*momentum)) / 2
		beta := (momentum - 1) / nextMomentum
		for j := range w {
			vw[j] = nextW[j] + beta*(nextW[j]-w[j])
			w[j] = nextW[j]
		}
		vb = nextB + beta*(nextB-b)
		b = nextB
		momentum = nextMomentum

		if maxChange < lr.tol {
			converged = true
			break
		}
	}

	if !converged {
		personaErrors.Warn(personaErrors.NewConvergenceWarning("saga", iter,
			"the coefficients did not converge; increase max_iter"))
	}
	return w, b, iter
}

// decisionFunction returns w·x + b for every row.
func (lr *LogisticRegression) decisionFunction(X mat.Matrix, method string) (*mat.VecDense, error) {
	if err := lr.state.RequireFitted("LogisticRegression", method); err != nil {
		return nil, err
	}
	nSamples, nFeatures := X.Dims()
	if nFeatures != lr.nFeatures_ {
		return nil, personaErrors.NewDimensionError("LogisticRegression."+method, lr.nFeatures_, nFeatures, 1)
	}

	z := mat.NewVecDense(nSamples, nil)
	z.MulVec(X, mat.NewVecDense(lr.nFeatures_, lr.coef_))
	for i := 0; i < nSamples; i++ {
		z.SetVec(i, z.AtVec(i)+lr.intercept_)
	}
	return z, nil
}

// Predict returns 1 where P(positive) >= 0.5, else 0.
func (lr *LogisticRegression) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "LogisticRegression.Predict")
	z, err := lr.decisionFunction(X, "Predict")
	if err != nil {
		return nil, err
	}

	predictions := mat.NewDense(z.Len(), 1, nil)
	for i := 0; i < z.Len(); i++ {
		if stableSigmoid(z.AtVec(i)) >= 0.5 {
			predictions.Set(i, 0, 1)
		}
	}
	return predictions, nil
}

// PredictProba returns an (n_samples, 2) matrix of [P(0), P(1)].
func (lr *LogisticRegression) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer personaErrors.Recover(&err, "LogisticRegression.PredictProba")
	z, err := lr.decisionFunction(X, "PredictProba")
	if err != nil {
		return nil, err
	}

	probas := mat.NewDense(z.Len(), 2, nil)
	for i := 0; i < z.Len(); i++ {
		p := stableSigmoid(z.AtVec(i))
		probas.Set(i, 0, 1-p)
		probas.Set(i, 1, p)
	}
	return probas, nil
}

// Coef returns a copy of the fitted weights.
func (lr *LogisticRegression) Coef() []float64 {
	return append([]float64(nil), lr.coef_...)
}

// Intercept returns the fitted intercept.
func (lr *LogisticRegression) Intercept() float64 {
	return lr.intercept_
}

// NIter returns the number of iterations of the last fit.
func (lr *LogisticRegression) NIter() int {
	return lr.nIter_
}

// FeatureImportances returns |coef|, the usual importance proxy for a linear
// model on standardised inputs.
func (lr *LogisticRegression) FeatureImportances() ([]float64, error) {
	if err := lr.state.RequireFitted("LogisticRegression", "FeatureImportances"); err != nil {
		return nil, err
	}
	importances := make([]float64, len(lr.coef_))
	for j, c := range lr.coef_ {
		importances[j] = math.Abs(c)
	}
	return importances, nil
}

// GetParams returns the model hyperparameters
func (lr *LogisticRegression) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"penalty":       lr.penalty,
		"C":             lr.C,
		"l1_ratio":      lr.l1Ratio,
		"fit_intercept": lr.fitIntercept,
		"solver":        lr.solver,
		"max_iter":      lr.maxIter,
		"tol":           lr.tol,
	}
}

// SetParams sets the model hyperparameters
func (lr *LogisticRegression) SetParams(params map[string]interface{}) error {
	for key, value := range params {
		var err error
		switch key {
		case "penalty":
			lr.penalty, err = model.ParamString(key, value)
		case "C":
			lr.C, err = model.ParamFloat(key, value)
		case "l1_ratio":
			lr.l1Ratio, err = model.ParamFloat(key, value)
		case "fit_intercept":
			lr.fitIntercept, err = model.ParamBool(key, value)
		case "solver":
			lr.solver, err = model.ParamString(key, value)
		case "max_iter":
			lr.maxIter, err = model.ParamInt(key, value)
		case "tol":
			lr.tol, err = model.ParamFloat(key, value)
		default:
			return personaErrors.NewValidationError(key, "unknown parameter", value)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// stableSigmoid computes sigmoid(z) in a numerically stable way.
func stableSigmoid(z float64) float64 {
	if z >= 0 {
		ez := math.Exp(-z)
		return 1.0 / (1.0 + ez)
	}
	ez := math.Exp(z)
	return ez / (1.0 + ez)
}

// softplus computes log(1 + exp(z)) without overflow.
func softplus(z float64) float64 {
	if z > 0 {
		return z + math.Log1p(math.Exp(-z))
	}
	return math.Log1p(math.Exp(z))
}

func softThreshold(v, t float64) float64 {
	switch {
	case v > t:
		return v - t
	case v < -t:
		return v + t
	default:
		return 0
	}
}
