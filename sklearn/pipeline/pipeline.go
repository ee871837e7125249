// Package pipeline chains feature transformers with a final classifier, so
// that scaling is learned inside each cross-validation fold rather than on the
// whole training set.
package pipeline

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/core/model"
	"github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/pkg/log"
)

// Step is a named pipeline stage.
type Step struct {
	Name      string
	Estimator interface{} // model.Transformer, or the final classifier
}

// Pipeline applies every intermediate transformer in order and hands the
// result to the final step.
//
//	p := pipeline.New(
//	    pipeline.Step{Name: "scaler", Estimator: preprocessing.NewStandardScalerDefault()},
//	    pipeline.Step{Name: "clf", Estimator: linear_model.NewLogisticRegression()},
//	)
//	err := p.SetParams(map[string]interface{}{"clf__C": 0.1})
type Pipeline struct {
	state  *model.StateManager
	logger log.Logger

	steps []Step
}

// New creates a new Pipeline with the given steps.
func New(steps ...Step) *Pipeline {
	return &Pipeline{
		state:  model.NewStateManager(),
		logger: log.GetLoggerWithName("Pipeline"),
		steps:  steps,
	}
}

func (p *Pipeline) validate() error {
	if len(p.steps) == 0 {
		return errors.NewValidationError("steps", "pipeline has no steps", 0)
	}
	seen := make(map[string]bool, len(p.steps))
	for i, step := range p.steps {
		if step.Name == "" || strings.Contains(step.Name, "__") {
			return errors.NewValidationError("steps", "step names must be non-empty and must not contain \"__\"", step.Name)
		}
		if seen[step.Name] {
			return errors.NewValidationError("steps", "duplicate step name", step.Name)
		}
		seen[step.Name] = true
		if i < len(p.steps)-1 {
			if _, ok := step.Estimator.(model.Transformer); !ok {
				return errors.NewValidationError("steps", "all intermediate steps must be transformers", step.Name)
			}
		}
	}
	return nil
}

func (p *Pipeline) final() Step {
	return p.steps[len(p.steps)-1]
}

// Fit fits every transformer on the output of the previous one, then fits
// the final step.
func (p *Pipeline) Fit(X, y mat.Matrix) (err error) {
	defer errors.Recover(&err, "Pipeline.Fit")
	if err := p.validate(); err != nil {
		return err
	}

	p.state.Reset()
	Xt := X
	for _, step := range p.steps[:len(p.steps)-1] {
		transformer := step.Estimator.(model.Transformer)
		Xt, err = transformer.FitTransform(Xt)
		if err != nil {
			return errors.Wrapf(err, "failed to fit step '%s'", step.Name)
		}
	}

	last := p.final()
	fitter, ok := last.Estimator.(model.Fitter)
	if !ok {
		return errors.NewValidationError("steps", "final step must have a Fit method", last.Name)
	}
	if err := fitter.Fit(Xt, y); err != nil {
		return errors.Wrapf(err, "failed to fit final step '%s'", last.Name)
	}

	p.state.SetFitted()
	p.logger.Debug("Pipeline fitted",
		log.OperationKey, log.OperationFit,
		"pipeline.steps", len(p.steps),
	)
	return nil
}

// transform applies all transforms except the final estimator.
func (p *Pipeline) transform(X mat.Matrix, method string) (mat.Matrix, error) {
	if err := p.state.RequireFitted("Pipeline", method); err != nil {
		return nil, err
	}

	Xt := X
	var err error
	for _, step := range p.steps[:len(p.steps)-1] {
		Xt, err = step.Estimator.(model.Transformer).Transform(Xt)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to transform at step '%s'", step.Name)
		}
	}
	return Xt, nil
}

// Predict transforms X and predicts with the final step.
func (p *Pipeline) Predict(X mat.Matrix) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "Pipeline.Predict")
	Xt, err := p.transform(X, "Predict")
	if err != nil {
		return nil, err
	}

	predictor, ok := p.final().Estimator.(model.Predictor)
	if !ok {
		return nil, errors.NewValidationError("steps", "final step must have a Predict method", p.final().Name)
	}
	return predictor.Predict(Xt)
}

// PredictProba transforms X and returns the final step's class probabilities.
func (p *Pipeline) PredictProba(X mat.Matrix) (_ mat.Matrix, err error) {
	defer errors.Recover(&err, "Pipeline.PredictProba")
	Xt, err := p.transform(X, "PredictProba")
	if err != nil {
		return nil, err
	}

	predictor, ok := p.final().Estimator.(interface {
		PredictProba(mat.Matrix) (mat.Matrix, error)
	})
	if !ok {
		return nil, errors.NewValidationError("steps", "final step must have a PredictProba method", p.final().Name)
	}
	return predictor.PredictProba(Xt)
}

// FeatureImportances delegates to the final step.
func (p *Pipeline) FeatureImportances() ([]float64, error) {
	if err := p.state.RequireFitted("Pipeline", "FeatureImportances"); err != nil {
		return nil, err
	}
	importer, ok := p.final().Estimator.(model.FeatureImporter)
	if !ok {
		return nil, errors.NewValidationError("steps", "final step does not report feature importances", p.final().Name)
	}
	return importer.FeatureImportances()
}

// GetParams returns the parameters of every step as "<step>__<param>".
func (p *Pipeline) GetParams() map[string]interface{} {
	params := make(map[string]interface{})
	for _, step := range p.steps {
		getter, ok := step.Estimator.(interface {
			GetParams() map[string]interface{}
		})
		if !ok {
			continue
		}
		for key, value := range getter.GetParams() {
			params[fmt.Sprintf("%s__%s", step.Name, key)] = value
		}
	}
	return params
}

// SetParams routes "<step>__<param>" keys to the named step's SetParams.
func (p *Pipeline) SetParams(params map[string]interface{}) error {
	perStep := make(map[string]map[string]interface{})
	for key, value := range params {
		name, param, ok := strings.Cut(key, "__")
		if !ok {
			return errors.NewValidationError(key, "pipeline parameters must be named <step>__<param>", value)
		}
		if perStep[name] == nil {
			perStep[name] = make(map[string]interface{})
		}
		perStep[name][param] = value
	}

	for _, step := range p.steps {
		stepParams, ok := perStep[step.Name]
		if !ok {
			continue
		}
		delete(perStep, step.Name)
		setter, ok := step.Estimator.(model.ParamSetter)
		if !ok {
			return errors.NewValidationError(step.Name, "step does not accept parameters", stepParams)
		}
		if err := setter.SetParams(stepParams); err != nil {
			return errors.Wrapf(err, "step '%s'", step.Name)
		}
	}

	for name := range perStep {
		return errors.NewValidationError(name, "unknown pipeline step", name)
	}
	return nil
}

// Steps returns the list of steps.
func (p *Pipeline) Steps() []Step {
	return append([]Step(nil), p.steps...)
}

// NamedStep returns the estimator of the step called name.
func (p *Pipeline) NamedStep(name string) (interface{}, bool) {
	for _, step := range p.steps {
		if step.Name == name {
			return step.Estimator, true
		}
	}
	return nil, false
}
