// Package analysis runs the whole personality classification study: load and
// clean the survey, describe it, tune a random forest and an elastic-net
// logistic regression with cross-validated grid search, evaluate both on the
// same held-out rows across a sweep of decision cutoffs, and write the report.
package analysis

import (
	"context"
	"strings"
	"time"

	"gonum.org/v1/gonum/mat"

	"github.com/ezoic/persona/config"
	"github.com/ezoic/persona/core/model"
	"github.com/ezoic/persona/dataset"
	"github.com/ezoic/persona/metrics"
	"github.com/ezoic/persona/model_selection"
	personaErrors "github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/pkg/log"
	"github.com/ezoic/persona/preprocessing"
	"github.com/ezoic/persona/report"
	"github.com/ezoic/persona/sklearn/ensemble"
	"github.com/ezoic/persona/sklearn/linear_model"
	"github.com/ezoic/persona/sklearn/pipeline"
)

// Stage names used in log lines and failure records.
const (
	StageLoad     = "load"
	StageClean    = "clean"
	StageDesign   = "design"
	StageDescribe = "describe"
	StageSplit    = "split"
	StageTrain    = "train"
	StageEvaluate = "evaluate"
	StageReport   = "report"
)

// Model names.
const (
	RandomForest = "random_forest"
	ElasticNet   = "elastic_net"
)

// logisticStep is the pipeline step name of the elastic-net classifier.
// Grid keys without a step prefix are routed to it.
const logisticStep = "logistic"

// Candidate is a model family tuned by grid search.
type Candidate struct {
	Name    string
	Title   string
	Factory model_selection.Factory
	Grid    model_selection.ParamGrid
}

// Result is the outcome of Run.
type Result struct {
	Report *report.Report

	// Files lists the artifacts written, in write order.
	Files []string

	// Estimators holds the refitted best estimator of every model that
	// trained, keyed by model name.
	Estimators map[string]model_selection.Estimator
}

// Candidates builds the two model families from cfg.
func Candidates(cfg *config.Config) ([]Candidate, error) {
	// Resolve the scaler once so that an unknown name fails here instead of
	// inside every fold.
	if _, err := preprocessing.NewScaler(cfg.ElasticNet.Scaler); err != nil {
		return nil, err
	}
	seed := cfg.Data.Seed

	forest := Candidate{
		Name:  RandomForest,
		Title: "Random Forest",
		Factory: func() model_selection.Estimator {
			return ensemble.NewRandomForestClassifier(ensemble.WithRFRandomState(seed))
		},
		Grid: model_selection.ParamGrid(cfg.RandomForest.Grid),
	}

	en := cfg.ElasticNet
	netGrid := make(model_selection.ParamGrid, len(en.Grid))
	for key, values := range en.Grid {
		if !strings.Contains(key, "__") {
			key = logisticStep + "__" + key
		}
		netGrid[key] = values
	}
	net := Candidate{
		Name:  ElasticNet,
		Title: "Elastic Net",
		Factory: func() model_selection.Estimator {
			scaler, _ := preprocessing.NewScaler(en.Scaler)
			return pipeline.New(
				pipeline.Step{Name: "scaler", Estimator: scaler},
				pipeline.Step{Name: logisticStep, Estimator: linear_model.NewLogisticRegression(
					linear_model.WithLRPenalty(linear_model.PenaltyElasticNet),
					linear_model.WithLRMaxIter(en.MaxIter),
					linear_model.WithLRTol(en.Tol),
				)},
			)
		},
		Grid: netGrid,
	}
	return []Candidate{forest, net}, nil
}

// Run executes the analysis described by cfg. Loading and parsing problems
// abort the run; a model that cannot be trained or evaluated is recorded in
// the report's failures and the other model still reports. ctx is checked
// between stages.
func Run(ctx context.Context, cfg *config.Config, logger log.Logger) (*Result, error) {
	if cfg == nil {
		return nil, personaErrors.NewValidationError("config", "is required", nil)
	}
	if logger == nil {
		logger = log.GetLoggerWithName("analysis")
	}
	candidates, err := Candidates(cfg)
	if err != nil {
		return nil, err
	}
	cutoffs, err := metrics.CutoffGrid(cfg.Thresholds.Start, cfg.Thresholds.Stop, cfg.Thresholds.Step)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	logger.Info("Analysis started",
		log.PathKey, cfg.Data.Path,
		log.RandomSeedKey, cfg.Data.Seed,
	)

	frame, err := dataset.Load(cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	logStage(logger, StageLoad, start, log.SamplesKey, frame.Len())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ds, cleaning, err := dataset.Clean(frame)
	if err != nil {
		return nil, err
	}
	for _, col := range cleaning.Columns {
		if col.Missing > 0 {
			logger.Debug("Column imputed",
				log.ColumnKey, col.Name,
				log.MissingKey, col.Missing,
				"data.fill", col.Fill,
			)
		}
	}
	logStage(logger, StageClean, start, log.MissingKey, cleaning.TotalMissing())
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	X, y, names, err := dataset.Design(ds)
	if err != nil {
		return nil, personaErrors.Wrap(err, "build design matrix")
	}
	logStage(logger, StageDesign, start, log.SamplesKey, ds.Len(), log.FeaturesKey, len(names))

	rep := &report.Report{
		Source:      cfg.Data.Path,
		GeneratedAt: time.Now().UTC(),
		Seed:        cfg.Data.Seed,
		TestSize:    cfg.Data.TestSize,
		CVFolds:     cfg.CV.Folds,
		Rows:        ds.Len(),
		Classes:     dataset.ClassDistribution(ds),
		Cleaning:    cleaning,
	}
	if rep.Features, err = dataset.Describe(X, names); err != nil {
		return nil, err
	}
	if corr, err := dataset.CorrelationMatrix(X, y); err != nil {
		logger.Warn("Correlation matrix unavailable", log.StageKey, StageDescribe, "error", err)
	} else {
		rep.CorrelationNames = append(append([]string(nil), names...), dataset.ColPersonality)
		rep.Correlation = corr
	}
	logStage(logger, StageDescribe, start,
		"data.extrovert", rep.Classes.Extrovert,
		"data.introvert", rep.Classes.Introvert,
	)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := model_selection.TrainTestSplit(X, y, cfg.Data.TestSize, cfg.Data.Seed)
	if err != nil {
		return nil, personaErrors.Wrap(err, "split train/test")
	}
	Xtrain, ytrain := model_selection.SelectRows(X, trainIdx), model_selection.SelectVec(y, trainIdx)
	Xtest, ytest := model_selection.SelectRows(X, testIdx), model_selection.SelectVec(y, testIdx)
	rep.TrainRows, rep.TestRows = len(trainIdx), len(testIdx)
	logStage(logger, StageSplit, start, "data.train", len(trainIdx), "data.test", len(testIdx))

	result := &Result{Report: rep, Estimators: make(map[string]model_selection.Estimator)}
	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mlog := logger.With(log.ModelNameKey, c.Name)

		search, err := tune(ctx, cfg, c, Xtrain, ytrain)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			mlog.Error("Model training failed", log.StageKey, StageTrain, "error", err)
			rep.Failures = append(rep.Failures, report.Failure{Model: c.Title, Stage: StageTrain, Error: err.Error()})
			continue
		}
		result.Estimators[c.Name] = search.BestEstimator
		logStage(mlog, StageTrain, start,
			log.HyperParamsKey, search.BestParams,
			log.ScoreKey, search.BestScore,
		)

		mr, err := Evaluate(c, search, Xtest, ytest, names, cutoffs, mlog)
		if err != nil {
			mlog.Error("Model evaluation failed", log.StageKey, StageEvaluate, "error", err)
			rep.Failures = append(rep.Failures, report.Failure{Model: c.Title, Stage: StageEvaluate, Error: err.Error()})
			continue
		}
		rep.Models = append(rep.Models, *mr)
		logStage(mlog, StageEvaluate, start,
			log.AccuracyKey, mr.Summary.Accuracy,
			log.AUCKey, mr.Summary.AUC,
		)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	w := report.NewWriter(cfg.Report.OutputDir,
		report.WithPlots(cfg.Report.Plots),
		report.WithPlotSize(cfg.Report.Width, cfg.Report.Height),
		report.WithLogger(logger),
	)
	files, err := w.Write(rep)
	result.Files = files
	if err != nil {
		return result, personaErrors.Wrap(err, "write report")
	}
	logStage(logger, StageReport, start, "report.files", len(files))

	logger.Info("Analysis completed",
		"analysis.models", len(rep.Models),
		"analysis.failures", len(rep.Failures),
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return result, nil
}

func logStage(logger log.Logger, stage string, start time.Time, fields ...any) {
	fields = append([]any{log.StageKey, stage, log.DurationMsKey, time.Since(start).Milliseconds()}, fields...)
	logger.Info("Stage completed", fields...)
}

// tune runs the grid search for c on the training rows and refits the winner.
func tune(ctx context.Context, cfg *config.Config, c Candidate, X *mat.Dense, y *mat.VecDense) (*model_selection.GridSearchCV, error) {
	search := model_selection.NewGridSearchCV(c.Factory, c.Grid)
	search.CV = model_selection.NewStratifiedKFold(cfg.CV.Folds, true, cfg.Data.Seed)
	search.Scoring = cfg.CV.Scoring
	search.NJobs = cfg.CV.NJobs
	search.Refit = true
	if err := search.Fit(ctx, X, y); err != nil {
		return nil, personaErrors.Wrapf(err, "grid search %s", c.Name)
	}
	return search, nil
}

// Evaluate scores the refitted winner of search on the test rows: headline
// metrics at the default cutoff, the cutoff sweep, the Youden-optimal cutoff,
// the ROC curve and feature importances. A missing ROC curve or importance
// vector is logged and left empty.
func Evaluate(c Candidate, search *model_selection.GridSearchCV, X mat.Matrix, y *mat.VecDense,
	names []string, cutoffs []float64, logger log.Logger) (*report.ModelReport, error) {

	est := search.BestEstimator
	if est == nil {
		return nil, personaErrors.NewValidationError("estimator", "grid search was not refitted", c.Name)
	}
	proba, err := est.PredictProba(X)
	if err != nil {
		return nil, err
	}
	p, err := metrics.PositiveColumn(proba)
	if err != nil {
		return nil, err
	}

	summary, err := metrics.Summarize(y, p, metrics.DefaultDecisionCutoff)
	if err != nil {
		return nil, err
	}
	sweep, err := metrics.EvaluateThresholds(y, p, cutoffs)
	if err != nil {
		return nil, err
	}

	mr := &report.ModelReport{
		Name:         c.Name,
		Title:        c.Title,
		BestParams:   search.BestParams,
		CVScoring:    search.Scoring,
		CVScore:      search.BestScore,
		CVStd:        search.Results[search.BestIndex].StdScore,
		Summary:      summary,
		Thresholds:   sweep,
		FeatureNames: names,
	}
	if best, ok := metrics.BestThreshold(sweep, metrics.CriterionYoudenJ); ok {
		mr.BestCutoff = &best
		logger.Info("Best cutoff",
			log.ThresholdKey, best.Cutoff,
			"metrics.sensitivity", best.Sensitivity,
			"metrics.specificity", best.Specificity,
		)
	}

	if fpr, tpr, _, err := metrics.ROCCurve(y, p); err != nil {
		logger.Warn("ROC curve unavailable", "error", err)
	} else {
		mr.ROC = report.ROCCurve{FPR: fpr, TPR: tpr}
	}

	if importer, ok := est.(model.FeatureImporter); ok {
		if imp, err := importer.FeatureImportances(); err != nil {
			logger.Warn("Feature importances unavailable", "error", err)
		} else {
			mr.Importances = imp
		}
	}
	return mr, nil
}
