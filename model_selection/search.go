package model_selection

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/ezoic/persona/core/model"
	"github.com/ezoic/persona/core/parallel"
	"github.com/ezoic/persona/metrics"
	"github.com/ezoic/persona/pkg/errors"
	"github.com/ezoic/persona/pkg/log"
)

// Estimator is a probabilistic classifier whose hyperparameters can be set
// by name.
type Estimator interface {
	model.ProbabilisticClassifier
	model.ParamSetter
}

// Factory returns a fresh, unfitted estimator. Every fold gets its own
// instance so folds can be fit concurrently.
type Factory func() Estimator

// Scorer rates a fitted classifier on held-out data; higher is better.
type Scorer func(clf model.ProbabilisticClassifier, X mat.Matrix, y *mat.VecDense) (float64, error)

// Scoring names.
const (
	ScoringROCAUC     = "roc_auc"
	ScoringAccuracy   = "accuracy"
	ScoringNegLogLoss = "neg_log_loss"
)

// GetScorer returns the scorer registered under name.
func GetScorer(name string) (Scorer, error) {
	switch name {
	case ScoringROCAUC:
		return func(clf model.ProbabilisticClassifier, X mat.Matrix, y *mat.VecDense) (float64, error) {
			p, err := positiveProba(clf, X)
			if err != nil {
				return 0, err
			}
			return metrics.AUC(y, p)
		}, nil
	case ScoringAccuracy:
		return func(clf model.ProbabilisticClassifier, X mat.Matrix, y *mat.VecDense) (float64, error) {
			pred, err := clf.Predict(X)
			if err != nil {
				return 0, err
			}
			return metrics.Accuracy(y, metrics.ColumnVector(pred))
		}, nil
	case ScoringNegLogLoss:
		return func(clf model.ProbabilisticClassifier, X mat.Matrix, y *mat.VecDense) (float64, error) {
			p, err := positiveProba(clf, X)
			if err != nil {
				return 0, err
			}
			loss, err := metrics.BinaryLogLoss(y, p)
			return -loss, err
		}, nil
	default:
		return nil, errors.NewValidationError("scoring",
			fmt.Sprintf("must be %q, %q or %q", ScoringROCAUC, ScoringAccuracy, ScoringNegLogLoss), name)
	}
}

func positiveProba(clf model.ProbabilisticClassifier, X mat.Matrix) (*mat.VecDense, error) {
	proba, err := clf.PredictProba(X)
	if err != nil {
		return nil, err
	}
	return metrics.PositiveColumn(proba)
}

// ParamGrid maps a hyperparameter name to the values to try.
type ParamGrid map[string][]interface{}

// Candidates expands the grid into its cartesian product. Keys are visited
// in sorted order and the last key varies fastest, so the order is stable.
// An empty grid yields one candidate with no parameters.
func (g ParamGrid) Candidates() ([]map[string]interface{}, error) {
	keys := make([]string, 0, len(g))
	for k, values := range g {
		if len(values) == 0 {
			return nil, errors.NewValidationError(k, "parameter grid values cannot be empty", values)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	candidates := []map[string]interface{}{{}}
	for _, k := range keys {
		next := make([]map[string]interface{}, 0, len(candidates)*len(g[k]))
		for _, base := range candidates {
			for _, v := range g[k] {
				c := make(map[string]interface{}, len(base)+1)
				for bk, bv := range base {
					c[bk] = bv
				}
				c[k] = v
				next = append(next, c)
			}
		}
		candidates = next
	}
	return candidates, nil
}

// CrossValScore fits a fresh estimator with params on every fold and
// returns the per-fold test scores in fold order. Folds run concurrently on
// at most nJobs workers.
func CrossValScore(ctx context.Context, factory Factory, params map[string]interface{},
	X mat.Matrix, y *mat.VecDense, folds []Fold, scorer Scorer, nJobs int) ([]float64, error) {

	scores := make([]float64, len(folds))
	err := parallel.ForEach(len(folds), nJobs, func(i int) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		fold := folds[i]

		est := factory()
		if err := est.SetParams(params); err != nil {
			return err
		}
		yTrain := SelectVec(y, fold.TrainIndices)
		if err := est.Fit(SelectRows(X, fold.TrainIndices), yTrain); err != nil {
			return errors.Wrapf(err, "fold %d", i)
		}

		score, err := scorer(est, SelectRows(X, fold.TestIndices), SelectVec(y, fold.TestIndices))
		if err != nil {
			return errors.Wrapf(err, "scoring fold %d", i)
		}
		scores[i] = score
		return nil
	})
	if err != nil {
		return nil, err
	}
	return scores, nil
}

// CandidateResult is the cross-validated score of one parameter combination.
type CandidateResult struct {
	Params     map[string]interface{} `json:"params"`
	FoldScores []float64              `json:"fold_scores"`
	MeanScore  float64                `json:"mean_score"`
	StdScore   float64                `json:"std_score"`
	Rank       int                    `json:"rank"`
}

// GridSearchCV scores every candidate of Grid with stratified k-fold
// cross-validation and refits the best one on all the data.
//
//	search := model_selection.NewGridSearchCV(factory, grid)
//	search.CV = model_selection.NewStratifiedKFold(10, true, 42)
//	if err := search.Fit(ctx, Xtrain, ytrain); err != nil {
//	    return err
//	}
//	proba, err := search.BestEstimator.PredictProba(Xtest)
type GridSearchCV struct {
	Factory Factory
	Grid    ParamGrid
	CV      *StratifiedKFold
	Scoring string
	Refit   bool
	NJobs   int

	// Set by Fit.
	Results       []CandidateResult
	BestIndex     int
	BestParams    map[string]interface{}
	BestScore     float64
	BestEstimator Estimator

	logger log.Logger
}

// NewGridSearchCV creates a search with 5 shuffled stratified folds, roc_auc
// scoring and refit enabled.
func NewGridSearchCV(factory Factory, grid ParamGrid) *GridSearchCV {
	return &GridSearchCV{
		Factory: factory,
		Grid:    grid,
		CV:      NewStratifiedKFold(5, true, 0),
		Scoring: ScoringROCAUC,
		Refit:   true,
		logger:  log.GetLoggerWithName("GridSearchCV"),
	}
}

// Fit evaluates every candidate. The first candidate with the highest mean
// score wins. ctx is checked between candidates and folds.
func (g *GridSearchCV) Fit(ctx context.Context, X mat.Matrix, y *mat.VecDense) (err error) {
	defer errors.Recover(&err, "GridSearchCV.Fit")

	if g.Factory == nil {
		return errors.NewValidationError("factory", "estimator factory is required", nil)
	}
	if g.CV == nil {
		return errors.NewValidationError("cv", "splitter is required", nil)
	}
	if g.logger == nil {
		g.logger = log.GetLoggerWithName("GridSearchCV")
	}
	scorer, err := GetScorer(g.Scoring)
	if err != nil {
		return err
	}
	candidates, err := g.Grid.Candidates()
	if err != nil {
		return err
	}
	if n, _ := X.Dims(); n != y.Len() {
		return errors.NewDimensionError("GridSearchCV.Fit", n, y.Len(), 0)
	}
	folds, err := g.CV.Split(y)
	if err != nil {
		return err
	}

	start := time.Now()
	g.logger.Info("Grid search started",
		"cv.candidates", len(candidates),
		"cv.folds", len(folds),
		"cv.scoring", g.Scoring,
		log.SamplesKey, y.Len(),
	)

	results := make([]CandidateResult, len(candidates))
	best := -1
	for i, params := range candidates {
		if err := ctx.Err(); err != nil {
			return err
		}

		scores, err := CrossValScore(ctx, g.Factory, params, X, y, folds, scorer, g.NJobs)
		if err != nil {
			return errors.Wrapf(err, "candidate %d %v", i, params)
		}
		mean, std := stat.PopMeanStdDev(scores, nil)
		results[i] = CandidateResult{Params: params, FoldScores: scores, MeanScore: mean, StdScore: std}

		g.logger.Debug("Candidate scored",
			log.CandidateKey, i,
			log.HyperParamsKey, params,
			log.ScoreKey, mean,
		)
		if best < 0 || mean > results[best].MeanScore {
			best = i
		}
	}
	rankResults(results)

	g.Results = results
	g.BestIndex = best
	g.BestParams = results[best].Params
	g.BestScore = results[best].MeanScore
	g.BestEstimator = nil

	if g.Refit {
		est := g.Factory()
		if err := est.SetParams(g.BestParams); err != nil {
			return err
		}
		if err := est.Fit(X, y); err != nil {
			return errors.Wrap(err, "refit with best parameters")
		}
		g.BestEstimator = est
	}

	g.logger.Info("Grid search completed",
		log.HyperParamsKey, g.BestParams,
		log.ScoreKey, g.BestScore,
		log.DurationMsKey, time.Since(start).Milliseconds(),
	)
	return nil
}

// rankResults assigns rank 1 to the best mean score; equal scores share a rank.
func rankResults(results []CandidateResult) {
	order := make([]int, len(results))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return results[order[a]].MeanScore > results[order[b]].MeanScore
	})
	for pos, idx := range order {
		if pos > 0 && results[idx].MeanScore == results[order[pos-1]].MeanScore {
			results[idx].Rank = results[order[pos-1]].Rank
			continue
		}
		results[idx].Rank = pos + 1
	}
}
