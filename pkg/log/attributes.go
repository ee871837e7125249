package log

// Model and operation context.
const (
	// ModelNameKey identifies the estimator type, e.g. "RandomForestClassifier".
	ModelNameKey = "model.name"

	// OperationKey is the operation being performed: "fit", "predict", "score", ...
	OperationKey = "ml.operation"

	// ComponentKey identifies the package doing the work.
	ComponentKey = "ml.component"

	// PhaseKey is the lifecycle phase: "training", "validation", "testing".
	PhaseKey = "ml.phase"

	// StageKey names a step of the end-to-end analysis.
	StageKey = "analysis.stage"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	ColumnKey   = "data.column"
	MissingKey  = "data.missing"
	PathKey     = "data.path"
)

// Performance and metrics.
const (
	DurationMsKey = "perf.duration_ms"
	AccuracyKey   = "metrics.accuracy"
	AUCKey        = "metrics.auc"
	LossKey       = "metrics.loss"
	ScoreKey      = "metrics.score"
	IterationKey  = "training.iteration"
	FoldKey       = "cv.fold"
	CandidateKey  = "cv.candidate"
)

// Predictions.
const (
	PredsKey = "preds.count"

	// ThresholdKey records the probability cutoff used for classification.
	ThresholdKey = "preds.threshold"
)

// Errors.
const (
	ErrorTypeKey  = "error.type"
	StacktraceKey = "error.stacktrace"
)

// Configuration.
const (
	HyperParamsKey    = "model.hyperparams"
	RegularizationKey = "hyperparams.regularization"
	RandomSeedKey     = "config.random_seed"
)

// Standard values.
const (
	OperationFit          = "fit"
	OperationPredict      = "predict"
	OperationTransform    = "transform"
	OperationFitTransform = "fit_transform"
	OperationScore        = "score"

	PhaseTraining      = "training"
	PhaseValidation    = "validation"
	PhaseTesting       = "testing"
	PhasePreprocessing = "preprocessing"
)
