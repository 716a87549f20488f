package log

// Run and stage context.
const (
	// RunIDKey identifies one end-to-end execution of the workflow.
	RunIDKey = "run.id"

	// AppNameKey carries the session application name from configuration.
	AppNameKey = "run.app_name"

	// StageKey names the workflow stage emitting the record.
	// Standard values are the Stage* constants below.
	StageKey = "run.stage"

	// ComponentKey identifies the package performing the operation.
	ComponentKey = "ml.component"

	// ModelNameKey identifies the estimator type, e.g. "LogisticRegression".
	ModelNameKey = "model.name"

	// OperationKey is the estimator operation: fit, predict, transform, score.
	OperationKey = "ml.operation"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"
	SourceKey   = "data.source"
	FilesKey    = "data.files"

	// PositiveKey and NegativeKey carry severity class counts.
	PositiveKey = "data.positive"
	NegativeKey = "data.negative"

	// SyntheticKey is the number of rows produced by oversampling.
	SyntheticKey = "data.synthetic"

	// DroppedKey is the number of rows discarded as invalid.
	DroppedKey = "data.dropped"
)

// Performance and metrics.
const (
	DurationMsKey = "perf.duration_ms"
	IterationKey  = "training.iteration"
	LossKey       = "metrics.loss"
	MetricKey     = "metrics.name"
	MetricValue   = "metrics.value"
	AccuracyKey   = "metrics.accuracy"
	ThresholdKey  = "preds.threshold"
	PredsKey      = "preds.count"
)

// Configuration.
const (
	RandomSeedKey     = "config.random_seed"
	RegularizationKey = "hyperparams.regularization"
	SolverKey         = "hyperparams.solver"
	WorkersKey        = "config.workers"
	ArtifactKey       = "artifact.uri"
)

// Error context.
const (
	ErrorCodeKey  = "error.code"
	StacktraceKey = "error.stacktrace"
)

// Standard attribute values.
const (
	OperationFit       = "fit"
	OperationPredict   = "predict"
	OperationTransform = "transform"
	OperationScore     = "score"

	StageLoad       = "load"
	StageLabel      = "label"
	StageOversample = "oversample"
	StageSplit      = "split"
	StageAssemble   = "assemble"
	StageFit        = "fit"
	StageEvaluate   = "evaluate"
	StagePublish    = "publish"
)
