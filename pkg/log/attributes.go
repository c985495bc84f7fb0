// Package log defines standard attribute keys for model-selection logging.
//
// Keys follow a hierarchical naming convention ("model.name", "data.samples")
// so that log lines from the trainer, the evaluator and the individual
// regressors can be filtered together.

package log

// Model and operation context.
const (
	// ModelNameKey identifies a candidate regressor by its registry name.
	// Examples: "Random Forest", "XGBClassifier"
	ModelNameKey = "model.name"

	// ModelKindKey is the registry tag of the candidate ("random_forest", "catboost").
	ModelKindKey = "model.kind"

	// OperationKey specifies the operation being performed.
	OperationKey = "ml.operation"

	// ComponentKey identifies which package is logging.
	ComponentKey = "ml.component"

	// PhaseKey indicates the phase of the step.
	PhaseKey = "ml.phase"
)

// Data shape.
const (
	SamplesKey  = "data.samples"
	FeaturesKey = "data.features"

	// TestSamplesKey is the number of rows in the held-out split.
	TestSamplesKey = "data.test_samples"
)

// Metrics and timing.
const (
	DurationMsKey = "perf.duration_ms"

	// R2ScoreKey records R² coefficient of determination.
	// Range (-∞, 1.0], with 1.0 being perfect prediction.
	R2ScoreKey = "metrics.r2_score"

	// ThresholdKey records the acceptance threshold applied to the best score.
	ThresholdKey = "selection.threshold"

	IterationKey = "training.iteration"
	LossKey      = "metrics.loss"
)

// Artifacts.
const (
	ArtifactPathKey = "artifact.path"
	ReportPathKey   = "artifact.report_path"
)

// Error context.
const (
	ErrorTypeKey  = "error.type"
	SuggestionKey = "error.suggestion"
)

// Standard attribute values.
const (
	OperationFit      = "fit"
	OperationScore    = "score"
	OperationEvaluate = "evaluate"
	OperationSelect   = "select"
	OperationPersist  = "persist"

	PhaseTraining   = "training"
	PhaseValidation = "validation"
	PhaseSelection  = "selection"
)
