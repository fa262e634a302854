package logging

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldPath is the standardized structured logging key for filesystem paths.
	FieldPath = "path"
	// FieldRoot is the standardized structured logging key for watch roots.
	FieldRoot = "root"
	// FieldWorker is the standardized structured logging key for worker indices.
	FieldWorker = "worker"
	// FieldRunID is the standardized structured logging key for engine run identifiers.
	FieldRunID = "run_id"
	// FieldOutcome is the standardized structured logging key for pipeline outcome results.
	FieldOutcome = "outcome"
	// FieldReason is the standardized structured logging key for outcome reasons.
	FieldReason = "reason"
	// FieldEventType tags log lines with a machine-matchable event name.
	FieldEventType = "event_type"
	// FieldErrorHint carries the suggested next step for a warning or error.
	FieldErrorHint = "error_hint"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)
