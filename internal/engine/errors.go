package engine

import "errors"

// Sentinel errors for programming-error class failures. Handler and
// service failures are recorded on tasks or absorbed, never surfaced
// through these.
var (
	// ErrInvalidPlan indicates a plan referencing unknown or duplicate task ids.
	ErrInvalidPlan = errors.New("invalid plan")
	// ErrCyclicPlan indicates a dependency cycle, which only a template bug can produce.
	ErrCyclicPlan = errors.New("cyclic plan")
	// ErrUnknownTaskType indicates a task type with no registered capability.
	ErrUnknownTaskType = errors.New("unknown task type")
)
