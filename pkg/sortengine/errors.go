package sortengine

import "fmt"

// InvalidArgumentError reports a construction-time argument problem:
// a nil/empty cell array, negative sizes, metadata boundaries outside
// [0, N), a metadata provider returning nil, or maxSteps <= 0.
type InvalidArgumentError struct {
	Message string
}

// Error implements error.
func (e *InvalidArgumentError) Error() string {
	return "sortengine: invalid argument: " + e.Message
}

// NewInvalidArgumentError builds an InvalidArgumentError.
func NewInvalidArgumentError(format string, args ...any) *InvalidArgumentError {
	return &InvalidArgumentError{Message: fmt.Sprintf(format, args...)}
}

// InvalidStateError reports an operation attempted from the wrong
// engine state: stepping a CONVERGED/TERMINATED engine, or resetting a
// parallel engine during an active step. A second RunUntilConvergence
// call on a parallel engine is not reported as an error.
type InvalidStateError struct {
	Message string
}

// Error implements error.
func (e *InvalidStateError) Error() string {
	return "sortengine: invalid state: " + e.Message
}

// NewInvalidStateError builds an InvalidStateError.
func NewInvalidStateError(format string, args ...any) *InvalidStateError {
	return &InvalidStateError{Message: fmt.Sprintf(format, args...)}
}

// ComparisonFailureError wraps a failure from Cell.CompareTo. It is
// always fatal and always propagated to the caller; the run that
// produced it is left in the TERMINATED state.
type ComparisonFailureError struct {
	Index1, Index2 int
	Cause          error
}

// Error implements error.
func (e *ComparisonFailureError) Error() string {
	return fmt.Sprintf("sortengine: comparison failed between positions %d and %d: %v", e.Index1, e.Index2, e.Cause)
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *ComparisonFailureError) Unwrap() error { return e.Cause }

// NewComparisonFailureError builds a ComparisonFailureError.
func NewComparisonFailureError(i, j int, cause error) *ComparisonFailureError {
	return &ComparisonFailureError{Index1: i, Index2: j, Cause: cause}
}

// WorkerFailureError reports that a parallel-engine worker goroutine
// failed. The engine enters TERMINATED, remaining workers are drained
// at the next barrier, and only the first failure is surfaced.
type WorkerFailureError struct {
	WorkerID int
	Cause    error
}

// Error implements error.
func (e *WorkerFailureError) Error() string {
	return fmt.Sprintf("sortengine: worker %d failed: %v", e.WorkerID, e.Cause)
}

// Unwrap supports errors.Is/errors.As against the underlying cause.
func (e *WorkerFailureError) Unwrap() error { return e.Cause }

// NewWorkerFailureError builds a WorkerFailureError.
func NewWorkerFailureError(workerID int, cause error) *WorkerFailureError {
	return &WorkerFailureError{WorkerID: workerID, Cause: cause}
}
