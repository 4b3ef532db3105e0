package constellation

import (
	"fmt"
	"strings"
)

// ConfigError reports a misconfiguration surfaced to the caller: an unknown
// constellation, a malformed graph, or an invalid registration. Configuration
// errors are never retried.
type ConfigError struct {
	Message string
	Code    string
}

func (e *ConfigError) Error() string {
	if e.Code != "" {
		return e.Code + ": " + e.Message
	}
	return e.Message
}

// ExecutionError reports a node-level failure during traversal: a missing
// star, exhausted retries, or a failed upstream node.
type ExecutionError struct {
	NodeID  string
	Message string
	Cause   error
}

func (e *ExecutionError) Error() string {
	if e.NodeID != "" {
		return "node " + e.NodeID + ": " + e.Message
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any.
func (e *ExecutionError) Unwrap() error { return e.Cause }

// BindingError reports a variable that could not be resolved for a node.
// Binding errors fail the node without entering the retry envelope.
type BindingError struct {
	NodeID   string
	Variable string
}

func (e *BindingError) Error() string {
	return fmt.Sprintf("Required variable '%s' not provided", e.Variable)
}

// PreconditionError reports an operation attempted against a run in the
// wrong state, such as resuming a run that is not awaiting confirmation.
type PreconditionError struct {
	RunID   string
	Status  RunStatus
	Message string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s (run %s is %s)", e.Message, e.RunID, e.Status)
}

// RunNotFoundError reports a Resume or Cancel against an unknown run ID.
type RunNotFoundError struct {
	RunID string
}

func (e *RunNotFoundError) Error() string {
	return "run not found: " + e.RunID
}

// ParallelExecutionError aggregates the failures of sibling branches in a
// parallel fan-out. All branches run to completion before it is raised.
type ParallelExecutionError struct {
	Errors []error
}

func (e *ParallelExecutionError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d parallel branch(es) failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes the aggregated errors to errors.Is/errors.As.
func (e *ParallelExecutionError) Unwrap() []error { return e.Errors }

// ExecutionPaused is the internal sentinel raised when a node with
// requires_confirmation completes. It unwinds the traversal stack and is
// caught only by the top-level Run and Resume entrypoints, which treat it as
// a non-error termination: the run record stays in awaiting_confirmation.
//
// It implements error solely so it can travel the ordinary return path; it
// is never an error in logs or metrics.
type ExecutionPaused struct {
	RunID  string
	NodeID string
}

func (e *ExecutionPaused) Error() string {
	return "execution paused at node " + e.NodeID + " awaiting confirmation"
}
