// Package errors provides explicit, human-readable error types for the
// execution engine. Every error carries a Reason and Suggestion: if a
// failure can't be explained to an operator, it isn't ready to ship.
package errors

import "fmt"

// EngineError is the base error type for every error this module returns.
type EngineError struct {
	Code       ErrorCode
	Message    string
	Reason     string
	Suggestion string
	Cause      error
}

// ErrorCode categorizes a failure for exit-code mapping in cmd/enginectl.
type ErrorCode int

const (
	CodePlan      ErrorCode = 1
	CodeResource  ErrorCode = 2
	CodeExecution ErrorCode = 3
	CodeInternal  ErrorCode = 4
	CodeCancelled ErrorCode = 5
)

func (e *EngineError) Error() string {
	msg := e.Message
	if e.Reason != "" {
		msg = fmt.Sprintf("%s\nReason: %s", msg, e.Reason)
	}
	if e.Suggestion != "" {
		msg = fmt.Sprintf("%s\nSuggestion: %s", msg, e.Suggestion)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s\nCaused by: %v", msg, e.Cause)
	}
	return msg
}

func (e *EngineError) Unwrap() error { return e.Cause }

// ErrorCode returns the error's category, promoted to every concrete
// error type below so callers can switch on it without a type assertion
// per concrete type.
func (e *EngineError) ErrorCode() ErrorCode { return e.Code }

// ErrPlanCompileFailed is returned when the physical plan factory cannot
// produce a generator for a logical node.
type ErrPlanCompileFailed struct {
	EngineError
	NodeKind string
}

func NewPlanCompileFailed(nodeKind string, cause error) *ErrPlanCompileFailed {
	return &ErrPlanCompileFailed{
		EngineError: EngineError{
			Code:       CodePlan,
			Message:    fmt.Sprintf("failed to compile physical plan for %s", nodeKind),
			Reason:     causeText(cause),
			Suggestion: "run 'enginectl explain <job-spec.json>' to inspect the optimized logical plan before execution",
			Cause:      cause,
		},
		NodeKind: nodeKind,
	}
}

// ErrResourceExceeded is returned when a task's resource request cannot
// fit within the cluster's configured capacity even when nothing else is
// running — no amount of waiting would admit it.
type ErrResourceExceeded struct {
	EngineError
	Requested ResourceSummary
	Capacity  ResourceSummary
}

// ResourceSummary is a plain snapshot of a resource request or cap,
// kept free of any internal/task dependency so this package stays a leaf.
type ResourceSummary struct {
	CPU         float64
	GPU         float64
	MemoryBytes int64
}

func NewResourceExceeded(requested, capacity ResourceSummary) *ErrResourceExceeded {
	return &ErrResourceExceeded{
		EngineError: EngineError{
			Code:       CodeResource,
			Message:    "task exceeds cluster capacity",
			Reason:     fmt.Sprintf("requested cpu=%.2f gpu=%.2f mem=%dB exceeds capacity cpu=%.2f gpu=%.2f mem=%dB", requested.CPU, requested.GPU, requested.MemoryBytes, capacity.CPU, capacity.GPU, capacity.MemoryBytes),
			Suggestion: "raise resources.capCPU/capGPU/capMemoryBytes in the config or repartition to smaller tasks",
		},
		Requested: requested,
		Capacity:  capacity,
	}
}

// ErrTaskFailed is returned when a dispatched task's executor reports an
// error. Neither the scheduler nor the worker pools retry a failed task;
// its first error fails the run.
type ErrTaskFailed struct {
	EngineError
	TaskID string
	NodeID string
}

func NewTaskFailed(taskID, nodeID string, cause error) *ErrTaskFailed {
	return &ErrTaskFailed{
		EngineError: EngineError{
			Code:       CodeExecution,
			Message:    fmt.Sprintf("task %s failed", taskID),
			Reason:     causeText(cause),
			Suggestion: "inspect the trace file for the failing node's instructions",
			Cause:      cause,
		},
		TaskID: taskID,
		NodeID: nodeID,
	}
}

// ErrScanSourceUnavailable is returned when a worker cannot open a scan's
// source file or path.
type ErrScanSourceUnavailable struct {
	EngineError
	Path string
}

func NewScanSourceUnavailable(path string, cause error) *ErrScanSourceUnavailable {
	return &ErrScanSourceUnavailable{
		EngineError: EngineError{
			Code:       CodeExecution,
			Message:    fmt.Sprintf("cannot read scan source %s", path),
			Reason:     causeText(cause),
			Suggestion: "verify the path exists and is readable by the worker process",
			Cause:      cause,
		},
		Path: path,
	}
}

// ErrWorkerUnavailable is returned when the configured worker pool has no
// healthy worker to dispatch a task to.
type ErrWorkerUnavailable struct {
	EngineError
	PoolSize int
}

func NewWorkerUnavailable(poolSize int) *ErrWorkerUnavailable {
	return &ErrWorkerUnavailable{
		EngineError: EngineError{
			Code:       CodeExecution,
			Message:    "no worker available to run task",
			Reason:     fmt.Sprintf("worker pool reports %d registered workers, none healthy", poolSize),
			Suggestion: "check worker health with 'enginectl status' or set runner: local in the config",
		},
		PoolSize: poolSize,
	}
}

// ErrRunCancelled is returned when a run is cancelled before completion,
// either by the caller's context or an unrecoverable sibling task failure.
type ErrRunCancelled struct {
	EngineError
}

func NewRunCancelled(reason string) *ErrRunCancelled {
	return &ErrRunCancelled{
		EngineError: EngineError{
			Code:       CodeCancelled,
			Message:    "run cancelled",
			Reason:     reason,
			Suggestion: "re-run once the cancellation cause is resolved; partial outputs, if any, are not guaranteed consistent",
		},
	}
}

// ErrOptimizerRuleFailed is returned when a rule's invariant check fails
// during Explain (e.g. a rule changed the output schema's column set).
type ErrOptimizerRuleFailed struct {
	EngineError
	Rule string
}

func NewOptimizerRuleFailed(rule, reason string) *ErrOptimizerRuleFailed {
	return &ErrOptimizerRuleFailed{
		EngineError: EngineError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("optimizer rule %s violated a plan invariant", rule),
			Reason:     reason,
			Suggestion: "this is an engine bug; file it with the failing 'enginectl explain' output attached",
		},
		Rule: rule,
	}
}

// ErrConfigInvalid is returned when the loaded configuration fails validation.
type ErrConfigInvalid struct {
	EngineError
	Field string
}

func NewConfigInvalid(field, reason string) *ErrConfigInvalid {
	return &ErrConfigInvalid{
		EngineError: EngineError{
			Code:       CodePlan,
			Message:    fmt.Sprintf("invalid configuration field %q", field),
			Reason:     reason,
			Suggestion: "check ~/.enginectl/config.yaml (or ./config.yaml) or the matching ENGINE_ environment variable",
		},
		Field: field,
	}
}

// ErrMigrationFailed is returned when the history store's schema
// migrations cannot be applied, e.g. a syntax error in a migration file
// or a broken connection mid-transaction.
type ErrMigrationFailed struct {
	EngineError
	Migration string
}

func NewMigrationFailed(migration string, cause error) *ErrMigrationFailed {
	return &ErrMigrationFailed{
		EngineError: EngineError{
			Code:       CodeInternal,
			Message:    fmt.Sprintf("migration failed: %s", migration),
			Reason:     causeText(cause),
			Suggestion: "check database connection and migration file syntax",
			Cause:      cause,
		},
		Migration: migration,
	}
}

func causeText(cause error) string {
	if cause == nil {
		return "unknown cause"
	}
	return cause.Error()
}
