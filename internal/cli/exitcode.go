package cli

import (
	stderrors "errors"

	enginerrors "github.com/canonica-labs/distframe/internal/errors"
)

// codeError is implemented by every internal/errors concrete error type
// via EngineError.ErrorCode, promoted through embedding.
type codeError interface {
	ErrorCode() enginerrors.ErrorCode
}

// exitCodeFor maps an engine error's Code to a process exit status;
// errors that never passed through internal/errors (config load
// failures, flag parsing) fall back to ExitInternal.
func exitCodeFor(err error) int {
	var ce codeError
	if !stderrors.As(err, &ce) {
		return ExitInternal
	}
	switch ce.ErrorCode() {
	case enginerrors.CodePlan:
		return ExitPlan
	case enginerrors.CodeResource:
		return ExitResource
	case enginerrors.CodeExecution:
		return ExitExecution
	case enginerrors.CodeCancelled:
		return ExitCancelled
	default:
		return ExitInternal
	}
}
