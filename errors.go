package recache

import (
	"errors"
	"fmt"
)

// RuntimeError represents a condition detected by the engine itself, as
// opposed to an error returned by a registered function body.
//
// Engine conditions:
//   - Depth exhaustion: executing a body would cross the configured
//     maximum call depth. Recoverable - inside a drain it means "resolve
//     this call's dependencies first" and drives another drain iteration.
//   - Cyclic recursion: a call was requested while an identical call was
//     still pending. Fatal; aborts the whole outstanding computation.
//   - Stalled recursion: repeated depth exhaustion with no progress on the
//     most recent pending call. Fatal; aborts the whole outstanding
//     computation.
//
// Fatal conditions clear the entire Pending Set, not just the current
// call. RuntimeError carries structured fields for diagnostics.
type RuntimeError struct {
	// Code identifies the condition category.
	Code RuntimeErrorCode

	// Message is a human-readable description.
	Message string

	// Flow identifies the outermost call this condition belongs to.
	Flow string

	// Func names the registered function involved, where known.
	Func string

	// Key is the digest of the call identity involved, where known.
	Key string

	// Depth and Limit describe the depth budget for DEPTH_EXHAUSTED.
	Depth int
	Limit int

	cause error
}

// RuntimeErrorCode categorizes engine conditions.
type RuntimeErrorCode string

const (
	// ErrCodeCyclicRecursion indicates an identical call was requested
	// while still unresolved.
	ErrCodeCyclicRecursion RuntimeErrorCode = "CYCLIC_RECURSION"

	// ErrCodeStalledRecursion indicates repeated depth exhaustion with no
	// progress on the most recent pending call.
	ErrCodeStalledRecursion RuntimeErrorCode = "STALLED_RECURSION"

	// ErrCodeDepthExhausted indicates the call chain crossed the
	// configured maximum supported depth. Cooperating bodies propagate
	// this signal untouched so the scheduler can resolve the call's
	// dependencies first.
	ErrCodeDepthExhausted RuntimeErrorCode = "DEPTH_EXHAUSTED"
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Func != "" && e.Key != "" {
		return fmt.Sprintf("%s: %s (func=%s, key=%s)", e.Code, e.Message, e.Func, e.Key)
	}
	if e.Func != "" {
		return fmt.Sprintf("%s: %s (func=%s)", e.Code, e.Message, e.Func)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the condition that triggered this one, if any. A stall
// wraps the depth-exhaustion signal that revealed it.
func (e *RuntimeError) Unwrap() error {
	return e.cause
}

// IsCyclicRecursion returns true if the error is a cyclic recursion abort.
// Uses errors.As to handle wrapped errors.
func IsCyclicRecursion(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeCyclicRecursion
}

// IsStalledRecursion returns true if the error is a stalled recursion
// abort. Uses errors.As to handle wrapped errors.
func IsStalledRecursion(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeStalledRecursion
}

// IsDepthExhausted returns true if the error is (or wraps) the engine's
// depth-exhaustion signal. Uses errors.As to handle wrapped errors.
func IsDepthExhausted(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re) && re.Code == ErrCodeDepthExhausted
}

// isControl reports whether err is one of the engine's own conditions.
// Control errors are never cached and never trace-compressed; domain
// errors returned by function bodies are both.
func isControl(err error) bool {
	var re *RuntimeError
	return errors.As(err, &re)
}

func newCyclicError(flow, fn, key string) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeCyclicRecursion,
		Message: "call requested while an identical call is still pending",
		Flow:    flow,
		Func:    fn,
		Key:     key,
	}
}

func newStalledError(flow, fn, key string, cause error) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeStalledRecursion,
		Message: "no progress on the most recent pending call after depth exhaustion",
		Flow:    flow,
		Func:    fn,
		Key:     key,
		cause:   cause,
	}
}

func newDepthError(flow string, depth, limit int) *RuntimeError {
	return &RuntimeError{
		Code:    ErrCodeDepthExhausted,
		Message: fmt.Sprintf("call depth %d reached the configured limit %d", depth, limit),
		Flow:    flow,
		Depth:   depth,
		Limit:   limit,
	}
}
