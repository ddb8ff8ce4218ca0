// Package taxonomy names the error kinds the improvement loop distinguishes
// between, independent of the concrete Go error values involved. Every
// higher-level package returns errors that can be classified by Kind so the
// Scheduler can decide whether to halt, retry, or record and continue.
package taxonomy

import "fmt"

// Kind is one of the error categories from the error-handling design.
type Kind string

const (
	// KindSafetyViolation covers a path that isn't safe, a denied command,
	// or tampered identity files. Halts the current spec, or the whole
	// Scheduler in the identity-tamper case.
	KindSafetyViolation Kind = "safety_violation"

	// KindOracleUnavailable covers transport failures, invalid credentials,
	// exhausted credits, or a response that could not be parsed as JSON.
	KindOracleUnavailable Kind = "oracle_unavailable"

	// KindOracleRefusal covers an oracle reply that explicitly declines to
	// act ({"action":"skip"} or a reasoned "no findings").
	KindOracleRefusal Kind = "oracle_refusal"

	// KindValidationFailed covers syntax-check, test, or runtime-health
	// failures that roll back a mutation batch.
	KindValidationFailed Kind = "validation_failed"

	// KindTransientExecution covers 429 rate limiting: pause, then retry once.
	KindTransientExecution Kind = "transient_execution"

	// KindSpecStuck covers three consecutive "stuck" oracle replies.
	KindSpecStuck Kind = "spec_stuck"

	// KindBudgetExhausted covers a loop stopping cleanly because the
	// planned spend has reached the budget ceiling.
	KindBudgetExhausted Kind = "budget_exhausted"

	// KindQueueIO covers filesystem failures moving specs between buckets.
	KindQueueIO Kind = "queue_io"
)

// Error wraps an underlying error with its taxonomy Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind. A nil err still produces a classifiable sentinel.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf is a convenience constructor building the wrapped error from a format string.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the Kind from err, walking the unwrap chain. The zero
// value ("") means err carries no taxonomy classification.
func KindOf(err error) Kind {
	for err != nil {
		if te, ok := err.(*Error); ok {
			return te.Kind
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return ""
}

// Is reports whether err is classified as kind anywhere in its unwrap chain.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}
