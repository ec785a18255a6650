// Package tileerr defines the error-kind taxonomy shared across the tile
// serving core, and the propagation policy each kind implies.
package tileerr

import (
	"errors"
	"fmt"
)

// Kind is the semantic classification of a failure, used by callers to
// decide whether to retry, demote to a cache miss, or surface an opaque
// error to the external request layer.
type Kind int

const (
	// NotFound means the catalog has no matching dataset.
	NotFound Kind = iota
	// OutOfBounds means the request bbox does not intersect the grid;
	// callers render a fully transparent tile instead of treating this as
	// an error.
	OutOfBounds
	// DecodeError means a chunk or metadata payload was malformed. Never
	// retried.
	DecodeError
	// TransientIO means an object-store or L2 failure that is worth
	// retrying once with a small backoff.
	TransientIO
	// PermanentIO means a configuration or storage-layout mismatch.
	PermanentIO
	// BudgetExceeded means a render budget or concurrency quota was hit.
	BudgetExceeded
	// Cancelled means the caller's context was cancelled; propagation is
	// silent.
	Cancelled
	// InvalidInput means a malformed request survived external parsing.
	InvalidInput
)

func (k Kind) String() string {
	switch k {
	case NotFound:
		return "not_found"
	case OutOfBounds:
		return "out_of_bounds"
	case DecodeError:
		return "decode_error"
	case TransientIO:
		return "transient_io"
	case PermanentIO:
		return "permanent_io"
	case BudgetExceeded:
		return "budget_exceeded"
	case Cancelled:
		return "cancelled"
	case InvalidInput:
		return "invalid_input"
	default:
		return "unknown"
	}
}

// Error wraps an underlying error with a Kind and the operation that
// produced it, following the teacher's fmt.Errorf("doing %s: %w", op, err)
// idiom but carrying the kind alongside for policy decisions.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an *Error.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether the outermost tileerr.Error in err's chain (err
// itself or the first one it wraps) has the given kind. Kinds of further
// nested tileerr.Errors are not consulted.
func Is(err error, kind Kind) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind == kind
	}
	return false
}

// KindOf returns the Kind of err if it is (or wraps) a tileerr.Error,
// otherwise reports ok = false.
func KindOf(err error) (Kind, bool) {
	var te *Error
	if errors.As(err, &te) {
		return te.Kind, true
	}
	return 0, false
}

// Retryable reports whether the propagation policy calls for a single
// retry at the point of the failing call: only TransientIO is retryable.
func Retryable(err error) bool {
	return Is(err, TransientIO)
}
