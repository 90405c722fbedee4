// Package apperr defines the single tagged error type shared by all Memoroo
// components.
//
// Every domain failure carries a [Kind] discriminant so that callers can
// branch on the failure class with [errors.As] / [KindOf] instead of matching
// on per-module sentinel types. The HTTP layer maps Kinds to status codes in
// exactly one place; pipeline components use Kinds to decide between retrying,
// degrading, and propagating.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure.
type Kind int

const (
	// KindUnknown is the zero value; treat as an internal error.
	KindUnknown Kind = iota

	// KindNotFound covers both "entity does not exist" and "entity exists but
	// is owned by someone else". The two cases are never distinguished so that
	// existence does not leak across owners.
	KindNotFound

	// KindUnauthorized signals a missing or invalid credential.
	KindUnauthorized

	// KindConflict signals a duplicate unique field (e.g. registering an
	// already-taken email).
	KindConflict

	// KindInvalid signals malformed caller input that will not succeed on
	// retry without modification.
	KindInvalid

	// KindInputTooLarge signals input exceeding a model's token or context
	// budget. The caller must truncate or chunk; the operation is not retried.
	KindInputTooLarge

	// KindModelUnavailable signals that a backing AI model could not be
	// loaded or reached. Retried once by the orchestrator before degrading.
	KindModelUnavailable

	// KindGenerationTimeout signals that the generation engine did not answer
	// in time. Retried once by the orchestrator before degrading.
	KindGenerationTimeout
)

// String returns the canonical lower-snake name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	case KindInvalid:
		return "invalid"
	case KindInputTooLarge:
		return "input_too_large"
	case KindModelUnavailable:
		return "model_unavailable"
	case KindGenerationTimeout:
		return "generation_timeout"
	default:
		return "unknown"
	}
}

// Error is the tagged error type. Construct instances with [New] or [Wrap];
// the zero value is not meaningful.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Msg is a human-readable description safe to return to API clients.
	Msg string

	// Err is the wrapped cause, if any.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

// Unwrap returns the wrapped cause for errors.Is / errors.As traversal.
func (e *Error) Unwrap() error { return e.Err }

// New creates an [Error] with the given kind and formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an [Error] with the given kind and message that wraps cause.
// A nil cause is valid and equivalent to [New].
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: cause}
}

// KindOf extracts the [Kind] from err. Returns [KindUnknown] when err is nil
// or when no [*Error] is found in its chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether the orchestrator may retry the failed operation.
// Only backend-down classes are retried; input errors and ownership misses
// never are.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindModelUnavailable, KindGenerationTimeout:
		return true
	}
	return false
}
