// Package apperr classifies the error kinds the core distinguishes:
// transient external failures, state-machine violations, configuration
// errors, corrupt input, and fatal conditions. Every subsystem wraps its
// failures in one of these so callers can branch with errors.Is/As instead
// of string-matching.
package apperr

import "errors"

// Kind classifies why an operation failed.
type Kind int

const (
	// KindTransientExternal covers network, LLM, and platform-upload
	// failures. Surfaced via notification and audit log; never retried
	// automatically by the subsystem that observed it.
	KindTransientExternal Kind = iota
	// KindStateViolation covers an attempt to transition a terminal
	// approval or scheduled job. Surfaced to the caller as a no-op.
	KindStateViolation
	// KindConfigurationError covers a missing API key or an unknown
	// executor for a content_type. Not fatal to the process.
	KindConfigurationError
	// KindCorruptInput covers malformed JSON in the operator UI inbox.
	KindCorruptInput
	// KindFatal covers conditions that require graceful shutdown.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindTransientExternal:
		return "transient_external"
	case KindStateViolation:
		return "state_violation"
	case KindConfigurationError:
		return "configuration_error"
	case KindCorruptInput:
		return "corrupt_input"
	case KindFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// Error is a classified application error.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Op + ": " + e.Kind.String()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err as a classified Error for operation op.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err (or any error it wraps) is classified as kind.
func Is(err error, kind Kind) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind == kind
	}
	return false
}

// ErrNotFound is returned by lookups that find no matching row.
var ErrNotFound = errors.New("not found")

// ErrAlreadyTerminal is returned when a caller attempts to transition a
// row that has already reached a terminal status.
var ErrAlreadyTerminal = errors.New("already in a terminal status")

// IsNotFound reports whether err is or wraps ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsAlreadyTerminal reports whether err is or wraps ErrAlreadyTerminal.
func IsAlreadyTerminal(err error) bool { return errors.Is(err, ErrAlreadyTerminal) }
