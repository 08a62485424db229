package execution

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies a failure for the engine's control flow. The kind, not
// the callee, decides whether a task invocation is retried.
type ErrorKind string

const (
	// KindTransient covers network, timeout and throttling failures from an
	// external call. The engine retries these with backoff.
	KindTransient ErrorKind = "TransientExternalError"

	// KindPermanent means the external service reported the job itself
	// failed. Never retried.
	KindPermanent ErrorKind = "PermanentExternalError"

	// KindGraphDefinition marks a broken graph: missing state reference,
	// missing payload path, unknown operation. Fails fast, never retried.
	KindGraphDefinition ErrorKind = "GraphDefinitionError"

	// KindTimeout marks a run that exhausted its transition or wall-clock
	// budget.
	KindTimeout ErrorKind = "Timeout"
)

// Error is the structured failure attached to a FAILED context.
type Error struct {
	Kind    ErrorKind `json:"kind"`
	State   string    `json:"state"`
	Message string    `json:"message"`
	Err     error     `json:"-"`
}

func (e *Error) Error() string {
	if e.State != "" {
		return fmt.Sprintf("%s at state %q: %s", e.Kind, e.State, e.Message)
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a structured execution error from an underlying cause.
func NewError(kind ErrorKind, state string, err error) *Error {
	message := ""
	if err != nil {
		message = err.Error()
	}

	return &Error{Kind: kind, State: state, Message: message, Err: err}
}

// Transient wraps err so KindOf classifies it as retryable.
func Transient(err error) error {
	return &kindError{kind: KindTransient, err: err}
}

// Permanent wraps err so KindOf classifies it as non-retryable.
func Permanent(err error) error {
	return &kindError{kind: KindPermanent, err: err}
}

// Definitional wraps err so KindOf classifies it as a graph definition error.
func Definitional(err error) error {
	return &kindError{kind: KindGraphDefinition, err: err}
}

type kindError struct {
	kind ErrorKind
	err  error
}

func (e *kindError) Error() string {
	return e.err.Error()
}

func (e *kindError) Unwrap() error {
	return e.err
}

// KindOf extracts the classification of an error chain. Unclassified errors
// from external calls default to transient, which keeps an unknown transport
// failure inside the retry policy instead of killing the run outright.
func KindOf(err error) ErrorKind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}

	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}

	return KindTransient
}
