// Package fault classifies errors into the handful of kinds callers need to
// tell apart: bad input, resource conflicts, missing entities, gateway
// failures and state-machine violations. Packages keep their own sentinel
// errors and wrap them with one of these kinds so transport code can map an
// error chain to a response without string matching.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks rejected input; never fatal.
	ErrValidation = errors.New("validation failed")
	// ErrConflict marks requests that lost against current state and may be
	// retried with different input (dates taken, promotion exhausted).
	ErrConflict = errors.New("conflict")
	// ErrNotFound marks missing entities.
	ErrNotFound = errors.New("not found")
	// ErrGateway marks payment-processor failures; idempotent calls may be
	// retried, others leave the reservation in a well-defined pending state.
	ErrGateway = errors.New("payment gateway error")
	// ErrConsistency marks illegal state transitions and races detected at
	// commit time; always fatal to the operation.
	ErrConsistency = errors.New("state conflict")
)

type classified struct {
	kind error
	msg  string
}

func (e *classified) Error() string { return e.msg }
func (e *classified) Unwrap() error { return e.kind }

func newf(kind error, format string, args ...any) error {
	return &classified{kind: kind, msg: fmt.Sprintf(format, args...)}
}

func Validationf(format string, args ...any) error {
	return newf(ErrValidation, format, args...)
}

func Conflictf(format string, args ...any) error {
	return newf(ErrConflict, format, args...)
}

func NotFoundf(format string, args ...any) error {
	return newf(ErrNotFound, format, args...)
}

func Gatewayf(format string, args ...any) error {
	return newf(ErrGateway, format, args...)
}

func Consistencyf(format string, args ...any) error {
	return newf(ErrConsistency, format, args...)
}

// Wrap attaches a kind to an existing error, keeping it in the chain.
func Wrap(kind error, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}
