package domain

import (
	"errors"
	"fmt"
)

// NotFoundError represents a missing resource.
type NotFoundError struct {
	Resource string
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Is enables errors.Is matching on NotFoundError.
func (e NotFoundError) Is(target error) bool {
	_, ok := target.(NotFoundError)
	if ok {
		return true
	}
	_, ok = target.(*NotFoundError)
	return ok
}

// ErrNotFound is the sentinel error for missing resources.
var ErrNotFound = NotFoundError{}

// ConflictError is returned when a unique key is already taken.
type ConflictError struct {
	Resource string
	Key      string
}

func (e ConflictError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("%s already exists", e.Resource)
	}
	return fmt.Sprintf("%s already exists for %s", e.Resource, e.Key)
}

func (e ConflictError) Is(target error) bool {
	_, ok := target.(ConflictError)
	if ok {
		return true
	}
	_, ok = target.(*ConflictError)
	return ok
}

var ErrConflict = ConflictError{}

// ValidationError is raised by a store rejecting a malformed row.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e ValidationError) Is(target error) bool {
	_, ok := target.(ValidationError)
	if ok {
		return true
	}
	_, ok = target.(*ValidationError)
	return ok
}

var ErrValidation = ValidationError{}

// InputError is a caller-fixable problem with a draft. Nothing has been
// written anywhere when it is returned.
type InputError struct {
	Field  string
	Reason string
}

func (e InputError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e InputError) Is(target error) bool {
	_, ok := target.(InputError)
	if ok {
		return true
	}
	_, ok = target.(*InputError)
	return ok
}

var ErrInput = InputError{}

// TemplateError means the card template cannot host the generated elements.
type TemplateError struct {
	Reason string
}

func (e TemplateError) Error() string {
	return "card template: " + e.Reason
}

func (e TemplateError) Is(target error) bool {
	_, ok := target.(TemplateError)
	if ok {
		return true
	}
	_, ok = target.(*TemplateError)
	return ok
}

var ErrTemplate = TemplateError{}

// PreconditionError aborts a mint before any side effect (wrong network,
// already minted).
type PreconditionError struct {
	Reason string
}

func (e PreconditionError) Error() string {
	return "precondition failed: " + e.Reason
}

func (e PreconditionError) Is(target error) bool {
	_, ok := target.(PreconditionError)
	if ok {
		return true
	}
	_, ok = target.(*PreconditionError)
	return ok
}

var ErrPrecondition = PreconditionError{}

// NetworkError is a transient transport failure. Callers may retry.
type NetworkError struct {
	Op  string
	Err error
}

func (e NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e NetworkError) Unwrap() error { return e.Err }

func (e NetworkError) Is(target error) bool {
	_, ok := target.(NetworkError)
	if ok {
		return true
	}
	_, ok = target.(*NetworkError)
	return ok
}

var ErrNetwork = NetworkError{}

// AuthError is a rejected credential. Never retried.
type AuthError struct {
	Op  string
	Err error
}

func (e AuthError) Error() string {
	return fmt.Sprintf("%s: unauthorized: %v", e.Op, e.Err)
}

func (e AuthError) Unwrap() error { return e.Err }

func (e AuthError) Is(target error) bool {
	_, ok := target.(AuthError)
	if ok {
		return true
	}
	_, ok = target.(*AuthError)
	return ok
}

var ErrAuth = AuthError{}

// UserRejectedError means the signer declined, or the caller cancelled while
// a signature or confirmation was outstanding.
type UserRejectedError struct {
	Err error
}

func (e UserRejectedError) Error() string {
	if e.Err == nil {
		return "user rejected the transaction"
	}
	return fmt.Sprintf("user rejected the transaction: %v", e.Err)
}

func (e UserRejectedError) Unwrap() error { return e.Err }

func (e UserRejectedError) Is(target error) bool {
	_, ok := target.(UserRejectedError)
	if ok {
		return true
	}
	_, ok = target.(*UserRejectedError)
	return ok
}

var ErrUserRejected = UserRejectedError{}

// SubmissionError is an RPC or node failure before a transaction hash exists.
type SubmissionError struct {
	Err error
}

func (e SubmissionError) Error() string {
	return fmt.Sprintf("transaction submission failed: %v", e.Err)
}

func (e SubmissionError) Unwrap() error { return e.Err }

func (e SubmissionError) Is(target error) bool {
	_, ok := target.(SubmissionError)
	if ok {
		return true
	}
	_, ok = target.(*SubmissionError)
	return ok
}

var ErrSubmission = SubmissionError{}

// RevertedError is a mined transaction whose execution reverted.
type RevertedError struct {
	TxHash string
}

func (e RevertedError) Error() string {
	return fmt.Sprintf("transaction %s reverted", e.TxHash)
}

func (e RevertedError) Is(target error) bool {
	_, ok := target.(RevertedError)
	if ok {
		return true
	}
	_, ok = target.(*RevertedError)
	return ok
}

var ErrReverted = RevertedError{}

// UpstreamError wraps a failure from one of the external systems together
// with the mint step it interrupted.
type UpstreamError struct {
	Step MintStep
	Err  error
}

func (e UpstreamError) Error() string {
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e UpstreamError) Unwrap() error { return e.Err }

// CompensationWarning records a cleanup task that did not succeed. It is
// reported alongside a failure, never in place of it.
type CompensationWarning struct {
	Task string `json:"task"`
	Err  error  `json:"-"`
}

func (w CompensationWarning) Error() string {
	return fmt.Sprintf("compensation %s failed: %v", w.Task, w.Err)
}

func (w CompensationWarning) Unwrap() error { return w.Err }

// IsRetryable reports whether err is a transient failure worth re-running the
// whole operation for.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrSubmission)
}
