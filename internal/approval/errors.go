package approval

import (
	"errors"
	"fmt"

	"donorbridge/pkg/types"
)

// Kind classifies why an operation failed.
type Kind string

const (
	KindUnauthenticated Kind = "unauthenticated"
	KindUnauthorized    Kind = "unauthorized"
	KindNotFound        Kind = "not_found"
	KindValidation      Kind = "validation_error"
	KindInvalidState    Kind = "invalid_state"
	KindPartialUpdate   Kind = "partial_update"
	KindUnexpected      Kind = "unexpected"
)

const genericFailure = "The operation could not be completed. Please try again."

// Error is an operation failure with a caller-safe message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func unauthenticated(err error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: "Sign in to continue.", Err: err}
}

func unauthorized(message string) *Error {
	return &Error{Kind: KindUnauthorized, Message: message}
}

func validation(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

func invalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func partialUpdate(err error, format string, args ...any) *Error {
	return &Error{Kind: KindPartialUpdate, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf maps any error returned inside an operation to its Kind.
func KindOf(err error) Kind {
	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Kind
	}

	switch {
	case errors.Is(err, types.ErrProfileNotFound),
		errors.Is(err, types.ErrDonorNotFound),
		errors.Is(err, types.ErrSchoolNotFound),
		errors.Is(err, types.ErrDonationNotFound),
		errors.Is(err, types.ErrApplicationNotFound),
		errors.Is(err, types.ErrMatchNotFound),
		errors.Is(err, types.ErrDocumentNotFound):
		return KindNotFound
	case errors.Is(err, types.ErrStaleTransition),
		errors.Is(err, types.ErrMatchExists):
		return KindInvalidState
	case errors.Is(err, types.ErrIdentityExists),
		errors.Is(err, types.ErrInvalidPassword):
		return KindValidation
	}

	return KindUnexpected
}

// Result is the uniform outcome of every orchestrator operation. Failures
// never escape as Go errors or panics; they are folded into Error and Kind.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Kind    Kind   `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func publicMessage(kind Kind, err error) string {
	switch kind {
	case KindUnexpected, KindPartialUpdate:
		return genericFailure
	}

	var opErr *Error
	if errors.As(err, &opErr) {
		return opErr.Message
	}

	switch {
	case errors.Is(err, types.ErrStaleTransition):
		return "The record was changed by someone else. Reload and try again."
	case errors.Is(err, types.ErrMatchExists):
		return "This donation is already matched to that application."
	}

	return err.Error()
}
