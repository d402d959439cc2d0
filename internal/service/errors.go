package service

import (
	"errors"
	"fmt"

	"github.com/lib/pq"
)

// Kind classifies a failure so the HTTP boundary can pick a status code.
type Kind int

const (
	KindInternal Kind = iota
	KindConflict
	KindAuthFailed
	KindForbidden
	KindNotFound
	KindBadRequest
)

func (k Kind) String() string {
	switch k {
	case KindConflict:
		return "Conflict"
	case KindAuthFailed:
		return "AuthFailed"
	case KindForbidden:
		return "Forbidden"
	case KindNotFound:
		return "NotFound"
	case KindBadRequest:
		return "BadRequest"
	default:
		return "Internal"
	}
}

// Error is the typed outcome returned by the orchestrators.
// Message is safe to show to clients; Err is the cause and never is.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func Conflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func AuthFailed(msg string) *Error {
	return &Error{Kind: KindAuthFailed, Message: msg}
}

func Forbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NotFound(msg string) *Error {
	return &Error{Kind: KindNotFound, Message: msg}
}

func BadRequest(msg string) *Error {
	return &Error{Kind: KindBadRequest, Message: msg}
}

// Internal wraps an unexpected failure. op names the failing operation.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Message: "Internal server error", Err: fmt.Errorf("%s: %w", op, err)}
}

// KindOf returns the Kind of err, or KindInternal when err is not an *Error.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindInternal
}

// Postgres SQLSTATE codes the boundary treats as client errors.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a Postgres unique_violation.
func IsUniqueViolation(err error) bool {
	return pqCode(err) == pqUniqueViolation
}

// IsForeignKeyViolation reports whether err is a Postgres foreign_key_violation.
func IsForeignKeyViolation(err error) bool {
	return pqCode(err) == pqForeignKeyViolation
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// fromStore maps a storage failure onto the taxonomy. Constraint violations that
// raced past a pre-check become Conflict or BadRequest, everything else is Internal.
func fromStore(op string, err error, conflictMsg string) *Error {
	switch {
	case IsUniqueViolation(err):
		return &Error{Kind: KindConflict, Message: conflictMsg, Err: err}
	case IsForeignKeyViolation(err):
		return &Error{Kind: KindBadRequest, Message: "Referenced record does not exist", Err: err}
	default:
		return Internal(op, err)
	}
}
