// Package apperr defines the error categories every handler reports and how
// they map onto HTTP responses.
package apperr

import (
	"errors"
	"net/http"

	"gorm.io/gorm"
)

type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindValidation         Kind = "VALIDATION_ERROR"
	KindInvalidRange       Kind = "INVALID_RANGE"
	KindConflict           Kind = "CONFLICT"
	KindPersistence        Kind = "PERSISTENCE_FAILURE"
	KindAggregationFailure Kind = "AGGREGATION_FAILURE"
)

// Status returns the HTTP status code for the kind.
func (k Kind) Status() int {
	switch k {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindValidation, KindInvalidRange:
		return http.StatusBadRequest
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// Detail describes one offending field of a rejected request.
type Detail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type Error struct {
	Kind    Kind
	Message string
	Details []Detail
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func Unauthenticated(msg string) *Error { return New(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error       { return New(KindForbidden, msg) }
func NotFound(msg string) *Error        { return New(KindNotFound, msg) }
func Conflict(msg string) *Error        { return New(KindConflict, msg) }
func InvalidRange(msg string) *Error    { return New(KindInvalidRange, msg) }

func Validation(msg string, details ...Detail) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

func Persistence(msg string, err error) *Error {
	return Wrap(KindPersistence, msg, err)
}

func AggregationFailure(msg string, err error) *Error {
	return Wrap(KindAggregationFailure, msg, err)
}

// KindOf reports the category of err, or "" when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err is an application error of the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// FromDB classifies a gorm error. Record-not-found becomes NotFound with
// notFoundMsg, duplicate keys become Conflict with conflictMsg, anything else
// is a persistence failure. The DB must be opened with TranslateError.
func FromDB(err error, notFoundMsg, conflictMsg string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(notFoundMsg)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Conflict(conflictMsg)
	default:
		return Persistence("database operation failed", err)
	}
}
