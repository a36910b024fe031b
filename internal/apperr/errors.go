// Package apperr defines the typed errors shared by every engine. Inner
// layers return *Error values (or wrap them); the HTTP boundary maps the
// Kind to a status code.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the surface-stable error classification.
type Kind string

const (
	KindValidation       Kind = "VALIDATION"
	KindUnauthenticated  Kind = "UNAUTHENTICATED"
	KindForbidden        Kind = "FORBIDDEN"
	KindNotFound         Kind = "NOT_FOUND"
	KindConflict         Kind = "CONFLICT"
	KindQuotaExceeded    Kind = "QUOTA_EXCEEDED"
	KindNoPrice          Kind = "NO_PRICE"
	KindTankInsufficient Kind = "TANK_INSUFFICIENT"
	KindExternal         Kind = "EXTERNAL"
	KindInternal         Kind = "INTERNAL"
)

// Machine codes carried alongside the kind. Handlers and clients branch on
// these, never on message text.
const (
	CodeSequenceViolation   = "SEQUENCE_VIOLATION"
	CodeCreditLimitExceeded = "CREDIT_LIMIT_EXCEEDED"
	CodeCreditorFlagged     = "CREDITOR_FLAGGED"
	CodeBackdatedExceeded   = "BACKDATED_EXCEEDED"
	CodeNozzleNotFound      = "NOZZLE_NOT_FOUND"
	CodeUnauthorizedStation = "UNAUTHORIZED_STATION"
	CodeShiftActive         = "SHIFT_ACTIVE"
	CodeSettlementLocked    = "SETTLEMENT_LOCKED"
	CodeDuplicateReading    = "DUPLICATE_READING"
	CodeFeatureDisabled     = "FEATURE_DISABLED"
	CodeFutureDate          = "FUTURE_DATE"
)

// Error is the concrete error type carried across layers.
type Error struct {
	Kind    Kind
	Code    string // machine code; defaults to string(Kind)
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New creates an error of the given kind with the kind as its code.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Code: string(kind), Message: message}
}

// Newf is New with formatting.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Coded creates an error with an explicit machine code.
func Coded(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Codedf is Coded with formatting.
func Codedf(kind Kind, code, format string, args ...any) *Error {
	return Coded(kind, code, fmt.Sprintf(format, args...))
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, message string) *Error {
	return &Error{Kind: kind, Code: string(kind), Message: message, Err: err}
}

// KindOf extracts the kind from an error chain. Unknown errors are INTERNAL.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf extracts the machine code from an error chain.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return string(KindInternal)
}

// MessageOf returns the user-facing message for an error chain. Internal
// errors get a fixed message so details never leak to clients.
func MessageOf(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Kind != KindInternal {
		return e.Message
	}
	return "internal server error"
}

// IsKind reports whether the error chain carries the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// HTTPStatus maps a kind to its HTTP status code.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindNoPrice, KindTankInsufficient:
		return http.StatusConflict
	case KindQuotaExceeded:
		return http.StatusTooManyRequests
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
