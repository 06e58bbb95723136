package main

import "fmt"

// ErrorKind groups failure codes by how callers should react.
type ErrorKind string

const (
	KindValidation    ErrorKind = "VALIDATION"
	KindAuthorization ErrorKind = "AUTHORIZATION"
	KindNotFound      ErrorKind = "NOT_FOUND"
	KindConflict      ErrorKind = "CONFLICT"
)

// Failure codes surfaced to callers.
const (
	CodeLocationNotApproved = "LOCATION_NOT_APPROVED"
	CodeSeasonNotApproved   = "SEASON_NOT_APPROVED"
	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeInvalidQuantity     = "INVALID_QUANTITY"
	CodeUnsupportedUnit     = "UNSUPPORTED_UNIT"
	CodeInvalidRecord       = "INVALID_RECORD"
	CodeUnauthorizedRole    = "UNAUTHORIZED_ROLE"
	CodeInactiveCollector   = "INACTIVE_COLLECTOR"
	CodeNotCurrentCustodian = "NOT_CURRENT_CUSTODIAN"
	CodeNotFound            = "NOT_FOUND"
	CodeAlreadyExists       = "ALREADY_EXISTS"
)

// Error is the structured failure value returned by every operation. Callers
// branch on Code (or Kind) via errors.As instead of matching message text.
type Error struct {
	Kind    ErrorKind              `json:"kind"`
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Detail  map[string]interface{} `json:"detail,omitempty"`
}

func (e *Error) Error() string {
	return e.Code + ": " + e.Message
}

func validationError(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Code: code, Message: fmt.Sprintf(format, args...)}
}

func authorizationError(code, format string, args ...interface{}) *Error {
	return &Error{Kind: KindAuthorization, Code: code, Message: fmt.Sprintf(format, args...)}
}

func notFoundError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindNotFound, Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflictError(format string, args ...interface{}) *Error {
	return &Error{Kind: KindConflict, Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...)}
}

// withDetail attaches supporting data so the gateway can render actionable
// feedback without parsing the message.
func (e *Error) withDetail(key string, value interface{}) *Error {
	if e.Detail == nil {
		e.Detail = map[string]interface{}{}
	}
	e.Detail[key] = value
	return e
}
