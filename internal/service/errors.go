package service

import "errors"

// Code is the client-facing error identifier.
type Code string

const (
	CodeEmailExists         Code = "email_exists"
	CodeInvalidCredentials  Code = "invalid_credentials"
	CodeInvalidToken        Code = "invalid_token"
	CodeMissingRefreshToken Code = "missing_refresh_token"
	CodeUnauthorized        Code = "unauthorized"
	CodeValidation          Code = "validation_error"
	CodeRateLimited         Code = "rate_limit_exceeded"
	CodeNotFound            Code = "not_found"
	CodeServerError         Code = "server_error"
)

// Error is an expected failure of an auth operation. Err, when set, is
// for logs only and never reaches the client.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return string(e.Code) + ": " + e.Err.Error()
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches on Code, so errors.Is(err, ErrInvalidToken) holds for any
// wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrEmailExists         = &Error{Code: CodeEmailExists}
	ErrInvalidCredentials  = &Error{Code: CodeInvalidCredentials}
	ErrInvalidToken        = &Error{Code: CodeInvalidToken}
	ErrMissingRefreshToken = &Error{Code: CodeMissingRefreshToken}
	ErrUnauthorized        = &Error{Code: CodeUnauthorized}
	ErrValidation          = &Error{Code: CodeValidation}
	ErrRateLimited         = &Error{Code: CodeRateLimited}
	ErrServer              = &Error{Code: CodeServerError}
)

func serverError(err error) error {
	return &Error{Code: CodeServerError, Err: err}
}

// CodeOf maps any error to a client code; unknown errors are server errors.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeServerError
}
