package transport

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_tracker/internal/logging"
	"github.com/Skotchmaster/skincare_tracker/internal/service"
)

type SuccessBody struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
}

type ErrorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}

var statusByCode = map[service.Code]int{
	service.CodeValidation:          http.StatusBadRequest,
	service.CodeMissingRefreshToken: http.StatusBadRequest,
	service.CodeInvalidCredentials:  http.StatusUnauthorized,
	service.CodeInvalidToken:        http.StatusUnauthorized,
	service.CodeUnauthorized:        http.StatusUnauthorized,
	service.CodeNotFound:            http.StatusNotFound,
	service.CodeEmailExists:         http.StatusConflict,
	service.CodeRateLimited:         http.StatusTooManyRequests,
	service.CodeServerError:         http.StatusInternalServerError,
}

func StatusFor(code service.Code) int {
	if st, ok := statusByCode[code]; ok {
		return st
	}
	return http.StatusInternalServerError
}

func OK(c echo.Context, status int, data any) error {
	return c.JSON(status, SuccessBody{Success: true, Data: data})
}

func OKMessage(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, SuccessBody{Success: true, Data: data, Message: message})
}

func Fail(c echo.Context, code service.Code, details any) error {
	return c.JSON(StatusFor(code), ErrorBody{Success: false, Error: string(code), Details: details})
}

// codeForHTTP maps errors raised by echo itself (routing, binding, the
// rate limiter) onto client codes.
func codeForHTTP(he *echo.HTTPError) service.Code {
	switch he.Code {
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		return service.CodeValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		return service.CodeUnauthorized
	case http.StatusNotFound, http.StatusMethodNotAllowed:
		return service.CodeNotFound
	case http.StatusTooManyRequests:
		return service.CodeRateLimited
	default:
		return service.CodeServerError
	}
}

// ErrorHandler renders every handler error as a failure envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		code    service.Code
		details any
		se      *service.Error
		he      *echo.HTTPError
	)
	switch {
	case errors.As(err, &se):
		code = se.Code
	case errors.As(err, &he):
		code = codeForHTTP(he)
	default:
		code = service.CodeServerError
	}

	var verrs validator.ValidationErrors
	if code == service.CodeValidation && errors.As(err, &verrs) {
		fields := make([]FieldError, 0, len(verrs))
		for _, fe := range verrs {
			fields = append(fields, FieldError{Field: fe.Field(), Rule: fe.Tag()})
		}
		details = fields
	}

	if code == service.CodeServerError {
		logging.FromContext(c.Request().Context()).Error("unhandled_error", "error", err)
	}

	var werr error
	if c.Request().Method == http.MethodHead {
		werr = c.NoContent(StatusFor(code))
	} else {
		werr = Fail(c, code, details)
	}
	if werr != nil {
		logging.FromContext(c.Request().Context()).Error("error_response_failed", "error", werr)
	}
}
