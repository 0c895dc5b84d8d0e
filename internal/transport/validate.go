package transport

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/skincare_tracker/internal/service"
)

// Validator adapts validator/v10 to echo.Validator. Field names in errors
// follow the json tags.
type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("maxbytes", maxBytes)
	return &Validator{v: v}
}

// maxBytes bounds the encoded length of a string, not its rune count.
// bcrypt only accepts passwords up to 72 bytes.
func maxBytes(fl validator.FieldLevel) bool {
	limit, err := strconv.Atoi(fl.Param())
	if err != nil {
		return false
	}
	return len(fl.Field().String()) <= limit
}

func (cv *Validator) Validate(i any) error {
	if err := cv.v.Struct(i); err != nil {
		return &service.Error{Code: service.CodeValidation, Err: err}
	}
	return nil
}

// Bind decodes the request body into dst and validates it. A missing or
// malformed body is a validation error.
func Bind(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return &service.Error{Code: service.CodeValidation, Err: err}
	}
	return c.Validate(dst)
}
