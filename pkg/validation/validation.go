// Package validation validates request structs through their `validate`
// tags and turns the first violation into a client-readable domain error.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	dErrors "roster/pkg/domain-errors"
	"roster/pkg/strutil"
)

var defaultValidator = newValidator()

// newValidator registers the portal's custom tags on top of the stock set.
// "notblank" exists because `required` accepts strings of pure whitespace,
// and a subject ID of three spaces must not start a run.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// Validate checks req against its `validate` tags. A violation comes back
// as CodeValidation with a message naming the offending field.
func Validate(req any) error {
	if err := defaultValidator.Struct(req); err != nil {
		return dErrors.New(dErrors.CodeValidation, ErrorMessage(err))
	}
	return nil
}

// ErrorMessage renders the first validation failure. Field names are
// reported in snake_case to match the JSON the client sent.
func ErrorMessage(err error) string {
	var violations validator.ValidationErrors
	if !errors.As(err, &violations) || len(violations) == 0 {
		return "invalid request body"
	}
	return describe(violations[0])
}

func describe(fe validator.FieldError) string {
	field := strutil.ToSnakeCase(fieldName(fe))
	if field == "" {
		return "invalid request body"
	}

	switch fe.ActualTag() {
	case "required":
		return field + " is required"
	case "notblank":
		return field + " must not be blank"
	case "email":
		return field + " must be a valid email"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return field + " is invalid"
	}
}

func fieldName(fe validator.FieldError) string {
	if name := fe.Field(); name != "" {
		return name
	}
	return fe.StructField()
}
