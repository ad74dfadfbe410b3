// Package validation checks request structs before they reach the network.
package validation

import (
	"errors"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/congo-pay/mobcash/internal/apperr"
)

var (
	once     sync.Once
	validate *validator.Validate
)

func instance() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates s and returns a Validation *apperr.Error keyed by JSON
// field name, or nil.
func Struct(s any) error {
	err := instance().Struct(s)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apperr.Transient(err, "")
	}
	fields := make(map[string][]string, len(fieldErrs))
	var first string
	for _, fe := range fieldErrs {
		msg := message(fe)
		fields[fe.Field()] = append(fields[fe.Field()], msg)
		if first == "" {
			first = msg
		}
	}
	return apperr.Validation(first, fields)
}

func message(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "numeric":
		return field + " must contain digits only"
	case "min":
		if fe.Kind() == reflect.String {
			return field + " must be at least " + fe.Param() + " characters"
		}
		return field + " must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return field + " must be at most " + fe.Param() + " characters"
		}
		return field + " must be at most " + fe.Param()
	case "gt":
		return field + " must be greater than " + fe.Param()
	case "gte":
		return field + " must be greater than or equal to " + fe.Param()
	case "lte":
		return field + " must be less than or equal to " + fe.Param()
	case "oneof":
		return field + " must be one of " + fe.Param()
	default:
		return field + " is invalid"
	}
}
