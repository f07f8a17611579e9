package config

import (
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/serverkit/errors"
)

var (
	validate *validator.Validate
	once     sync.Once
)

// getValidator returns the singleton validator, reporting fields by their
// configuration key.
func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// validateFormat checks field shapes declared in `validate` tags. Only the
// first violation is reported.
func validateFormat(v *Values) error {
	err := getValidator().Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errors.New(errors.ErrCodeInvalidField, "configuration validation failed").WithCause(err)
	}
	fe := verrs[0]
	return errors.InvalidField(fe.Field(), formatValidationError(fe)).
		WithDetail(errors.DetailValue, strings.TrimSpace(valueString(fe.Value())))
}

// formatValidationError creates a human-readable error message.
func formatValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "email":
		return "must be a valid email address"
	case "url":
		return "must be an absolute URL"
	case "min":
		return "must be at least " + e.Param()
	case "startswith":
		return "must start with " + e.Param()
	default:
		return "failed " + e.Tag() + " check"
	}
}

func valueString(v any) string {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return ""
		}
		rv = rv.Elem()
	}
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return ""
}
