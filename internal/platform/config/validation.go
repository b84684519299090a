package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate reports fields by their koanf key so messages match the YAML
// and the APP_ environment variables.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("koanf"), ",")
		if name == "" || name == "-" {
			return f.Name
		}

		return name
	})

	return v
}

// fieldMessages maps a validator tag onto a message. %[1]s is the field
// path, %[2]s the tag parameter.
var fieldMessages = map[string]string{
	"required":    "%[1]s is required",
	"required_if": "%[1]s is required when %[2]s",
	"min":         "%[1]s must be at least %[2]s",
	"max":         "%[1]s must be at most %[2]s",
	"gt":          "%[1]s must be greater than %[2]s",
	"oneof":       "%[1]s must be one of: %[2]s",
	"startswith":  "%[1]s must start with %[2]q",
	"url":         "%[1]s must be a valid URL",
}

// Validate checks the whole configuration and reports every failing field.
// The service refuses to start on error.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	lines := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		lines = append(lines, formatFieldError(fe))
	}

	return fmt.Errorf("config validation failed:\n  %s", strings.Join(lines, "\n  "))
}

func formatFieldError(fe validator.FieldError) string {
	field := formatFieldPath(fe.Namespace())

	if msg, ok := fieldMessages[fe.Tag()]; ok {
		return fmt.Sprintf(msg, field, fe.Param())
	}

	return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
}

// formatFieldPath drops the root struct from "Config.sync.interval".
func formatFieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}

	return namespace
}
