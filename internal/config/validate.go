package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())

		// report yaml keys instead of Go field names
		validate.RegisterTagNameFunc(func(field reflect.StructField) string {
			name, _, _ := strings.Cut(field.Tag.Get("yaml"), ",")
			if name == "" || name == "-" {
				return field.Name
			}
			return name
		})
	})

	return validate
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return err
		}

		messages := make([]string, 0, len(validationErrors))
		for _, fieldErr := range validationErrors {
			messages = append(messages, fieldMessage(fieldErr))
		}

		return errors.New(strings.Join(messages, "; "))
	}

	if c.Database.Adapter == AdapterPGXPool && c.Database.Dialect != "postgres" {
		return fmt.Errorf("database.dialect must be postgres for adapter %s, got %q", AdapterPGXPool, c.Database.Dialect)
	}

	if c.Database.ReplicaDSN != "" && c.Database.Adapter != AdapterPGXPool {
		return fmt.Errorf("database.replica_dsn is only supported by adapter %s", AdapterPGXPool)
	}

	return nil
}

func fieldMessage(fieldErr validator.FieldError) string {
	// Namespace is Config.section.key, drop the root struct name
	_, path, _ := strings.Cut(fieldErr.Namespace(), ".")

	switch fieldErr.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", path)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", path, fieldErr.Param(), fieldErr.Value())
	case "min", "max":
		return fmt.Sprintf("%s must satisfy %s=%s, got %v", path, fieldErr.Tag(), fieldErr.Param(), fieldErr.Value())
	default:
		return fmt.Sprintf("%s failed on %s", path, fieldErr.Tag())
	}
}
