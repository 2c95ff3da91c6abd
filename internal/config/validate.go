package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML key.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return []ValidationError{{Field: "config", Message: err.Error()}}
		}
		for _, fe := range fieldErrs {
			errs = append(errs, ValidationError{
				Field:   fieldPath(fe.Namespace()),
				Message: describe(fe),
			})
		}
	}

	for _, d := range []struct {
		field string
		value string
	}{
		{"pacing", cfg.Pacing},
		{"sandbox.timeout", cfg.Sandbox.Timeout},
	} {
		if d.value == "" {
			continue
		}
		if parsed, err := time.ParseDuration(d.value); err != nil || parsed < 0 {
			errs = append(errs, ValidationError{
				Field:   d.field,
				Message: fmt.Sprintf("invalid duration %q", d.value),
			})
		}
	}

	if cfg.Ingest.ChunkOverlap >= cfg.Ingest.ChunkSize && cfg.Ingest.ChunkSize > 0 {
		errs = append(errs, ValidationError{
			Field:   "ingest.chunk_overlap",
			Message: "must be smaller than ingest.chunk_size",
		})
	}

	switch cfg.Retrieval.Backend {
	case "postgres":
		if cfg.Retrieval.PostgresDSN == "" {
			errs = append(errs, ValidationError{Field: "retrieval.postgres_dsn", Message: "is required for the postgres backend"})
		}
	case "weaviate":
		if cfg.Retrieval.WeaviateURL == "" {
			errs = append(errs, ValidationError{Field: "retrieval.weaviate_url", Message: "is required for the weaviate backend"})
		}
	case "sqlite":
		if cfg.Retrieval.SQLitePath == "" {
			errs = append(errs, ValidationError{Field: "retrieval.sqlite_path", Message: "is required for the sqlite backend"})
		}
	}

	return errs
}

// fieldPath drops the root struct name: "Config.sandbox.backend" -> "sandbox.backend".
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "min", "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	case "max", "lte":
		return fmt.Sprintf("must be <= %s", fe.Param())
	case "url":
		return fmt.Sprintf("invalid URL %q", fmt.Sprint(fe.Value()))
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}
