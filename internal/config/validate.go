package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"fsdlint/internal/layers"
)

// ConfigError is a fatal configuration problem naming the offending
// field. The CLI maps it to exit code 2.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// validate is a singleton validator instance.
var validate *validator.Validate

func init() {
	validate = validator.New()
	// Report fields under their yaml names so errors match the file.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks tag constraints plus the relational invariants tags
// cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return configErrorFrom(err)
	}

	// The layer model enforces non-empty, unique names.
	if _, err := layers.NewModel(c.LayerDefinitions()); err != nil {
		return &ConfigError{Field: "layers", Reason: err.Error()}
	}

	for prefix, target := range c.Aliases {
		if strings.TrimSpace(prefix) == "" {
			return &ConfigError{Field: "aliases", Reason: "alias prefixes cannot be empty"}
		}
		clean := strings.TrimPrefix(target, "./")
		if clean == ".." || strings.HasPrefix(clean, "../") {
			return &ConfigError{Field: "aliases", Reason: fmt.Sprintf("alias %q points outside the source root", prefix)}
		}
	}

	if c.Scanner.ParseTimeout != "" {
		if _, err := time.ParseDuration(c.Scanner.ParseTimeout); err != nil {
			return &ConfigError{Field: "scanner.parse_timeout", Reason: err.Error()}
		}
	}

	if c.PublicAPI.CrossRefDir != "" && strings.ContainsAny(c.PublicAPI.CrossRefDir, "/\\") {
		return &ConfigError{Field: "public_api.cross_ref_dir", Reason: "must be a bare directory name"}
	}

	return nil
}

// configErrorFrom converts the first validator error into a ConfigError.
func configErrorFrom(err error) error {
	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &ConfigError{Field: "config", Reason: err.Error()}
	}

	for _, e := range validationErrs {
		field := fieldPath(e)
		switch e.Tag() {
		case "required":
			return &ConfigError{Field: field, Reason: "field is required"}
		case "min":
			return &ConfigError{Field: field, Reason: fmt.Sprintf("must be at least %s", e.Param())}
		case "max":
			return &ConfigError{Field: field, Reason: fmt.Sprintf("must not exceed %s", e.Param())}
		case "oneof":
			return &ConfigError{Field: field, Reason: fmt.Sprintf("must be one of: %s", strings.ReplaceAll(e.Param(), " ", ", "))}
		default:
			return &ConfigError{Field: field, Reason: fmt.Sprintf("validation failed (%s)", e.Tag())}
		}
	}
	return &ConfigError{Field: "config", Reason: err.Error()}
}

// fieldPath strips the root struct name from the validator namespace,
// leaving the yaml path of the offending field.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}
