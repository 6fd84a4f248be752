package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/joeynyc/Citadel-Local/internal/council"
	"github.com/joeynyc/Citadel-Local/internal/review"
)

// LogFormats lists the accepted log.format values.
var LogFormats = []string{"console", "json", "text"}

func newValidator() *validator.Validate {
	validate := validator.New()

	_ = validate.RegisterValidation("failon", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		return v == "none" || review.ValidSeverity(v)
	})
	_ = validate.RegisterValidation("onerror", func(fl validator.FieldLevel) bool {
		_, err := council.ParseFailureMode(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("matchpolicy", func(fl validator.FieldLevel) bool {
		_, err := council.ParseMatchPolicy(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v == "" {
			return true
		}
		_, err := zerolog.ParseLevel(v)
		return err == nil
	})
	_ = validate.RegisterValidation("logformat", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v == "" {
			return true
		}
		for _, f := range LogFormats {
			if v == f {
				return true
			}
		}
		return false
	})
	return validate
}

// Validate checks cfg against its struct tags and the custom rules for
// severities, failure modes, match policies and log settings.
func Validate(cfg Config) error {
	err := newValidator().Struct(cfg)
	if err == nil {
		return nil
	}
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msg := fmt.Sprintf("Validation failed for '%s': rule '%s'", strings.TrimPrefix(e.Namespace(), "Config."), e.Tag())
		if e.Param() != "" {
			msg += fmt.Sprintf(" (expected: %s)", e.Param())
		}
		if e.Value() != nil && e.Value() != "" {
			msg += fmt.Sprintf(", actual: '%v'", e.Value())
		}
		msgs = append(msgs, msg)
	}
	return fmt.Errorf("%w:\n  %s", ErrInvalid, strings.Join(msgs, "\n  "))
}
