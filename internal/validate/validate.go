// Package validate wraps go-playground/validator with the custom rules used by
// request payloads and recap type definitions.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/wolfeidau/casework/internal/period"
)

// ErrInvalid wraps every validation failure so callers can map it to a 400.
var ErrInvalid = errors.New("validation failed")

// Validator validates structs using `validate` tags.
type Validator struct {
	validate *validator.Validate
}

// New creates a validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report json field names instead of Go field names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("month", validateMonth)
	_ = v.RegisterValidation("engagement_date", validateEngagementDate)
	_ = v.RegisterValidation("recap_date", validateRecapDate)

	return &Validator{validate: v}
}

// Struct validates s and returns an error wrapping ErrInvalid that lists every failing field.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describe(fe))
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(msgs, "; "))
}

// Var validates a single value against a tag.
func (v *Validator) Var(field string, value any, tag string) error {
	if err := v.validate.Var(value, tag); err != nil {
		return fmt.Errorf("%w: %s failed %q", ErrInvalid, field, tag)
	}
	return nil
}

func describe(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "month":
		return field + " must be YYYY-MM"
	case "engagement_date":
		return field + " must be MM/DD/YYYY"
	case "recap_date":
		return field + " must be a date"
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func validateMonth(fl validator.FieldLevel) bool {
	_, err := period.ParseMonth(fl.Field().String())
	return err == nil
}

func validateEngagementDate(fl validator.FieldLevel) bool {
	_, err := period.ParseEngagementDate(fl.Field().String(), time.UTC)
	return err == nil
}

func validateRecapDate(fl validator.FieldLevel) bool {
	_, err := period.ParseRecapDate(fl.Field().String(), time.UTC)
	return err == nil
}
