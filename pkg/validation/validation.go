// Package validation wraps go-playground/validator with readable messages.
//
// Struct tags are the single place where input rules live:
//
//	type CreateStudent struct {
//	    Name        string `json:"name" validate:"notblank,max=100"`
//	    ClassroomID int64  `json:"classroom_id" validate:"gt=0"`
//	}
//
// Field names in messages come from the json tag when present.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

// FieldError is a single failed rule.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error collects every failed rule of a struct.
type Error struct {
	Fields []FieldError
}

// Error implements the error interface.
func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + " " + f.Message
	}
	return strings.Join(parts, "; ")
}

// Validator validates structs by their `validate` tags.
type Validator struct {
	v *validator.Validate
}

// New creates a Validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})

	// notblank: a string with at least one non-space character.
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.String {
			return !f.IsZero()
		}
		return strings.TrimSpace(f.String()) != ""
	})

	// maxtrim: like max for strings, measured after trimming.
	_ = v.RegisterValidation("maxtrim", func(fl validator.FieldLevel) bool {
		var limit int
		if _, err := fmt.Sscan(fl.Param(), &limit); err != nil {
			return false
		}
		return utf8.RuneCountInString(strings.TrimSpace(fl.Field().String())) <= limit
	})

	return &Validator{v: v}
}

// Struct validates s. It returns nil or an *Error.
func (v *Validator) Struct(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := &Error{Fields: make([]FieldError, 0, len(ve))}
	for _, fe := range ve {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: message(fe)})
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "is required"
	case "max", "maxtrim":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at most %s items", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "datetime":
		if fe.Param() == "2006-01-02" {
			return "must be a date in YYYY-MM-DD format"
		}
		return fmt.Sprintf("must match the layout %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed the %q rule", fe.Tag())
	}
}

var (
	defaultOnce sync.Once
	defaultV    *Validator
)

// Struct validates s with a shared Validator.
func Struct(s any) error {
	defaultOnce.Do(func() { defaultV = New() })
	return defaultV.Struct(s)
}
