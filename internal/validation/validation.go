// Package validation checks inbound request bodies before anything is
// mutated. Failures are reported as a list of field violations.
package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	appErrors "github.com/BeygonK/Health-Information-System/pkg/errors"
)

// Only the shape is checked; 2024-02-31 is accepted.
var isoDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const bodyField = "body"

// Validator wraps go-playground/validator with the tags and messages the
// request schemas use.
type Validator struct {
	validate *validator.Validate
}

// New constructs a Validator with the custom tags registered.
func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	// Registration only fails for empty tags or nil funcs.
	_ = v.RegisterValidation("nonempty", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.String && fl.Field().Len() > 0
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return fl.Field().Kind() == reflect.String && isoDatePattern.MatchString(fl.Field().String())
	})
	return &Validator{validate: v}
}

// Struct validates payload against its struct tags.
func (v *Validator) Struct(payload interface{}, message string) error {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "validator misconfigured")
	}
	violations := make([]appErrors.FieldViolation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		violations = append(violations, appErrors.FieldViolation{Field: fe.Field(), Reason: reason(fe)})
	}
	return appErrors.Validation(message, violations)
}

// DecodeJSON reads a single JSON object from r into dest. Syntax and type
// problems come back as validation errors naming the offending field.
func (v *Validator) DecodeJSON(r io.Reader, dest interface{}) error {
	if r == nil {
		return bodyViolation("request body is required")
	}
	dec := json.NewDecoder(r)
	if err := dec.Decode(dest); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.Is(err, io.EOF):
			return bodyViolation("request body is required")
		case errors.As(err, &syntaxErr), errors.Is(err, io.ErrUnexpectedEOF):
			return bodyViolation("malformed JSON")
		case errors.As(err, &typeErr):
			if typeErr.Field == "" {
				return bodyViolation("must be a JSON object")
			}
			return appErrors.Validation("invalid request body", []appErrors.FieldViolation{{
				Field:  typeErr.Field,
				Reason: fmt.Sprintf("must be a %s, got %s", jsonKind(typeErr.Type), typeErr.Value),
			}})
		default:
			return bodyViolation(err.Error())
		}
	}
	if dec.More() {
		return bodyViolation("must contain a single JSON object")
	}
	return nil
}

func bodyViolation(reason string) error {
	return appErrors.Validation("invalid request body", []appErrors.FieldViolation{{Field: bodyField, Reason: reason}})
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "nonempty":
		return "must not be empty"
	case "isodate":
		return "must be a date formatted YYYY-MM-DD"
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func jsonKind(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Struct, reflect.Map:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return "number"
	}
}
