// Package validation checks request structs and collects field errors in
// the shape returned to clients: field name to list of messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// Errors maps a form field to its messages.
type Errors map[string][]string

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for field := range e {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(e[field], "; ")))
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e Errors) Add(field, message string) {
	e[field] = append(e[field], message)
}

// Err returns e as an error, or nil when it is empty.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

// AsErrors unwraps err into Errors.
func AsErrors(err error) (Errors, bool) {
	var verrs Errors
	if errors.As(err, &verrs) {
		return verrs, true
	}
	return nil, false
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// Struct validates s by its validate tags. The result is empty when s is valid.
func Struct(s any) Errors {
	out := Errors{}
	err := validate.Struct(s)
	if err == nil {
		return out
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		out.Add("", err.Error())
		return out
	}
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), message(fe))
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "This value should not be blank."
	case "min":
		return fmt.Sprintf("This value is too short. It should have %s characters or more.", fe.Param())
	case "max":
		return fmt.Sprintf("This value is too long. It should have %s characters or less.", fe.Param())
	case "email":
		return "This value is not a valid email address."
	}
	return fmt.Sprintf("This value is not valid (%s).", fe.Tag())
}
