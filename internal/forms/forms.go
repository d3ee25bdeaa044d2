// Package forms validates bound request shapes and carries field-scoped messages back to templates.
package forms

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldError is a message attached to one form field. An empty Field marks a form-level message.
type FieldError struct {
	Field   string
	Message string
}

// Errors is an ordered list of field errors; nil means the form is valid.
type Errors []FieldError

// Add appends a message for field.
func (e *Errors) Add(field, message string) {
	*e = append(*e, FieldError{Field: field, Message: message})
}

// Has reports whether field has at least one message.
func (e Errors) Has(field string) bool {
	for _, fe := range e {
		if fe.Field == field {
			return true
		}
	}
	return false
}

// For returns the messages attached to field, in insertion order.
func (e Errors) For(field string) []string {
	var out []string
	for _, fe := range e {
		if fe.Field == field {
			out = append(out, fe.Message)
		}
	}
	return out
}

// Global returns the form-level messages.
func (e Errors) Global() []string {
	return e.For("")
}

// Validator runs struct-tag rules against form shapes using the configured Rules.
type Validator struct {
	validate *validator.Validate
	rules    Rules
}

// New registers the custom tags (account_username, account_email, notblank, password_policy)
// backed by rules. Nil predicates fall back to the defaults.
func New(rules Rules) *Validator {
	rules = rules.withDefaults()

	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(formFieldName)
	mustRegister(v, "notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	mustRegister(v, "account_username", func(fl validator.FieldLevel) bool {
		return rules.Username(fl.Field().String())
	})
	mustRegister(v, "account_email", func(fl validator.FieldLevel) bool {
		return rules.Email(fl.Field().String())
	})
	mustRegister(v, "password_policy", func(fl validator.FieldLevel) bool {
		return rules.Password(fl.Field().String())
	})

	return &Validator{validate: v, rules: rules}
}

// Rules returns the effective rules, defaults applied.
func (v *Validator) Rules() Rules {
	return v.rules
}

// Validate checks form (a struct or pointer to struct) and returns one message per failing field.
func (v *Validator) Validate(form any) Errors {
	err := v.validate.Struct(form)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return Errors{{Message: err.Error()}}
	}
	out := make(Errors, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		out.Add(fe.Field(), v.message(fe))
	}
	return out
}

func (v *Validator) message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "notblank":
		return "must not be blank"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "account_username":
		return UsernameMessage
	case "account_email":
		return "must be a well-formed email address"
	case "password_policy":
		return fmt.Sprintf("must be %d to %d characters long and contain a letter and a digit",
			v.rules.PasswordMinLength, PasswordMaxBytes)
	case "eqfield":
		return "passwords do not match"
	default:
		return fmt.Sprintf("is invalid (%s)", fe.Tag())
	}
}

func formFieldName(field reflect.StructField) string {
	name, _, _ := strings.Cut(field.Tag.Get("form"), ",")
	if name == "-" {
		return ""
	}
	if name == "" {
		return field.Name
	}
	return name
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}
