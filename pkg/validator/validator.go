// Package validator validates request DTOs with struct tags and renders
// failures in English keyed by the JSON field name
package validator

import (
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	pkgerrors "github.com/Conte777/NewsFlow/services/session-service/pkg/errors"
)

// Validator wraps a validator instance with an English translator
type Validator struct {
	validate   *validator.Validate
	translator ut.Translator
}

// New creates a validator that reports JSON field names
func New() *Validator {
	validate := validator.New()

	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		tag := field.Tag.Get("json")
		if tag == "" {
			return field.Name
		}

		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})

	english := en.New()
	uni := ut.New(english, english)
	trans, _ := uni.GetTranslator("en")

	if err := enTranslations.RegisterDefaultTranslations(validate, trans); err != nil {
		panic("failed to register validator default translations: " + err.Error())
	}

	return &Validator{
		validate:   validate,
		translator: trans,
	}
}

// Validate checks i against its validate tags
func (v *Validator) Validate(i any) error {
	if err := v.validate.Struct(i); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			return &ValidationError{Errors: v.translateErrors(validationErrors)}
		}
		return err
	}
	return nil
}

func (v *Validator) translateErrors(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, err := range errs {
		out[err.Field()] = err.Translate(v.translator)
	}
	return out
}

// ValidationError lists failed fields with a readable message each
type ValidationError struct {
	Errors map[string]string `json:"errors"`
}

func (e *ValidationError) Error() string {
	fields := make([]string, 0, len(e.Errors))
	for field := range e.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	messages := make([]string, 0, len(fields))
	for _, field := range fields {
		messages = append(messages, e.Errors[field])
	}
	return strings.Join(messages, "; ")
}

// Unwrap exposes the failure as HTTP 400 to the error mapper
func (e *ValidationError) Unwrap() error {
	return pkgerrors.NewValidationError(e.Error())
}
