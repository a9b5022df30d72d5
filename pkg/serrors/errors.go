package serrors

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// BaseError is a coded error that can be matched with errors.As and carries
// an optional locale key plus template data for user-facing rendering.
type BaseError struct {
	Code         string
	Message      string
	LocaleKey    string
	TemplateData map[string]string
}

func NewError(code, message, localeKey string) *BaseError {
	return &BaseError{
		Code:      code,
		Message:   message,
		LocaleKey: localeKey,
	}
}

func (e *BaseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// WithTemplateData returns a copy of the error enriched with template data,
// so package-level sentinel errors are never mutated.
func (e *BaseError) WithTemplateData(data map[string]string) *BaseError {
	clone := *e
	clone.TemplateData = data
	return &clone
}

// WithDetails appends detail text to the message, keeping the code stable.
func (e *BaseError) WithDetails(format string, args ...any) *BaseError {
	clone := *e
	clone.Message = fmt.Sprintf("%s: %s", e.Message, fmt.Sprintf(format, args...))
	return &clone
}

// Is matches two BaseErrors by code, which lets callers use errors.Is against
// package-level sentinels even after WithTemplateData/WithDetails copies.
func (e *BaseError) Is(target error) bool {
	other, ok := target.(*BaseError)
	if !ok {
		return false
	}
	return e.Code == other.Code
}

// ValidationErrors maps a struct field name to its validation failure.
type ValidationErrors map[string]*BaseError

func (v ValidationErrors) Error() string {
	return fmt.Sprintf("validation failed for %d field(s)", len(v))
}

// ProcessValidatorErrors converts go-playground validator output into coded
// errors, using getFieldLocaleKey to resolve the locale key per field.
func ProcessValidatorErrors(
	errs validator.ValidationErrors,
	getFieldLocaleKey func(field string) string,
) ValidationErrors {
	out := make(ValidationErrors, len(errs))
	for _, fieldErr := range errs {
		field := fieldErr.Field()
		out[field] = NewError(
			"VALIDATION_"+fieldErr.Tag(),
			fmt.Sprintf("field %q failed on the %q rule", field, fieldErr.Tag()),
			getFieldLocaleKey(field),
		)
	}
	return out
}
