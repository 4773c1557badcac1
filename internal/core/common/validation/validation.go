package validation

import (
	"regexp"
	"strings"
	"unicode/utf8"

	errors "github.com/frahmantamala/spine-admin/internal"
)

var EmailPattern = regexp.MustCompile(`^[A-Za-z0-9+_.-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}$`)

type ValidatorFunc func(value string) *errors.AppError

type FieldValidator struct {
	FieldName  string
	Value      string
	Validators []ValidatorFunc
}

// ValidationBuilder runs field checks in declaration order.
type ValidationBuilder struct {
	fields []*FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{fields: make([]*FieldValidator, 0)}
}

func (v *ValidationBuilder) Field(name, value string) *FieldValidator {
	fv := &FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return fv
}

// Required fails on empty or whitespace-only values.
func (fv *FieldValidator) Required(message string) *FieldValidator {
	return fv.Custom(func(value string) *errors.AppError {
		if strings.TrimSpace(value) == "" {
			return errors.NewValidationFieldError(fv.FieldName, message, errors.ErrCodeRequiredField)
		}
		return nil
	})
}

// MinLength counts characters, not bytes.
func (fv *FieldValidator) MinLength(min int, message string, code errors.ErrorCode) *FieldValidator {
	return fv.Custom(func(value string) *errors.AppError {
		if utf8.RuneCountInString(value) < min {
			return errors.NewValidationFieldError(fv.FieldName, message, code)
		}
		return nil
	})
}

func (fv *FieldValidator) Matches(pattern *regexp.Regexp, message string, code errors.ErrorCode) *FieldValidator {
	return fv.Custom(func(value string) *errors.AppError {
		if !pattern.MatchString(value) {
			return errors.NewValidationFieldError(fv.FieldName, message, code)
		}
		return nil
	})
}

func (fv *FieldValidator) Email(message string) *FieldValidator {
	return fv.Matches(EmailPattern, message, errors.ErrCodeInvalidEmail)
}

// OneOf compares case-insensitively after trimming and attaches the allowed values to the error.
func (fv *FieldValidator) OneOf(allowed []string, message string, code errors.ErrorCode, detailsKey string) *FieldValidator {
	return fv.Custom(func(value string) *errors.AppError {
		candidate := strings.TrimSpace(value)
		for _, a := range allowed {
			if strings.EqualFold(a, candidate) {
				return nil
			}
		}
		err := errors.NewValidationError(message, code)
		if detailsKey != "" {
			err.WithDetails(map[string]interface{}{detailsKey: allowed})
		}
		return err
	})
}

func (fv *FieldValidator) Custom(validator ValidatorFunc) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

// Validate returns the first failure; later fields are not checked.
func (v *ValidationBuilder) Validate() *errors.AppError {
	for _, field := range v.fields {
		for _, validator := range field.Validators {
			if err := validator(field.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateAll collects every failing field into one error.
func (v *ValidationBuilder) ValidateAll() *errors.AppError {
	var collected []errors.ValidationError
	for _, field := range v.fields {
		for _, validator := range field.Validators {
			if err := validator(field.Value); err != nil {
				collected = append(collected, errors.ValidationError{
					Field:   field.FieldName,
					Message: err.Message,
					Code:    string(err.Code),
				})
				break
			}
		}
	}
	if len(collected) == 0 {
		return nil
	}
	if len(collected) == 1 {
		return errors.NewValidationFieldError(collected[0].Field, collected[0].Message, errors.ErrorCode(collected[0].Code))
	}
	return errors.NewValidationError("Validation failed", errors.ErrCodeValidationFailed).
		WithDetails(errors.ValidationErrors{Errors: collected})
}
