package validation

import (
	"fmt"
	"reflect"
	"strings"

	pkgerrors "github.com/agrigenai/agrigen-backend/pkg/errors"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	return v
}

// Struct validates dest against its `validate` tags. Failures come back as a VALIDATION_ERROR whose
// details map every offending field (json name) to a short message, with the field names also
// listed under "fields" in sorted order.
func Struct(dest any) error {
	if err := validate.Struct(dest); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// Var validates a single value against a tag expression such as "required,email".
func Var(value any, tag string) bool {
	return validate.Var(value, tag) == nil
}

func formatValidationErrors(err error) *pkgerrors.Error {
	if errs, ok := err.(validator.ValidationErrors); ok {
		problems := make(map[string]string, len(errs))
		for _, fieldErr := range errs {
			problems[fieldErr.Field()] = validationMessage(fieldErr)
		}
		return pkgerrors.Invalid("validation failed", problems)
	}
	return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of %s", fe.Param())
	}
	return "is invalid"
}
