package workflow

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/okian/seoscore/internal/domain/model"
)

// newValidator returns the input validator. Field names in errors are the
// json names.
func newValidator(tag string) *validator.Validate {
	v := validator.New()
	if tag != "" {
		v.SetTagName(tag)
	}
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("month", func(fl validator.FieldLevel) bool {
		return model.ValidMonth(fl.Field().String())
	})
	return v
}

// validationError converts validator output into a ValidationError.
func validationError(err error, message string) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return &ValidationError{Message: message + ": " + err.Error()}
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	return &ValidationError{Fields: fields, Message: message}
}
