package dto

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/eachn05-lang/Ea-desk/pkg/util"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report field names the way they appear on the wire.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate runs struct rules over a request payload and folds violations
// into the shared validation error shape, one entry per offending field.
func Validate(payload any) error {
	err := validate.Struct(payload)
	if err == nil {
		return nil
	}

	var violations validator.ValidationErrors
	if !errors.As(err, &violations) {
		return util.NewValidationError("invalid payload", nil)
	}

	fields := make([]string, 0, len(violations))
	for _, violation := range violations {
		fields = append(fields, violation.Field())
	}
	return util.NewValidationError("invalid payload", map[string]any{"fields": fields})
}
