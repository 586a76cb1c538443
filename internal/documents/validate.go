package documents

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/manigandan-posana/vebops/internal/common"
	"github.com/manigandan-posana/vebops/internal/lineitem"
)

// NewValidator returns a validator that reports JSON field names and compares
// lenient numbers by value.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	v.RegisterCustomTypeFunc(func(field reflect.Value) any {
		switch n := field.Interface().(type) {
		case lineitem.Number:
			f, _ := n.Float64()
			return f
		case lineitem.Percent:
			f, _ := n.Float64()
			return f
		}
		return nil
	}, lineitem.Number{}, lineitem.Percent{})
	return v
}

func validationError(err error) error {
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	details := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		field := fe.Namespace()
		if _, rest, ok := strings.Cut(field, "."); ok {
			field = rest
		}
		details[field] = fe.Tag()
	}
	return common.BadRequest("VALIDATION_FAILED", "request validation failed", details)
}
