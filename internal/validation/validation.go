// Package validation runs go-playground/validator against request structs
// and renders failures as field messages keyed by json name.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/Skotchmaster/storefront/internal/apperr"
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	return &Validator{validate: v}
}

// Validate satisfies echo.Validator. The returned error is either nil or a
// *apperr.ValidationError.
func (v *Validator) Validate(i any) error {
	err := v.validate.Struct(i)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}
	out := apperr.NewValidation()
	for _, fe := range fieldErrs {
		field := fe.Field()
		out.Add(field, message(field, fe.Tag(), fe.Param()))
	}
	return out
}

// Attribute turns a wire field name into the phrase used in messages.
func Attribute(field string) string {
	return strings.ReplaceAll(field, "_", " ")
}

func Required(field string) string {
	return "The " + Attribute(field) + " field is required."
}

func MaxString(field, n string) string {
	return "The " + Attribute(field) + " field must not be greater than " + n + " characters."
}

func MustBeString(field string) string {
	return "The " + Attribute(field) + " field must be a string."
}

func MustBeNumber(field string) string {
	return "The " + Attribute(field) + " field must be a number."
}

func MustBeInteger(field string) string {
	return "The " + Attribute(field) + " field must be an integer."
}

func MinNumber(field, n string) string {
	return "The " + Attribute(field) + " field must be at least " + n + "."
}

func MaxNumber(field, n string) string {
	return "The " + Attribute(field) + " field must not be greater than " + n + "."
}

func Invalid(field string) string {
	return "The selected " + Attribute(field) + " is invalid."
}

func Taken(field string) string {
	return "The " + Attribute(field) + " has already been taken."
}

func message(field, tag, param string) string {
	switch tag {
	case "required":
		return Required(field)
	case "email":
		return "The " + Attribute(field) + " field must be a valid email address."
	case "min":
		return "The " + Attribute(field) + " field must be at least " + param + " characters."
	case "max":
		return MaxString(field, param)
	case "eqfield":
		return "The " + Attribute(field) + " does not match."
	case "gte":
		return MinNumber(field, param)
	case "lte":
		return MaxNumber(field, param)
	case "oneof":
		return Invalid(field)
	default:
		return "The " + Attribute(field) + " field is invalid."
	}
}
