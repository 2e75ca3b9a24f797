// Package validation wraps go-playground/validator with the field formats
// used across BCIERS payloads.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	dErrors "bciers/pkg/domain-errors"
)

var (
	craBusinessNumber = regexp.MustCompile(`^\d{9}$`)
	bcCorporateNumber = regexp.MustCompile(`^[A-Za-z]{1,3}\d{7}$`)
	naicsCode         = regexp.MustCompile(`^\d{6}$`)
	postalCode        = regexp.MustCompile(`^[A-Za-z]\d[A-Za-z] ?\d[A-Za-z]\d$`)
)

var (
	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
		mustRegister(v, "cra_bn", craBusinessNumber)
		mustRegister(v, "bc_corp", bcCorporateNumber)
		mustRegister(v, "naics", naicsCode)
		mustRegister(v, "postal_code", postalCode)
		instance = v
	})
	return instance
}

func mustRegister(v *validator.Validate, tag string, re *regexp.Regexp) {
	err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		return s == "" || re.MatchString(s)
	})
	if err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Struct validates s against its `validate` tags. Failures come back as a
// CodeValidation error naming the first offending field.
func Struct(s any) error {
	err := get().Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request")
	}
	return dErrors.New(dErrors.CodeValidation, describe(verrs[0]))
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, fe.Param())
	case "email":
		return field + " must be a valid email address"
	case "gte", "lte":
		return field + " is out of range"
	case "cra_bn":
		return field + " must be 9 digits"
	case "bc_corp":
		return field + " must be 1-3 letters followed by 7 digits"
	case "naics":
		return field + " must be a 6 digit NAICS code"
	case "postal_code":
		return field + " must be a valid postal code"
	default:
		return field + " is invalid"
	}
}
