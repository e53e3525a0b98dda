package validator

import (
	"fmt"
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var phonePattern = regexp.MustCompile(`^\d{10}$`)

// RegisterCustomRules installs domain validation rules on gin's binding
// engine. Must be called once before the router handles requests.
func RegisterCustomRules() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected binding validator engine")
	}

	// phone10: exactly ten digits, the format the dashboard collects.
	// Empty values pass; pair with required when the field is mandatory.
	return v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		s := fl.Field().String()
		if s == "" {
			return true
		}
		return phonePattern.MatchString(s)
	})
}

// ValidPhone reports whether s is an acceptable contact number.
func ValidPhone(s string) bool {
	return phonePattern.MatchString(s)
}
