package shortcode

import (
	"fmt"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/sp3dr4/snip/internal/domain"
)

const (
	FieldURL        = "url"
	FieldCustomCode = "customCode"
)

// Reserved holds the fixed top-level routes. A code equal to one of them
// could be created but never redirected to.
var Reserved = map[string]bool{
	"api":     true,
	"health":  true,
	"healthz": true,
	"metrics": true,
	"ready":   true,
	"redoc":   true,
	"swagger": true,
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		_ = validate.RegisterValidation("unreserved", func(fl validator.FieldLevel) bool {
			return !Reserved[fl.Field().String()]
		})
	})
	return validate
}

// Validate trims a caller supplied code and accepts it iff it matches
// [A-Za-z0-9]{6,8} and is not a reserved route.
func Validate(code string) (string, error) {
	code = strings.TrimSpace(code)
	err := validatorInstance().Var(code, fmt.Sprintf("required,alphanum,min=%d,max=%d,unreserved", MinLength, MaxLength))
	if err != nil {
		return "", toValidationError(FieldCustomCode, err)
	}
	return code, nil
}

// ValidateURL accepts absolute http(s) URLs with a host.
func ValidateURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if err := validatorInstance().Var(rawURL, "required,http_url"); err != nil {
		return "", toValidationError(FieldURL, err)
	}
	return rawURL, nil
}

func toValidationError(field string, err error) error {
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok || len(fieldErrs) == 0 {
		return domain.NewValidationError(field, fmt.Sprintf("%s is invalid", field))
	}
	return domain.NewValidationError(field, message(field, fieldErrs[0]))
}

func message(field string, e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url", "http_url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "alphanum":
		return fmt.Sprintf("%s must contain only alphanumeric characters", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters long", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters long", field, e.Param())
	case "unreserved":
		return fmt.Sprintf("%s is reserved", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
