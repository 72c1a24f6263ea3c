package handler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/sumire/guildcloner/internal/cloner"
	"github.com/sumire/guildcloner/internal/domain"
)

// AppValidator wraps go-playground/validator for echo. It reports fields by
// their JSON names and knows the "snowflake" tag for Discord IDs.
type AppValidator struct {
	validator *validator.Validate
}

// NewAppValidator creates a new AppValidator.
func NewAppValidator() *AppValidator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registering a fixed tag with a non-nil func cannot fail.
	_ = v.RegisterValidation("snowflake", func(fl validator.FieldLevel) bool {
		return cloner.ValidSnowflake(fl.Field().String())
	})
	return &AppValidator{validator: v}
}

// Validate validates a struct using go-playground/validator tags.
func (v *AppValidator) Validate(i any) error {
	err := v.validator.Struct(i)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok || len(validationErrors) == 0 {
		return fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	fe := validationErrors[0]
	msg := fmt.Sprintf("failed on '%s' validation", fe.Tag())
	switch fe.Tag() {
	case "snowflake":
		msg = "must be a Discord ID"
	case "nefield":
		msg = domain.ErrSameGuild.Error()
	}
	return &domain.ValidationError{Field: fe.Field(), Message: msg}
}
