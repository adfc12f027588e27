package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/ccrm-api/internal/models"
)

// NewValidator returns a validator with the records-specific tags:
// email_format, regno and course_code.
func NewValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("email_format", func(fl validator.FieldLevel) bool {
		return models.IsValidEmail(fl.Field().String())
	})
	_ = v.RegisterValidation("regno", func(fl validator.FieldLevel) bool {
		return models.IsValidRegistrationNumber(fl.Field().String())
	})
	_ = v.RegisterValidation("course_code", func(fl validator.FieldLevel) bool {
		return models.IsValidCourseCode(fl.Field().String())
	})
	return v
}
