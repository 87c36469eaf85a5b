package validator

import (
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"
)

var seatIDRgx = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

func NewValidator() *validator.Validate {
	validator := validator.New(validator.WithRequiredStructEnabled())

	validator.RegisterValidation("seat_id", validateSeatID)

	return validator
}

func validateSeatID(fl validator.FieldLevel) bool {
	return seatIDRgx.MatchString(fl.Field().String())
}

// ValidationMessage converts validator errors into readable messages
func ValidationMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must have at least %s elements", err.Param())
	case "max":
		return fmt.Sprintf("must have at most %s elements", err.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())
	case "seat_id":
		return "must be a valid seat id"
	default:
		return "is invalid"
	}
}
