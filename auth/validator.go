package auth

import (
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// LoginRequest carries the credentials of a login attempt. The phone
// is free-form digits with separators, matching how registration
// stores it.
type LoginRequest struct {
	Handle string `validate:"required,min=2,max=32"`
	Phone  string `validate:"required,min=7,max=20"`
}

func ValidateLogin(req LoginRequest) error {
	return validate.Struct(req)
}
