package auth

import (
	"unicode"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// SignUpRequest carries the fields of the account-creation form.
type SignUpRequest struct {
	FullName string `json:"fullName" validate:"required,min=2"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LogInRequest carries the credentials of the login form.
type LogInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfilePatch carries the updatable profile fields. Empty fields are
// left untouched by the server.
type ProfilePatch struct {
	FullName  string `json:"fullName,omitempty" validate:"omitempty,min=2"`
	AvatarURL string `json:"avatarUrl,omitempty" validate:"omitempty,url"`
}

// ValidateSignUp checks the form before any request is issued.
// Complexity rules run after the structural rules to give the
// cheapest failure first.
func ValidateSignUp(req SignUpRequest) error {
	if err := validate.Struct(req); err != nil {
		return err
	}
	if !isPasswordComplex(req.Password) {
		return ErrWeakPassword
	}
	return nil
}

func ValidateLogIn(req LogInRequest) error {
	return validate.Struct(req)
}

func ValidateProfilePatch(patch ProfilePatch) error {
	return validate.Struct(patch)
}

func isPasswordComplex(s string) bool {
	var hasLetter, hasNumber bool
	for _, char := range s {
		switch {
		case unicode.IsLetter(char):
			hasLetter = true
		case unicode.IsNumber(char):
			hasNumber = true
		}
	}
	return hasLetter && hasNumber
}
