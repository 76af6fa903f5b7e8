package argon

import (
	"errors"
	"unicode"
)

const MinPasswordLength = 8

// ErrPasswordPolicy matches every policy failure via errors.Is.
var ErrPasswordPolicy = errors.New("password policy")

type policyError string

func (e policyError) Error() string { return string(e) }

func (e policyError) Unwrap() error { return ErrPasswordPolicy }

// ValidatePasswordPolicy requires MinPasswordLength characters with at least one letter and one digit.
func ValidatePasswordPolicy(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return policyError("password must be at least 8 characters")
	}

	var hasLetter, hasDigit bool
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter || !hasDigit {
		return policyError("password must include a letter and a digit")
	}
	return nil
}
