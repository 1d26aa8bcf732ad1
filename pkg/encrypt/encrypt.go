package encrypt

import (
	"errors"
	"fmt"
	"regexp"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = bcrypt.DefaultCost

var (
	// ErrWeakPassword password rejected by ValidatePasswordStrength
	ErrWeakPassword = errors.New("password does not meet strength requirements")
	// ErrPasswordMismatch hash and password differ
	ErrPasswordMismatch = errors.New("password does not match")

	upperRe   = regexp.MustCompile(`[A-Z]`)
	digitRe   = regexp.MustCompile(`[0-9]`)
	specialRe = regexp.MustCompile(`[!@#\$%\^&\*]`)
)

// ValidatePasswordStrength min 8 chars, an uppercase letter, a digit and one of !@#$%^&*
func ValidatePasswordStrength(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("%w: at least 8 characters", ErrWeakPassword)
	}
	if !upperRe.MatchString(password) {
		return fmt.Errorf("%w: needs an uppercase letter", ErrWeakPassword)
	}
	if !digitRe.MatchString(password) {
		return fmt.Errorf("%w: needs a digit", ErrWeakPassword)
	}
	if !specialRe.MatchString(password) {
		return fmt.Errorf("%w: needs a special character (!@#$%%^&*)", ErrWeakPassword)
	}
	return nil
}

// HashPassword validate then bcrypt
func HashPassword(password string) (string, error) {
	if err := ValidatePasswordStrength(password); err != nil {
		return "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}

	return string(hashedPassword), nil
}

// CheckPassword compare hash with plain password
func CheckPassword(hashedPassword, password string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
