package services

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/dmitrijs2005/lockbox/internal/common"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 8
)

// ValidateUsername trims name and checks its length.
func ValidateUsername(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) < MinUsernameLength {
		return "", fmt.Errorf("%w: username must be at least %d characters", common.ErrValidation, MinUsernameLength)
	}
	return name, nil
}

// ValidatePassword enforces the master password policy: minimum length,
// at least one uppercase letter and one digit.
func ValidatePassword(password []byte) error {
	s := string(password)
	if utf8.RuneCountInString(s) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", common.ErrValidation, MinPasswordLength)
	}
	var upper, digit bool
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper {
		return fmt.Errorf("%w: password must contain an uppercase letter", common.ErrValidation)
	}
	if !digit {
		return fmt.Errorf("%w: password must contain a digit", common.ErrValidation)
	}
	return nil
}
