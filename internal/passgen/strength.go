package passgen

import (
	"unicode"
	"unicode/utf8"
)

// Strength returns a display score in [0,100]:
//
//	+20 length >= 8, +20 more at 12, +10 more at 16
//	+15 uppercase, +15 lowercase, +10 digit, +10 other character
//
// Length is counted in runes. It is a heuristic, not an entropy estimate.
func Strength(password string) int {
	if password == "" {
		return 0
	}

	score := 0
	n := utf8.RuneCountInString(password)
	if n >= 8 {
		score += 20
	}
	if n >= 12 {
		score += 20
	}
	if n >= 16 {
		score += 10
	}

	var upper, lower, digit, other bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		case !unicode.IsLetter(r):
			other = true
		}
	}
	if upper {
		score += 15
	}
	if lower {
		score += 15
	}
	if digit {
		score += 10
	}
	if other {
		score += 10
	}
	return min(score, 100)
}

// Label names a Strength score for display.
func Label(score int) string {
	switch {
	case score < 30:
		return "Very Weak"
	case score < 50:
		return "Weak"
	case score < 70:
		return "Fair"
	case score < 90:
		return "Strong"
	default:
		return "Very Strong"
	}
}
