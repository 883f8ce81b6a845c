package security

import (
	"strings"
	"unicode/utf8"
)

type StrengthLevel string

const (
	StrengthWeak   StrengthLevel = "weak"
	StrengthMedium StrengthLevel = "medium"
	StrengthStrong StrengthLevel = "strong"
)

type Strength struct {
	Score int
	Level StrengthLevel
}

// PasswordStrength scores a password on a 0-6 scale: length >= 8,
// length >= 12, upper case, lower case, digit and symbol each add a point.
// Scores up to 2 are weak, up to 4 medium, anything above strong.
func PasswordStrength(password string) Strength {
	score := 0
	n := utf8.RuneCountInString(password)
	if n >= 8 {
		score++
	}
	if n >= 12 {
		score++
	}
	for _, has := range []func(rune) bool{isASCIIUpper, isASCIILower, isASCIIDigit, isSymbol} {
		if containsFunc(password, has) {
			score++
		}
	}

	switch {
	case score <= 2:
		return Strength{Score: score, Level: StrengthWeak}
	case score <= 4:
		return Strength{Score: score, Level: StrengthMedium}
	default:
		return Strength{Score: score, Level: StrengthStrong}
	}
}

var commonPasswords = map[string]struct{}{
	"password":  {},
	"123456":    {},
	"12345678":  {},
	"qwerty":    {},
	"abc123":    {},
	"password1": {},
	"111111":    {},
	"iloveyou":  {},
	"admin":     {},
	"letmein":   {},
	"welcome":   {},
	"monkey":    {},
	"123123":    {},
	"football":  {},
	"master":    {},
}

func IsCommonPassword(password string) bool {
	_, found := commonPasswords[strings.ToLower(password)]
	return found
}
