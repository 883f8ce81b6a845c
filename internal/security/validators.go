package security

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	maxEmailLength = 254
	minPasswordLen = 8
	MaxAmount      = 10_000_000
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^[\d\s\-+()]{8,20}$`)
)

func IsValidEmail(email string) bool {
	return len(email) <= maxEmailLength && emailPattern.MatchString(email)
}

// IsValidPassword requires at least eight characters with an upper case
// letter, a lower case letter and a digit.
func IsValidPassword(password string) bool {
	return utf8.RuneCountInString(password) >= minPasswordLen &&
		containsFunc(password, isASCIIUpper) &&
		containsFunc(password, isASCIILower) &&
		containsFunc(password, isASCIIDigit)
}

func IsValidPhone(phone string) bool {
	return phonePattern.MatchString(phone)
}

// IsValidAmount accepts strings and numeric values; the amount must be finite
// and within (0, MaxAmount].
func IsValidAmount(amount any) bool {
	num, ok := ParseNumber(amount)
	if !ok || math.IsNaN(num) || math.IsInf(num, 0) {
		return false
	}
	return num > 0 && num <= MaxAmount
}

// ParseNumber converts form values to float64. Strings are parsed from their
// longest numeric prefix, so "12.5kg" reads as 12.5.
func ParseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case string:
		return parseNumericPrefix(n)
	default:
		return 0, false
	}
}

var numericPrefix = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

func parseNumericPrefix(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, true
	}
	prefix := numericPrefix.FindString(s)
	if prefix == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func containsFunc(s string, fn func(rune) bool) bool {
	return strings.IndexFunc(s, fn) >= 0
}

func isASCIIUpper(r rune) bool { return r >= 'A' && r <= 'Z' }
func isASCIILower(r rune) bool { return r >= 'a' && r <= 'z' }
func isASCIIDigit(r rune) bool { return r >= '0' && r <= '9' }

func isSymbol(r rune) bool {
	return !isASCIIUpper(r) && !isASCIILower(r) && !isASCIIDigit(r)
}
