package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"unicode/utf8"

	"github.com/junnyjoe/home-services/internal/security"
)

// Result is the outcome of one rule on one value.
type Result struct {
	Valid   bool
	Message string
}

// Fields are the submitted form values, used by rules that compare siblings.
type Fields map[string]string

type Rule func(value string, fields Fields) Result

// Factory builds a rule from parameters, e.g. minLength(2).
type Factory func(params ...any) (Rule, error)

var ErrBadParams = errors.New("validation: bad rule parameters")

var scriptPattern = regexp.MustCompile(`(?i)<script|javascript:|on\w+=`)

func result(valid bool, message string) Result {
	return Result{Valid: valid, Message: message}
}

func required(value string, _ Fields) Result {
	return result(trimmed(value) != "", "Ce champ est requis")
}

func email(value string, _ Fields) Result {
	return result(security.IsValidEmail(value), "Email invalide")
}

func password(value string, _ Fields) Result {
	return result(security.IsValidPassword(value), "Minimum 8 caractères avec majuscule, minuscule et chiffre")
}

func passwordMatch(value string, fields Fields) Result {
	return result(value == fields["password"], "Les mots de passe ne correspondent pas")
}

// phone accepts an empty value; pair it with required when mandatory.
func phone(value string, _ Fields) Result {
	return result(value == "" || security.IsValidPhone(value), "Numéro de téléphone invalide")
}

func noScript(value string, _ Fields) Result {
	return result(!scriptPattern.MatchString(value), "Contenu non autorisé détecté")
}

func minLength(params ...any) (Rule, error) {
	n, err := intParam("minLength", params)
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("Minimum %d caractères", n)
	return func(value string, _ Fields) Result {
		return result(utf8.RuneCountInString(value) >= n, message)
	}, nil
}

func maxLength(params ...any) (Rule, error) {
	n, err := intParam("maxLength", params)
	if err != nil {
		return nil, err
	}
	message := fmt.Sprintf("Maximum %d caractères", n)
	return func(value string, _ Fields) Result {
		return result(utf8.RuneCountInString(value) <= n, message)
	}, nil
}

func minValue(params ...any) (Rule, error) {
	bound, err := numberParam("min", params)
	if err != nil {
		return nil, err
	}
	message := "Minimum " + formatNumber(bound)
	return func(value string, _ Fields) Result {
		n, ok := security.ParseNumber(value)
		return result(ok && n >= bound, message)
	}, nil
}

func maxValue(params ...any) (Rule, error) {
	bound, err := numberParam("max", params)
	if err != nil {
		return nil, err
	}
	message := "Maximum " + formatNumber(bound)
	return func(value string, _ Fields) Result {
		n, ok := security.ParseNumber(value)
		return result(ok && n <= bound, message)
	}, nil
}

// pattern takes a *regexp.Regexp or an expression string, then an optional
// message.
func pattern(params ...any) (Rule, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("%w: pattern needs an expression", ErrBadParams)
	}
	var re *regexp.Regexp
	switch p := params[0].(type) {
	case *regexp.Regexp:
		re = p
	case string:
		compiled, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: pattern: %v", ErrBadParams, err)
		}
		re = compiled
	default:
		return nil, fmt.Errorf("%w: pattern expression is %T", ErrBadParams, params[0])
	}

	message := "Format invalide"
	if len(params) > 1 {
		if m, ok := params[1].(string); ok && m != "" {
			message = m
		}
	}
	return func(value string, _ Fields) Result {
		return result(re.MatchString(value), message)
	}, nil
}

func intParam(rule string, params []any) (int, error) {
	n, err := numberParam(rule, params)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func numberParam(rule string, params []any) (float64, error) {
	if len(params) == 0 {
		return 0, fmt.Errorf("%w: %s needs a bound", ErrBadParams, rule)
	}
	n, ok := security.ParseNumber(params[0])
	if !ok {
		return 0, fmt.Errorf("%w: %s bound %v is not a number", ErrBadParams, rule, params[0])
	}
	return n, nil
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
