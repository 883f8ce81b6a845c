package validation

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine() *Engine {
	return NewEngine(zerolog.Nop())
}

func TestValidateFieldBuiltins(t *testing.T) {
	e := newEngine()

	tests := []struct {
		name   string
		value  string
		rules  FieldSchema
		fields Fields
		want   []string
	}{
		{"required empty", "", FieldSchema{Named("required")}, nil, []string{"Ce champ est requis"}},
		{"required blank", "   ", FieldSchema{Named("required")}, nil, []string{"Ce champ est requis"}},
		{"email ok", "a@b.co", FieldSchema{Named("email")}, nil, nil},
		{"email bad", "abc", FieldSchema{Named("email")}, nil, []string{"Email invalide"}},
		{"password weak", "password", FieldSchema{Named("password")}, nil,
			[]string{"Minimum 8 caractères avec majuscule, minuscule et chiffre"}},
		{"password ok", "Passw0rdX", FieldSchema{Named("password")}, nil, nil},
		{"passwords match", "Secret1x", FieldSchema{Named("passwordMatch")}, Fields{"password": "Secret1x"}, nil},
		{"passwords differ", "Secret1y", FieldSchema{Named("passwordMatch")}, Fields{"password": "Secret1x"},
			[]string{"Les mots de passe ne correspondent pas"}},
		{"phone optional", "", FieldSchema{Named("phone")}, nil, nil},
		{"phone bad", "12ab", FieldSchema{Named("phone")}, nil, []string{"Numéro de téléphone invalide"}},
		{"phone ok", "+33 6 12 34 56 78", FieldSchema{Named("phone")}, nil, nil},
		{"script tag", "<SCRIPT>alert(1)</SCRIPT>", FieldSchema{Named("noScript")}, nil, []string{"Contenu non autorisé détecté"}},
		{"event handler", `<img onerror=x>`, FieldSchema{Named("noScript")}, nil, []string{"Contenu non autorisé détecté"}},
		{"js url", "JavaScript:void(0)", FieldSchema{Named("noScript")}, nil, []string{"Contenu non autorisé détecté"}},
		{"plain text", "Plombier à Lyon", FieldSchema{Named("noScript")}, nil, nil},
		{"min length", "é", FieldSchema{MinLength(2)}, nil, []string{"Minimum 2 caractères"}},
		{"min length runes", "éé", FieldSchema{MinLength(2)}, nil, nil},
		{"max length", strings.Repeat("x", 51), FieldSchema{MaxLength(50)}, nil, []string{"Maximum 50 caractères"}},
		{"min value", "999", FieldSchema{Min(1000)}, nil, []string{"Minimum 1000"}},
		{"min value not a number", "abc", FieldSchema{Min(1)}, nil, []string{"Minimum 1"}},
		{"max value", "24.5", FieldSchema{Max(24)}, nil, []string{"Maximum 24"}},
		{"numeric prefix", "12h", FieldSchema{Min(1), Max(24)}, nil, nil},
		{"pattern default message", "abc", FieldSchema{Pattern(`^\d+$`, "")}, nil, []string{"Format invalide"}},
		{"pattern custom message", "abc", FieldSchema{Pattern(`^\d+$`, "Chiffres uniquement")}, nil, []string{"Chiffres uniquement"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := e.ValidateField(tt.value, tt.rules, tt.fields)
			if tt.want == nil {
				assert.True(t, res.Valid)
				assert.Empty(t, res.Errors)
				return
			}
			assert.False(t, res.Valid)
			assert.Equal(t, tt.want, res.Errors)
		})
	}
}

func TestValidateFieldRunsEveryRule(t *testing.T) {
	e := newEngine()

	res := e.ValidateField("", FieldSchema{Named("required"), Named("email"), MinLength(3)}, nil)

	assert.False(t, res.Valid)
	assert.Equal(t, []string{"Ce champ est requis", "Email invalide", "Minimum 3 caractères"}, res.Errors)
}

func TestValidateFieldReferences(t *testing.T) {
	e := newEngine()

	t.Run("inline", func(t *testing.T) {
		even := Inline(func(value string, _ Fields) Result {
			return Result{Valid: len(value)%2 == 0, Message: "odd"}
		})
		assert.Equal(t, []string{"odd"}, e.ValidateField("abc", FieldSchema{even}, nil).Errors)
		assert.True(t, e.ValidateField("ab", FieldSchema{even}, nil).Valid)
	})

	t.Run("override message", func(t *testing.T) {
		ref := Parameterized("minLength", []any{5}, "Trop court")
		assert.Equal(t, []string{"Trop court"}, e.ValidateField("abc", FieldSchema{ref}, nil).Errors)
	})

	t.Run("override on plain rule", func(t *testing.T) {
		ref := Parameterized("email", nil, "Adresse requise")
		assert.Equal(t, []string{"Adresse requise"}, e.ValidateField("x", FieldSchema{ref}, nil).Errors)
	})

	t.Run("compiled pattern", func(t *testing.T) {
		ref := Parameterized("pattern", []any{regexp.MustCompile(`^[A-Z]{2}$`)}, "")
		assert.True(t, e.ValidateField("FR", FieldSchema{ref}, nil).Valid)
	})

	t.Run("unknown and unusable rules are skipped", func(t *testing.T) {
		rules := FieldSchema{Named("doesNotExist"), Named("minLength"), Parameterized("pattern", []any{"("}, "")}
		res := e.ValidateField("x", rules, nil)
		assert.True(t, res.Valid)
	})
}

func TestRegisterCustomRules(t *testing.T) {
	e := newEngine()
	e.Register("siret", func(value string, _ Fields) Result {
		return Result{Valid: len(value) == 14, Message: "SIRET invalide"}
	})
	e.RegisterFactory("oneOf", func(params ...any) (Rule, error) {
		if len(params) == 0 {
			return nil, ErrBadParams
		}
		return func(value string, _ Fields) Result {
			for _, p := range params {
				if p == value {
					return Result{Valid: true}
				}
			}
			return Result{Message: "Valeur non autorisée"}
		}, nil
	})

	assert.Equal(t, []string{"SIRET invalide"}, e.ValidateField("123", FieldSchema{Named("siret")}, nil).Errors)

	roles := Parameterized("oneOf", []any{"CLIENT", "PROVIDER"}, "")
	assert.True(t, e.ValidateField("CLIENT", FieldSchema{roles}, nil).Valid)
	assert.Equal(t, []string{"Valeur non autorisée"}, e.ValidateField("ADMIN", FieldSchema{roles}, nil).Errors)

	e.Register("minLength", func(string, Fields) Result { return Result{Valid: true} })
	assert.True(t, e.ValidateField("", FieldSchema{MinLength(10)}, nil).Valid, "a rule replaces a factory of the same name")
}

func TestValidateForm(t *testing.T) {
	e := newEngine()
	schema := FormSchema{
		"email":    {Named("required"), Named("email")},
		"password": {Named("required")},
	}

	res := e.ValidateForm(Fields{"email": "bad", "password": "", "extra": "<script>"}, schema)

	assert.False(t, res.Valid)
	assert.Equal(t, []string{"Email invalide"}, res.Errors["email"])
	assert.Equal(t, []string{"Ce champ est requis"}, res.Errors["password"])
	assert.NotContains(t, res.Errors, "extra")

	ok := e.ValidateForm(Fields{"email": "ana@example.com", "password": "x"}, schema)
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Errors)
	assert.NoError(t, ok.Err())
}

func TestSchemas(t *testing.T) {
	e := newEngine()

	t.Run("register", func(t *testing.T) {
		res := e.ValidateForm(Fields{
			"firstName":       "Ana",
			"lastName":        "Diallo",
			"email":           "ana@example.com",
			"password":        "Secret123",
			"confirmPassword": "Secret123",
			"role":            "CLIENT",
		}, RegisterSchema())
		assert.True(t, res.Valid, res.Errors)

		res = e.ValidateForm(Fields{
			"firstName":       "A",
			"lastName":        "<script>x</script>",
			"email":           "ana@example.com",
			"password":        "Secret123",
			"confirmPassword": "Secret124",
			"phone":           "abc",
		}, RegisterSchema())
		assert.False(t, res.Valid)
		assert.ElementsMatch(t, []string{"firstName", "lastName", "confirmPassword", "phone", "role"}, keys(res.Errors))
	})

	t.Run("login", func(t *testing.T) {
		res := e.ValidateForm(Fields{}, LoginSchema())
		assert.ElementsMatch(t, []string{"email", "password"}, keys(res.Errors))
	})

	t.Run("profile", func(t *testing.T) {
		res := e.ValidateForm(Fields{"firstName": "Ana", "lastName": "Diallo", "email": "ana@example.com"}, ProfileSchema())
		assert.True(t, res.Valid)
	})

	t.Run("service", func(t *testing.T) {
		res := e.ValidateForm(Fields{
			"name":        "Plomberie",
			"description": "Réparation de fuites",
			"category":    "PLUMBING",
			"hourlyRate":  "500",
		}, ServiceSchema())
		assert.Equal(t, map[string][]string{"hourlyRate": {"Minimum 1000"}}, res.Errors)
	})

	t.Run("reservation", func(t *testing.T) {
		res := e.ValidateForm(Fields{"serviceId": "42", "scheduledDate": "2026-05-01", "hours": "25"}, ReservationSchema())
		assert.Equal(t, map[string][]string{"hours": {"Maximum 24"}}, res.Errors)
	})
}

func TestRender(t *testing.T) {
	form := NewFormState("email", "password")
	form.MarkInvalid("password", "stale")

	Render(form, map[string][]string{
		"email":   {"Email invalide", "second"},
		"missing": {"ignored"},
	})

	msg, ok := form.Error("email")
	require.True(t, ok)
	assert.Equal(t, "Email invalide", msg)
	_, ok = form.Error("password")
	assert.False(t, ok, "previous markers are cleared")
	assert.Equal(t, []string{"email"}, form.Invalid())

	ClearErrors(form)
	assert.Empty(t, form.Invalid())
}

func TestFormError(t *testing.T) {
	res := newEngine().ValidateForm(Fields{}, LoginSchema())
	err := res.Err()

	var formErr *FormError
	require.True(t, errors.As(err, &formErr))
	assert.Equal(t, "invalid form: email: Ce champ est requis; password: Ce champ est requis", err.Error())
}

func TestFieldValues(t *testing.T) {
	fields := FieldValues(url.Values{"email": {"a@b.co", "ignored"}, "empty": {}})
	assert.Equal(t, Fields{"email": "a@b.co"}, fields)
}

func keys(m map[string][]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
