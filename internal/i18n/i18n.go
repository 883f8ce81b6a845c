// Package i18n negotiates the UI language and holds the few labels the core
// renders itself.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"github.com/junnyjoe/home-services/internal/models"
)

// Supported languages, default first.
var Supported = []language.Tag{language.French, language.English}

var entries = map[string]map[language.Tag]string{
	"roles.CLIENT":               {language.French: "Client", language.English: "Client"},
	"roles.PROVIDER":             {language.French: "Prestataire", language.English: "Provider"},
	"roles.ADMIN":                {language.French: "Administrateur", language.English: "Administrator"},
	"auth.signedOut":             {language.French: "Non connecté", language.English: "Signed out"},
	"errors.invalidCredentials":  {language.French: "Email ou mot de passe incorrect", language.English: "Invalid email or password"},
	"errors.emailTaken":          {language.French: "Cet email est déjà utilisé", language.English: "This email is already in use"},
	"errors.sessionExpired":      {language.French: "Session expirée", language.English: "Session expired"},
	"errors.forbidden":           {language.French: "Accès non autorisé", language.English: "Access denied"},
	"errors.tooManyAttempts":     {language.French: "Trop de tentatives. Réessayez dans {minutes} minutes", language.English: "Too many attempts. Try again in {minutes} minutes"},
	"errors.remainingAttempts":   {language.French: "Il vous reste {count} tentative(s)", language.English: "{count} attempt(s) left"},
	"errors.commonPassword":      {language.French: "Ce mot de passe est trop courant", language.English: "This password is too common"},
	"errors.invalidRefreshToken": {language.French: "Jeton de rafraîchissement invalide", language.English: "Invalid refresh token"},
	"errors.invalidRequest":      {language.French: "Requête invalide", language.English: "Invalid request"},
	"errors.weakPassword":        {language.French: "Mot de passe trop faible", language.English: "Password too weak"},
	"errors.internal":            {language.French: "Erreur interne", language.English: "Internal error"},
	"errors.authRequired":        {language.French: "Authentification requise", language.English: "Authentication required"},
	"errors.csrf":                {language.French: "Jeton CSRF invalide", language.English: "Invalid CSRF token"},
}

type Translator struct {
	matcher  language.Matcher
	fallback language.Tag
	printers map[language.Tag]*message.Printer
}

func New() *Translator {
	b := catalog.NewBuilder(catalog.Fallback(language.French))
	for key, byLang := range entries {
		for tag, text := range byLang {
			// Keys carry no format verbs; SetString cannot fail for them.
			_ = b.SetString(tag, key, text)
		}
	}

	t := &Translator{
		matcher:  language.NewMatcher(Supported),
		fallback: language.French,
		printers: make(map[language.Tag]*message.Printer, len(Supported)),
	}
	for _, tag := range Supported {
		t.printers[tag] = message.NewPrinter(tag, message.Catalog(b))
	}
	return t
}

// Match picks the supported language for an Accept-Language value or a bare
// code such as "en". Unknown input yields French.
func (t *Translator) Match(accept string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return t.fallback
	}
	_, index, confidence := t.matcher.Match(tags...)
	if confidence == language.No {
		return t.fallback
	}
	return Supported[index]
}

// Code returns the short code stored as the language preference.
func (t *Translator) Code(accept string) string {
	base, _ := t.Match(accept).Base()
	return base.String()
}

// T translates key for lang and substitutes {name} placeholders. Unknown keys
// come back unchanged.
func (t *Translator) T(lang, key string, params map[string]string) string {
	if _, ok := entries[key]; !ok {
		return key
	}
	text := t.printers[t.Match(lang)].Sprintf(key)
	if len(params) == 0 {
		return text
	}
	pairs := make([]string, 0, len(params)*2)
	for name, value := range params {
		pairs = append(pairs, "{"+name+"}", value)
	}
	return strings.NewReplacer(pairs...).Replace(text)
}

func (t *Translator) RoleLabel(lang string, role models.UserRole) string {
	return t.T(lang, "roles."+string(role), nil)
}
