package security

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeHTML(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "plain text", input: "Jean Dupont", want: "Jean Dupont"},
		{name: "img onerror", input: "<img src=x onerror=alert(1)>", want: "&lt;img src=x onerror=alert(1)&gt;"},
		{name: "script tag", input: `<script>alert("x")</script>`, want: "&lt;script&gt;alert(&#34;x&#34;)&lt;/script&gt;"},
		{name: "ampersand", input: "Tom & Jerry", want: "Tom &amp; Jerry"},
		{name: "single quote", input: "l'eau", want: "l&#39;eau"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeHTML(tt.input)
			assert.Equal(t, tt.want, got)
			assert.NotContains(t, got, "<")
			assert.NotContains(t, got, ">")
		})
	}
}

func TestSanitizeValue(t *testing.T) {
	input := map[string]any{
		"name":    "<b>Marie</b>",
		"<k>":     "v",
		"age":     42.0,
		"active":  true,
		"tags":    []any{"<i>", "ok", 3.0},
		"address": map[string]any{"city": "<Lyon>"},
		"phones":  []string{"<01>"},
		"nothing": nil,
	}

	got, ok := SanitizeValue(input).(map[string]any)
	require.True(t, ok)

	assert.Equal(t, "&lt;b&gt;Marie&lt;/b&gt;", got["name"])
	assert.Equal(t, "v", got["&lt;k&gt;"])
	assert.NotContains(t, got, "<k>")
	assert.Equal(t, 42.0, got["age"])
	assert.Equal(t, true, got["active"])
	assert.Equal(t, []any{"&lt;i&gt;", "ok", 3.0}, got["tags"])
	assert.Equal(t, map[string]any{"city": "&lt;Lyon&gt;"}, got["address"])
	assert.Equal(t, []string{"&lt;01&gt;"}, got["phones"])
	assert.Nil(t, got["nothing"])
	assert.Len(t, got, len(input))
}

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "", SanitizeInput("", KindText))
	assert.Equal(t, "user@example.com", SanitizeInput("  User@Example.COM\x00 ", KindEmail))
	assert.Equal(t, "+33 (0)6-12", SanitizeInput("+33 (0)6-12abc", KindPhone))
	assert.Equal(t, "1,250.50", SanitizeInput("1,250.50 EUR", KindNumber))
	assert.Equal(t, "abc 123", SanitizeInput("abc <123>!", KindAlphanumeric))
	assert.Equal(t, "&lt;b&gt;hi&lt;/b&gt;", SanitizeInput(" <b>hi</b>\x07 ", KindText))
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.co"))
	assert.True(t, IsValidEmail("first.last+tag@sub.example.org"))
	assert.False(t, IsValidEmail("abc"))
	assert.False(t, IsValidEmail("a@b.c"))
	assert.False(t, IsValidEmail("a b@c.com"))
	assert.False(t, IsValidEmail(strings.Repeat("a", 250)+"@b.com"))
}

func TestIsValidPassword(t *testing.T) {
	assert.True(t, IsValidPassword("Abcdefg1"))
	assert.False(t, IsValidPassword("Abcdef1"), "too short")
	assert.False(t, IsValidPassword("abcdefg1"), "no upper case")
	assert.False(t, IsValidPassword("ABCDEFG1"), "no lower case")
	assert.False(t, IsValidPassword("Abcdefgh"), "no digit")
	assert.False(t, IsValidPassword("Aéé1aaa"), "seven characters, nine bytes")
	assert.True(t, IsValidPassword("Aéé1aaaa"))
}

func TestIsValidPhone(t *testing.T) {
	assert.True(t, IsValidPhone("+33 6 12 34 56 78"))
	assert.True(t, IsValidPhone("(01)-23456"))
	assert.False(t, IsValidPhone("1234567"))
	assert.False(t, IsValidPhone(strings.Repeat("1", 21)))
	assert.False(t, IsValidPhone("06 12 34 ab 78"))
}

func TestIsValidAmount(t *testing.T) {
	assert.True(t, IsValidAmount("1500"))
	assert.True(t, IsValidAmount(0.01))
	assert.True(t, IsValidAmount(10_000_000))
	assert.True(t, IsValidAmount("25.5 EUR"))
	assert.False(t, IsValidAmount(0))
	assert.False(t, IsValidAmount("-3"))
	assert.False(t, IsValidAmount(10_000_000.01))
	assert.False(t, IsValidAmount("abc"))
	assert.False(t, IsValidAmount(math.Inf(1)))
	assert.False(t, IsValidAmount(math.NaN()))
	assert.False(t, IsValidAmount(nil))
}

func TestPasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		score    int
		level    StrengthLevel
	}{
		{password: "", score: 0, level: StrengthWeak},
		{password: "abc", score: 1, level: StrengthWeak},
		// boundary: two points stays weak
		{password: "abcdefgh", score: 2, level: StrengthWeak},
		// boundary: three points is medium
		{password: "abcdefgH", score: 3, level: StrengthMedium},
		{password: "Abcdefgh1", score: 4, level: StrengthMedium},
		{password: "Abcdefgh1!", score: 5, level: StrengthStrong},
		{password: "Abcdefghijk1!", score: 6, level: StrengthStrong},
		// length counts characters, not bytes
		{password: "Aéé1aaa", score: 4, level: StrengthMedium},
		{password: "Aéééééééé1a", score: 5, level: StrengthStrong},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			got := PasswordStrength(tt.password)
			assert.Equal(t, tt.score, got.Score)
			assert.Equal(t, tt.level, got.Level)
		})
	}
}

func TestIsCommonPassword(t *testing.T) {
	assert.True(t, IsCommonPassword("password"))
	assert.True(t, IsCommonPassword("PassWord"))
	assert.True(t, IsCommonPassword("LetMeIn"))
	assert.False(t, IsCommonPassword("Xk9#mVq2!p"))
	assert.Len(t, commonPasswords, 15)
}

func TestNewCSRFToken(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		token, err := NewCSRFToken()
		require.NoError(t, err)
		assert.Len(t, token, 64)
		assert.True(t, IsWellFormedCSRFToken(token))
		_, dup := seen[token]
		assert.False(t, dup, "csrf tokens must not repeat")
		seen[token] = struct{}{}
	}

	assert.False(t, IsWellFormedCSRFToken(strings.Repeat("G", 64)))
	assert.False(t, IsWellFormedCSRFToken("abc"))
}

func TestURLSafety(t *testing.T) {
	const origin = "https://app.homeservices.test"

	assert.True(t, IsValidURL("https://example.com/x"))
	assert.False(t, IsValidURL("ftp://example.com"))
	assert.False(t, IsValidURL("/relative"))

	tests := []struct {
		target string
		want   string
	}{
		{target: "/pages/client/home.html", want: "/pages/client/home.html"},
		{target: "https://app.homeservices.test/pages/x.html", want: "https://app.homeservices.test/pages/x.html"},
		{target: "https://app.homeservices.test:443/a", want: "https://app.homeservices.test:443/a"},
		{target: "https://evil.test/phish", want: DefaultRedirect},
		{target: "//evil.test/phish", want: DefaultRedirect},
		{target: "javascript:alert(1)", want: DefaultRedirect},
		{target: "http://app.homeservices.test/downgrade", want: DefaultRedirect},
		{target: "https://app.homeservices.test:8443/", want: DefaultRedirect},
		// browsers read backslashes as slashes and strip tabs, newlines and edge whitespace
		{target: `/\evil.test`, want: DefaultRedirect},
		{target: `\\evil.test`, want: DefaultRedirect},
		{target: `/\/evil.test`, want: DefaultRedirect},
		{target: `https:\\evil.test`, want: DefaultRedirect},
		{target: " //evil.test", want: DefaultRedirect},
		{target: "/\t/evil.test", want: DefaultRedirect},
		{target: "\n//evil.test", want: DefaultRedirect},
		{target: `/pages\client\home.html`, want: "/pages/client/home.html"},
		{target: " /pages/client/home.html\n", want: "/pages/client/home.html"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeRedirectTarget(tt.target, origin))
		})
	}
}

func TestPasswordHashing(t *testing.T) {
	params := Argon2Params{Time: 1, Memory: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

	hash, err := HashPasswordWithParams("Secret123", params)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(hash), "$argon2id$v=19$t=1,m=8192,p=1$"))

	ok, err := VerifyPassword("Secret123", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("Secret124", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyPassword("x", []byte("$bcrypt$nope"))
	assert.ErrorIs(t, err, ErrMalformedHash)
}

func TestAccessTokens(t *testing.T) {
	input := AccessTokenInput{UserID: "u1", SessionID: "s1", DeviceID: "d1", Email: "a@b.co", Role: "CLIENT"}

	token, err := GenerateAccessToken("secret", input, 5*time.Minute)
	require.NoError(t, err)

	claims, err := ParseAccessToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "s1", claims.SessionID)
	assert.Equal(t, "CLIENT", claims.Role)

	_, err = ParseAccessToken(token, "other")
	assert.Error(t, err)

	exp, err := TokenExpiry(token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(5*time.Minute), exp, 2*time.Second)

	expired, err := GenerateAccessToken("secret", input, -time.Minute)
	require.NoError(t, err)
	_, err = ParseAccessToken(expired, "secret")
	assert.Error(t, err)
}

func TestRefreshTokens(t *testing.T) {
	token, hash, err := GenerateRefreshToken(0)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, HashRefreshToken(token), hash)

	other, _, err := GenerateRefreshToken(32)
	require.NoError(t, err)
	assert.NotEqual(t, token, other)
}
