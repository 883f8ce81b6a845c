package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

const (
	DefaultCSRFHeader = "X-CSRF-Token"
	csrfTokenBytes    = 32
)

var csrfTokenPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// NewCSRFToken returns 32 bytes from the system CSPRNG as lowercase hex.
func NewCSRFToken() (string, error) {
	buf := make([]byte, csrfTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate csrf token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// IsWellFormedCSRFToken reports whether token has the shape NewCSRFToken produces.
func IsWellFormedCSRFToken(token string) bool {
	return csrfTokenPattern.MatchString(token)
}
