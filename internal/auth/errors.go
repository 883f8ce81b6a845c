package auth

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrNotAuthenticated is returned by operations that need a session.
var ErrNotAuthenticated = errors.New("not authenticated")

// LockoutError means the identifier is locked; no request was sent.
type LockoutError struct {
	Remaining time.Duration
}

func (e *LockoutError) Error() string {
	return fmt.Sprintf("too many failed attempts, retry in %s", e.Remaining.Round(time.Second))
}

// Minutes rounds the remaining lockout up to whole minutes for display.
func (e *LockoutError) Minutes() int {
	return int(math.Ceil(e.Remaining.Minutes()))
}

// CredentialsError is a rejected email/password pair.
type CredentialsError struct {
	RemainingAttempts int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials, %d attempt(s) left", e.RemainingAttempts)
}
