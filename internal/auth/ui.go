package auth

import (
	"context"
	"errors"
	"strconv"

	"github.com/junnyjoe/home-services/internal/api"
	"github.com/junnyjoe/home-services/internal/models"
)

// UIState tells the host which role-gated elements to show and what to
// display in the user identity slots.
type UIState struct {
	Authenticated bool
	ShowAuthOnly  bool
	ShowGuestOnly bool
	// RoleVisible holds one entry per role; only the user's own role is true.
	RoleVisible map[models.UserRole]bool
	DisplayName string
	Email       string
	RoleLabel   string
}

func (s *Service) UIState(ctx context.Context) UIState {
	authenticated := s.IsAuthenticated(ctx)
	state := UIState{
		Authenticated: authenticated,
		ShowAuthOnly:  authenticated,
		ShowGuestOnly: !authenticated,
		RoleVisible:   make(map[models.UserRole]bool, len(models.Roles)),
	}

	user, ok := s.User(ctx)
	for _, role := range models.Roles {
		state.RoleVisible[role] = ok && user.Role == role
	}
	if !ok {
		return state
	}

	state.DisplayName = user.DisplayName()
	state.Email = user.Email
	state.RoleLabel = s.tr.RoleLabel(s.Language(ctx), user.Role)
	return state
}

// ErrorMessage renders a flow error in the stored UI language. Errors with no
// localized form fall back to their own text.
func (s *Service) ErrorMessage(ctx context.Context, err error) string {
	lang := s.Language(ctx)

	var lockout *LockoutError
	var creds *CredentialsError
	switch {
	case errors.As(err, &lockout):
		return s.tr.T(lang, "errors.tooManyAttempts", map[string]string{"minutes": strconv.Itoa(lockout.Minutes())})
	case errors.As(err, &creds):
		return s.tr.T(lang, "errors.invalidCredentials", nil) + ". " +
			s.tr.T(lang, "errors.remainingAttempts", map[string]string{"count": strconv.Itoa(creds.RemainingAttempts)})
	case errors.Is(err, api.ErrSessionExpired), errors.Is(err, ErrNotAuthenticated):
		return s.tr.T(lang, "errors.sessionExpired", nil)
	case errors.Is(err, api.ErrForbidden):
		return s.tr.T(lang, "errors.forbidden", nil)
	}

	var apiErr *api.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
