// Package auth ties the session guard, the validation engine and the API
// client into the login, registration and role-gating flows.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/api"
	"github.com/junnyjoe/home-services/internal/guard"
	"github.com/junnyjoe/home-services/internal/i18n"
	"github.com/junnyjoe/home-services/internal/kvstore"
	"github.com/junnyjoe/home-services/internal/models"
	"github.com/junnyjoe/home-services/internal/security"
	"github.com/junnyjoe/home-services/internal/validation"
)

// Backend is the part of the API client the flows use.
type Backend interface {
	Login(ctx context.Context, email, password string) (*models.AuthResult, error)
	Register(ctx context.Context, input models.RegisterInput) (*models.AuthResult, error)
	Logout(ctx context.Context)
	User(ctx context.Context) (*models.User, bool)
	UpdateProfile(ctx context.Context, input models.ProfileInput) (*models.User, error)
}

type Service struct {
	guard   *guard.Guard
	backend Backend
	engine  *validation.Engine
	tr      *i18n.Translator
	prefs   *kvstore.SafeStore
	log     zerolog.Logger
}

// NewService wires the flows. prefs is the persistent store holding the
// language preference.
func NewService(g *guard.Guard, backend Backend, engine *validation.Engine, tr *i18n.Translator, prefs *kvstore.SafeStore, log zerolog.Logger) *Service {
	return &Service{guard: g, backend: backend, engine: engine, tr: tr, prefs: prefs, log: log}
}

// DashboardPath is the landing page of role.
func DashboardPath(role models.UserRole) string {
	switch role {
	case models.UserRoleClient:
		return "/pages/client/home.html"
	case models.UserRoleProvider:
		return "/pages/provider/dashboard.html"
	case models.UserRoleAdmin:
		return "/pages/admin/dashboard.html"
	default:
		return security.DefaultRedirect
	}
}

func (s *Service) IsAuthenticated(ctx context.Context) bool {
	return s.guard.IsAuthenticated(ctx)
}

// User returns the cached user of the current session.
func (s *Service) User(ctx context.Context) (*models.User, bool) {
	if !s.IsAuthenticated(ctx) {
		return nil, false
	}
	return s.backend.User(ctx)
}

// Role is empty when no session is held.
func (s *Service) Role(ctx context.Context) models.UserRole {
	user, ok := s.User(ctx)
	if !ok {
		return ""
	}
	return user.Role
}

func (s *Service) HasRole(ctx context.Context, role models.UserRole) bool {
	return s.Role(ctx) == role
}

func (s *Service) IsClient(ctx context.Context) bool {
	return s.HasRole(ctx, models.UserRoleClient)
}

func (s *Service) IsProvider(ctx context.Context) bool {
	return s.HasRole(ctx, models.UserRoleProvider)
}

func (s *Service) IsAdmin(ctx context.Context) bool {
	return s.HasRole(ctx, models.UserRoleAdmin)
}

// RequireAuth gates a page. Anonymous users are sent to the login page and
// users whose role is not in roles to their own dashboard. No roles means any
// authenticated user passes.
func (s *Service) RequireAuth(ctx context.Context, roles ...models.UserRole) bool {
	if !s.IsAuthenticated(ctx) {
		s.guard.Navigate(guard.LoginPath)
		return false
	}
	if len(roles) > 0 && !slices.Contains(roles, s.Role(ctx)) {
		s.RedirectToDashboard(ctx)
		return false
	}
	return true
}

// RedirectIfAuthenticated keeps signed-in users off the login and
// registration pages.
func (s *Service) RedirectIfAuthenticated(ctx context.Context) bool {
	if !s.IsAuthenticated(ctx) {
		return false
	}
	s.RedirectToDashboard(ctx)
	return true
}

func (s *Service) RedirectToDashboard(ctx context.Context) {
	s.guard.Navigate(DashboardPath(s.Role(ctx)))
}

// Login validates the form, enforces the lockout, then authenticates. On
// success the session is started and the user sent to their dashboard.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	id := security.SanitizeInput(email, security.KindEmail)
	form := s.engine.ValidateForm(validation.Fields{"email": id, "password": password}, validation.LoginSchema())
	if err := form.Err(); err != nil {
		return nil, err
	}

	if s.guard.IsRateLimited(ctx, id) {
		return nil, &LockoutError{Remaining: s.guard.RemainingLockoutTime(ctx, id)}
	}

	res, err := s.backend.Login(ctx, id, password)
	if err != nil {
		var apiErr *api.APIError
		if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
			return nil, fmt.Errorf("login: %w", err)
		}
		remaining := s.guard.RecordFailedAttempt(ctx, id)
		s.log.Info().Str("email", id).Int("remaining", remaining).Msg("login rejected")
		if remaining <= 0 {
			return nil, &LockoutError{Remaining: s.guard.RemainingLockoutTime(ctx, id)}
		}
		return nil, &CredentialsError{RemainingAttempts: remaining}
	}

	s.guard.ResetAttempts(ctx, id)
	s.startSession(ctx, res.User)
	return &res.User, nil
}

// Register validates the form, rejects common passwords, then creates the
// account and starts its session.
func (s *Service) Register(ctx context.Context, values validation.Fields) (*models.User, error) {
	form := s.engine.ValidateForm(values, validation.RegisterSchema())
	if err := form.Err(); err != nil {
		return nil, err
	}
	if security.IsCommonPassword(values["password"]) {
		lang := s.Language(ctx)
		return nil, &validation.FormError{Errors: map[string][]string{
			"password": {s.tr.T(lang, "errors.commonPassword", nil)},
		}}
	}

	input := models.RegisterInput{
		FirstName: trimmed(values["firstName"]),
		LastName:  trimmed(values["lastName"]),
		Email:     security.SanitizeInput(values["email"], security.KindEmail),
		Password:  values["password"],
		Phone:     security.SanitizeInput(values["phone"], security.KindPhone),
		Role:      models.UserRole(values["role"]),
	}
	res, err := s.backend.Register(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.startSession(ctx, res.User)
	return &res.User, nil
}

// UpdateProfile validates the profile form and saves it for the signed-in user.
func (s *Service) UpdateProfile(ctx context.Context, values validation.Fields) (*models.User, error) {
	if !s.IsAuthenticated(ctx) {
		return nil, ErrNotAuthenticated
	}
	form := s.engine.ValidateForm(values, validation.ProfileSchema())
	if err := form.Err(); err != nil {
		return nil, err
	}

	user, err := s.backend.UpdateProfile(ctx, models.ProfileInput{
		FirstName: trimmed(values["firstName"]),
		LastName:  trimmed(values["lastName"]),
		Email:     security.SanitizeInput(values["email"], security.KindEmail),
		Phone:     security.SanitizeInput(values["phone"], security.KindPhone),
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return user, nil
}

// Logout revokes the session server-side, tears it down locally and returns
// to the login page.
func (s *Service) Logout(ctx context.Context) {
	s.backend.Logout(ctx)
	s.guard.Logout(ctx)
}

func (s *Service) startSession(ctx context.Context, user models.User) {
	s.guard.BeginSession(ctx)
	s.log.Info().Str("user_id", user.ID).Str("role", string(user.Role)).Msg("session started")
	s.guard.Navigate(DashboardPath(user.Role))
}

// Language is the stored UI language, French when unset.
func (s *Service) Language(ctx context.Context) string {
	lang, _ := s.prefs.Get(ctx, kvstore.KeyLanguage)
	return s.tr.Code(lang)
}

// SetLanguage stores the preferred language, normalized to a supported one.
func (s *Service) SetLanguage(ctx context.Context, lang string) error {
	return s.prefs.Set(ctx, kvstore.KeyLanguage, s.tr.Code(lang))
}

func trimmed(v string) string {
	return strings.TrimSpace(v)
}
