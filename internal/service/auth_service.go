// Package service implements the development API's account and session
// logic on top of the repositories.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/cache"
	"github.com/junnyjoe/home-services/internal/config"
	"github.com/junnyjoe/home-services/internal/ids"
	"github.com/junnyjoe/home-services/internal/models"
	"github.com/junnyjoe/home-services/internal/repository"
	"github.com/junnyjoe/home-services/internal/security"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidRefresh     = errors.New("invalid refresh token")
	ErrWeakPassword       = errors.New("password too weak")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrSessionMismatch    = errors.New("session mismatch")
)

const tokenType = "Bearer"

type AuthService struct {
	users     repository.Users
	sessions  repository.Sessions
	blacklist cache.Blacklist
	cfg       config.SecurityConfig
	log       zerolog.Logger
	now       func() time.Time
}

func NewAuthService(
	users repository.Users,
	sessions repository.Sessions,
	blacklist cache.Blacklist,
	cfg config.SecurityConfig,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		sessions:  sessions,
		blacklist: blacklist,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a CLIENT or PROVIDER account and opens its first session.
func (s *AuthService) Register(ctx context.Context, input models.RegisterInput) (models.AuthResult, error) {
	if !security.IsValidPassword(input.Password) || security.IsCommonPassword(input.Password) {
		return models.AuthResult{}, ErrWeakPassword
	}

	passwordHash, err := security.HashPassword(input.Password)
	if err != nil {
		return models.AuthResult{}, err
	}

	account := models.Account{
		User: models.User{
			ID:        ids.New(),
			FirstName: strings.TrimSpace(input.FirstName),
			LastName:  strings.TrimSpace(input.LastName),
			Email:     normalizeEmail(input.Email),
			Phone:     strings.TrimSpace(input.Phone),
			Role:      input.Role,
		},
		PasswordHash: passwordHash,
	}

	if err := s.users.Create(ctx, account); err != nil {
		return models.AuthResult{}, err
	}
	s.log.Info().Str("user_id", account.ID).Str("role", string(account.Role)).Msg("account registered")

	return s.createSession(ctx, account, ids.New())
}

func (s *AuthService) Login(ctx context.Context, input models.LoginInput) (models.AuthResult, error) {
	account, err := s.users.FindByEmail(ctx, normalizeEmail(input.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.AuthResult{}, ErrInvalidCredentials
		}
		return models.AuthResult{}, err
	}

	ok, err := security.VerifyPassword(input.Password, account.PasswordHash)
	if err != nil || !ok {
		return models.AuthResult{}, ErrInvalidCredentials
	}

	deviceID := input.DeviceID
	if deviceID == "" {
		deviceID = ids.New()
	}
	return s.createSession(ctx, account, deviceID)
}

func (s *AuthService) createSession(ctx context.Context, account models.Account, deviceID string) (models.AuthResult, error) {
	refreshToken, refreshHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return models.AuthResult{}, err
	}

	session := models.Session{
		ID:               ids.New(),
		UserID:           account.ID,
		DeviceID:         deviceID,
		RefreshTokenHash: refreshHash,
		ExpiresAt:        s.now().Add(s.cfg.JWTRefreshTTL),
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return models.AuthResult{}, err
	}

	if err := s.enforceSessionLimit(ctx, account.ID); err != nil {
		s.log.Warn().Err(err).Str("user_id", account.ID).Msg("enforce session limit failed")
	}

	return s.issue(account.User, session, refreshToken)
}

func (s *AuthService) issue(user models.User, session models.Session, refreshToken string) (models.AuthResult, error) {
	accessToken, err := security.GenerateAccessToken(s.cfg.JWTAccessSecret, security.AccessTokenInput{
		UserID:    user.ID,
		SessionID: session.ID,
		DeviceID:  session.DeviceID,
		Email:     user.Email,
		Role:      string(user.Role),
	}, s.cfg.JWTAccessTTL)
	if err != nil {
		return models.AuthResult{}, err
	}

	return models.AuthResult{
		Token:        accessToken,
		RefreshToken: refreshToken,
		TokenType:    tokenType,
		ExpiresIn:    int64(s.cfg.JWTAccessTTL / time.Second),
		DeviceID:     session.DeviceID,
		User:         user,
	}, nil
}

func (s *AuthService) enforceSessionLimit(ctx context.Context, userID string) error {
	if s.cfg.MaxSessions <= 0 {
		return nil
	}
	count, err := s.sessions.CountByUser(ctx, userID)
	if err != nil {
		return err
	}
	if count <= s.cfg.MaxSessions {
		return nil
	}
	return s.sessions.DeleteOldestSessions(ctx, userID, s.cfg.MaxSessions)
}

// Refresh rotates the refresh token: the presented one stops working and a
// new pair is issued for the same session.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (models.AuthResult, error) {
	session, err := s.sessions.FindByRefreshHash(ctx, security.HashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return models.AuthResult{}, ErrInvalidRefresh
		}
		return models.AuthResult{}, err
	}

	if !session.ExpiresAt.After(s.now()) {
		_ = s.sessions.DeleteByID(ctx, session.ID)
		return models.AuthResult{}, ErrInvalidRefresh
	}

	account, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return models.AuthResult{}, ErrInvalidRefresh
		}
		return models.AuthResult{}, err
	}

	newToken, newHash, err := security.GenerateRefreshToken(64)
	if err != nil {
		return models.AuthResult{}, err
	}
	session.RefreshTokenHash = newHash
	session.ExpiresAt = s.now().Add(s.cfg.JWTRefreshTTL)
	if err := s.sessions.Create(ctx, session); err != nil {
		return models.AuthResult{}, err
	}

	return s.issue(account.User, session, newToken)
}

// Logout ends the session holding refreshToken and, when given, revokes the
// access token for the rest of its lifetime. Unknown refresh tokens are not an
// error.
func (s *AuthService) Logout(ctx context.Context, refreshToken, accessToken string) error {
	if refreshToken != "" {
		session, err := s.sessions.FindByRefreshHash(ctx, security.HashRefreshToken(refreshToken))
		switch {
		case err == nil:
			if err := s.sessions.DeleteByID(ctx, session.ID); err != nil && !errors.Is(err, repository.ErrSessionNotFound) {
				return err
			}
			s.log.Info().Str("user_id", session.UserID).Str("session_id", session.ID).Msg("session closed")
		case !errors.Is(err, repository.ErrSessionNotFound):
			return err
		}
	}

	if accessToken == "" {
		return nil
	}
	expiresAt, err := security.TokenExpiry(accessToken)
	if err != nil {
		return nil
	}
	if err := s.blacklist.Revoke(ctx, accessToken, expiresAt); err != nil {
		return fmt.Errorf("revoke access token: %w", err)
	}
	return nil
}

// Authenticate resolves a bearer token to its user. The token must verify,
// must not be revoked and its session must still exist for the same device.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (models.User, *security.AccessClaims, error) {
	claims, err := security.ParseAccessToken(accessToken, s.cfg.JWTAccessSecret)
	if err != nil {
		return models.User{}, nil, fmt.Errorf("%w: %v", security.ErrInvalidToken, err)
	}

	revoked, err := s.blacklist.IsRevoked(ctx, accessToken)
	if err != nil {
		return models.User{}, nil, err
	}
	if revoked {
		return models.User{}, nil, ErrTokenRevoked
	}

	session, err := s.sessions.GetByID(ctx, claims.SessionID)
	if err != nil {
		return models.User{}, nil, err
	}
	if session.UserID != claims.UserID || session.DeviceID != claims.DeviceID {
		return models.User{}, nil, ErrSessionMismatch
	}

	account, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return models.User{}, nil, err
	}

	if err := s.sessions.Touch(ctx, session.ID); err != nil {
		s.log.Debug().Err(err).Str("session_id", session.ID).Msg("touch session failed")
	}
	return account.User, claims, nil
}

// UpdateProfile edits the caller's own record and returns it.
func (s *AuthService) UpdateProfile(ctx context.Context, userID string, input models.ProfileInput) (models.User, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = normalizeEmail(input.Email)
	input.Phone = strings.TrimSpace(input.Phone)
	if err := s.users.UpdateProfile(ctx, userID, input); err != nil {
		return models.User{}, err
	}
	account, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return models.User{}, err
	}
	return account.User, nil
}

// SweepExpiredSessions drops sessions past their refresh expiry.
func (s *AuthService) SweepExpiredSessions(ctx context.Context) error {
	removed, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}
	if removed > 0 {
		s.log.Info().Int64("removed", removed).Msg("expired sessions swept")
	}
	return nil
}
