package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junnyjoe/home-services/internal/cache"
	"github.com/junnyjoe/home-services/internal/config"
	"github.com/junnyjoe/home-services/internal/models"
	"github.com/junnyjoe/home-services/internal/repository"
	"github.com/junnyjoe/home-services/internal/security"
)

type fixture struct {
	svc      *AuthService
	sessions *repository.MemorySessions
	now      time.Time
}

func newFixture(t *testing.T, maxSessions int) *fixture {
	t.Helper()
	f := &fixture{sessions: repository.NewMemorySessions(), now: time.Now()}
	f.svc = NewAuthService(repository.NewMemoryUsers(), f.sessions, cache.NewMemoryBlacklist(), config.SecurityConfig{
		JWTAccessSecret: "test-secret",
		JWTAccessTTL:    5 * time.Minute,
		JWTRefreshTTL:   time.Hour,
		MaxSessions:     maxSessions,
	}, zerolog.Nop())
	f.svc.now = func() time.Time { return f.now }
	return f
}

func registerInput() models.RegisterInput {
	return models.RegisterInput{
		FirstName: " Ana ",
		LastName:  "Diallo",
		Email:     "Ana@Example.com",
		Password:  "Plombier42",
		Role:      models.UserRoleProvider,
	}
}

func TestRegister(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()

	res, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	assert.Equal(t, "Bearer", res.TokenType)
	assert.EqualValues(t, 300, res.ExpiresIn)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEmpty(t, res.DeviceID)
	assert.Equal(t, "Ana", res.User.FirstName)
	assert.Equal(t, "ana@example.com", res.User.Email)

	claims, err := security.ParseAccessToken(res.Token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "PROVIDER", claims.Role)

	_, err = f.svc.Register(ctx, registerInput())
	assert.ErrorIs(t, err, repository.ErrEmailTaken)
}

func TestRegisterRejectsWeakPasswords(t *testing.T) {
	f := newFixture(t, 10)

	for _, password := range []string{"short", "alllowercase1", "Password1"} {
		input := registerInput()
		input.Password = password
		_, err := f.svc.Register(context.Background(), input)
		assert.ErrorIs(t, err, ErrWeakPassword, password)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	res, err := f.svc.Login(ctx, models.LoginInput{Email: " ANA@example.com", Password: "Plombier42", DeviceID: "laptop"})
	require.NoError(t, err)
	assert.Equal(t, "laptop", res.DeviceID)

	_, err = f.svc.Login(ctx, models.LoginInput{Email: "ana@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, models.LoginInput{Email: "nobody@example.com", Password: "Plombier42"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSessionLimit(t *testing.T) {
	f := newFixture(t, 2)
	ctx := context.Background()
	reg, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	for _, device := range []string{"d1", "d2", "d3"} {
		_, err := f.svc.Login(ctx, models.LoginInput{Email: "ana@example.com", Password: "Plombier42", DeviceID: device})
		require.NoError(t, err)
	}

	count, err := f.sessions.CountByUser(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestRefreshRotates(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	first, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, first.DeviceID, second.DeviceID)
	assert.Equal(t, first.User.ID, second.User.ID)

	_, err = f.svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh, "a rotated token is spent")

	_, err = f.svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshExpired(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	f.now = f.now.Add(time.Hour)
	_, err = f.svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	count, _ := f.sessions.CountByUser(ctx, res.User.ID)
	assert.Zero(t, count, "the expired session is removed")
}

func TestAuthenticateAndLogout(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	user, claims, err := f.svc.Authenticate(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, user.ID)
	assert.Equal(t, res.DeviceID, claims.DeviceID)

	_, _, err = f.svc.Authenticate(ctx, "garbage")
	assert.ErrorIs(t, err, security.ErrInvalidToken)

	require.NoError(t, f.svc.Logout(ctx, res.RefreshToken, res.Token))

	_, _, err = f.svc.Authenticate(ctx, res.Token)
	assert.ErrorIs(t, err, ErrTokenRevoked)
	_, err = f.svc.Refresh(ctx, res.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidRefresh)

	assert.NoError(t, f.svc.Logout(ctx, "unknown", ""), "unknown refresh tokens are ignored")
}

func TestAuthenticateRequiresLiveSession(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, res.RefreshToken, ""))

	_, _, err = f.svc.Authenticate(ctx, res.Token)
	assert.True(t, errors.Is(err, repository.ErrSessionNotFound))
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	user, err := f.svc.UpdateProfile(ctx, res.User.ID, models.ProfileInput{
		FirstName: "Anaïs ",
		LastName:  "Diallo",
		Email:     "ANAIS@example.com",
		Phone:     "0612345678",
	})
	require.NoError(t, err)
	assert.Equal(t, "Anaïs", user.FirstName)
	assert.Equal(t, "anais@example.com", user.Email)
	assert.Equal(t, models.UserRoleProvider, user.Role)
}

func TestSweepExpiredSessions(t *testing.T) {
	f := newFixture(t, 10)
	ctx := context.Background()
	res, err := f.svc.Register(ctx, registerInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.SweepExpiredSessions(ctx))
	count, _ := f.sessions.CountByUser(ctx, res.User.ID)
	assert.Equal(t, 1, count)

	f.now = f.now.Add(2 * time.Hour)
	require.NoError(t, f.svc.SweepExpiredSessions(ctx))
	count, _ = f.sessions.CountByUser(ctx, res.User.ID)
	assert.Zero(t, count)
}
