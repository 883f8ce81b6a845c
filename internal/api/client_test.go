package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/junnyjoe/home-services/internal/kvstore"
	"github.com/junnyjoe/home-services/internal/models"
)

type staticCSRF string

func (staticCSRF) CSRFHeader() string                 { return "X-CSRF-Token" }
func (s staticCSRF) CSRFToken(context.Context) string { return string(s) }

type harness struct {
	client       *Client
	store        *kvstore.SafeStore
	unauthorized int
	requests     []*http.Request
	bodies       []map[string]any
}

func newHarness(t *testing.T, handler http.HandlerFunc) *harness {
	t.Helper()
	h := &harness{store: kvstore.NewSafeStore(kvstore.NewMemoryStore(), zerolog.Nop())}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		h.requests = append(h.requests, r.Clone(context.Background()))
		h.bodies = append(h.bodies, body)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	h.client = New(Options{
		BaseURL:        srv.URL + "/api/",
		HTTPClient:     srv.Client(),
		Store:          h.store,
		CSRF:           staticCSRF("csrf-123"),
		OnUnauthorized: func(context.Context) { h.unauthorized++ },
		Logger:         zerolog.Nop(),
	})
	return h
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func authResult(token, refresh string) models.AuthResult {
	return models.AuthResult{
		Token:        token,
		RefreshToken: refresh,
		User: models.User{
			ID:        "u1",
			FirstName: "Ana",
			LastName:  "Diallo",
			Email:     "ana@example.com",
			Role:      models.UserRoleProvider,
		},
	}
}

func TestHeaders(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"ok": "yes"})
	})
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, kvstore.KeyToken, "access-1"))

	require.NoError(t, h.client.Get(ctx, "/services", nil))
	require.NoError(t, h.client.Post(ctx, "/reservations", map[string]int{"hours": 2}, nil))
	require.NoError(t, h.store.Set(ctx, kvstore.KeyLanguage, "en"))
	require.NoError(t, h.client.Get(ctx, "/services", nil, Anonymous()))

	get, post, anon := h.requests[0], h.requests[1], h.requests[2]

	assert.Equal(t, "/api/services", get.URL.Path)
	assert.Equal(t, "Bearer access-1", get.Header.Get("Authorization"))
	assert.Equal(t, "fr", get.Header.Get("Accept-Language"))
	assert.Empty(t, get.Header.Get("X-CSRF-Token"), "reads carry no csrf token")

	assert.Equal(t, "application/json", post.Header.Get("Content-Type"))
	assert.Equal(t, "csrf-123", post.Header.Get("X-CSRF-Token"))
	assert.Equal(t, float64(2), h.bodies[1]["hours"])

	assert.Empty(t, anon.Header.Get("Authorization"))
	assert.Equal(t, "en", anon.Header.Get("Accept-Language"))
}

func TestUnauthorized(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "expired"})
	})

	err := h.client.Get(context.Background(), "/auth/me", nil)

	assert.ErrorIs(t, err, ErrSessionExpired)
	assert.Equal(t, 1, h.unauthorized)
}

func TestAnonymousUnauthorizedIsAPIError(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "bad credentials"})
	})

	_, err := h.client.Login(context.Background(), "ana@example.com", "nope")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "bad credentials", apiErr.Message)
	assert.Zero(t, h.unauthorized, "a failed login is not a session expiry")
}

func TestForbiddenKeepsSession(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	err := h.client.Delete(context.Background(), "/users/7", nil)

	assert.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, h.unauthorized)
}

func TestAPIError(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/plain" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, http.StatusConflict, map[string]string{"message": "Email déjà utilisé"})
	})
	ctx := context.Background()

	var apiErr *APIError
	err := h.client.Post(ctx, "/auth/register", map[string]string{}, nil)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "Email déjà utilisé", apiErr.Message)

	err = h.client.Get(ctx, "/plain", nil)
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Message)
}

func TestLoginStoresSession(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authResult("access-1", "refresh-1"))
	})
	ctx := context.Background()

	res, err := h.client.Login(ctx, "ana@example.com", "Secret123")
	require.NoError(t, err)
	assert.Equal(t, "access-1", res.Token)

	assert.Equal(t, "/api/auth/login", h.requests[0].URL.Path)
	assert.Empty(t, h.requests[0].Header.Get("Authorization"))
	assert.Equal(t, "ana@example.com", h.bodies[0]["email"])

	token, _ := h.store.Get(ctx, kvstore.KeyToken)
	refresh, _ := h.store.Get(ctx, kvstore.KeyRefreshToken)
	assert.Equal(t, "access-1", token)
	assert.Equal(t, "refresh-1", refresh)

	user, ok := h.client.User(ctx)
	require.True(t, ok)
	assert.Equal(t, models.UserRoleProvider, user.Role)
}

func TestRefreshRotatesTokens(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authResult("access-2", "refresh-2"))
	})
	ctx := context.Background()

	assert.ErrorIs(t, h.client.Refresh(ctx), ErrNoRefreshToken)
	assert.Empty(t, h.requests)

	require.NoError(t, h.store.Set(ctx, kvstore.KeyToken, "access-1"))
	require.NoError(t, h.store.Set(ctx, kvstore.KeyRefreshToken, "refresh-1"))
	require.NoError(t, h.client.Refresh(ctx))

	assert.Equal(t, "refresh-1", h.bodies[0]["refreshToken"])
	token, _ := h.store.Get(ctx, kvstore.KeyToken)
	refresh, _ := h.store.Get(ctx, kvstore.KeyRefreshToken)
	assert.Equal(t, "access-2", token)
	assert.Equal(t, "refresh-2", refresh)
}

func TestMe(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, authResult("", "").User)
	})

	user, err := h.client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ana Diallo", user.DisplayName())
}

func TestLogoutClearsCredentials(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, kvstore.KeyToken, "access-1"))
	require.NoError(t, h.store.Set(ctx, kvstore.KeyRefreshToken, "refresh-1"))
	require.NoError(t, h.store.Set(ctx, kvstore.KeyLanguage, "en"))

	h.client.Logout(ctx)

	require.Len(t, h.requests, 1)
	assert.Equal(t, "/api/auth/logout", h.requests[0].URL.Path)
	_, ok := h.store.Get(ctx, kvstore.KeyToken)
	assert.False(t, ok)
	_, ok = h.store.Get(ctx, kvstore.KeyRefreshToken)
	assert.False(t, ok)
	_, ok = h.store.Get(ctx, kvstore.KeyLanguage)
	assert.True(t, ok)
}

func TestUpdateProfileRefreshesCachedUser(t *testing.T) {
	h := newHarness(t, func(w http.ResponseWriter, r *http.Request) {
		user := authResult("", "").User
		user.FirstName = "Anaïs"
		writeJSON(w, http.StatusOK, user)
	})
	ctx := context.Background()
	require.NoError(t, h.store.Set(ctx, kvstore.KeyToken, "access-1"))

	user, err := h.client.UpdateProfile(ctx, models.ProfileInput{FirstName: "Anaïs", LastName: "Diallo", Email: "ana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Anaïs", user.FirstName)

	assert.Equal(t, http.MethodPut, h.requests[0].Method)
	assert.Equal(t, "/api/auth/me", h.requests[0].URL.Path)
	assert.Equal(t, "csrf-123", h.requests[0].Header.Get("X-CSRF-Token"))

	cached, ok := h.client.User(ctx)
	require.True(t, ok)
	assert.Equal(t, "Anaïs", cached.FirstName)
}
