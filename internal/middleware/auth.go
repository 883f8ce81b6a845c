package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/models"
	"github.com/junnyjoe/home-services/internal/repository"
	"github.com/junnyjoe/home-services/internal/security"
	"github.com/junnyjoe/home-services/internal/service"
)

const (
	ctxAccessToken  = "access_token"
	ctxAccessClaims = "access_claims"
	ctxCurrentUser  = "current_user"
)

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, *security.AccessClaims, error)
}

// Auth rejects requests without a valid bearer token and stores the caller
// in the gin context.
func Auth(authn Authenticator, tr Translator, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := BearerToken(c)
		if !ok {
			Fail(c, tr, http.StatusUnauthorized, "missing_token", "errors.authRequired")
			return
		}

		user, claims, err := authn.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			if rejected(err) {
				Fail(c, tr, http.StatusUnauthorized, "invalid_token", "errors.sessionExpired")
				return
			}
			log.Error().Err(err).Str("request_id", RequestIDFrom(c)).Msg("authenticate request")
			Fail(c, tr, http.StatusInternalServerError, "internal_server_error", "errors.internal")
			return
		}

		c.Set(ctxAccessToken, tokenStr)
		c.Set(ctxAccessClaims, claims)
		c.Set(ctxCurrentUser, user)

		c.Next()
	}
}

func rejected(err error) bool {
	for _, target := range []error{
		security.ErrInvalidToken,
		service.ErrTokenRevoked,
		service.ErrSessionMismatch,
		repository.ErrSessionNotFound,
		repository.ErrUserNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxCurrentUser)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func AccessClaims(c *gin.Context) (*security.AccessClaims, bool) {
	v, ok := c.Get(ctxAccessClaims)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*security.AccessClaims)
	return claims, ok && claims != nil
}
