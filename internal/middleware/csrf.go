package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/junnyjoe/home-services/internal/security"
)

// CSRF requires a well-formed token in header on state-changing requests.
// Browsers cannot attach a custom header cross-origin without a CORS
// preflight, which CORS only grants to the configured origins.
func CSRF(header string, tr Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			c.Next()
			return
		}

		if !security.IsWellFormedCSRFToken(c.GetHeader(header)) {
			Fail(c, tr, http.StatusForbidden, "csrf_token_invalid", "errors.csrf")
			return
		}

		c.Next()
	}
}
