package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Recovery turns a handler panic into a localized 500. When the handler had
// already started its response only the connection state is logged.
func Recovery(log zerolog.Logger, tr Translator) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			event := log.Error().
				Interface("panic", r).
				Str("method", c.Request.Method).
				Str("path", c.FullPath()).
				Str("request_id", RequestIDFrom(c))
			if user, ok := CurrentUser(c); ok {
				event = event.Str("user_id", user.ID)
			}
			event.Bool("response_started", c.Writer.Written()).Msg("handler panicked")

			if c.Writer.Written() {
				c.Abort()
				return
			}
			Fail(c, tr, http.StatusInternalServerError, "internal_server_error", "errors.internal")
		}()
		c.Next()
	}
}
