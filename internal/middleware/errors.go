package middleware

import "github.com/gin-gonic/gin"

// Translator renders the message sent beside an error code.
type Translator interface {
	T(lang, key string, params map[string]string) string
}

// Fail aborts the request with a machine-readable code and the message for
// key in the caller's Accept-Language.
func Fail(c *gin.Context, tr Translator, status int, code, key string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   code,
		"message": tr.T(c.GetHeader("Accept-Language"), key, nil),
	})
}
