package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	requestIDHeader = "X-Request-Id"
	ctxRequestID    = "request_id"
	maxRequestIDLen = 64
)

// RequestID echoes the caller's request id when it is a short printable
// token and assigns a fresh uuid otherwise, so ids stay safe to log.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if !validRequestID(requestID) {
			requestID = uuid.NewString()
		}

		c.Set(ctxRequestID, requestID)
		c.Writer.Header().Set(requestIDHeader, requestID)

		c.Next()
	}
}

// RequestIDFrom returns the id RequestID stored, or "" outside it.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		switch b := id[i]; {
		case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		case b == '-' || b == '_' || b == '.' || b == ':':
		default:
			return false
		}
	}
	return true
}
