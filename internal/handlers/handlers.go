// Package handlers exposes the development API's auth endpoints over gin.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/config"
	"github.com/junnyjoe/home-services/internal/i18n"
	"github.com/junnyjoe/home-services/internal/middleware"
	"github.com/junnyjoe/home-services/internal/service"
)

// Check pings one dependency for the health endpoint.
type Check func(ctx context.Context) error

type HandlerSet struct {
	log       zerolog.Logger
	cfg       *config.AppConfig
	auth      *service.AuthService
	tr        *i18n.Translator
	validator *Validator
	checks    map[string]Check
}

func NewHandlerSet(
	log zerolog.Logger,
	cfg *config.AppConfig,
	auth *service.AuthService,
	tr *i18n.Translator,
	checks map[string]Check,
) HandlerSet {
	return HandlerSet{
		log:       log,
		cfg:       cfg,
		auth:      auth,
		tr:        tr,
		validator: NewValidator(),
		checks:    checks,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	router.GET("/healthz", h.Health)

	auth := router.Group("/auth")
	auth.POST("/register", h.RegisterUser)
	auth.POST("/login", h.Login)
	auth.POST("/refresh", h.Refresh)
	auth.POST("/logout", h.Logout)

	protected := router.Group("/auth")
	protected.Use(
		middleware.Auth(h.auth, h.tr, h.log),
		middleware.CSRF(h.cfg.Session.CSRFHeader, h.tr),
	)
	protected.GET("/me", h.Me)
	protected.PUT("/me", h.UpdateProfile)
}

// fail writes a machine-readable code and a message in the caller's language.
func (h HandlerSet) fail(c *gin.Context, status int, code, key string) {
	middleware.Fail(c, h.tr, status, code, key)
}

// Translator is shared with the router-wide middleware.
func (h HandlerSet) Translator() *i18n.Translator {
	return h.tr
}

// bind decodes and validates a JSON body, answering 400 itself on failure.
func (h HandlerSet) bind(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		h.fail(c, http.StatusBadRequest, "invalid_request", "errors.invalidRequest")
		return false
	}
	if err := h.validator.Validate(dst); err != nil {
		body := gin.H{
			"error":   "validation_failed",
			"message": h.tr.T(c.GetHeader("Accept-Language"), "errors.invalidRequest", nil),
		}
		if fields, ok := err.(FieldErrors); ok {
			body["fields"] = fields
		}
		c.JSON(http.StatusBadRequest, body)
		return false
	}
	return true
}

func (h HandlerSet) internal(c *gin.Context, err error, msg string) {
	h.log.Error().Err(err).Str("path", c.FullPath()).Msg(msg)
	h.fail(c, http.StatusInternalServerError, "internal_server_error", "errors.internal")
}
