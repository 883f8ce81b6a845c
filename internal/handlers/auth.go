package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/junnyjoe/home-services/internal/middleware"
	"github.com/junnyjoe/home-services/internal/models"
	"github.com/junnyjoe/home-services/internal/repository"
	"github.com/junnyjoe/home-services/internal/service"
)

func (h HandlerSet) RegisterUser(c *gin.Context) {
	var req models.RegisterInput
	if !h.bind(c, &req) {
		return
	}

	result, err := h.auth.Register(c.Request.Context(), req)
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		h.fail(c, http.StatusConflict, "email_taken", "errors.emailTaken")
		return
	case errors.Is(err, service.ErrWeakPassword):
		h.fail(c, http.StatusBadRequest, "weak_password", "errors.weakPassword")
		return
	case err != nil:
		h.internal(c, err, "register failed")
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h HandlerSet) Login(c *gin.Context) {
	var req models.LoginInput
	if !h.bind(c, &req) {
		return
	}

	result, err := h.auth.Login(c.Request.Context(), req)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.fail(c, http.StatusUnauthorized, "invalid_credentials", "errors.invalidCredentials")
		return
	case err != nil:
		h.internal(c, err, "login failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h HandlerSet) Refresh(c *gin.Context) {
	var req models.RefreshInput
	if !h.bind(c, &req) {
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	switch {
	case errors.Is(err, service.ErrInvalidRefresh):
		h.fail(c, http.StatusUnauthorized, "invalid_refresh_token", "errors.invalidRefreshToken")
		return
	case err != nil:
		h.internal(c, err, "refresh failed")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Logout needs only the refresh token. A bearer token sent along is revoked.
func (h HandlerSet) Logout(c *gin.Context) {
	var req models.RefreshInput
	if !h.bind(c, &req) {
		return
	}
	accessToken, _ := middleware.BearerToken(c)

	if err := h.auth.Logout(c.Request.Context(), req.RefreshToken, accessToken); err != nil {
		h.internal(c, err, "logout failed")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, http.StatusUnauthorized, "unauthorized", "errors.sessionExpired")
		return
	}
	c.JSON(http.StatusOK, user)
}

func (h HandlerSet) UpdateProfile(c *gin.Context) {
	current, ok := middleware.CurrentUser(c)
	if !ok {
		h.fail(c, http.StatusUnauthorized, "unauthorized", "errors.sessionExpired")
		return
	}
	var req models.ProfileInput
	if !h.bind(c, &req) {
		return
	}

	user, err := h.auth.UpdateProfile(c.Request.Context(), current.ID, req)
	switch {
	case errors.Is(err, repository.ErrEmailTaken):
		h.fail(c, http.StatusConflict, "email_taken", "errors.emailTaken")
		return
	case err != nil:
		h.internal(c, err, "update profile failed")
		return
	}

	c.JSON(http.StatusOK, user)
}
