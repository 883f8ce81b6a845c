package api

import (
	"context"
	"errors"
	"fmt"

	"github.com/junnyjoe/home-services/internal/kvstore"
	"github.com/junnyjoe/home-services/internal/models"
)

func (c *Client) Register(ctx context.Context, input models.RegisterInput) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := c.Post(ctx, "/auth/register", input, &res, Anonymous()); err != nil {
		return nil, err
	}
	if err := c.saveSession(ctx, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) Login(ctx context.Context, email, password string) (*models.AuthResult, error) {
	var res models.AuthResult
	input := models.LoginInput{Email: email, Password: password}
	if err := c.Post(ctx, "/auth/login", input, &res, Anonymous()); err != nil {
		return nil, err
	}
	if err := c.saveSession(ctx, &res, true); err != nil {
		return nil, err
	}
	return &res, nil
}

// Refresh trades the stored refresh token for a new token pair.
func (c *Client) Refresh(ctx context.Context) error {
	refresh, ok := c.store.Get(ctx, kvstore.KeyRefreshToken)
	if !ok || refresh == "" {
		return ErrNoRefreshToken
	}
	var res models.AuthResult
	if err := c.Post(ctx, "/auth/refresh", models.RefreshInput{RefreshToken: refresh}, &res, Anonymous()); err != nil {
		return err
	}
	return c.saveSession(ctx, &res, false)
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.Get(ctx, "/auth/me", &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Logout revokes the refresh token server-side when one is held, then drops
// the local credentials. A failed revocation is logged, not returned.
func (c *Client) Logout(ctx context.Context) {
	if refresh, ok := c.store.Get(ctx, kvstore.KeyRefreshToken); ok && refresh != "" {
		err := c.Post(ctx, "/auth/logout", models.RefreshInput{RefreshToken: refresh}, nil)
		if err != nil && !errors.Is(err, ErrSessionExpired) {
			c.log.Warn().Err(err).Msg("server logout failed")
		}
	}
	c.ClearCredentials(ctx)
}

func (c *Client) ClearCredentials(ctx context.Context) {
	c.store.Delete(ctx, kvstore.KeyToken)
	c.store.Delete(ctx, kvstore.KeyRefreshToken)
	c.store.Delete(ctx, kvstore.KeyUser)
}

// User returns the cached user record.
func (c *Client) User(ctx context.Context) (*models.User, bool) {
	var user models.User
	if !c.store.GetJSON(ctx, kvstore.KeyUser, &user) {
		return nil, false
	}
	return &user, true
}

func (c *Client) saveSession(ctx context.Context, res *models.AuthResult, withUser bool) error {
	if res.Token == "" {
		return errors.New("auth response carries no token")
	}
	if err := c.store.Set(ctx, kvstore.KeyToken, res.Token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if res.RefreshToken != "" {
		if err := c.store.Set(ctx, kvstore.KeyRefreshToken, res.RefreshToken); err != nil {
			return fmt.Errorf("store refresh token: %w", err)
		}
	}
	if withUser {
		if err := c.store.SetJSON(ctx, kvstore.KeyUser, res.User); err != nil {
			return fmt.Errorf("store user: %w", err)
		}
	}
	return nil
}

// UpdateProfile edits the signed-in user's record and refreshes the cached copy.
func (c *Client) UpdateProfile(ctx context.Context, input models.ProfileInput) (*models.User, error) {
	var user models.User
	if err := c.Put(ctx, "/auth/me", input, &user); err != nil {
		return nil, err
	}
	if err := c.store.SetJSON(ctx, kvstore.KeyUser, user); err != nil {
		return nil, fmt.Errorf("store user: %w", err)
	}
	return &user, nil
}
