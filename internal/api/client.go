// Package api is the client for the marketplace REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/kvstore"
)

var (
	// ErrSessionExpired is returned for 401 responses to authenticated
	// requests, after the session was torn down.
	ErrSessionExpired = errors.New("session expired")
	// ErrForbidden is returned for 403 responses. The session is kept.
	ErrForbidden      = errors.New("access denied")
	ErrNoRefreshToken = errors.New("no refresh token")
)

// APIError is a non-2xx response other than 403 and other than a 401 to an
// authenticated request.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// CSRFSource supplies the header sent on state-changing requests.
type CSRFSource interface {
	CSRFHeader() string
	CSRFToken(ctx context.Context) string
}

type Options struct {
	BaseURL         string
	Timeout         time.Duration
	DefaultLanguage string
	HTTPClient      *http.Client
	Store           *kvstore.SafeStore
	CSRF            CSRFSource
	// OnUnauthorized runs when an authenticated request gets a 401.
	OnUnauthorized func(ctx context.Context)
	Logger         zerolog.Logger
}

type Client struct {
	baseURL        string
	http           *http.Client
	store          *kvstore.SafeStore
	csrf           CSRFSource
	onUnauthorized func(ctx context.Context)
	lang           string
	log            zerolog.Logger
}

func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	lang := opts.DefaultLanguage
	if lang == "" {
		lang = "fr"
	}
	store := opts.Store
	if store == nil {
		store = kvstore.NewSafeStore(kvstore.NewMemoryStore(), opts.Logger)
	}
	return &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		http:           httpClient,
		store:          store,
		csrf:           opts.CSRF,
		onUnauthorized: opts.OnUnauthorized,
		lang:           lang,
		log:            opts.Logger,
	}
}

type requestOptions struct {
	anonymous bool
}

type RequestOption func(*requestOptions)

// Anonymous omits the bearer credential.
func Anonymous() RequestOption {
	return func(o *requestOptions) { o.anonymous = true }
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out, opts...)
}

// Do sends a JSON request to baseURL+path and decodes a JSON response into
// out when out is non-nil.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	var o requestOptions
	for _, opt := range opts {
		opt(&o)
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	c.setHeaders(ctx, req, !o.anonymous)

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("method", method).Str("path", path).Msg("api request failed")
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized && o.anonymous:
		return &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
	case resp.StatusCode == http.StatusUnauthorized:
		c.log.Warn().Str("path", path).Msg("api rejected credentials")
		if c.onUnauthorized != nil {
			c.onUnauthorized(ctx)
		}
		return ErrSessionExpired
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(resp.Body)}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		c.log.Error().Int("status", resp.StatusCode).Str("path", path).Str("message", apiErr.Message).Msg("api error")
		return apiErr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) setHeaders(ctx context.Context, req *http.Request, withAuth bool) {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	lang, ok := c.store.Get(ctx, kvstore.KeyLanguage)
	if !ok || lang == "" {
		lang = c.lang
	}
	req.Header.Set("Accept-Language", lang)

	if withAuth {
		if token, ok := c.store.Get(ctx, kvstore.KeyToken); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	if c.csrf != nil && stateChanging(req.Method) {
		if token := c.csrf.CSRFToken(ctx); token != "" {
			req.Header.Set(c.csrf.CSRFHeader(), token)
		}
	}
}

func stateChanging(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func errorMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 64<<10)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
