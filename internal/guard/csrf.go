package guard

import (
	"context"
	"net/http"

	"github.com/junnyjoe/home-services/internal/kvstore"
	"github.com/junnyjoe/home-services/internal/security"
)

// GenerateCSRFToken issues a fresh token, caches it and persists it in the
// tab store. It returns "" only if the system random source fails.
func (g *Guard) GenerateCSRFToken(ctx context.Context) string {
	token, err := security.NewCSRFToken()
	if err != nil {
		g.log.Error().Err(err).Msg("csrf token generation failed")
		return ""
	}

	g.mu.Lock()
	g.csrfToken = token
	g.mu.Unlock()

	if err := g.tab.Set(ctx, kvstore.KeyCSRFToken, token); err != nil {
		g.log.Warn().Err(err).Msg("csrf token not persisted")
	}
	return token
}

// CSRFToken returns the cached token, restores it from the tab store, or
// generates one.
func (g *Guard) CSRFToken(ctx context.Context) string {
	g.mu.Lock()
	token := g.csrfToken
	g.mu.Unlock()
	if token != "" {
		return token
	}

	if stored, ok := g.tab.Get(ctx, kvstore.KeyCSRFToken); ok && security.IsWellFormedCSRFToken(stored) {
		g.mu.Lock()
		g.csrfToken = stored
		g.mu.Unlock()
		return stored
	}
	return g.GenerateCSRFToken(ctx)
}

func (g *Guard) CSRFHeader() string {
	return g.cfg.CSRFHeader
}

// CSRFHeaders sets the CSRF header on h.
func (g *Guard) CSRFHeaders(ctx context.Context, h http.Header) {
	if token := g.CSRFToken(ctx); token != "" {
		h.Set(g.cfg.CSRFHeader, token)
	}
}
