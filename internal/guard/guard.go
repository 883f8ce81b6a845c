// Package guard owns the client session: login throttling, the CSRF token,
// inactivity timeout and background token renewal.
package guard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/junnyjoe/home-services/internal/config"
	"github.com/junnyjoe/home-services/internal/jobs"
	"github.com/junnyjoe/home-services/internal/kvstore"
	"github.com/junnyjoe/home-services/internal/security"
)

// LoginPath is where a terminated session lands.
const LoginPath = "/pages/login.html"

// TokenRefresher obtains a new access token from the backend.
type TokenRefresher interface {
	Refresh(ctx context.Context) error
}

// Navigator moves the host UI to another page.
type Navigator interface {
	Navigate(target string)
}

type NavigatorFunc func(target string)

func (f NavigatorFunc) Navigate(target string) { f(target) }

type Options struct {
	Config config.SessionConfig
	// Origin is the application's own origin, used to vet redirects.
	Origin     string
	Attempts   AttemptStore
	Persistent *kvstore.SafeStore
	Tab        *kvstore.SafeStore
	Refresher  TokenRefresher
	Navigator  Navigator
	Logger     zerolog.Logger
	Clock      func() time.Time
}

type Guard struct {
	cfg        config.SessionConfig
	origin     string
	attempts   AttemptStore
	persistent *kvstore.SafeStore
	tab        *kvstore.SafeStore
	nav        Navigator
	log        zerolog.Logger
	now        func() time.Time
	scheduler  *jobs.Scheduler

	mu           sync.Mutex
	refresher    TokenRefresher
	csrfToken    string
	lastActivity time.Time
}

func New(opts Options) *Guard {
	g := &Guard{
		cfg:        opts.Config,
		origin:     opts.Origin,
		attempts:   opts.Attempts,
		persistent: opts.Persistent,
		tab:        opts.Tab,
		refresher:  opts.Refresher,
		nav:        opts.Navigator,
		log:        opts.Logger,
		now:        opts.Clock,
	}
	if g.attempts == nil {
		g.attempts = NewMemoryAttemptStore()
	}
	if g.persistent == nil {
		g.persistent = kvstore.NewSafeStore(kvstore.NewMemoryStore(), g.log)
	}
	if g.tab == nil {
		g.tab = kvstore.NewSafeStore(kvstore.NewMemoryStore(), g.log)
	}
	if g.nav == nil {
		g.nav = NavigatorFunc(func(string) {})
	}
	if g.now == nil {
		g.now = time.Now
	}
	if g.cfg.CSRFHeader == "" {
		g.cfg.CSRFHeader = security.DefaultCSRFHeader
	}
	g.lastActivity = g.now()
	g.scheduler = jobs.NewScheduler(g.log,
		jobs.Task{Name: "activity-check", Every: g.cfg.ActivityCheckInterval, Run: g.checkTimeoutTask},
		jobs.Task{Name: "token-renewal", Every: g.cfg.TokenRefreshInterval, Run: g.RenewOnce},
	)
	return g
}

// SetRefresher wires the refresher once the network client exists.
func (g *Guard) SetRefresher(r TokenRefresher) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refresher = r
}

// Start launches the activity check and renewal tasks. Calling it on a
// running guard does nothing.
func (g *Guard) Start() error {
	return g.scheduler.Start()
}

// Stop cancels both recurring tasks and waits for a running one to return.
func (g *Guard) Stop() {
	<-g.scheduler.Stop().Done()
}

func (g *Guard) Running() bool {
	return g.scheduler.Running()
}

func (g *Guard) IsAuthenticated(ctx context.Context) bool {
	token, ok := g.persistent.Get(ctx, kvstore.KeyToken)
	return ok && token != ""
}

// BeginSession prepares a freshly authenticated session: activity is reset,
// a new CSRF token issued and the recurring tasks started.
func (g *Guard) BeginSession(ctx context.Context) {
	g.MarkActive()
	g.GenerateCSRFToken(ctx)
	if err := g.Start(); err != nil {
		g.log.Error().Err(err).Msg("session tasks did not start")
	}
}

// RenewOnce refreshes the access token if a session is held. The error is
// returned for the scheduler to log; it never ends the session.
func (g *Guard) RenewOnce(ctx context.Context) error {
	if !g.IsAuthenticated(ctx) {
		return nil
	}
	g.mu.Lock()
	refresher := g.refresher
	g.mu.Unlock()
	if refresher == nil {
		return nil
	}
	if err := refresher.Refresh(ctx); err != nil {
		return fmt.Errorf("renew token: %w", err)
	}
	g.log.Debug().Msg("token renewed")
	return nil
}

// HandleUnauthorized tears the session down after the backend rejected the
// access token.
func (g *Guard) HandleUnauthorized(ctx context.Context) {
	g.terminate(ctx, "unauthorized")
}

func (g *Guard) Logout(ctx context.Context) {
	g.terminate(ctx, "logout")
}

// SafeRedirect navigates to target when it stays on the application's origin
// and to the application root otherwise.
func (g *Guard) SafeRedirect(target string) {
	g.nav.Navigate(security.SafeRedirectTarget(target, g.origin))
}

func (g *Guard) Navigate(target string) {
	g.nav.Navigate(target)
}

func (g *Guard) terminate(ctx context.Context, reason string) {
	// Stop does not wait here: terminate may run inside a scheduled task,
	// whose context is canceled by the stop.
	g.scheduler.Stop()
	ctx = context.WithoutCancel(ctx)

	g.persistent.Delete(ctx, kvstore.KeyToken)
	g.persistent.Delete(ctx, kvstore.KeyRefreshToken)
	g.persistent.Delete(ctx, kvstore.KeyUser)
	g.tab.Clear(ctx)

	g.mu.Lock()
	g.csrfToken = ""
	g.mu.Unlock()

	g.log.Info().Str("reason", reason).Msg("session terminated")
	g.nav.Navigate(LoginPath)
}
