package guard

import (
	"context"
	"time"
)

// Signal is a class of user interaction observed by the host UI.
type Signal string

const (
	SignalPointerDown Signal = "pointerdown"
	SignalKeyDown     Signal = "keydown"
	SignalScroll      Signal = "scroll"
	SignalTouchStart  Signal = "touchstart"
)

// MonitoredSignals lists the interactions that count as activity.
var MonitoredSignals = []Signal{SignalPointerDown, SignalKeyDown, SignalScroll, SignalTouchStart}

func (s Signal) monitored() bool {
	switch s {
	case SignalPointerDown, SignalKeyDown, SignalScroll, SignalTouchStart:
		return true
	}
	return false
}

// Touch records activity for a monitored signal and reports whether it was
// counted. It never blocks on anything but the guard's lock.
func (g *Guard) Touch(signal Signal) bool {
	if !signal.monitored() {
		return false
	}
	g.MarkActive()
	return true
}

func (g *Guard) MarkActive() {
	now := g.now()
	g.mu.Lock()
	g.lastActivity = now
	g.mu.Unlock()
}

func (g *Guard) LastActivity() time.Time {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastActivity
}

// CheckTimeout ends an authenticated session idle for at least the session
// timeout and reports whether it did. Without a session it does nothing.
func (g *Guard) CheckTimeout(ctx context.Context) bool {
	if !g.IsAuthenticated(ctx) {
		return false
	}
	idle := g.now().Sub(g.LastActivity())
	if idle < g.cfg.SessionTimeout {
		return false
	}
	g.log.Warn().Dur("idle", idle).Msg("session expired after inactivity")
	g.terminate(ctx, "inactivity")
	return true
}

func (g *Guard) checkTimeoutTask(ctx context.Context) error {
	g.CheckTimeout(ctx)
	return nil
}
