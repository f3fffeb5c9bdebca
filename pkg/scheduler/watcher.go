package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/borgmon/wakeup/pkg/bridge"
)

// Reason names why a reconcile was asked for
type Reason string

const (
	ReasonForeground        Reason = "foreground"
	ReasonZoneChanged       Reason = "zone-changed"
	ReasonClockJump         Reason = "clock-jump"
	ReasonPermissionRevoked Reason = "permission-revoked"
)

const permissionCheckEvery = time.Minute

// Watcher detects the conditions that invalidate live schedules: a new IANA
// zone, a wall clock jump, or a revoked exact alarm permission.
type Watcher struct {
	mu       sync.Mutex
	zone     func() string
	native   bridge.Bridge
	backward time.Duration
	forward  time.Duration

	lastNow       time.Time
	lastZone      string
	granted       bool
	lastPermCheck time.Time
}

// NewWatcher creates a watcher. zone reports the current IANA zone name.
func NewWatcher(zone func() string, native bridge.Bridge, backward, forward time.Duration) *Watcher {
	return &Watcher{zone: zone, native: native, backward: backward, forward: forward}
}

// Foreground is called when the app comes to the foreground. It always asks
// for a reconcile and lists any anomaly found as well.
func (w *Watcher) Foreground(ctx context.Context, now time.Time) []Reason {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]Reason{ReasonForeground}, w.observe(ctx, now, true)...)
}

// Check is called from the periodic tick and returns reasons only when
// something changed.
func (w *Watcher) Check(ctx context.Context, now time.Time) []Reason {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.observe(ctx, now, false)
}

func (w *Watcher) observe(ctx context.Context, now time.Time, forcePerm bool) []Reason {
	var reasons []Reason

	zone := w.zone()
	if w.lastZone != "" && zone != w.lastZone {
		reasons = append(reasons, ReasonZoneChanged)
	}
	w.lastZone = zone

	if !w.lastNow.IsZero() {
		// Wall clock only: monotonic readings would hide the jump
		delta := now.Round(0).Sub(w.lastNow.Round(0))
		if delta < -w.backward || delta > w.forward {
			reasons = append(reasons, ReasonClockJump)
		}
	}
	w.lastNow = now

	if w.native.Available() && (forcePerm || w.lastPermCheck.IsZero() || now.Sub(w.lastPermCheck) >= permissionCheckEvery || now.Before(w.lastPermCheck)) {
		w.lastPermCheck = now
		granted, err := w.native.CheckExactAlarmPermission(ctx)
		if err == nil {
			if w.granted && !granted {
				reasons = append(reasons, ReasonPermissionRevoked)
			}
			w.granted = granted
		}
	}
	return reasons
}
