package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/borgmon/wakeup/pkg/bridge"
	"github.com/borgmon/wakeup/pkg/bridge/bridgetest"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/stretchr/testify/assert"
)

func newTestWatcher(zone *string, native bridge.Bridge) *Watcher {
	return NewWatcher(func() string { return *zone }, native, 2*time.Minute, 24*time.Hour)
}

func TestWatcherForegroundAlwaysReconciles(t *testing.T) {
	zone := "Europe/Berlin"
	w := newTestWatcher(&zone, bridge.Guarded(nil, logging.Nop()))
	ctx := context.Background()

	assert.Equal(t, []Reason{ReasonForeground}, w.Foreground(ctx, wednesday))
	assert.Equal(t, []Reason{ReasonForeground}, w.Foreground(ctx, wednesday.Add(time.Hour)))
}

func TestWatcherQuietTicks(t *testing.T) {
	zone := "Europe/Berlin"
	w := newTestWatcher(&zone, bridgetest.New())
	ctx := context.Background()

	now := wednesday
	for i := 0; i < 100; i++ {
		assert.Empty(t, w.Check(ctx, now))
		now = now.Add(5 * time.Second)
	}
}

func TestWatcherZoneChange(t *testing.T) {
	zone := "Europe/Berlin"
	w := newTestWatcher(&zone, bridge.Guarded(nil, logging.Nop()))
	ctx := context.Background()

	w.Check(ctx, wednesday)
	zone = "America/New_York"
	assert.Equal(t, []Reason{ReasonZoneChanged}, w.Check(ctx, wednesday.Add(5*time.Second)))
	assert.Empty(t, w.Check(ctx, wednesday.Add(10*time.Second)))
}

func TestWatcherClockJumps(t *testing.T) {
	zone := "UTC"
	w := newTestWatcher(&zone, bridge.Guarded(nil, logging.Nop()))
	ctx := context.Background()

	w.Check(ctx, wednesday)
	assert.Empty(t, w.Check(ctx, wednesday.Add(-time.Minute)), "small backward step is tolerated")
	assert.Equal(t, []Reason{ReasonClockJump}, w.Check(ctx, wednesday.Add(-5*time.Minute)))

	w.Check(ctx, wednesday)
	assert.Equal(t, []Reason{ReasonClockJump}, w.Check(ctx, wednesday.Add(25*time.Hour)))
	assert.Empty(t, w.Check(ctx, wednesday.Add(25*time.Hour+5*time.Second)))
}

func TestWatcherPermissionRevoked(t *testing.T) {
	zone := "UTC"
	native := bridgetest.New()
	w := newTestWatcher(&zone, native)
	ctx := context.Background()

	assert.Empty(t, w.Check(ctx, wednesday))
	native.SetPermission(false)

	// Throttled until a minute has passed
	assert.Empty(t, w.Check(ctx, wednesday.Add(5*time.Second)))
	assert.Equal(t, []Reason{ReasonPermissionRevoked}, w.Check(ctx, wednesday.Add(time.Minute)))
	assert.Empty(t, w.Check(ctx, wednesday.Add(2*time.Minute)))

	native.SetPermission(true)
	w.Foreground(ctx, wednesday.Add(3*time.Minute))
	native.SetPermission(false)
	assert.Equal(t, []Reason{ReasonForeground, ReasonPermissionRevoked}, w.Foreground(ctx, wednesday.Add(3*time.Minute+time.Second)))
}
