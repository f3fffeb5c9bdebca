// Package bridge defines the calls the app makes into the native alarm
// service, and a guard that turns an absent service into safe defaults.
package bridge

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/borgmon/wakeup/pkg/logging"
)

// ErrUnavailable is returned by a Bridge whose service cannot be reached.
var ErrUnavailable = errors.New("bridge: native alarm service unavailable")

// Bridge is the native alarm service.
type Bridge interface {
	// Available returns false when calls would fail with ErrUnavailable
	Available() bool
	ScheduleAlarm(ctx context.Context, id string, epochMillis int64, soundResource string) error
	CancelAlarm(ctx context.Context, id string) error
	StopAlarm(ctx context.Context) error
	SnoozeAlarm(ctx context.Context, minutes int, soundResource string) error
	CheckExactAlarmPermission(ctx context.Context) (bool, error)
	IsIgnoringBatteryOptimizations(ctx context.Context) (bool, error)
	SaveAlarmsForReboot(ctx context.Context, blob []byte) error
	// GetLaunchAlarmID returns "" when the app was not launched by an alarm
	GetLaunchAlarmID(ctx context.Context) (string, error)
}

// EpochMillis converts t for ScheduleAlarm
func EpochMillis(t time.Time) int64 {
	return t.UnixMilli()
}

// Guard wraps a possibly absent Bridge. A nil inner bridge, or one returning
// ErrUnavailable, yields safe defaults: permission and battery checks report
// false, the launch id is empty, everything else is a no-op. The absence is
// logged once. Other errors pass through.
type Guard struct {
	inner Bridge
	log   logging.Logger
	once  sync.Once
}

// Guarded wraps b. b may be nil.
func Guarded(b Bridge, log logging.Logger) *Guard {
	return &Guard{inner: b, log: log}
}

func (g *Guard) absent() {
	g.once.Do(func() {
		g.log.Warn("bridge: native alarm service unavailable, notifications only")
	})
}

// call runs f unless the bridge is absent. ErrUnavailable is swallowed.
func (g *Guard) call(f func(Bridge) error) error {
	if g.inner == nil || !g.inner.Available() {
		g.absent()
		return nil
	}
	if err := f(g.inner); err != nil {
		if errors.Is(err, ErrUnavailable) {
			g.absent()
			return nil
		}
		return err
	}
	return nil
}

func (g *Guard) Available() bool {
	return g.inner != nil && g.inner.Available()
}

func (g *Guard) ScheduleAlarm(ctx context.Context, id string, epochMillis int64, soundResource string) error {
	return g.call(func(b Bridge) error { return b.ScheduleAlarm(ctx, id, epochMillis, soundResource) })
}

func (g *Guard) CancelAlarm(ctx context.Context, id string) error {
	return g.call(func(b Bridge) error { return b.CancelAlarm(ctx, id) })
}

func (g *Guard) StopAlarm(ctx context.Context) error {
	return g.call(func(b Bridge) error { return b.StopAlarm(ctx) })
}

func (g *Guard) SnoozeAlarm(ctx context.Context, minutes int, soundResource string) error {
	return g.call(func(b Bridge) error { return b.SnoozeAlarm(ctx, minutes, soundResource) })
}

func (g *Guard) CheckExactAlarmPermission(ctx context.Context) (bool, error) {
	var granted bool
	err := g.call(func(b Bridge) (err error) {
		if granted, err = b.CheckExactAlarmPermission(ctx); err != nil {
			granted = false
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return granted, nil
}

func (g *Guard) IsIgnoringBatteryOptimizations(ctx context.Context) (bool, error) {
	var ignoring bool
	err := g.call(func(b Bridge) (err error) {
		if ignoring, err = b.IsIgnoringBatteryOptimizations(ctx); err != nil {
			ignoring = false
		}
		return err
	})
	if err != nil {
		return false, err
	}
	return ignoring, nil
}

func (g *Guard) SaveAlarmsForReboot(ctx context.Context, blob []byte) error {
	return g.call(func(b Bridge) error { return b.SaveAlarmsForReboot(ctx, blob) })
}

func (g *Guard) GetLaunchAlarmID(ctx context.Context) (string, error) {
	var id string
	err := g.call(func(b Bridge) (err error) {
		if id, err = b.GetLaunchAlarmID(ctx); err != nil {
			id = ""
		}
		return err
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

var _ Bridge = (*Guard)(nil)
