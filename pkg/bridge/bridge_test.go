package bridge_test

import (
	"context"
	"errors"
	"testing"

	"github.com/borgmon/wakeup/pkg/bridge"
	"github.com/borgmon/wakeup/pkg/bridge/bridgetest"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuardNilBridgeReturnsSafeDefaults(t *testing.T) {
	ctx := context.Background()
	g := bridge.Guarded(nil, logging.Nop())

	assert.False(t, g.Available())
	assert.NoError(t, g.ScheduleAlarm(ctx, "a", 1, "alarm_classic"))
	assert.NoError(t, g.CancelAlarm(ctx, "a"))
	assert.NoError(t, g.StopAlarm(ctx))
	assert.NoError(t, g.SnoozeAlarm(ctx, 5, "alarm_classic"))
	assert.NoError(t, g.SaveAlarmsForReboot(ctx, []byte("[]")))

	granted, err := g.CheckExactAlarmPermission(ctx)
	require.NoError(t, err)
	assert.False(t, granted)

	ignoring, err := g.IsIgnoringBatteryOptimizations(ctx)
	require.NoError(t, err)
	assert.False(t, ignoring)

	id, err := g.GetLaunchAlarmID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestGuardUnavailableBridge(t *testing.T) {
	ctx := context.Background()
	fake := bridgetest.New()
	fake.LaunchID = "x"
	fake.Unavailable = true
	g := bridge.Guarded(fake, logging.Nop())

	granted, err := g.CheckExactAlarmPermission(ctx)
	require.NoError(t, err)
	assert.False(t, granted)

	id, err := g.GetLaunchAlarmID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Zero(t, fake.ScheduleCalls())
}

func TestGuardPassesThroughAvailableBridge(t *testing.T) {
	ctx := context.Background()
	fake := bridgetest.New()
	fake.LaunchID = "alarm-1"
	g := bridge.Guarded(fake, logging.Nop())

	require.True(t, g.Available())
	require.NoError(t, g.ScheduleAlarm(ctx, "a", 42, "alarm_radar"))
	assert.Equal(t, bridgetest.Scheduled{EpochMillis: 42, SoundResource: "alarm_radar"}, fake.Schedule()["a"])

	granted, err := g.CheckExactAlarmPermission(ctx)
	require.NoError(t, err)
	assert.True(t, granted)

	id, err := g.GetLaunchAlarmID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alarm-1", id)
}

func TestGuardSurfacesTransientErrors(t *testing.T) {
	fake := bridgetest.New()
	boom := errors.New("disk full")
	fake.FailSchedule = map[string]error{"a": boom}
	g := bridge.Guarded(fake, logging.Nop())

	assert.ErrorIs(t, g.ScheduleAlarm(context.Background(), "a", 1, "alarm_classic"), boom)
	assert.NoError(t, g.ScheduleAlarm(context.Background(), "b", 1, "alarm_classic"))
}
