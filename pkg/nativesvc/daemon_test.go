package nativesvc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/borgmon/wakeup/pkg/audio"
	"github.com/borgmon/wakeup/pkg/bridge"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 2026-03-04 06:59:30 UTC
var beforeSeven = time.Date(2026, 3, 4, 6, 59, 30, 0, time.UTC)

type fakePlayer struct {
	started []models.Sound
	live    bool
}

func (p *fakePlayer) Start(_ audio.Slot, sound models.Sound, _ models.WakeIntensity) (audio.Handle, error) {
	p.started = append(p.started, sound)
	p.live = true
	return audio.Handle{Slot: audio.SlotAlarm, ID: "h"}, nil
}

func (p *fakePlayer) StopSlot(audio.Slot) { p.live = false }

type fakeLauncher struct {
	launched []string
	err      error
}

func (l *fakeLauncher) Launch(_ context.Context, id string) error {
	l.launched = append(l.launched, id)
	return l.err
}

type service struct {
	store    *Store
	clock    *clock.Fake
	client   *Client
	daemon   *Daemon
	player   *fakePlayer
	launcher *fakeLauncher
}

func newService(t *testing.T) *service {
	t.Helper()
	sv := &service{
		store:    newTestStore(t),
		clock:    clock.NewFake(beforeSeven),
		player:   &fakePlayer{},
		launcher: &fakeLauncher{},
	}
	sv.client = NewClient(sv.store, sv.clock, 10*time.Second)
	sv.daemon = NewDaemon(sv.store, sv.clock, sv.player, sv.launcher, logging.Nop(), DaemonConfig{
		PollInterval:         time.Second,
		RingTimeout:          10 * time.Minute,
		ExactAlarmPermission: true,
		AppStaleAfter:        15 * time.Second,
	})
	return sv
}

func (sv *service) saveRecords(t *testing.T, alarms ...models.Alarm) {
	t.Helper()
	var records []models.RebootRecord
	for _, a := range alarms {
		records = append(records, models.RebootRecordFor(a))
	}
	blob, err := json.Marshal(records)
	require.NoError(t, err)
	require.NoError(t, sv.client.SaveAlarmsForReboot(context.Background(), blob))
}

func (sv *service) schedule(t *testing.T, a models.Alarm, at time.Time) {
	t.Helper()
	resource, err := a.Sound.ResourceName()
	require.NoError(t, err)
	require.NoError(t, sv.client.ScheduleAlarm(context.Background(), a.ID, bridge.EpochMillis(at), resource))
}

func TestClientAvailabilityFollowsHeartbeat(t *testing.T) {
	sv := newService(t)
	ctx := context.Background()
	assert.False(t, sv.client.Available())

	require.NoError(t, sv.daemon.Start(ctx))
	assert.True(t, sv.client.Available())
	granted, err := sv.client.CheckExactAlarmPermission(ctx)
	require.NoError(t, err)
	assert.True(t, granted)

	sv.clock.Advance(time.Minute)
	assert.False(t, sv.client.Available())

	// Guarded degrades to defaults while alarmd is down
	g := bridge.Guarded(sv.client, logging.Nop())
	granted, err = g.CheckExactAlarmPermission(ctx)
	require.NoError(t, err)
	assert.False(t, granted)
}

func TestClientRejectsUnknownResource(t *testing.T) {
	sv := newService(t)
	err := sv.client.ScheduleAlarm(context.Background(), "a", beforeSeven.UnixMilli(), "alarm_kazoo")
	assert.ErrorIs(t, err, models.ErrUnknownSound)
	assert.Error(t, sv.client.SaveAlarmsForReboot(context.Background(), []byte("{")))
}

func TestDaemonLaunchesAppForDueAlarm(t *testing.T) {
	sv := newService(t)
	ctx := context.Background()
	a := models.NewAlarm(7, 0, models.Weekdays{})
	seven := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	sv.schedule(t, a, seven)
	sv.saveRecords(t, a)
	require.NoError(t, sv.daemon.Start(ctx))
	assert.Empty(t, sv.launcher.launched)

	sv.clock.Advance(30 * time.Second)
	require.NoError(t, sv.daemon.Poll(ctx))
	assert.Equal(t, []string{a.ID}, sv.launcher.launched)
	assert.False(t, sv.daemon.Ringing())

	id, err := sv.client.GetLaunchAlarmID(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)
	id, err = sv.client.GetLaunchAlarmID(ctx)
	require.NoError(t, err)
	assert.Empty(t, id, "launch id is consumed")

	// A fired one-time alarm is not brought back on restart
	rows, err := sv.store.Alarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
	require.NoError(t, sv.daemon.Start(ctx))
	rows, err = sv.store.Alarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDaemonLeavesRingingToRunningApp(t *testing.T) {
	sv := newService(t)
	ctx := context.Background()
	a := models.NewAlarm(7, 0, models.Weekdays{})
	sv.schedule(t, a, time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC))
	require.NoError(t, sv.daemon.Start(ctx))

	sv.clock.Advance(28 * time.Second)
	_, err := sv.client.GetLaunchAlarmID(ctx)
	require.NoError(t, err)
	sv.clock.Advance(2 * time.Second)
	require.NoError(t, sv.daemon.Poll(ctx))
	assert.Empty(t, sv.launcher.launched)

	id, err := sv.client.GetLaunchAlarmID(ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, id)
}

func TestDaemonFallbackRingsUntilStopped(t *testing.T) {
	sv := newService(t)
	ctx := context.Background()
	sv.launcher.err = errors.New("no display")
	a := models.NewAlarm(7, 0, models.Weekdays{})
	a.Sound = models.SoundBirdsong
	sv.schedule(t, a, time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC))
	require.NoError(t, sv.daemon.Start(ctx))

	sv.clock.Advance(31 * time.Second)
	require.NoError(t, sv.daemon.Poll(ctx))
	assert.True(t, sv.daemon.Ringing())
	assert.Equal(t, []models.Sound{models.SoundBirdsong}, sv.player.started)

	sv.clock.Advance(time.Second)
	require.NoError(t, sv.daemon.Poll(ctx))
	assert.True(t, sv.player.live)

	require.NoError(t, sv.client.StopAlarm(ctx))
	require.NoError(t, sv.daemon.Poll(ctx))
	assert.False(t, sv.player.live)
	assert.False(t, sv.daemon.Ringing())
}

func TestDaemonFallbackTimesOut(t *testing.T) {
	sv := newService(t)
	ctx := context.Background()
	sv.launcher.err = errors.New("no display")
	a := models.NewAlarm(7, 0, models.Weekdays{})
	sv.schedule(t, a, time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC))
	require.NoError(t, sv.daemon.Start(ctx))

	sv.clock.Advance(30 * time.Second)
	require.NoError(t, sv.daemon.Poll(ctx))
	require.True(t, sv.player.live)

	sv.clock.Advance(10 * time.Minute)
	require.NoError(t, sv.daemon.Poll(ctx))
	assert.False(t, sv.player.live)
	_, ringing, err := sv.store.Value(ctx, keyRinging)
	require.NoError(t, err)
	assert.False(t, ringing)
}

func TestDaemonRearmsRepeatingAlarm(t *testing.T) {
	sv := newService(t)
	ctx := context.Background()
	a := models.NewAlarm(7, 0, models.Weekdays{false, false, false, true, true, false, false})
	sv.schedule(t, a, time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC))
	sv.saveRecords(t, a)
	require.NoError(t, sv.daemon.Start(ctx))

	sv.clock.Advance(40 * time.Second)
	require.NoError(t, sv.daemon.Poll(ctx))
	require.Len(t, sv.launcher.launched, 1)

	rows, err := sv.store.Alarms(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].FireAt.Equal(time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC)))
}

func TestDaemonStartRearmsFromRebootBlob(t *testing.T) {
	sv := newService(t)
	ctx := context.Background()
	a := models.NewAlarm(8, 15, models.Weekdays{true, true, true, true, true, true, true})
	a.Sound = models.SoundOcean
	sv.saveRecords(t, a)

	require.NoError(t, sv.daemon.Start(ctx))
	rows, err := sv.store.Alarms(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, a.ID, rows[0].ID)
	assert.Equal(t, "alarm_ocean", rows[0].SoundResource)
	assert.True(t, rows[0].FireAt.Equal(time.Date(2026, 3, 4, 8, 15, 0, 0, time.UTC)))
}

func TestDaemonSkipsMissedAlarm(t *testing.T) {
	sv := newService(t)
	ctx := context.Background()
	a := models.NewAlarm(5, 0, models.Weekdays{true, true, true, true, true, true, true})
	sv.schedule(t, a, time.Date(2026, 3, 4, 5, 0, 0, 0, time.UTC))
	sv.saveRecords(t, a)

	require.NoError(t, sv.daemon.Start(ctx))
	assert.Empty(t, sv.launcher.launched)
	rows, err := sv.store.Alarms(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].FireAt.Equal(time.Date(2026, 3, 5, 5, 0, 0, 0, time.UTC)))
}

func TestSnoozeRowFires(t *testing.T) {
	sv := newService(t)
	ctx := context.Background()
	require.NoError(t, sv.daemon.Start(ctx))
	require.NoError(t, sv.client.SnoozeAlarm(ctx, 5, "alarm_chimes"))
	assert.Error(t, sv.client.SnoozeAlarm(ctx, 0, "alarm_chimes"))

	sv.clock.Advance(5 * time.Minute)
	require.NoError(t, sv.daemon.Poll(ctx))
	assert.Equal(t, []string{snoozeAlarmID}, sv.launcher.launched)
	rows, err := sv.store.Alarms(ctx)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
