package main

import (
	"testing"
	"time"

	"github.com/borgmon/wakeup/pkg/bridge"
	"github.com/borgmon/wakeup/pkg/challenge"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/borgmon/wakeup/pkg/ringer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Wednesday 2026-03-04 06:00 UTC
var trayNow = time.Date(2026, 3, 4, 6, 0, 0, 0, time.UTC)

func newTrayFixture(alarms ...models.Alarm) *WakeUp {
	c := clock.NewFake(trayNow)
	runner := ringer.NewRunner(ringer.NewMachine(challenge.Options{}), nil, c, bridge.Guarded(nil, logging.Nop()), nil, logging.Nop())
	return &WakeUp{clock: c, log: logging.Nop(), runner: runner, alarms: alarms}
}

func TestUpcomingAlarmsOrdersAcrossAlarms(t *testing.T) {
	daily := models.NewAlarm(7, 0, models.Weekdays{true, true, true, true, true, true, true})
	once := models.NewAlarm(6, 30, models.Weekdays{})
	once.Label = "Train"
	off := models.NewAlarm(6, 15, models.Weekdays{})
	off.Enabled = false

	wu := newTrayFixture(daily, once, off)
	next := wu.upcomingAlarms(trayNow, 3)
	require.Len(t, next, 3)

	assert.Equal(t, once.ID, next[0].alarm.ID)
	assert.Equal(t, time.Date(2026, 3, 4, 6, 30, 0, 0, time.UTC), next[0].at)
	assert.Equal(t, time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC), next[1].at)
	assert.Equal(t, time.Date(2026, 3, 5, 7, 0, 0, 0, time.UTC), next[2].at)
	for _, u := range next {
		assert.NotEqual(t, off.ID, u.alarm.ID)
	}
}

func TestUpcomingAlarmsEmpty(t *testing.T) {
	wu := newTrayFixture()
	assert.Empty(t, wu.upcomingAlarms(trayNow, upcomingLimit))
}

func TestUpcomingText(t *testing.T) {
	a := models.NewAlarm(6, 30, models.Weekdays{})
	at := time.Date(2026, 3, 4, 6, 30, 0, 0, time.UTC)

	assert.Equal(t, "  Wed 06:30", upcomingText(upcoming{at: at, alarm: a}))

	a.Label = "Catch the early train to the airport before traffic"
	assert.Equal(t, "  Wed 06:30 (snoozed) - Catch the early train to the air...", upcomingText(upcoming{at: at, alarm: a, snoozed: true}))
}

func TestSoundTitle(t *testing.T) {
	assert.Equal(t, "Classic", soundTitle(models.SoundClassic))
	assert.Equal(t, "Gentle bell", soundTitle(models.Sound("gentle_bell")))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "short", truncateString("short", 10))
	assert.Equal(t, "abcdefg...", truncateString("abcdefghijklmnop", 10))
	assert.Equal(t, "ééé...", truncateString("éééééééé", 6))
}

func TestBreathingText(t *testing.T) {
	s := challenge.BreathingState{Phase: challenge.PhaseHold, Cycle: 2, Cycles: 3, PhaseFor: 7 * time.Second}
	assert.Equal(t, "Hold (7s)\nCycle 2 of 3", breathingText(s))
	assert.Equal(t, "Well done. Good morning!", breathingText(challenge.BreathingState{Phase: challenge.PhaseComplete}))
}
