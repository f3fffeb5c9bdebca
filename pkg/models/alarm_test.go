package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAlarmClampsAndAssignsID(t *testing.T) {
	a := NewAlarm(27, -4, Weekdays{})
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, 23, a.Hour)
	assert.Equal(t, 0, a.Minute)
	assert.True(t, a.Enabled)
	assert.True(t, a.IsOneTime())
	require.NoError(t, a.Validate())

	b := NewAlarm(7, 30, Weekdays{})
	assert.NotEqual(t, a.ID, b.ID)
}

func TestValidateRejectsBrokenRecords(t *testing.T) {
	a := NewAlarm(7, 0, Weekdays{})

	bad := a
	bad.Sound = "kazoo"
	assert.Error(t, bad.Validate())

	bad = a
	bad.ID = ""
	assert.Error(t, bad.Validate())

	bad = a
	bad.Minute = 75
	assert.Error(t, bad.Validate())

	bad = a
	bad.DismissType = ""
	assert.Error(t, bad.Validate())
}

func TestDaysString(t *testing.T) {
	assert.Equal(t, "Once", Alarm{}.DaysString())
	assert.Equal(t, "Mon Wed", Alarm{Days: Weekdays{false, true, false, true}}.DaysString())
	assert.Equal(t, "Every day", Alarm{Days: Weekdays{true, true, true, true, true, true, true}}.DaysString())
}

func TestEnumMappingsAreExhaustive(t *testing.T) {
	for _, w := range AllIntensities() {
		v, err := w.Volume()
		require.NoError(t, err, w)
		assert.True(t, v > 0 && v <= 1, w)
	}
	_, err := WakeIntensity("shout").Volume()
	assert.ErrorIs(t, err, ErrUnknownIntensity)

	for _, s := range AllSounds() {
		name, err := s.ResourceName()
		require.NoError(t, err, s)
		back, err := SoundFromResource(name)
		require.NoError(t, err)
		assert.Equal(t, s, back)
	}
	_, err = Sound("kazoo").ResourceName()
	assert.ErrorIs(t, err, ErrUnknownSound)
	_, err = SoundFromResource("classic")
	assert.ErrorIs(t, err, ErrUnknownSound)

	for _, d := range AllDismissTypes() {
		title, err := d.Title()
		require.NoError(t, err, d)
		assert.NotEmpty(t, title)
	}
	_, err = DismissType("juggle").Title()
	assert.ErrorIs(t, err, ErrUnknownDismissType)
}

func TestRebootRecordRoundTrip(t *testing.T) {
	a := NewAlarm(6, 45, Weekdays{false, true, true, true, true, true, false})
	a.Sound = SoundOcean
	r := RebootRecordFor(a)
	back := r.Alarm()
	assert.Equal(t, a.ID, back.ID)
	assert.Equal(t, a.Hour, back.Hour)
	assert.Equal(t, a.Minute, back.Minute)
	assert.Equal(t, a.Days, back.Days)
	assert.Equal(t, SoundOcean, back.Sound)
	assert.True(t, back.Enabled)
	assert.NoError(t, back.Validate())
}

func TestEnumValid(t *testing.T) {
	for _, w := range AllIntensities() {
		assert.True(t, w.Valid(), w)
	}
	for _, d := range AllDismissTypes() {
		assert.True(t, d.Valid(), d)
	}
	assert.False(t, WakeIntensity("loud").Valid())
	assert.False(t, DismissType("puzzle").Valid())
	assert.False(t, Sound("").Valid())
}
