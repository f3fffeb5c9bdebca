package store

import (
	"encoding/json"
	"testing"
	"time"

	"fyne.io/fyne/v2/test"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryStorePutReplaces(t *testing.T) {
	s := NewEntryStore()
	at := time.Date(2026, 3, 4, 7, 0, 30, 0, time.UTC)

	s.Put(Entry{Identifier: "a", AlarmID: "1", FireAt: at})
	s.Put(Entry{Identifier: "a", AlarmID: "1", FireAt: at.Add(time.Hour)})

	assert.Equal(t, 1, s.Len())
	assert.Empty(t, s.DueBefore(at))
	due := s.DueBefore(at.Add(time.Hour))
	require.Len(t, due, 1)
	assert.Equal(t, at.Add(time.Hour), due[0].FireAt)
}

func TestEntryStoreDueBeforeUsesMinutes(t *testing.T) {
	s := NewEntryStore()
	base := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	s.Put(Entry{Identifier: "late", FireAt: base.Add(2 * time.Minute)})
	s.Put(Entry{Identifier: "b", FireAt: base.Add(45 * time.Second)})
	s.Put(Entry{Identifier: "a", FireAt: base})

	due := s.DueBefore(base.Add(10 * time.Second))
	require.Len(t, due, 2)
	assert.Equal(t, "a", due[0].Identifier)
	assert.Equal(t, "b", due[1].Identifier)
}

func TestEntryStoreRemove(t *testing.T) {
	s := NewEntryStore()
	at := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	s.Put(Entry{Identifier: "a", FireAt: at})
	s.Put(Entry{Identifier: "b", FireAt: at})

	assert.True(t, s.Remove("a"))
	assert.False(t, s.Remove("a"))
	_, ok := s.Get("b")
	assert.True(t, ok)
	assert.Len(t, s.DueBefore(at), 1)

	s.RemoveAll()
	assert.Empty(t, s.All())
}

func TestEntryStoreUpdateSkipsRemoved(t *testing.T) {
	s := NewEntryStore()
	at := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	s.Put(Entry{Identifier: "a", FireAt: at, Weekly: true})

	assert.True(t, s.Update(Entry{Identifier: "a", FireAt: at.AddDate(0, 0, 7), Weekly: true}))
	e, ok := s.Get("a")
	require.True(t, ok)
	assert.Equal(t, at.AddDate(0, 0, 7), e.FireAt)
	assert.Empty(t, s.DueBefore(at))

	s.RemoveAll()
	assert.False(t, s.Update(Entry{Identifier: "a", FireAt: at.AddDate(0, 0, 14), Weekly: true}))
	assert.Zero(t, s.Len())
}

func TestPrefsStoreAlarmsRoundTrip(t *testing.T) {
	app := test.NewTempApp(t)
	ps := NewPrefsStore(app.Preferences(), logging.Nop())

	assert.Empty(t, ps.LoadAlarms())

	a := models.NewAlarm(6, 45, models.Weekdays{false, true, false, true, false, true, false})
	a.Label = "gym"
	require.NoError(t, ps.SaveAlarms([]models.Alarm{a}))
	assert.Equal(t, []models.Alarm{a}, ps.LoadAlarms())
}

func TestPrefsStoreDropsInvalidRecords(t *testing.T) {
	app := test.NewTempApp(t)
	ps := NewPrefsStore(app.Preferences(), logging.Nop())

	good := models.NewAlarm(7, 0, models.Weekdays{})
	bad := models.NewAlarm(8, 0, models.Weekdays{})
	bad.Sound = "kazoo"
	goodJSON, err := json.Marshal(good)
	require.NoError(t, err)
	badJSON, err := json.Marshal(bad)
	require.NoError(t, err)

	raw := "[" + string(goodJSON) + "," + string(badJSON) + `,{"id":7},"junk"]`
	app.Preferences().SetString(keyAlarms, raw)

	assert.Equal(t, []models.Alarm{good}, ps.LoadAlarms())

	app.Preferences().SetString(keyAlarms, "not json")
	assert.Empty(t, ps.LoadAlarms())
}

func TestPrefsStoreSettingsDefaults(t *testing.T) {
	app := test.NewTempApp(t)
	ps := NewPrefsStore(app.Preferences(), logging.Nop())

	assert.Equal(t, models.DefaultSettings(), ps.LoadSettings())

	app.Preferences().SetFloat(keyShakeThreshold, -3)
	app.Preferences().SetInt(keyPreviewSeconds, 12)
	app.Preferences().SetBool(keyHapticFeedback, false)
	s := ps.LoadSettings()
	assert.Equal(t, models.DefaultSettings().ShakeThreshold, s.ShakeThreshold)
	assert.Equal(t, 12, s.PreviewSeconds)
	assert.False(t, s.HapticFeedback)

	s.ShakeThreshold = 2.5
	ps.SaveSettings(s)
	assert.Equal(t, s, ps.LoadSettings())
}
