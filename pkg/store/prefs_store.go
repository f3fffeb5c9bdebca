package store

import (
	"encoding/json"
	"fmt"

	"fyne.io/fyne/v2"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
)

const (
	keyAlarms         = "alarms"
	keyHapticFeedback = "haptic_feedback"
	keyShakeThreshold = "shake_threshold"
	keyAutoStart      = "auto_start"
	keyPreviewSeconds = "preview_seconds"
)

// PrefsStore persists the alarm list and settings in fyne preferences
type PrefsStore struct {
	prefs fyne.Preferences
	log   logging.Logger
}

// NewPrefsStore creates a new PrefsStore instance
func NewPrefsStore(prefs fyne.Preferences, log logging.Logger) *PrefsStore {
	return &PrefsStore{prefs: prefs, log: log}
}

// LoadAlarms decodes the stored alarm list. Records that do not parse or do
// not validate are dropped; the rest are returned in stored order.
func (ps *PrefsStore) LoadAlarms() []models.Alarm {
	alarms := []models.Alarm{}

	raw := ps.prefs.String(keyAlarms)
	if raw == "" {
		return alarms
	}
	var records []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		ps.log.Warnf("store: alarm list is corrupt, starting empty: %v", err)
		return alarms
	}

	for i, rec := range records {
		var a models.Alarm
		if err := json.Unmarshal(rec, &a); err != nil {
			ps.log.Warnf("store: drop alarm record %d: %v", i, err)
			continue
		}
		if err := a.Validate(); err != nil {
			ps.log.Warnf("store: drop alarm record %d: %v", i, err)
			continue
		}
		alarms = append(alarms, a)
	}
	return alarms
}

// SaveAlarms replaces the stored alarm list
func (ps *PrefsStore) SaveAlarms(alarms []models.Alarm) error {
	if alarms == nil {
		alarms = []models.Alarm{}
	}
	data, err := json.Marshal(alarms)
	if err != nil {
		return fmt.Errorf("store: encode alarms: %w", err)
	}
	ps.prefs.SetString(keyAlarms, string(data))
	return nil
}

// LoadSettings loads settings, replacing each invalid field by its default
func (ps *PrefsStore) LoadSettings() models.Settings {
	d := models.DefaultSettings()
	s := models.Settings{
		HapticFeedback: ps.prefs.BoolWithFallback(keyHapticFeedback, d.HapticFeedback),
		ShakeThreshold: ps.prefs.FloatWithFallback(keyShakeThreshold, d.ShakeThreshold),
		AutoStart:      ps.prefs.BoolWithFallback(keyAutoStart, d.AutoStart),
		PreviewSeconds: ps.prefs.IntWithFallback(keyPreviewSeconds, d.PreviewSeconds),
	}
	return s.Sanitized()
}

// SaveSettings saves settings to preferences
func (ps *PrefsStore) SaveSettings(s models.Settings) {
	ps.prefs.SetBool(keyHapticFeedback, s.HapticFeedback)
	ps.prefs.SetFloat(keyShakeThreshold, s.ShakeThreshold)
	ps.prefs.SetBool(keyAutoStart, s.AutoStart)
	ps.prefs.SetInt(keyPreviewSeconds, s.PreviewSeconds)
}

// OnChange registers f to run after any stored value changes
func (ps *PrefsStore) OnChange(f func()) {
	ps.prefs.AddChangeListener(f)
}
