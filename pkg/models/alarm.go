package models

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Weekdays marks the days an alarm repeats on. Index 0 is Sunday.
// All false means the alarm is one-time.
type Weekdays [7]bool

// Any returns true if at least one day is set
func (w Weekdays) Any() bool {
	for _, d := range w {
		if d {
			return true
		}
	}
	return false
}

// Alarm is a user alarm as owned by the alarm list collaborator.
// The core reads it and never mutates it.
type Alarm struct {
	ID            string        `json:"id" validate:"required"`
	Hour          int           `json:"hour" validate:"min=0,max=23"`
	Minute        int           `json:"minute" validate:"min=0,max=59"`
	Days          Weekdays      `json:"days"`
	Enabled       bool          `json:"enabled"`
	Snooze        int           `json:"snooze" validate:"min=0,max=120"` // minutes, 0 = no snooze
	WakeIntensity WakeIntensity `json:"wake_intensity" validate:"required,oneof=whisper gentle moderate energetic"`
	Sound         Sound         `json:"sound" validate:"required,oneof=classic sunrise birdsong chimes gentle_bell ocean radar pulse"`
	DismissType   DismissType   `json:"dismiss_type" validate:"required,oneof=simple breathing affirmation math shake"`
	Label         string        `json:"label,omitempty" validate:"max=80"`
}

// NewAlarm creates an enabled alarm with a fresh id and clamped time
func NewAlarm(hour, minute int, days Weekdays) Alarm {
	a := Alarm{
		ID:            uuid.NewString(),
		Hour:          hour,
		Minute:        minute,
		Days:          days,
		Enabled:       true,
		Snooze:        5,
		WakeIntensity: IntensityModerate,
		Sound:         SoundClassic,
		DismissType:   DismissSimple,
	}
	a.Clamp()
	return a
}

// IsOneTime returns true if no repeat day is set
func (a Alarm) IsOneTime() bool {
	return !a.Days.Any()
}

// Clamp forces hour and minute into their valid ranges
func (a *Alarm) Clamp() {
	a.Hour = clamp(a.Hour, 0, 23)
	a.Minute = clamp(a.Minute, 0, 59)
	if a.Snooze < 0 {
		a.Snooze = 0
	}
}

// Validate checks the alarm structure. Used to drop corrupted persisted records.
func (a Alarm) Validate() error {
	if err := validate.Struct(a); err != nil {
		return fmt.Errorf("alarm %q: %w", a.ID, err)
	}
	return nil
}

// TimeString formats the wall clock time as HH:MM
func (a Alarm) TimeString() string {
	return fmt.Sprintf("%02d:%02d", a.Hour, a.Minute)
}

// DaysString returns a short human description of the repeat pattern
func (a Alarm) DaysString() string {
	if a.IsOneTime() {
		return "Once"
	}
	names := []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}
	parts := []string{}
	for i, on := range a.Days {
		if on {
			parts = append(parts, names[i])
		}
	}
	if len(parts) == 7 {
		return "Every day"
	}
	return strings.Join(parts, " ")
}

// RebootRecord is the projection of an enabled alarm the native service
// needs to re-arm after a device reboot.
type RebootRecord struct {
	ID     string   `json:"id"`
	Hour   int      `json:"hour"`
	Minute int      `json:"minute"`
	Days   Weekdays `json:"days"`
	Sound  Sound    `json:"sound"`
}

// RebootRecordFor projects an alarm to its reboot record
func RebootRecordFor(a Alarm) RebootRecord {
	return RebootRecord{ID: a.ID, Hour: a.Hour, Minute: a.Minute, Days: a.Days, Sound: a.Sound}
}

// Alarm rebuilds an enabled alarm from the record. Fields the record does
// not carry get NewAlarm defaults.
func (r RebootRecord) Alarm() Alarm {
	a := Alarm{
		ID:            r.ID,
		Hour:          r.Hour,
		Minute:        r.Minute,
		Days:          r.Days,
		Enabled:       true,
		WakeIntensity: IntensityModerate,
		Sound:         r.Sound,
		DismissType:   DismissSimple,
	}
	a.Clamp()
	return a
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
