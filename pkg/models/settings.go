package models

import "time"

// Settings holds the user settings the core reads
type Settings struct {
	HapticFeedback bool    `json:"haptic_feedback"`
	ShakeThreshold float64 `json:"shake_threshold" validate:"gt=0,lte=10"` // g, accelerometer magnitude
	AutoStart      bool    `json:"auto_start"`                             // register the alarm service at login
	PreviewSeconds int     `json:"preview_seconds" validate:"min=1,max=60"`
}

// DefaultSettings returns the settings used when nothing valid is stored
func DefaultSettings() Settings {
	return Settings{
		HapticFeedback: true,
		ShakeThreshold: 1.8,
		AutoStart:      true,
		PreviewSeconds: 5,
	}
}

// PreviewDuration returns how long a settings preview plays before auto-stop
func (s Settings) PreviewDuration() time.Duration {
	return time.Duration(s.PreviewSeconds) * time.Second
}

// Sanitized replaces every invalid field by its default
func (s Settings) Sanitized() Settings {
	d := DefaultSettings()
	if err := validate.StructPartial(s, "ShakeThreshold"); err != nil {
		s.ShakeThreshold = d.ShakeThreshold
	}
	if err := validate.StructPartial(s, "PreviewSeconds"); err != nil {
		s.PreviewSeconds = d.PreviewSeconds
	}
	return s
}
