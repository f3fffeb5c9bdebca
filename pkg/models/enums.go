package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownIntensity   = errors.New("unknown wake intensity")
	ErrUnknownSound       = errors.New("unknown sound")
	ErrUnknownDismissType = errors.New("unknown dismiss type")
)

// WakeIntensity selects the initial playback volume
type WakeIntensity string

const (
	IntensityWhisper   WakeIntensity = "whisper"
	IntensityGentle    WakeIntensity = "gentle"
	IntensityModerate  WakeIntensity = "moderate"
	IntensityEnergetic WakeIntensity = "energetic"
)

// AllIntensities lists every wake intensity
func AllIntensities() []WakeIntensity {
	return []WakeIntensity{IntensityWhisper, IntensityGentle, IntensityModerate, IntensityEnergetic}
}

// Volume maps the intensity to its fixed initial volume in [0,1]
func (w WakeIntensity) Volume() (float64, error) {
	switch w {
	case IntensityWhisper:
		return 0.25, nil
	case IntensityGentle:
		return 0.45, nil
	case IntensityModerate:
		return 0.70, nil
	case IntensityEnergetic:
		return 1.0, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownIntensity, string(w))
}

// Valid returns true for a known intensity
func (w WakeIntensity) Valid() bool {
	_, err := w.Volume()
	return err == nil
}

// Sound identifies a playback profile
type Sound string

const (
	SoundClassic    Sound = "classic"
	SoundSunrise    Sound = "sunrise"
	SoundBirdsong   Sound = "birdsong"
	SoundChimes     Sound = "chimes"
	SoundGentleBell Sound = "gentle_bell"
	SoundOcean      Sound = "ocean"
	SoundRadar      Sound = "radar"
	SoundPulse      Sound = "pulse"
)

const resourcePrefix = "alarm_"

// AllSounds lists every sound
func AllSounds() []Sound {
	return []Sound{
		SoundClassic, SoundSunrise, SoundBirdsong, SoundChimes,
		SoundGentleBell, SoundOcean, SoundRadar, SoundPulse,
	}
}

// Valid returns true for a known sound
func (s Sound) Valid() bool {
	for _, known := range AllSounds() {
		if s == known {
			return true
		}
	}
	return false
}

// ResourceName maps the sound to the resource id the native alarm service plays
func (s Sound) ResourceName() (string, error) {
	if !s.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownSound, string(s))
	}
	return resourcePrefix + string(s), nil
}

// SoundFromResource inverts ResourceName
func SoundFromResource(name string) (Sound, error) {
	s := Sound(strings.TrimPrefix(name, resourcePrefix))
	if !strings.HasPrefix(name, resourcePrefix) || !s.Valid() {
		return "", fmt.Errorf("%w: resource %q", ErrUnknownSound, name)
	}
	return s, nil
}

// DismissType selects the challenge required to silence an alarm
type DismissType string

const (
	DismissSimple      DismissType = "simple"
	DismissBreathing   DismissType = "breathing"
	DismissAffirmation DismissType = "affirmation"
	DismissMath        DismissType = "math"
	DismissShake       DismissType = "shake"
)

// AllDismissTypes lists every dismiss type
func AllDismissTypes() []DismissType {
	return []DismissType{DismissSimple, DismissBreathing, DismissAffirmation, DismissMath, DismissShake}
}

// Valid returns true for a known dismiss type
func (d DismissType) Valid() bool {
	_, err := d.Title()
	return err == nil
}

// Title returns the heading shown on the ringing screen
func (d DismissType) Title() (string, error) {
	switch d {
	case DismissSimple:
		return "Good morning", nil
	case DismissBreathing:
		return "Breathe with me", nil
	case DismissAffirmation:
		return "Type your affirmation", nil
	case DismissMath:
		return "Solve to dismiss", nil
	case DismissShake:
		return "Shake to wake", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownDismissType, string(d))
}
