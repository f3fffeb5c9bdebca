package audio

import (
	"fmt"
	"time"

	"github.com/borgmon/wakeup/pkg/models"
)

// FloorVolume is the volume of the quiet half of a pattern. Never zero:
// full silence reads as a playback dropout.
const FloorVolume = 0.05

// Profile describes how a sound is played
type Profile struct {
	Sound models.Sound
	Rate  float64 // playback rate, 1 = original speed

	// Pattern alternates audible and quiet-floor durations, starting audible,
	// and repeats cyclically. Empty means continuous playback.
	Pattern []time.Duration
}

// ProfileFor maps a sound to its playback profile
func ProfileFor(sound models.Sound) (Profile, error) {
	ms := time.Millisecond
	switch sound {
	case models.SoundClassic:
		return Profile{Sound: sound, Rate: 1.0}, nil
	case models.SoundSunrise:
		return Profile{Sound: sound, Rate: 0.9}, nil
	case models.SoundOcean:
		return Profile{Sound: sound, Rate: 0.85}, nil
	case models.SoundBirdsong:
		return Profile{Sound: sound, Rate: 1.05, Pattern: []time.Duration{800 * ms, 400 * ms}}, nil
	case models.SoundChimes:
		return Profile{Sound: sound, Rate: 1.0, Pattern: []time.Duration{1200 * ms, 600 * ms}}, nil
	case models.SoundGentleBell:
		return Profile{Sound: sound, Rate: 1.0, Pattern: []time.Duration{1500 * ms, 1000 * ms}}, nil
	case models.SoundRadar:
		return Profile{Sound: sound, Rate: 1.1, Pattern: []time.Duration{400 * ms, 200 * ms, 400 * ms, 900 * ms}}, nil
	case models.SoundPulse:
		return Profile{Sound: sound, Rate: 1.2, Pattern: []time.Duration{250 * ms, 250 * ms}}, nil
	}
	return Profile{}, fmt.Errorf("audio: %w: %q", models.ErrUnknownSound, string(sound))
}

// Continuous returns true if the profile has no on/off pattern
func (p Profile) Continuous() bool {
	return len(p.Pattern) == 0
}

// Step returns the state of pattern step i: whether it is audible and how
// long it lasts. Even steps are audible.
func (p Profile) Step(i int) (audible bool, hold time.Duration) {
	if p.Continuous() {
		return true, 0
	}
	return i%2 == 0, p.Pattern[i%len(p.Pattern)]
}

// VolumeAt returns the playback volume during step i for a configured volume
func (p Profile) VolumeAt(i int, volume float64) float64 {
	if audible, _ := p.Step(i); audible {
		return volume
	}
	if volume < FloorVolume {
		return volume
	}
	return FloorVolume
}
