package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"

	"github.com/borgmon/wakeup/pkg/models"
)

const clipSeconds = 2.0

// Synthesize renders the built-in two second loop of sound as stereo PCM
func Synthesize(sound models.Sound, sampleRate int) (*pcm, error) {
	gen, err := generatorFor(sound)
	if err != nil {
		return nil, err
	}
	frames := int(clipSeconds * float64(sampleRate))
	data := make([]byte, frames*4)
	for i := 0; i < frames; i++ {
		t := float64(i) / float64(sampleRate)
		v := clamp(gen(t)) * 0.8
		s := int16(v * math.MaxInt16)
		binary.LittleEndian.PutUint16(data[i*4:], uint16(s))
		binary.LittleEndian.PutUint16(data[i*4+2:], uint16(s))
	}
	return &pcm{sampleRate: sampleRate, channels: 2, data: data}, nil
}

type generator func(t float64) float64

func generatorFor(sound models.Sound) (generator, error) {
	switch sound {
	case models.SoundClassic:
		// Two-tone bell ring, 8 strikes a second
		return func(t float64) float64 {
			on := math.Mod(t, 0.125) < 0.1
			if !on {
				return 0
			}
			return 0.6*sine(880, t) + 0.4*sine(1320, t)
		}, nil
	case models.SoundSunrise:
		// Slow swell with a rising fifth
		return func(t float64) float64 {
			env := 0.5 - 0.5*math.Cos(2*math.Pi*t/clipSeconds)
			freq := 440 + 220*t/clipSeconds
			return env * (0.7*sine(freq, t) + 0.3*sine(freq*1.5, t))
		}, nil
	case models.SoundBirdsong:
		return func(t float64) float64 {
			local := math.Mod(t, 0.25)
			if local > 0.12 {
				return 0
			}
			freq := 2200 + 9000*local
			return decay(local, 30) * sine(freq, t)
		}, nil
	case models.SoundChimes:
		notes := []float64{523.25, 659.25, 783.99, 1046.5}
		return func(t float64) float64 {
			idx := int(t/0.5) % len(notes)
			local := math.Mod(t, 0.5)
			return decay(local, 4) * (0.8*sine(notes[idx], t) + 0.2*sine(notes[idx]*2, t))
		}, nil
	case models.SoundGentleBell:
		return func(t float64) float64 {
			local := math.Mod(t, 1.0)
			return decay(local, 3) * (0.6*sine(440, t) + 0.25*sine(880, t) + 0.15*sine(1320, t))
		}, nil
	case models.SoundOcean:
		rng := rand.New(rand.NewSource(7))
		var low float64
		return func(t float64) float64 {
			// Low-passed noise under a slow wave envelope
			low += 0.02 * (rng.Float64()*2 - 1 - low)
			env := 0.4 + 0.6*(0.5-0.5*math.Cos(2*math.Pi*t/clipSeconds))
			return env * low * 6
		}, nil
	case models.SoundRadar:
		return func(t float64) float64 {
			return 0.8 * sine(1000, t)
		}, nil
	case models.SoundPulse:
		return func(t float64) float64 {
			return 0.7 * square(660, t)
		}, nil
	}
	return nil, fmt.Errorf("audio: %w: %q", models.ErrUnknownSound, string(sound))
}

func sine(freq, t float64) float64 {
	return math.Sin(2 * math.Pi * freq * t)
}

func square(freq, t float64) float64 {
	if sine(freq, t) >= 0 {
		return 1
	}
	return -1
}

func decay(t, rate float64) float64 {
	return math.Exp(-rate * t)
}

func clamp(v float64) float64 {
	return math.Max(-1, math.Min(1, v))
}

// resample changes playback speed by factor with nearest-neighbour picking.
// factor > 1 plays faster and yields fewer frames.
func resample(data []byte, channels int, factor float64) []byte {
	frameSize := channels * 2
	frames := len(data) / frameSize
	if factor <= 0 || frames == 0 {
		return nil
	}
	if factor == 1 {
		return data[:frames*frameSize]
	}
	outFrames := int(float64(frames) / factor)
	out := make([]byte, outFrames*frameSize)
	for i := 0; i < outFrames; i++ {
		src := int(float64(i) * factor)
		if src >= frames {
			src = frames - 1
		}
		copy(out[i*frameSize:(i+1)*frameSize], data[src*frameSize:(src+1)*frameSize])
	}
	return out
}
