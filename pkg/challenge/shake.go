package challenge

import (
	"math"
	"time"

	"github.com/borgmon/wakeup/pkg/models"
)

// Shake tuning
const (
	ShakeTarget   = 20
	ShakeDebounce = 300 * time.Millisecond
)

// ShakeState is the number of counted shakes.
type ShakeState struct {
	Count  int
	Target int
}

func (ShakeState) Type() models.DismissType { return models.DismissShake }

// Shake counts accelerometer samples above threshold, at most one per
// ShakeDebounce window.
type Shake struct {
	threshold float64
	count     int
	last      time.Time
	counted   bool
	done      bool
}

func (s *Shake) Type() models.DismissType { return models.DismissShake }

func (s *Shake) Start(time.Time) []Effect {
	s.count = 0
	s.counted = false
	s.last = time.Time{}
	s.done = false
	return nil
}

func (s *Shake) Update(in Input) []Effect {
	sample, ok := in.(Sample)
	if !ok || s.done {
		return nil
	}
	if math.Sqrt(sample.X*sample.X+sample.Y*sample.Y+sample.Z*sample.Z) <= s.threshold {
		return nil
	}
	if s.counted && sample.At.Sub(s.last) < ShakeDebounce {
		return nil
	}
	s.counted = true
	s.last = sample.At
	s.count++
	if s.count < ShakeTarget {
		return nil
	}
	s.done = true
	return []Effect{Complete{}}
}

func (s *Shake) Completed() bool { return s.done }

func (s *Shake) State() State {
	return ShakeState{Count: s.count, Target: ShakeTarget}
}
