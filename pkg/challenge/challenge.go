// Package challenge implements the dismiss rituals that gate silencing a
// ringing alarm.
//
// A Challenge consumes Inputs and returns Effects for its runner to execute:
// it owns no timers and never calls back into the runtime. Timers it asks for
// come back as TimerFired inputs. The runtime watches for Complete.
package challenge

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/borgmon/wakeup/pkg/models"
	"github.com/google/uuid"
)

// Input is anything a challenge can observe.
type Input interface {
	inputMarker()
}

// Tap is an explicit dismiss action.
type Tap struct{}

func (Tap) inputMarker() {}

// Answer is a submitted math answer.
type Answer struct {
	Text string
}

func (Answer) inputMarker() {}

// Typed is the in-progress affirmation text.
type Typed struct {
	Text string
}

func (Typed) inputMarker() {}

// Sample is one accelerometer reading.
type Sample struct {
	X, Y, Z float64
	At      time.Time
}

func (Sample) inputMarker() {}

// TimerFired reports that a timer requested with StartTimer elapsed.
type TimerFired struct {
	Key string
}

func (TimerFired) inputMarker() {}

// Effect is a command for the runner.
type Effect interface {
	effectMarker()
}

// StartTimer asks for TimerFired{Key} after the given delay.
type StartTimer struct {
	Key   string
	After time.Duration
}

func (StartTimer) effectMarker() {}

// CancelTimer drops a pending timer.
type CancelTimer struct {
	Key string
}

func (CancelTimer) effectMarker() {}

// Complete reports that the challenge is done. Emitted exactly once per
// session.
type Complete struct{}

func (Complete) effectMarker() {}

// State is a render snapshot, one variant per dismiss type.
type State interface {
	Type() models.DismissType
}

// Challenge is one dismiss ritual. Start may be called again at any time and
// fully resets the session.
type Challenge interface {
	Type() models.DismissType
	Start(now time.Time) []Effect
	Update(in Input) []Effect
	Completed() bool
	State() State
}

// Options carries the settings challenges depend on.
type Options struct {
	ShakeThreshold float64
	Rand           *rand.Rand
	Phrases        []string
}

func (o Options) rng() *rand.Rand {
	if o.Rand != nil {
		return o.Rand
	}
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// New builds the challenge for t.
func New(t models.DismissType, opts Options) (Challenge, error) {
	switch t {
	case models.DismissSimple:
		return &Simple{}, nil
	case models.DismissBreathing:
		return &Breathing{}, nil
	case models.DismissShake:
		threshold := opts.ShakeThreshold
		if threshold <= 0 {
			threshold = models.DefaultSettings().ShakeThreshold
		}
		return &Shake{threshold: threshold}, nil
	case models.DismissMath:
		return &Math{rng: opts.rng()}, nil
	case models.DismissAffirmation:
		phrases := opts.Phrases
		if len(phrases) == 0 {
			phrases = DefaultPhrases
		}
		return &Affirmation{rng: opts.rng(), phrases: phrases}, nil
	}
	return nil, fmt.Errorf("challenge: %w: %q", models.ErrUnknownDismissType, string(t))
}

// session scopes timer keys so a timer from a previous Start is recognisable.
type session struct {
	id string
}

func (s *session) reset() {
	s.id = uuid.NewString()
}

func (s *session) key(name string) string {
	return s.id + "/" + name
}
