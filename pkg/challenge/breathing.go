package challenge

import (
	"strconv"
	"time"

	"github.com/borgmon/wakeup/pkg/models"
)

// Phase of the breathing exercise
type Phase string

const (
	PhaseInhale   Phase = "inhale"
	PhaseHold     Phase = "hold"
	PhaseExhale   Phase = "exhale"
	PhaseComplete Phase = "complete"
)

// Breathing timings
const (
	BreathingCycles = 3
	InhaleFor       = 4 * time.Second
	HoldFor         = 7 * time.Second
	ExhaleFor       = 8 * time.Second
	CompleteDelay   = 2500 * time.Millisecond
)

// BreathingState is the current phase and the 1-based cycle number.
type BreathingState struct {
	Phase     Phase
	Cycle     int
	Cycles    int
	PhaseFor  time.Duration
	StartedAt time.Time
}

func (BreathingState) Type() models.DismissType { return models.DismissBreathing }

// Breathing runs inhale, hold and exhale for BreathingCycles cycles. Phase
// changes are driven by its own timers only; user input is ignored.
type Breathing struct {
	session
	phase   Phase
	cycle   int
	since   time.Time
	pending string
	done    bool
}

func (b *Breathing) Type() models.DismissType { return models.DismissBreathing }

func (b *Breathing) Start(now time.Time) []Effect {
	var effects []Effect
	if b.pending != "" {
		effects = append(effects, CancelTimer{Key: b.pending})
	}
	b.reset()
	b.done = false
	b.cycle = 1
	b.since = now
	return append(effects, b.enter(PhaseInhale))
}

func (b *Breathing) Update(in Input) []Effect {
	fired, ok := in.(TimerFired)
	if !ok || b.done || fired.Key != b.pending {
		return nil
	}
	b.pending = ""
	b.since = b.since.Add(phaseDuration(b.phase))

	switch b.phase {
	case PhaseInhale:
		return []Effect{b.enter(PhaseHold)}
	case PhaseHold:
		return []Effect{b.enter(PhaseExhale)}
	case PhaseExhale:
		if b.cycle < BreathingCycles {
			b.cycle++
			return []Effect{b.enter(PhaseInhale)}
		}
		return []Effect{b.enter(PhaseComplete)}
	case PhaseComplete:
		b.done = true
		return []Effect{Complete{}}
	}
	return nil
}

func (b *Breathing) enter(p Phase) Effect {
	b.phase = p
	b.pending = b.key(string(p) + "-" + strconv.Itoa(b.cycle))
	return StartTimer{Key: b.pending, After: phaseDuration(p)}
}

func (b *Breathing) Completed() bool { return b.done }

func (b *Breathing) State() State {
	return BreathingState{
		Phase:     b.phase,
		Cycle:     b.cycle,
		Cycles:    BreathingCycles,
		PhaseFor:  phaseDuration(b.phase),
		StartedAt: b.since,
	}
}

func phaseDuration(p Phase) time.Duration {
	switch p {
	case PhaseInhale:
		return InhaleFor
	case PhaseHold:
		return HoldFor
	case PhaseExhale:
		return ExhaleFor
	case PhaseComplete:
		return CompleteDelay
	}
	return 0
}
