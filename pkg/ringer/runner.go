package ringer

import (
	"context"
	"sync"
	"time"

	"github.com/borgmon/wakeup/pkg/audio"
	"github.com/borgmon/wakeup/pkg/bridge"
	"github.com/borgmon/wakeup/pkg/challenge"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
)

// SoundPlayer is the part of audio.Engine the runtime drives
type SoundPlayer interface {
	Start(slot audio.Slot, sound models.Sound, intensity models.WakeIntensity) (audio.Handle, error)
	StopSlot(slot audio.Slot)
}

// Listener receives notices for the UI. Calls happen outside the runner's
// lock, so a listener may dispatch further events.
type Listener interface {
	OnRingingStarted(n RingingStarted)
	OnProgress(n Progress)
	OnDismissed(n Dismissed)
	OnSnoozed(n Snoozed)
}

// Snapshot is a read-only view of the ring state
type Snapshot struct {
	Status    Status
	Alarm     models.Alarm
	Challenge challenge.State
}

type liveTimer struct {
	timer clock.Timer
	gen   uint64
}

// Runner executes Machine effects. All events go through Dispatch, which
// serialises them.
type Runner struct {
	mu       sync.Mutex
	machine  *Machine
	sound    SoundPlayer
	clock    clock.Clock
	native   bridge.Bridge
	listener Listener
	log      logging.Logger
	timers   map[string]liveTimer
}

// NewRunner wires a machine to its effect targets
func NewRunner(m *Machine, sound SoundPlayer, c clock.Clock, native bridge.Bridge, l Listener, log logging.Logger) *Runner {
	return &Runner{
		machine:  m,
		sound:    sound,
		clock:    c,
		native:   native,
		listener: l,
		log:      log,
		timers:   make(map[string]liveTimer),
	}
}

// Dispatch feeds ev to the machine and executes the resulting effects.
// Machine errors (ErrSnoozeUnavailable, ErrNotRinging) are returned as is.
func (r *Runner) Dispatch(ctx context.Context, ev Event) error {
	r.mu.Lock()
	if fired, ok := ev.(TimerFired); ok {
		if live, ok := r.timers[fired.Key]; ok && live.gen == fired.Gen {
			delete(r.timers, fired.Key)
		}
	}

	effects, err := r.machine.Handle(ev)
	if err != nil {
		r.mu.Unlock()
		return err
	}

	var notices []Notice
	stopNative := false
	for _, eff := range effects {
		switch e := eff.(type) {
		case StartSound:
			if _, err := r.sound.Start(audio.SlotAlarm, e.Sound, e.Intensity); err != nil {
				r.log.Errorf("ringer: start sound %s: %v", e.Sound, err)
			}
		case StopSound:
			r.sound.StopSlot(audio.SlotAlarm)
		case StartTimer:
			r.startTimerLocked(e)
		case CancelTimer:
			r.cancelTimerLocked(e.Key)
		case StopNative:
			stopNative = true
		case Emit:
			notices = append(notices, e.Notice)
		}
	}
	r.mu.Unlock()

	if stopNative {
		if err := r.native.StopAlarm(ctx); err != nil {
			r.log.Warnf("ringer: stop native alarm: %v", err)
		}
	}
	for _, n := range notices {
		r.deliver(n)
	}
	return nil
}

// Snapshot returns the current state for rendering
func (r *Runner) Snapshot() Snapshot {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := Snapshot{Status: r.machine.Status()}
	if a, ok := r.machine.Ringing(); ok {
		s.Alarm = a
	}
	if c, ok := r.machine.ChallengeState(); ok {
		s.Challenge = c
	}
	return s
}

// SnoozedUntil reports the re-arm instant of a snoozed alarm
func (r *Runner) SnoozedUntil(alarmID string) (time.Time, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.machine.SnoozedUntil(alarmID)
}

// Close cancels every live timer and stops alarm playback
func (r *Runner) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key := range r.timers {
		r.cancelTimerLocked(key)
	}
	r.sound.StopSlot(audio.SlotAlarm)
	r.machine.Reset()
}

func (r *Runner) startTimerLocked(e StartTimer) {
	r.cancelTimerLocked(e.Key)
	key, gen := e.Key, e.Gen
	t := r.clock.AfterFunc(e.After, func() {
		if err := r.Dispatch(context.Background(), TimerFired{Key: key, Gen: gen, At: r.clock.Now()}); err != nil {
			r.log.Warnf("ringer: timer %s: %v", key, err)
		}
	})
	r.timers[key] = liveTimer{timer: t, gen: gen}
}

func (r *Runner) cancelTimerLocked(key string) {
	if live, ok := r.timers[key]; ok {
		live.timer.Stop()
		delete(r.timers, key)
	}
}

func (r *Runner) deliver(n Notice) {
	if r.listener == nil {
		return
	}
	switch v := n.(type) {
	case RingingStarted:
		r.log.Infof("ringer: alarm %s ringing (%s)", v.Alarm.ID, v.Alarm.DismissType)
		r.listener.OnRingingStarted(v)
	case Progress:
		r.listener.OnProgress(v)
	case Dismissed:
		r.log.Infof("ringer: alarm %s dismissed", v.Alarm.ID)
		r.listener.OnDismissed(v)
	case Snoozed:
		r.log.Infof("ringer: alarm %s snoozed until %s", v.Alarm.ID, v.Until.Format(time.Kitchen))
		r.listener.OnSnoozed(v)
	}
}
