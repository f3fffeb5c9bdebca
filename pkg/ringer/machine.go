// Package ringer is the in-process alarm runtime: it decides whether a
// trigger opens a ringing session, drives the dismiss challenge and manages
// snooze re-arm.
//
// Machine is a pure transition function over Events. It performs no I/O and
// reads no clock; every Event carries its own timestamp. Runner executes the
// Effects it returns.
package ringer

import (
	"errors"
	"strings"
	"time"

	"github.com/borgmon/wakeup/pkg/challenge"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/borgmon/wakeup/pkg/trigger"
)

var (
	ErrSnoozeUnavailable = errors.New("ringer: snooze is not available for this alarm")
	ErrNotRinging        = errors.New("ringer: no alarm is ringing")
)

// Status is the process-wide ring state tag
type Status int

const (
	StatusIdle Status = iota
	StatusRinging
	StatusSnoozed
)

func (s Status) String() string {
	switch s {
	case StatusRinging:
		return "ringing"
	case StatusSnoozed:
		return "snoozed"
	}
	return "idle"
}

const (
	challengeTimerPrefix = "challenge:"
	snoozeTimerPrefix    = "snooze:"
	minuteKeyLayout      = "2006-01-02T15:04"

	// firedRetention bounds how long an accepted key is remembered. Late
	// notifications arrive at most a missed window after their minute.
	firedRetention = 10 * time.Minute
)

type snooze struct {
	alarm models.Alarm
	until time.Time
}

// Machine is the ring/snooze state machine. Not safe for concurrent use;
// Runner serialises access.
type Machine struct {
	alarms  []models.Alarm
	options challenge.Options

	ringing   *models.Alarm
	challenge challenge.Challenge
	presented bool

	snoozes map[string]snooze
	queue   []string

	// timers maps live timer keys to their generation
	timers map[string]uint64
	gen    uint64

	// fired holds the keys accepted recently, keyed to their minute
	fired        map[string]time.Time
	lastFiredKey string
}

// NewMachine creates an idle machine. opts seeds challenge construction;
// SettingsChanged overrides its shake threshold.
func NewMachine(opts challenge.Options) *Machine {
	m := &Machine{options: opts}
	m.Reset()
	return m
}

// Reset returns the machine to idle and forgets the fired keys. Live
// timers are abandoned, not cancelled.
func (m *Machine) Reset() {
	m.ringing = nil
	m.challenge = nil
	m.presented = false
	m.snoozes = make(map[string]snooze)
	m.queue = nil
	m.timers = make(map[string]uint64)
	m.fired = make(map[string]time.Time)
	m.lastFiredKey = ""
}

// Status returns the current ring state tag
func (m *Machine) Status() Status {
	switch {
	case m.ringing != nil:
		return StatusRinging
	case len(m.snoozes) > 0:
		return StatusSnoozed
	}
	return StatusIdle
}

// Ringing returns the ringing alarm, if any
func (m *Machine) Ringing() (models.Alarm, bool) {
	if m.ringing == nil {
		return models.Alarm{}, false
	}
	return *m.ringing, true
}

// ChallengeState returns the render state of the live challenge
func (m *Machine) ChallengeState() (challenge.State, bool) {
	if m.challenge == nil {
		return nil, false
	}
	return m.challenge.State(), true
}

// SnoozedUntil returns when alarmID rings again, if it is snoozed
func (m *Machine) SnoozedUntil(alarmID string) (time.Time, bool) {
	s, ok := m.snoozes[alarmID]
	return s.until, ok
}

// LastFiredKey returns the id@minute key of the last accepted trigger
func (m *Machine) LastFiredKey() string {
	return m.lastFiredKey
}

// Handle applies ev and returns the effects to execute. The only errors are
// ErrSnoozeUnavailable and ErrNotRinging, for requests that make no sense in
// the current state; the machine is unchanged when they are returned.
func (m *Machine) Handle(ev Event) ([]Effect, error) {
	switch e := ev.(type) {
	case Tick:
		return m.onTick(e), nil
	case NotificationReceived:
		return m.onExternalTrigger(e.AlarmID, e.At), nil
	case NativeLaunch:
		return m.onExternalTrigger(e.AlarmID, e.At), nil
	case AlarmsChanged:
		return m.onAlarmsChanged(e), nil
	case SettingsChanged:
		m.options.ShakeThreshold = e.Settings.ShakeThreshold
		return nil, nil
	case Input:
		return m.onInput(e.Input, e.At), nil
	case TimerFired:
		return m.onTimer(e), nil
	case DismissRequested:
		if m.ringing == nil {
			return nil, ErrNotRinging
		}
		return m.onInput(challenge.Tap{}, e.At), nil
	case SnoozeRequested:
		return m.onSnooze(e.At)
	case ScreenPresented:
		m.presented = true
		return nil, nil
	case ScreenClosed:
		m.presented = false
		if m.ringing == nil {
			return nil, nil
		}
		// Closed while still ringing: put it back up without resetting progress
		return []Effect{Emit{RingingStarted{Alarm: *m.ringing, Challenge: m.challenge.State(), Resumed: true}}}, nil
	}
	return nil, nil
}

func (m *Machine) onTick(e Tick) []Effect {
	for _, a := range m.alarms {
		if !trigger.MatchesMinute(a, e.Now) {
			continue
		}
		if effects, ok := m.tryTrigger(a, e.Now); ok {
			return effects
		}
	}
	return nil
}

func (m *Machine) onExternalTrigger(alarmID string, at time.Time) []Effect {
	a, ok := m.find(alarmID)
	if !ok {
		return nil
	}
	effects, _ := m.tryTrigger(a, at)
	return effects
}

// tryTrigger applies the dedup rule: nothing rings while a session is live
// or the screen is up, and an id@minute key rings at most once.
func (m *Machine) tryTrigger(a models.Alarm, at time.Time) ([]Effect, bool) {
	if m.ringing != nil || m.presented {
		return nil, false
	}
	minute := models.RoundToMinute(at)
	for k, fm := range m.fired {
		if minute.Sub(fm) > firedRetention || fm.Sub(minute) > firedRetention {
			delete(m.fired, k)
		}
	}
	key := firedKey(a.ID, at)
	if _, seen := m.fired[key]; seen {
		return nil, false
	}
	m.fired[key] = minute
	m.lastFiredKey = key

	var effects []Effect
	if _, snoozed := m.snoozes[a.ID]; snoozed {
		if eff := m.cancelTimer(snoozeTimerPrefix + a.ID); eff != nil {
			effects = append(effects, eff)
		}
		delete(m.snoozes, a.ID)
	}
	return append(effects, m.ring(a, at)...), true
}

func (m *Machine) ring(a models.Alarm, at time.Time) []Effect {
	alarm := a
	m.ringing = &alarm
	m.removeQueued(a.ID)

	c, err := challenge.New(a.DismissType, m.options)
	if err != nil {
		c = &challenge.Simple{}
	}
	m.challenge = c

	effects := []Effect{StartSound{Sound: a.Sound, Intensity: a.WakeIntensity}}
	effects = append(effects, m.translate(c.Start(at), at)...)
	return append(effects, Emit{RingingStarted{Alarm: alarm, Challenge: c.State()}})
}

func (m *Machine) onInput(in challenge.Input, at time.Time) []Effect {
	if m.ringing == nil || m.challenge == nil {
		return nil
	}
	c := m.challenge
	before := c.State()
	effects := m.translate(c.Update(in), at)
	if m.challenge == c && !stateEqual(before, c.State()) {
		effects = append(effects, Emit{Progress{Alarm: *m.ringing, Challenge: m.challenge.State()}})
	}
	return effects
}

// translate maps challenge effects to runtime effects. Complete dismisses.
func (m *Machine) translate(in []challenge.Effect, at time.Time) []Effect {
	var out []Effect
	for _, e := range in {
		switch ce := e.(type) {
		case challenge.StartTimer:
			out = append(out, m.startTimer(challengeTimerPrefix+ce.Key, ce.After))
		case challenge.CancelTimer:
			if eff := m.cancelTimer(challengeTimerPrefix + ce.Key); eff != nil {
				out = append(out, eff)
			}
		case challenge.Complete:
			return append(out, m.dismiss(at)...)
		}
	}
	return out
}

func (m *Machine) dismiss(at time.Time) []Effect {
	alarm := *m.ringing
	effects := m.teardown()
	effects = append(effects, Emit{Dismissed{Alarm: alarm, At: at, WasOneTime: alarm.IsOneTime()}})
	return append(effects, m.nextQueued(at)...)
}

func (m *Machine) onSnooze(at time.Time) ([]Effect, error) {
	if m.ringing == nil {
		return nil, ErrNotRinging
	}
	if m.ringing.Snooze <= 0 {
		return nil, ErrSnoozeUnavailable
	}
	alarm := *m.ringing
	delay := time.Duration(alarm.Snooze) * time.Minute
	until := at.Add(delay)

	effects := m.teardown()
	m.snoozes[alarm.ID] = snooze{alarm: alarm, until: until}
	effects = append(effects,
		m.startTimer(snoozeTimerPrefix+alarm.ID, delay),
		Emit{Snoozed{Alarm: alarm, Until: until}},
	)
	return append(effects, m.nextQueued(at)...), nil
}

// teardown ends the ringing session: sound, native alarm and challenge timers.
func (m *Machine) teardown() []Effect {
	effects := []Effect{StopSound{}, StopNative{}}
	for key := range m.timers {
		if strings.HasPrefix(key, challengeTimerPrefix) {
			delete(m.timers, key)
			effects = append(effects, CancelTimer{Key: key})
		}
	}
	m.ringing = nil
	m.challenge = nil
	// The shell closes the screen itself once the session is over
	m.presented = false
	return effects
}

func (m *Machine) onTimer(e TimerFired) []Effect {
	gen, live := m.timers[e.Key]
	if !live || gen != e.Gen {
		return nil
	}
	delete(m.timers, e.Key)

	if key, ok := strings.CutPrefix(e.Key, challengeTimerPrefix); ok {
		if m.challenge == nil {
			return nil
		}
		return m.onInput(challenge.TimerFired{Key: key}, e.At)
	}

	if id, ok := strings.CutPrefix(e.Key, snoozeTimerPrefix); ok {
		s, found := m.snoozes[id]
		if !found {
			return nil
		}
		if m.ringing != nil {
			m.queue = append(m.queue, id)
			return nil
		}
		// Snooze re-entry bypasses the resolver and the minute dedup
		delete(m.snoozes, id)
		return m.ring(s.alarm, e.At)
	}
	return nil
}

// nextQueued rings the oldest snooze that expired while another alarm rang.
func (m *Machine) nextQueued(at time.Time) []Effect {
	for len(m.queue) > 0 {
		id := m.queue[0]
		m.queue = m.queue[1:]
		s, ok := m.snoozes[id]
		if !ok {
			continue
		}
		delete(m.snoozes, id)
		return m.ring(s.alarm, at)
	}
	return nil
}

func (m *Machine) onAlarmsChanged(e AlarmsChanged) []Effect {
	m.alarms = append([]models.Alarm(nil), e.Alarms...)

	var effects []Effect
	for id := range m.snoozes {
		if _, ok := m.find(id); ok {
			continue
		}
		// Deleted while snoozed
		delete(m.snoozes, id)
		m.removeQueued(id)
		if eff := m.cancelTimer(snoozeTimerPrefix + id); eff != nil {
			effects = append(effects, eff)
		}
	}
	return effects
}

func (m *Machine) startTimer(key string, after time.Duration) Effect {
	m.gen++
	m.timers[key] = m.gen
	return StartTimer{Key: key, Gen: m.gen, After: after}
}

func (m *Machine) cancelTimer(key string) Effect {
	if _, ok := m.timers[key]; !ok {
		return nil
	}
	delete(m.timers, key)
	return CancelTimer{Key: key}
}

func (m *Machine) find(id string) (models.Alarm, bool) {
	for _, a := range m.alarms {
		if a.ID == id {
			return a, true
		}
	}
	return models.Alarm{}, false
}

func (m *Machine) removeQueued(id string) {
	kept := m.queue[:0]
	for _, q := range m.queue {
		if q != id {
			kept = append(kept, q)
		}
	}
	m.queue = kept
}

func firedKey(id string, at time.Time) string {
	return id + "@" + at.Format(minuteKeyLayout)
}

func stateEqual(a, b challenge.State) bool {
	switch av := a.(type) {
	case challenge.AffirmationState:
		bv, ok := b.(challenge.AffirmationState)
		return ok && av.Target == bv.Target && av.Typed == bv.Typed
	default:
		return a == b
	}
}
