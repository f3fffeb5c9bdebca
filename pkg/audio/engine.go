package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/google/uuid"
)

// ErrAlarmActive is returned when a preview is requested while an alarm rings
var ErrAlarmActive = errors.New("audio: alarm is ringing")

// Slot is a logical playback channel. At most one session lives per slot,
// and the alarm slot always wins over the preview slot.
type Slot int

const (
	SlotAlarm Slot = iota
	SlotPreview
)

func (s Slot) String() string {
	if s == SlotAlarm {
		return "alarm"
	}
	return "preview"
}

// Voice is one live playback of a sound
type Voice interface {
	SetVolume(volume float64)
	Close() error
}

// Backend opens voices
type Backend interface {
	Open(p Profile, volume float64) (Voice, error)
}

// Handle identifies a started session
type Handle struct {
	Slot Slot
	ID   string
}

type session struct {
	handle  Handle
	profile Profile
	volume  float64
	voice   Voice
	step    int
	pattern clock.Timer
	expiry  clock.Timer
}

// Engine maps sounds to playback profiles and drives their on/off pattern
type Engine struct {
	mu         sync.Mutex
	backend    Backend
	clock      clock.Clock
	log        logging.Logger
	previewFor time.Duration
	sessions   map[Slot]*session
}

// NewEngine creates an engine. previewFor bounds preview playback.
func NewEngine(backend Backend, c clock.Clock, log logging.Logger, previewFor time.Duration) *Engine {
	return &Engine{
		backend:    backend,
		clock:      c,
		log:        log,
		previewFor: previewFor,
		sessions:   make(map[Slot]*session),
	}
}

// SetPreviewDuration changes the preview auto-stop delay for new previews
func (e *Engine) SetPreviewDuration(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.previewFor = d
}

// Start plays sound in slot, replacing whatever the slot was playing.
// Starting the alarm slot stops any preview.
func (e *Engine) Start(slot Slot, sound models.Sound, intensity models.WakeIntensity) (Handle, error) {
	profile, err := ProfileFor(sound)
	if err != nil {
		return Handle{}, err
	}
	volume, err := intensity.Volume()
	if err != nil {
		return Handle{}, fmt.Errorf("audio: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch slot {
	case SlotPreview:
		if e.sessions[SlotAlarm] != nil {
			return Handle{}, ErrAlarmActive
		}
	case SlotAlarm:
		e.stopLocked(SlotPreview)
	}
	e.stopLocked(slot)

	voice, err := e.backend.Open(profile, profile.VolumeAt(0, volume))
	if err != nil {
		return Handle{}, fmt.Errorf("audio: open %s: %w", sound, err)
	}

	s := &session{
		handle:  Handle{Slot: slot, ID: uuid.NewString()},
		profile: profile,
		volume:  volume,
		voice:   voice,
	}
	e.sessions[slot] = s

	if !profile.Continuous() {
		_, hold := profile.Step(0)
		s.pattern = e.clock.AfterFunc(hold, func() { e.advance(s.handle) })
	}
	if slot == SlotPreview && e.previewFor > 0 {
		h := s.handle
		s.expiry = e.clock.AfterFunc(e.previewFor, func() { e.Stop(h) })
	}

	e.log.Debugf("audio: started %s in %s slot at volume %.2f", sound, slot, volume)
	return s.handle, nil
}

// Stop stops the session identified by h. Stale or zero handles are ignored.
func (e *Engine) Stop(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s := e.sessions[h.Slot]; s != nil && s.handle == h {
		e.stopLocked(h.Slot)
	}
}

// StopSlot stops whatever is playing in slot
func (e *Engine) StopSlot(slot Slot) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopLocked(slot)
}

// Playing returns true if slot has a live session
func (e *Engine) Playing(slot Slot) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[slot] != nil
}

func (e *Engine) stopLocked(slot Slot) {
	s := e.sessions[slot]
	if s == nil {
		return
	}
	delete(e.sessions, slot)
	if s.pattern != nil {
		s.pattern.Stop()
	}
	if s.expiry != nil {
		s.expiry.Stop()
	}
	if err := s.voice.Close(); err != nil {
		e.log.Warnf("audio: close %s voice: %v", slot, err)
	}
	e.log.Debugf("audio: stopped %s slot", slot)
}

// advance moves a patterned session to its next step
func (e *Engine) advance(h Handle) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.sessions[h.Slot]
	if s == nil || s.handle != h {
		return
	}
	s.step++
	s.voice.SetVolume(s.profile.VolumeAt(s.step, s.volume))
	_, hold := s.profile.Step(s.step)
	s.pattern = e.clock.AfterFunc(hold, func() { e.advance(h) })
}
