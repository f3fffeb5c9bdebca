package main

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"
	"github.com/borgmon/wakeup/pkg/challenge"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/borgmon/wakeup/pkg/platform"
	"github.com/borgmon/wakeup/pkg/ringer"
	"github.com/borgmon/wakeup/pkg/ui/components"
	"golang.design/x/hotkey"
)

const snoozeHold = 2 * time.Second

// RingWindow is the full screen ringing screen. All methods must run on the
// fyne main goroutine.
type RingWindow struct {
	window fyne.Window
	app    fyne.App
	alarm  models.Alarm
	post   func(ringer.Event)
	clock  clock.Clock
	log    logging.Logger

	body    *fyne.Container
	kind    models.DismissType
	built   bool
	closed  bool
	dropped bool // closed by the app, not the user

	phase       *widget.Label
	count       *widget.Label
	problem     *widget.Label
	wrong       *widget.Label
	entry       *widget.Entry
	marks       *fyne.Container
	pad         *components.ShakePad
	lastProblem challenge.Problem

	hkMu           sync.Mutex
	quitKey        *hotkey.Hotkey
	stopMonitoring chan struct{}
}

func NewRingWindow(app fyne.App, alarm models.Alarm, state challenge.State, post func(ringer.Event), c clock.Clock, log logging.Logger) *RingWindow {
	rw := &RingWindow{
		app:            app,
		alarm:          alarm,
		post:           post,
		clock:          c,
		log:            log,
		stopMonitoring: make(chan struct{}),
	}

	rw.window = app.NewWindow("Alarm")
	rw.window.SetFullScreen(true)
	rw.buildUI()
	rw.Render(state)

	rw.registerQuitPrevention()
	rw.setupFocusMonitoring()

	rw.window.SetOnClosed(func() {
		rw.closed = true
		platform.ShowInDock(false)
		close(rw.stopMonitoring)
		rw.unregisterQuitKey()
		if !rw.dropped {
			rw.post(ringer.ScreenClosed{})
		}
	})
	return rw
}

func (rw *RingWindow) buildUI() {
	clockText := canvas.NewText(rw.alarm.TimeString(), theme.Color(theme.ColorNameForeground))
	clockText.TextSize = 64
	clockText.TextStyle.Bold = true
	clockText.Alignment = fyne.TextAlignCenter

	content := container.NewVBox(container.NewPadded(clockText))
	if rw.alarm.Label != "" {
		label := widget.NewLabel(rw.alarm.Label)
		label.Alignment = fyne.TextAlignCenter
		label.Wrapping = fyne.TextWrapWord
		content.Add(label)
	}
	content.Add(widget.NewSeparator())

	rw.body = container.NewVBox()
	content.Add(rw.body)

	if rw.alarm.Snooze > 0 {
		content.Add(widget.NewSeparator())
		snooze := components.NewHoldButton(fmt.Sprintf("Snooze %dm (hold)", rw.alarm.Snooze), snoozeHold, func() {
			rw.post(ringer.SnoozeRequested{At: rw.clock.Now()})
		})
		content.Add(container.NewCenter(snooze))
	}

	rw.window.SetContent(container.NewPadded(container.NewCenter(content)))
}

// Render shows the challenge state. The body is rebuilt only when the
// dismiss type changes, so entry fields keep their focus and text.
func (rw *RingWindow) Render(state challenge.State) {
	if state == nil {
		return
	}
	if !rw.built || state.Type() != rw.kind {
		rw.buildBody(state.Type())
	}

	switch s := state.(type) {
	case challenge.BreathingState:
		rw.phase.SetText(breathingText(s))
	case challenge.ShakeState:
		rw.count.SetText(fmt.Sprintf("%d / %d", s.Count, s.Target))
		rw.pad.SetStatus(fmt.Sprintf("Shake! %d left", max(s.Target-s.Count, 0)))
	case challenge.MathState:
		if s.Problem != rw.lastProblem {
			rw.lastProblem = s.Problem
			rw.entry.SetText("")
		}
		rw.problem.SetText(s.Problem.String() + " = ?")
		if s.Wrong {
			rw.wrong.SetText("Try again")
		} else {
			rw.wrong.SetText("")
		}
	case challenge.AffirmationState:
		rw.renderMarks(s)
	}
	rw.body.Refresh()
}

func (rw *RingWindow) buildBody(kind models.DismissType) {
	rw.kind = kind
	rw.built = true
	rw.body.RemoveAll()

	title, err := kind.Title()
	if err != nil {
		title = string(kind)
	}
	heading := widget.NewLabelWithStyle(title, fyne.TextAlignCenter, fyne.TextStyle{Bold: true})
	rw.body.Add(heading)

	switch kind {
	case models.DismissSimple:
		dismiss := widget.NewButton("Dismiss", func() {
			rw.post(ringer.DismissRequested{At: rw.clock.Now()})
		})
		dismiss.Importance = widget.HighImportance
		rw.body.Add(container.NewCenter(dismiss))

	case models.DismissBreathing:
		rw.phase = widget.NewLabel("")
		rw.phase.Alignment = fyne.TextAlignCenter
		rw.body.Add(rw.phase)

	case models.DismissShake:
		rw.count = widget.NewLabel("")
		rw.count.Alignment = fyne.TextAlignCenter
		rw.pad = components.NewShakePad(func(s challenge.Sample) {
			rw.post(ringer.Input{Input: s, At: s.At})
		})
		rw.pad.Now = rw.clock.Now
		rw.body.Add(rw.count)
		rw.body.Add(rw.pad)

	case models.DismissMath:
		rw.problem = widget.NewLabel("")
		rw.problem.Alignment = fyne.TextAlignCenter
		rw.problem.TextStyle.Bold = true
		rw.wrong = widget.NewLabel("")
		rw.wrong.Alignment = fyne.TextAlignCenter
		rw.wrong.Importance = widget.DangerImportance
		rw.entry = widget.NewEntry()
		rw.entry.SetPlaceHolder("Answer")
		rw.entry.OnChanged = func(text string) {
			rw.post(ringer.Input{Input: challenge.Typed{Text: text}, At: rw.clock.Now()})
		}
		rw.entry.OnSubmitted = func(text string) {
			rw.post(ringer.Input{Input: challenge.Answer{Text: text}, At: rw.clock.Now()})
		}
		rw.body.Add(rw.problem)
		rw.body.Add(rw.entry)
		rw.body.Add(rw.wrong)
		rw.window.Canvas().Focus(rw.entry)

	case models.DismissAffirmation:
		rw.marks = container.NewHBox()
		rw.entry = widget.NewEntry()
		rw.entry.SetPlaceHolder("Type the phrase above")
		rw.entry.OnChanged = func(text string) {
			rw.post(ringer.Input{Input: challenge.Typed{Text: text}, At: rw.clock.Now()})
		}
		rw.body.Add(container.NewCenter(rw.marks))
		rw.body.Add(rw.entry)
		rw.window.Canvas().Focus(rw.entry)
	}
}

// renderMarks colours each target character by the typed text at the same
// position. Characters not yet typed are dimmed.
func (rw *RingWindow) renderMarks(s challenge.AffirmationState) {
	rw.marks.RemoveAll()
	for i, r := range []rune(s.Target) {
		name := theme.ColorNameDisabled
		if i < len(s.Marks) {
			name = theme.ColorNameSuccess
			if s.Marks[i] == challenge.MarkIncorrect {
				name = theme.ColorNameError
			}
		}
		t := canvas.NewText(string(r), theme.Color(name))
		t.TextSize = 24
		rw.marks.Add(t)
	}
	if extra := len(s.Marks) - len([]rune(s.Target)); extra > 0 {
		t := canvas.NewText(fmt.Sprintf(" +%d", extra), theme.Color(theme.ColorNameError))
		t.TextSize = 24
		rw.marks.Add(t)
	}
}

func breathingText(s challenge.BreathingState) string {
	switch s.Phase {
	case challenge.PhaseInhale:
		return fmt.Sprintf("Breathe in (%ds)\nCycle %d of %d", int(s.PhaseFor.Seconds()), s.Cycle, s.Cycles)
	case challenge.PhaseHold:
		return fmt.Sprintf("Hold (%ds)\nCycle %d of %d", int(s.PhaseFor.Seconds()), s.Cycle, s.Cycles)
	case challenge.PhaseExhale:
		return fmt.Sprintf("Breathe out (%ds)\nCycle %d of %d", int(s.PhaseFor.Seconds()), s.Cycle, s.Cycles)
	case challenge.PhaseComplete:
		return "Well done. Good morning!"
	}
	return ""
}

func (rw *RingWindow) Show() {
	if rw.closed {
		return
	}
	platform.ShowInDock(true)
	rw.window.Show()
	rw.window.RequestFocus()
	rw.post(ringer.ScreenPresented{})
}

// Closed reports whether the window is gone
func (rw *RingWindow) Closed() bool {
	return rw.closed
}

// Close removes the window after the session ended
func (rw *RingWindow) Close() {
	if rw.closed {
		return
	}
	rw.dropped = true
	rw.window.Close()
}

func (rw *RingWindow) registerQuitPrevention() {
	go func() {
		hk := hotkey.New(platform.QuitModifiers(), hotkey.KeyQ)
		if err := hk.Register(); err != nil {
			rw.log.Warnf("wakeup: failed to register quit key prevention: %v", err)
			return
		}
		rw.hkMu.Lock()
		rw.quitKey = hk
		rw.hkMu.Unlock()

		// Consume quit key presses while the alarm rings
		for range hk.Keydown() {
			rw.log.Info("wakeup: quit blocked while the alarm rings")
		}
	}()
}

func (rw *RingWindow) unregisterQuitKey() {
	rw.hkMu.Lock()
	defer rw.hkMu.Unlock()
	if rw.quitKey != nil {
		if err := rw.quitKey.Unregister(); err != nil {
			rw.log.Debugf("wakeup: unregister quit key: %v", err)
		}
		rw.quitKey = nil
	}
}

func (rw *RingWindow) setupFocusMonitoring() {
	go func() {
		ticker := time.NewTicker(500 * time.Millisecond)
		defer ticker.Stop()

		wasFocused := true
		for {
			select {
			case <-rw.stopMonitoring:
				return
			case <-ticker.C:
				isFocused := platform.IsAppActive()

				if wasFocused && !isFocused {
					rw.unregisterQuitKey()
				} else if !wasFocused && isFocused {
					rw.hkMu.Lock()
					missing := rw.quitKey == nil
					rw.hkMu.Unlock()
					if missing {
						rw.registerQuitPrevention()
					}
				}

				if !isFocused {
					rw.log.Debug("wakeup: ring window not active, bringing to front")
					platform.ActivateApp()
					fyne.Do(func() {
						if !rw.closed {
							rw.window.Show()
							rw.window.RequestFocus()
						}
					})
				}
				wasFocused = isFocused
			}
		}
	}()
}
