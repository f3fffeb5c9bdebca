package ringer

import (
	"time"

	"github.com/borgmon/wakeup/pkg/challenge"
	"github.com/borgmon/wakeup/pkg/models"
)

// ==============================
// Machine inputs (Events)
// ==============================

// Event is the input to Machine.Handle.
type Event interface {
	eventMarker()
}

// Tick is the local minute check. Sub-minute tick intervals are expected.
type Tick struct {
	Now time.Time
}

func (Tick) eventMarker() {}

// NotificationReceived is a delivered or tapped alarm notification.
type NotificationReceived struct {
	AlarmID string
	At      time.Time
}

func (NotificationReceived) eventMarker() {}

// NativeLaunch reports that the alarm service launched the app for AlarmID.
type NativeLaunch struct {
	AlarmID string
	At      time.Time
}

func (NativeLaunch) eventMarker() {}

// AlarmsChanged replaces the alarm list the machine reads.
type AlarmsChanged struct {
	Alarms []models.Alarm
}

func (AlarmsChanged) eventMarker() {}

// SettingsChanged replaces the settings challenges are built with.
type SettingsChanged struct {
	Settings models.Settings
}

func (SettingsChanged) eventMarker() {}

// Input forwards user or sensor input to the running challenge.
type Input struct {
	Input challenge.Input
	At    time.Time
}

func (Input) eventMarker() {}

// TimerFired reports a timer requested with StartTimer. Gen must match the
// generation it was started with or the event is stale.
type TimerFired struct {
	Key string
	Gen uint64
	At  time.Time
}

func (TimerFired) eventMarker() {}

// DismissRequested is the explicit dismiss action. Only the simple challenge
// completes on it.
type DismissRequested struct {
	At time.Time
}

func (DismissRequested) eventMarker() {}

// SnoozeRequested asks to snooze the ringing alarm.
type SnoozeRequested struct {
	At time.Time
}

func (SnoozeRequested) eventMarker() {}

// ScreenPresented and ScreenClosed track the ringing window.
type ScreenPresented struct{}

func (ScreenPresented) eventMarker() {}

type ScreenClosed struct{}

func (ScreenClosed) eventMarker() {}

// ==============================
// Machine outputs (Effects)
// ==============================

// Effect is a declarative command executed by the Runner.
type Effect interface {
	effectMarker()
}

type StartSound struct {
	Sound     models.Sound
	Intensity models.WakeIntensity
}

func (StartSound) effectMarker() {}

type StopSound struct{}

func (StopSound) effectMarker() {}

// StartTimer replaces any live timer with the same key.
type StartTimer struct {
	Key   string
	Gen   uint64
	After time.Duration
}

func (StartTimer) effectMarker() {}

type CancelTimer struct {
	Key string
}

func (CancelTimer) effectMarker() {}

// StopNative silences the native alarm service.
type StopNative struct{}

func (StopNative) effectMarker() {}

// Emit delivers a notice to the Listener.
type Emit struct {
	Notice Notice
}

func (Emit) effectMarker() {}

// ==============================
// Notices for the UI
// ==============================

// Notice is an outbound event for the UI.
type Notice interface {
	noticeMarker()
}

// RingingStarted is sent when an alarm starts ringing. Resumed is set when
// the ringing screen has to be shown again for a session already in progress.
type RingingStarted struct {
	Alarm     models.Alarm
	Challenge challenge.State
	Resumed   bool
}

func (RingingStarted) noticeMarker() {}

// Progress carries the challenge state after an input changed it.
type Progress struct {
	Alarm     models.Alarm
	Challenge challenge.State
}

func (Progress) noticeMarker() {}

// Dismissed is terminal for a ringing session.
type Dismissed struct {
	Alarm      models.Alarm
	At         time.Time
	WasOneTime bool
}

func (Dismissed) noticeMarker() {}

// Snoozed reports the alarm will ring again at Until.
type Snoozed struct {
	Alarm models.Alarm
	Until time.Time
}

func (Snoozed) noticeMarker() {}
