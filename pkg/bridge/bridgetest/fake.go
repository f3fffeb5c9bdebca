// Package bridgetest provides an in-memory Bridge for tests.
package bridgetest

import (
	"context"
	"sync"

	"github.com/borgmon/wakeup/pkg/bridge"
)

// Scheduled is one alarm registered with the fake
type Scheduled struct {
	EpochMillis   int64
	SoundResource string
}

// Fake records calls and keeps a schedule. Set the exported fields to
// script responses.
type Fake struct {
	mu sync.Mutex

	Unavailable bool
	Permission  bool
	Battery     bool
	LaunchID    string
	// FailSchedule makes ScheduleAlarm fail for the listed ids
	FailSchedule map[string]error

	schedule     map[string]Scheduled
	reboot       []byte
	stops        int
	cancels      []string
	permChecks   int
	snoozeCalls  []int
	scheduleCall int
}

// New returns an available fake with exact alarm permission granted
func New() *Fake {
	return &Fake{Permission: true, schedule: make(map[string]Scheduled)}
}

func (f *Fake) Available() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.Unavailable
}

func (f *Fake) ScheduleAlarm(_ context.Context, id string, epochMillis int64, soundResource string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return bridge.ErrUnavailable
	}
	f.scheduleCall++
	if err := f.FailSchedule[id]; err != nil {
		return err
	}
	f.schedule[id] = Scheduled{EpochMillis: epochMillis, SoundResource: soundResource}
	return nil
}

func (f *Fake) CancelAlarm(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return bridge.ErrUnavailable
	}
	f.cancels = append(f.cancels, id)
	delete(f.schedule, id)
	return nil
}

func (f *Fake) StopAlarm(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return bridge.ErrUnavailable
	}
	f.stops++
	return nil
}

func (f *Fake) SnoozeAlarm(_ context.Context, minutes int, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return bridge.ErrUnavailable
	}
	f.snoozeCalls = append(f.snoozeCalls, minutes)
	return nil
}

func (f *Fake) CheckExactAlarmPermission(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return false, bridge.ErrUnavailable
	}
	f.permChecks++
	return f.Permission, nil
}

func (f *Fake) IsIgnoringBatteryOptimizations(context.Context) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return false, bridge.ErrUnavailable
	}
	return f.Battery, nil
}

func (f *Fake) SaveAlarmsForReboot(_ context.Context, blob []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return bridge.ErrUnavailable
	}
	f.reboot = append([]byte(nil), blob...)
	return nil
}

func (f *Fake) GetLaunchAlarmID(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Unavailable {
		return "", bridge.ErrUnavailable
	}
	return f.LaunchID, nil
}

// SetPermission changes the permission answer
func (f *Fake) SetPermission(granted bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Permission = granted
}

// Schedule returns a copy of the live schedule
func (f *Fake) Schedule() map[string]Scheduled {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]Scheduled, len(f.schedule))
	for k, v := range f.schedule {
		out[k] = v
	}
	return out
}

// Reboot returns the last saved reboot blob
func (f *Fake) Reboot() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reboot
}

// Stops returns the number of StopAlarm calls
func (f *Fake) Stops() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stops
}

// Cancels returns the ids passed to CancelAlarm
func (f *Fake) Cancels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.cancels...)
}

// PermissionChecks returns the number of CheckExactAlarmPermission calls
func (f *Fake) PermissionChecks() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.permChecks
}

// ScheduleCalls returns the number of ScheduleAlarm calls, failed ones included
func (f *Fake) ScheduleCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.scheduleCall
}

var _ bridge.Bridge = (*Fake)(nil)
