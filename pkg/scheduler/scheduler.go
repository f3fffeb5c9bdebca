// Package scheduler keeps the notification channel and the native alarm
// service in step with the alarm list.
//
// Every pass cancels everything and schedules everything again from the
// enabled alarms. Nothing is patched incrementally.
package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/borgmon/wakeup/pkg/bridge"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/borgmon/wakeup/pkg/trigger"
)

// Class is the delivery classification of a notification entry
type Class int

const (
	ClassDefault Class = iota
	// ClassAlarm is high priority and bypasses quiet hours
	ClassAlarm
)

// Notification is one entry for the notification channel
type Notification struct {
	Identifier string
	Title      string
	Body       string
	AlarmID    string
	Class      Class
}

// NotificationChannel is the OS notification scheduler
type NotificationChannel interface {
	ScheduleOnce(n Notification, at time.Time) error
	ScheduleWeekly(n Notification, weekday time.Weekday, hour, minute int) error
	Cancel(identifier string) error
	CancelAll() error
}

// PermissionPrompter shows the exact-alarm permission prompt
type PermissionPrompter interface {
	PromptExactAlarmPermission()
}

// Result describes one reconciliation pass
type Result struct {
	Entries       []models.ScheduledEntry
	NativeErrors  map[string]error
	NativeSkipped bool
}

// Scheduler reconciles alarms onto both channels. Reconcile passes never
// overlap.
type Scheduler struct {
	mu       sync.Mutex
	notify   NotificationChannel
	native   bridge.Bridge
	prompter PermissionPrompter
	clock    clock.Clock
	log      logging.Logger

	registered map[string]struct{} // notification identifiers from earlier passes
	nativeIDs  map[string]struct{} // native alarm ids from earlier passes
	prompted   bool

	pendingMu    sync.Mutex
	pending      []models.Alarm
	hasPending   bool
	requestChan  chan struct{}
	shutdownChan chan struct{}
	doneChan     chan struct{}
	started      bool
	closeOnce    sync.Once
	onResult     func(Result)
}

// New creates a scheduler. native should already be bridge.Guarded.
func New(notify NotificationChannel, native bridge.Bridge, prompter PermissionPrompter, c clock.Clock, log logging.Logger) *Scheduler {
	return &Scheduler{
		notify:       notify,
		native:       native,
		prompter:     prompter,
		clock:        c,
		log:          log,
		registered:   make(map[string]struct{}),
		nativeIDs:    make(map[string]struct{}),
		requestChan:  make(chan struct{}, 1),
		shutdownChan: make(chan struct{}),
		doneChan:     make(chan struct{}),
	}
}

// OnResult registers a callback for passes run by the worker
func (s *Scheduler) OnResult(f func(Result)) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	s.onResult = f
}

// Reconcile cancels every entry on both channels and schedules the enabled
// alarms again. Failures on single entries are logged and skipped.
func (s *Scheduler) Reconcile(ctx context.Context, alarms []models.Alarm) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	now := s.clock.Now()
	result := Result{NativeErrors: make(map[string]error)}

	s.cancelAll(ctx, alarms)

	var enabled []models.Alarm
	for _, a := range alarms {
		if _, ok := trigger.Resolve(a, now); ok {
			enabled = append(enabled, a)
		}
	}

	for _, a := range enabled {
		result.Entries = append(result.Entries, s.scheduleNotification(a, now)...)
	}

	nativeOK := s.nativeAllowed(ctx)
	result.NativeSkipped = !nativeOK
	if nativeOK {
		for _, a := range enabled {
			entry, err := s.scheduleNative(ctx, a, now)
			if err != nil {
				s.log.Warnf("scheduler: native schedule %s: %v", a.ID, err)
				result.NativeErrors[a.ID] = err
				continue
			}
			result.Entries = append(result.Entries, entry)
		}
	}

	if err := s.saveForReboot(ctx, enabled); err != nil {
		s.log.Warnf("scheduler: save alarms for reboot: %v", err)
	}

	sort.Slice(result.Entries, func(i, j int) bool {
		a, b := result.Entries[i], result.Entries[j]
		if !a.TriggerInstant.Equal(b.TriggerInstant) {
			return a.TriggerInstant.Before(b.TriggerInstant)
		}
		if a.AlarmID != b.AlarmID {
			return a.AlarmID < b.AlarmID
		}
		return a.Channel < b.Channel
	})
	s.log.Infof("scheduler: reconciled %d alarms into %d entries (native skipped: %t)",
		len(enabled), len(result.Entries), result.NativeSkipped)
	return result, nil
}

// cancelAll drops every entry this process may have scheduled. Cancel
// failures mean the entry was never there and are ignored.
func (s *Scheduler) cancelAll(ctx context.Context, alarms []models.Alarm) {
	for id := range s.registered {
		if err := s.notify.Cancel(id); err != nil {
			s.log.Debugf("scheduler: cancel notification %s: %v", id, err)
		}
	}
	if err := s.notify.CancelAll(); err != nil {
		s.log.Debugf("scheduler: cancel all notifications: %v", err)
	}
	s.registered = make(map[string]struct{})

	// Ids of disabled alarms are cancelled too: they may be left from a run
	// before this process started.
	for _, a := range alarms {
		s.nativeIDs[a.ID] = struct{}{}
	}
	// Without the service nothing is cancelled, so keep the ids for the next
	// pass that reaches it
	if !s.native.Available() {
		s.log.Debugf("scheduler: alarm service unavailable, %d native cancels pending", len(s.nativeIDs))
		return
	}
	for id := range s.nativeIDs {
		if err := s.native.CancelAlarm(ctx, id); err != nil {
			s.log.Debugf("scheduler: cancel native %s: %v", id, err)
		}
	}
	s.nativeIDs = make(map[string]struct{})
}

func (s *Scheduler) scheduleNotification(a models.Alarm, now time.Time) []models.ScheduledEntry {
	n := Notification{
		Title:   "Alarm",
		Body:    notificationBody(a),
		AlarmID: a.ID,
		Class:   ClassAlarm,
	}

	if a.IsOneTime() {
		at, _ := trigger.Resolve(a, now)
		n.Identifier = OnceIdentifier(a.ID)
		if err := s.notify.ScheduleOnce(n, at); err != nil {
			s.log.Warnf("scheduler: notification %s: %v", n.Identifier, err)
			return nil
		}
		s.registered[n.Identifier] = struct{}{}
		return []models.ScheduledEntry{{AlarmID: a.ID, TriggerInstant: at, Channel: models.ChannelNotification}}
	}

	var entries []models.ScheduledEntry
	for day, on := range a.Days {
		if !on {
			continue
		}
		weekday := time.Weekday(day)
		n.Identifier = WeeklyIdentifier(a.ID, weekday)
		if err := s.notify.ScheduleWeekly(n, weekday, a.Hour, a.Minute); err != nil {
			s.log.Warnf("scheduler: notification %s: %v", n.Identifier, err)
			continue
		}
		s.registered[n.Identifier] = struct{}{}

		single := a
		single.Days = models.Weekdays{}
		single.Days[day] = true
		at, _ := trigger.Resolve(single, now)
		entries = append(entries, models.ScheduledEntry{AlarmID: a.ID, TriggerInstant: at, Channel: models.ChannelNotification})
	}
	return entries
}

// nativeAllowed checks exact alarm permission, prompting once per process
// when it is denied. An absent bridge is skipped without a prompt.
func (s *Scheduler) nativeAllowed(ctx context.Context) bool {
	if !s.native.Available() {
		return false
	}
	granted, err := s.native.CheckExactAlarmPermission(ctx)
	if err != nil {
		s.log.Warnf("scheduler: check exact alarm permission: %v", err)
		return false
	}
	if granted {
		return true
	}
	if !s.prompted {
		s.prompted = true
		s.log.Info("scheduler: exact alarm permission denied, prompting")
		if s.prompter != nil {
			s.prompter.PromptExactAlarmPermission()
		}
	}
	return false
}

func (s *Scheduler) scheduleNative(ctx context.Context, a models.Alarm, now time.Time) (models.ScheduledEntry, error) {
	at, _ := trigger.Resolve(a, now)
	resource, err := a.Sound.ResourceName()
	if err != nil {
		return models.ScheduledEntry{}, err
	}
	if err := s.native.ScheduleAlarm(ctx, a.ID, bridge.EpochMillis(at), resource); err != nil {
		return models.ScheduledEntry{}, err
	}
	s.nativeIDs[a.ID] = struct{}{}
	return models.ScheduledEntry{AlarmID: a.ID, TriggerInstant: at, Channel: models.ChannelNative}, nil
}

func (s *Scheduler) saveForReboot(ctx context.Context, enabled []models.Alarm) error {
	records := make([]models.RebootRecord, 0, len(enabled))
	for _, a := range enabled {
		records = append(records, models.RebootRecordFor(a))
	}
	blob, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode reboot records: %w", err)
	}
	return s.native.SaveAlarmsForReboot(ctx, blob)
}

// Start runs the request worker until Close
func (s *Scheduler) Start(ctx context.Context) {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if s.started {
		return
	}
	s.started = true
	go s.requestWorker(ctx)
}

// Request queues a reconcile of alarms. Requests made while a pass is in
// flight collapse into one pass over the newest list.
func (s *Scheduler) Request(alarms []models.Alarm) {
	s.pendingMu.Lock()
	s.pending = append([]models.Alarm(nil), alarms...)
	s.hasPending = true
	s.pendingMu.Unlock()

	select {
	case s.requestChan <- struct{}{}:
	default:
	}
}

func (s *Scheduler) requestWorker(ctx context.Context) {
	defer close(s.doneChan)
	for {
		select {
		case <-s.requestChan:
			s.pendingMu.Lock()
			alarms, ok := s.pending, s.hasPending
			s.pending, s.hasPending = nil, false
			onResult := s.onResult
			s.pendingMu.Unlock()
			if !ok {
				continue
			}

			result, err := s.Reconcile(ctx, alarms)
			if err != nil {
				s.log.Errorf("scheduler: reconcile: %v", err)
				continue
			}
			if onResult != nil {
				onResult(result)
			}
		case <-ctx.Done():
			return
		case <-s.shutdownChan:
			return
		}
	}
}

// Close stops the request worker and waits for an in-flight pass
func (s *Scheduler) Close() {
	s.closeOnce.Do(func() {
		close(s.shutdownChan)
		s.pendingMu.Lock()
		started := s.started
		s.pendingMu.Unlock()
		if started {
			<-s.doneChan
		}
	})
}

// OnceIdentifier names the notification entry of a one-time alarm
func OnceIdentifier(alarmID string) string {
	return "alarm-" + alarmID + "-once"
}

// WeeklyIdentifier names the notification entry of one repeat day
func WeeklyIdentifier(alarmID string, weekday time.Weekday) string {
	return fmt.Sprintf("alarm-%s-d%d", alarmID, int(weekday))
}

func notificationBody(a models.Alarm) string {
	if a.Label != "" {
		return a.TimeString() + " " + a.Label
	}
	return a.TimeString()
}
