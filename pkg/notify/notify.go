// Package notify is the desktop notification channel. Entries live in an
// in-process minute index and are fired by Check from the app's ticker.
package notify

import (
	"errors"
	"fmt"
	"time"

	"github.com/borgmon/wakeup/pkg/calendar"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/scheduler"
	"github.com/borgmon/wakeup/pkg/store"
)

// MissedWindow is how late an entry may still fire. Older entries are
// dropped without a post; the alarm service covers them.
const MissedWindow = 5 * time.Minute

var ErrNotFound = errors.New("notification not found")

// Poster shows a desktop notification
type Poster interface {
	Post(title, body string)
}

// Scheduler keeps pending notification entries and fires them
type Scheduler struct {
	entries *store.EntryStore
	clock   clock.Clock
	poster  Poster
	log     logging.Logger
	deliver func(alarmID string, at time.Time)
}

// New creates a notification scheduler over entries
func New(entries *store.EntryStore, c clock.Clock, poster Poster, log logging.Logger) *Scheduler {
	return &Scheduler{entries: entries, clock: c, poster: poster, log: log}
}

// OnDeliver registers the receiver of fired alarm payloads. at is the
// entry's scheduled instant.
func (s *Scheduler) OnDeliver(f func(alarmID string, at time.Time)) {
	s.deliver = f
}

func (s *Scheduler) ScheduleOnce(n scheduler.Notification, at time.Time) error {
	if n.Identifier == "" {
		return errors.New("notify: empty identifier")
	}
	s.entries.Put(store.Entry{
		Identifier: n.Identifier,
		AlarmID:    n.AlarmID,
		Title:      n.Title,
		Body:       n.Body,
		FireAt:     at,
	})
	return nil
}

func (s *Scheduler) ScheduleWeekly(n scheduler.Notification, weekday time.Weekday, hour, minute int) error {
	if n.Identifier == "" {
		return errors.New("notify: empty identifier")
	}
	next, err := calendar.NextWeekly(weekday, hour, minute, s.clock.Now())
	if err != nil {
		return fmt.Errorf("notify: %s: %w", n.Identifier, err)
	}
	s.entries.Put(store.Entry{
		Identifier: n.Identifier,
		AlarmID:    n.AlarmID,
		Title:      n.Title,
		Body:       n.Body,
		FireAt:     next,
		Weekly:     true,
		Weekday:    weekday,
		Hour:       hour,
		Minute:     minute,
	})
	return nil
}

func (s *Scheduler) Cancel(identifier string) error {
	if !s.entries.Remove(identifier) {
		return fmt.Errorf("notify: %s: %w", identifier, ErrNotFound)
	}
	return nil
}

func (s *Scheduler) CancelAll() error {
	s.entries.RemoveAll()
	return nil
}

// Pending returns the live entries sorted by fire time
func (s *Scheduler) Pending() []store.Entry {
	return s.entries.All()
}

// Check fires every entry due by now and returns the alarm ids delivered.
// One-shot entries are removed, weekly entries move to their next week
// unless they were cancelled while Check ran.
func (s *Scheduler) Check(now time.Time) []string {
	var delivered []string
	for _, e := range s.entries.DueBefore(now) {
		if now.Sub(e.FireAt) > MissedWindow {
			s.log.Warnf("notify: %s missed by %s, dropped", e.Identifier, now.Sub(e.FireAt).Round(time.Second))
		} else {
			if s.poster != nil {
				s.poster.Post(e.Title, e.Body)
			}
			if s.deliver != nil {
				s.deliver(e.AlarmID, e.FireAt)
			}
			delivered = append(delivered, e.AlarmID)
		}

		if !e.Weekly {
			s.entries.Remove(e.Identifier)
			continue
		}
		next, err := calendar.NextWeekly(e.Weekday, e.Hour, e.Minute, now)
		if err != nil {
			s.log.Errorf("notify: reschedule %s: %v", e.Identifier, err)
			s.entries.Remove(e.Identifier)
			continue
		}
		e.FireAt = next
		// A cancel that ran since the snapshot wins
		s.entries.Update(e)
	}
	return delivered
}

var _ scheduler.NotificationChannel = (*Scheduler)(nil)
