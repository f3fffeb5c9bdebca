// Package trigger turns an alarm's repeat pattern into its next absolute
// trigger instant. Everything here is pure: no I/O, no clock reads.
package trigger

import (
	"time"

	"github.com/borgmon/wakeup/pkg/models"
)

// Resolve returns the next instant alarm is due strictly after now.
// ok is false only for disabled alarms.
//
// Candidates are built on now's calendar in now's location, so the wall
// clock time is kept across DST changes.
func Resolve(alarm models.Alarm, now time.Time) (time.Time, bool) {
	if !alarm.Enabled {
		return time.Time{}, false
	}

	if alarm.IsOneTime() {
		candidate := at(now, 0, alarm.Hour, alarm.Minute)
		if candidate.After(now) {
			return candidate, true
		}
		return at(now, 1, alarm.Hour, alarm.Minute), true
	}

	today := int(now.Weekday())
	for offset := 0; offset < 7; offset++ {
		if !alarm.Days[(today+offset)%7] {
			continue
		}
		candidate := at(now, offset, alarm.Hour, alarm.Minute)
		if candidate.After(now) {
			return candidate, true
		}
	}

	// Every enabled day this week is behind us: wrap to next week.
	for offset := 0; offset < 7; offset++ {
		if alarm.Days[(today+offset)%7] {
			return at(now, offset+7, alarm.Hour, alarm.Minute), true
		}
	}
	return time.Time{}, false
}

// NextN returns up to n successive trigger instants after now.
func NextN(alarm models.Alarm, now time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	cursor := now
	for len(out) < n {
		next, ok := Resolve(alarm, cursor)
		if !ok {
			break
		}
		out = append(out, next)
		if alarm.IsOneTime() {
			break
		}
		cursor = next
	}
	return out
}

// MatchesMinute reports whether alarm is due within the wall clock minute
// containing now: enabled, same hour:minute, and either one-time or set to
// repeat on now's weekday.
func MatchesMinute(alarm models.Alarm, now time.Time) bool {
	if !alarm.Enabled || now.Hour() != alarm.Hour || now.Minute() != alarm.Minute {
		return false
	}
	return alarm.IsOneTime() || alarm.Days[int(now.Weekday())]
}

func at(now time.Time, dayOffset, hour, minute int) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d+dayOffset, hour, minute, 0, 0, now.Location())
}
