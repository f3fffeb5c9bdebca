package calendar

import (
	"fmt"
	"time"

	"github.com/borgmon/wakeup/pkg/models"
	"github.com/teambition/rrule-go"
)

var rruleWeekdays = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

// WeeklyRule builds the rule firing every week on weekday at hour:minute:00,
// anchored at from in from's location
func WeeklyRule(weekday time.Weekday, hour, minute int, from time.Time) (*rrule.RRule, error) {
	if weekday < time.Sunday || weekday > time.Saturday {
		return nil, fmt.Errorf("calendar: weekday %d out of range", weekday)
	}
	r, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Dtstart:   from,
		Byweekday: []rrule.Weekday{rruleWeekdays[weekday]},
		Byhour:    []int{hour},
		Byminute:  []int{minute},
		Bysecond:  []int{0},
	})
	if err != nil {
		return nil, fmt.Errorf("calendar: weekly rule: %w", err)
	}
	return r, nil
}

// NextWeekly returns the first weekly occurrence strictly after from
func NextWeekly(weekday time.Weekday, hour, minute int, from time.Time) (time.Time, error) {
	r, err := WeeklyRule(weekday, hour, minute, from)
	if err != nil {
		return time.Time{}, err
	}
	next := r.After(from, false)
	if next.IsZero() {
		return time.Time{}, fmt.Errorf("calendar: no occurrence after %s", from)
	}
	return next, nil
}

// repeatOption is the RRULE of a repeating alarm, nil for one-time alarms
func repeatOption(a models.Alarm) *rrule.ROption {
	if a.IsOneTime() {
		return nil
	}
	opt := &rrule.ROption{Freq: rrule.WEEKLY}
	for day, on := range a.Days {
		if on {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[day])
		}
	}
	return opt
}
