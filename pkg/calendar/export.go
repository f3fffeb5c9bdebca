// Package calendar exports alarms as iCalendar data and answers the
// calendar questions the scheduler asks: weekly recurrence and the local
// IANA zone.
package calendar

import (
	"bytes"
	"fmt"
	"time"

	"github.com/borgmon/wakeup/pkg/models"
	"github.com/borgmon/wakeup/pkg/trigger"
	"github.com/emersion/go-ical"
)

const productID = "-//borgmon//wakeup//EN"

// Export encodes every enabled alarm as a VEVENT starting at its next
// trigger instant. Repeating alarms carry a weekly RRULE and every event
// has a display reminder at start.
func Export(alarms []models.Alarm, now time.Time) ([]byte, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	for _, a := range alarms {
		start, ok := trigger.Resolve(a, now)
		if !ok {
			continue
		}
		cal.Children = append(cal.Children, alarmEvent(a, start, now))
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return nil, fmt.Errorf("calendar: encode: %w", err)
	}
	return buf.Bytes(), nil
}

func alarmEvent(a models.Alarm, start, now time.Time) *ical.Component {
	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, a.ID+"@wakeup")
	event.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	event.Props.SetDateTime(ical.PropDateTimeStart, start)
	event.Props.SetDateTime(ical.PropDateTimeEnd, start.Add(time.Duration(max(a.Snooze, 1))*time.Minute))
	event.Props.SetText(ical.PropSummary, summary(a))
	if rule := repeatOption(a); rule != nil {
		event.Props.SetRecurrenceRule(rule)
	}

	reminder := ical.NewComponent(ical.CompAlarm)
	reminder.Props.SetText(ical.PropAction, "DISPLAY")
	reminder.Props.SetText(ical.PropDescription, summary(a))
	trig := ical.NewProp(ical.PropTrigger)
	trig.Value = "PT0S"
	reminder.Props.Set(trig)
	event.Children = append(event.Children, reminder)

	return event.Component
}

func summary(a models.Alarm) string {
	if a.Label != "" {
		return "Alarm: " + a.Label
	}
	return "Alarm " + a.TimeString()
}
