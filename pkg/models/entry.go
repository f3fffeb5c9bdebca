package models

import "time"

// Channel identifies a trigger backend
type Channel string

const (
	ChannelNotification Channel = "notification" // OS notification scheduler
	ChannelNative       Channel = "native"       // always-on native alarm service
)

// ScheduledEntry is one live schedule of an alarm occurrence on a channel
type ScheduledEntry struct {
	AlarmID        string    // Alarm the entry belongs to
	TriggerInstant time.Time // Absolute instant the entry fires
	Channel        Channel   // Backend holding the entry
}

// RoundToMinute rounds a time down to the nearest minute
func RoundToMinute(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}
