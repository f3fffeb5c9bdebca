package main

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/theme"
	"github.com/borgmon/wakeup/pkg/audio"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/borgmon/wakeup/pkg/trigger"
)

const upcomingLimit = 5

type upcoming struct {
	at      time.Time
	alarm   models.Alarm
	snoozed bool
}

func (wu *WakeUp) setupSystemTray() {
	wu.updateSystemTrayMenu()
}

func (wu *WakeUp) updateSystemTrayMenu() {
	desk, ok := wu.app.(desktop.App)
	if !ok {
		return
	}
	menuItems := []*fyne.MenuItem{}

	// Next alarms at the top
	next := wu.upcomingAlarms(wu.clock.Now(), upcomingLimit)
	if len(next) > 0 {
		headerItem := fyne.NewMenuItem("Next alarms:", nil)
		headerItem.Disabled = true
		menuItems = append(menuItems, headerItem)

		for _, u := range next {
			item := fyne.NewMenuItem(upcomingText(u), nil)
			item.Disabled = true
			menuItems = append(menuItems, item)
		}
	} else {
		none := fyne.NewMenuItem("No alarms scheduled", nil)
		none.Disabled = true
		menuItems = append(menuItems, none)
	}
	menuItems = append(menuItems, fyne.NewMenuItemSeparator())

	preview := fyne.NewMenuItem("Preview Sound", nil)
	preview.ChildMenu = wu.previewMenu()

	autoStart := fyne.NewMenuItem("Start Alarm Service at Login", func() {
		settings := wu.prefs.LoadSettings()
		settings.AutoStart = !settings.AutoStart
		wu.prefs.SaveSettings(settings)
	})
	autoStart.Checked = wu.currentSettings().AutoStart

	menuItems = append(menuItems,
		preview,
		fyne.NewMenuItem("Export to Calendar...", wu.showExportDialog),
		autoStart,
	)

	menuItems = append(menuItems, fyne.NewMenuItemSeparator())
	menuItems = append(menuItems, fyne.NewMenuItem("Quit", func() {
		wu.quit()
	}))

	menu := fyne.NewMenu("WakeUp", menuItems...)
	desk.SetSystemTrayMenu(menu)
	desk.SetSystemTrayIcon(theme.HistoryIcon())
}

func (wu *WakeUp) previewMenu() *fyne.Menu {
	items := []*fyne.MenuItem{}
	for _, sound := range models.AllSounds() {
		sound := sound
		items = append(items, fyne.NewMenuItem(soundTitle(sound), func() {
			wu.previewSound(sound)
		}))
	}
	items = append(items, fyne.NewMenuItemSeparator(), fyne.NewMenuItem("Stop", func() {
		wu.engine.StopSlot(audio.SlotPreview)
	}))
	return fyne.NewMenu("Preview Sound", items...)
}

func (wu *WakeUp) previewSound(sound models.Sound) {
	_, err := wu.engine.Start(audio.SlotPreview, sound, models.IntensityModerate)
	if errors.Is(err, audio.ErrAlarmActive) {
		wu.log.Info("wakeup: preview skipped while an alarm rings")
		return
	}
	if err != nil {
		wu.log.Warnf("wakeup: preview %s: %v", sound, err)
	}
}

func (wu *WakeUp) currentSettings() models.Settings {
	wu.mu.Lock()
	defer wu.mu.Unlock()
	return wu.settings
}

// upcomingAlarms returns the next limit trigger instants across enabled
// alarms, with pending snoozes in place of their alarm's regular time
func (wu *WakeUp) upcomingAlarms(now time.Time, limit int) []upcoming {
	var out []upcoming
	for _, a := range wu.alarmsCopy() {
		if until, ok := wu.runner.SnoozedUntil(a.ID); ok && until.After(now) {
			out = append(out, upcoming{at: until, alarm: a, snoozed: true})
		}
		for _, at := range trigger.NextN(a, now, limit) {
			out = append(out, upcoming{at: at, alarm: a})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].at.Equal(out[j].at) {
			return out[i].at.Before(out[j].at)
		}
		return out[i].alarm.ID < out[j].alarm.ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func upcomingText(u upcoming) string {
	text := fmt.Sprintf("  %s", u.at.Format("Mon 15:04"))
	if u.snoozed {
		text += " (snoozed)"
	}
	if u.alarm.Label != "" {
		text += " - " + truncateString(u.alarm.Label, 35)
	}
	return text
}

func soundTitle(s models.Sound) string {
	name := []rune(string(s))
	for i, r := range name {
		if r == '_' {
			name[i] = ' '
		}
	}
	if len(name) > 0 && name[0] >= 'a' && name[0] <= 'z' {
		name[0] -= 'a' - 'A'
	}
	return string(name)
}

// truncateString truncates a string to maxLen characters, adding "..." if needed
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
