package main

import (
	"fmt"
	"net/url"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"github.com/borgmon/wakeup/pkg/calendar"
	"github.com/borgmon/wakeup/pkg/config"
)

var dialogSize = fyne.NewSize(520, 360)

// dialogWindow opens a small window to host a dialog. The tray app has no
// main window of its own.
func (wu *WakeUp) dialogWindow(title string) fyne.Window {
	w := wu.app.NewWindow(title)
	w.Resize(dialogSize)
	w.CenterOnScreen()
	w.Show()
	return w
}

// PromptExactAlarmPermission tells the user alarmd is not allowed to ring at
// exact times. Shown at most once per process.
func (wu *WakeUp) PromptExactAlarmPermission() {
	wu.permPrompt.Do(func() {
		fyne.Do(func() {
			w := wu.dialogWindow("Exact Alarms")
			msg := "The alarm service is not allowed to ring at exact times.\n" +
				"Alarms will only ring while WakeUp is running.\n\n" +
				"Set daemon.exact_alarm_permission to true in\n" + wu.configPath() +
				"\nand restart alarmd."
			d := dialog.NewConfirm("Exact alarms are off", msg, func(open bool) {
				defer w.Close()
				if !open {
					return
				}
				u := &url.URL{Scheme: "file", Path: filepath.ToSlash(wu.configPath())}
				if err := wu.app.OpenURL(u); err != nil {
					wu.log.Warnf("wakeup: open config: %v", err)
				}
			}, w)
			d.SetConfirmText("Open Config")
			d.SetDismissText("Later")
			d.Show()
		})
	})
}

func (wu *WakeUp) configPath() string {
	return filepath.Join(wu.cfg.Dir, config.FileName)
}

// showExportDialog saves the enabled alarms as an iCalendar file
func (wu *WakeUp) showExportDialog() {
	data, err := calendar.Export(wu.alarmsCopy(), wu.clock.Now())
	if err != nil {
		wu.log.Errorf("wakeup: export calendar: %v", err)
		w := wu.dialogWindow("Export")
		dialog.ShowError(fmt.Errorf("export failed: %w", err), w)
		return
	}

	w := wu.dialogWindow("Export to Calendar")
	save := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			dialog.ShowError(err, w)
			return
		}
		if writer == nil {
			w.Close()
			return
		}
		defer writer.Close()

		if _, err := writer.Write(data); err != nil {
			dialog.ShowError(fmt.Errorf("write %s: %w", writer.URI().Name(), err), w)
			return
		}
		wu.log.Infof("wakeup: exported alarms to %s", writer.URI().Path())
		dialog.ShowInformation("Exported", "Alarms saved to "+writer.URI().Name(), w)
	}, w)
	save.SetFileName("wakeup-alarms.ics")
	save.SetFilter(storage.NewExtensionFileFilter([]string{".ics"}))
	save.Resize(dialogSize)
	save.Show()
}
