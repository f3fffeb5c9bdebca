package main

import (
	"context"
	"errors"
	"log"
	"os"
	"reflect"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/borgmon/wakeup/pkg/audio"
	"github.com/borgmon/wakeup/pkg/bridge"
	"github.com/borgmon/wakeup/pkg/calendar"
	"github.com/borgmon/wakeup/pkg/challenge"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/config"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/borgmon/wakeup/pkg/nativesvc"
	"github.com/borgmon/wakeup/pkg/notify"
	"github.com/borgmon/wakeup/pkg/platform"
	"github.com/borgmon/wakeup/pkg/ringer"
	"github.com/borgmon/wakeup/pkg/scheduler"
	"github.com/borgmon/wakeup/pkg/store"
)

const appID = "io.github.borgmon.wakeup"

type WakeUp struct {
	app   fyne.App
	cfg   config.Config
	log   logging.Logger
	clock clock.Clock
	ctx   context.Context
	stop  context.CancelFunc

	prefs *store.PrefsStore

	mu       sync.Mutex
	alarms   []models.Alarm
	settings models.Settings

	nativeStore *nativesvc.Store
	native      bridge.Bridge
	engine      *audio.Engine
	runner      *ringer.Runner
	sched       *scheduler.Scheduler
	notifier    *notify.Scheduler
	watcher     *scheduler.Watcher

	events     chan ringer.Event
	ticker     *time.Ticker
	ringWindow *RingWindow
	permPrompt sync.Once
}

func main() {
	wu := &WakeUp{
		app:    app.NewWithID(appID),
		clock:  clock.Real(),
		events: make(chan ringer.Event, 64),
	}
	wu.ctx, wu.stop = context.WithCancel(context.Background())

	if err := wu.initialize(); err != nil {
		log.Fatal(err)
	}

	wu.run()
}

func (wu *WakeUp) initialize() error {
	dir, err := config.DefaultDir()
	if err != nil {
		return err
	}
	wu.cfg, err = config.Load(config.Path(dir))
	if err != nil {
		return err
	}
	logger, err := logging.New(wu.cfg.LogLevel)
	if err != nil {
		return err
	}
	wu.log = logger

	wu.prefs = store.NewPrefsStore(wu.app.Preferences(), wu.log)
	wu.alarms = wu.prefs.LoadAlarms()
	wu.settings = wu.prefs.LoadSettings()

	// Sync autostart state with settings on startup
	if err := setupAutostart(wu.settings.AutoStart, wu.log); err != nil {
		wu.log.Warnf("wakeup: autostart: %v", err)
	}

	wu.native = wu.openNative()
	backend := audio.NewOtoBackend(wu.log)
	if loaded := backend.LoadOverrides(wu.cfg.SoundsPath()); len(loaded) > 0 {
		wu.log.Infof("wakeup: custom sounds: %v", loaded)
	}
	wu.engine = audio.NewEngine(backend, wu.clock, wu.log, wu.settings.PreviewDuration())

	machine := ringer.NewMachine(challenge.Options{ShakeThreshold: wu.settings.ShakeThreshold})
	wu.runner = ringer.NewRunner(machine, wu.engine, wu.clock, wu.native, wu, wu.log)

	wu.notifier = notify.New(store.NewEntryStore(), wu.clock, wu, wu.log)
	wu.notifier.OnDeliver(func(alarmID string, at time.Time) {
		wu.post(ringer.NotificationReceived{AlarmID: alarmID, At: at})
	})

	wu.sched = scheduler.New(wu.notifier, wu.native, wu, wu.clock, wu.log)
	wu.sched.OnResult(func(scheduler.Result) {
		fyne.Do(wu.updateSystemTrayMenu)
	})
	wu.watcher = scheduler.NewWatcher(calendar.LocalZoneName, wu.native, wu.cfg.ClockJump.Backward, wu.cfg.ClockJump.Forward)

	go wu.eventWorker()
	wu.post(ringer.AlarmsChanged{Alarms: wu.alarmsCopy()})
	wu.post(ringer.SettingsChanged{Settings: wu.settings})

	// Listeners may run on the goroutine that wrote the preference
	wu.prefs.OnChange(func() { go wu.onPrefsChanged() })
	wu.setupSystemTray()

	wu.sched.Start(wu.ctx)
	wu.sched.Request(wu.alarmsCopy())
	wu.startTicker()
	wu.checkLaunchAlarm()
	return nil
}

// openNative connects to alarmd's database. Without it the app runs on
// the notification channel alone.
func (wu *WakeUp) openNative() bridge.Bridge {
	s, err := nativesvc.Open(wu.cfg.DatabaseFile())
	if err != nil {
		wu.log.Warnf("wakeup: alarm service unavailable: %v", err)
		return bridge.Guarded(nil, wu.log)
	}
	wu.nativeStore = s
	client := nativesvc.NewClient(s, wu.clock, 10*wu.cfg.Daemon.PollInterval)
	return bridge.Guarded(client, wu.log)
}

func (wu *WakeUp) run() {
	lc := wu.app.Lifecycle()
	lc.SetOnStarted(func() {
		platform.SetActivationPolicy()
	})
	lc.SetOnEnteredForeground(func() {
		wu.reconcile(wu.watcher.Foreground(wu.ctx, wu.clock.Now()))
	})
	lc.SetOnStopped(wu.shutdown)
	wu.app.Run()
}

// post queues an event for the runtime. Events are dispatched in order
// by a single worker so UI callbacks never block on the runtime.
func (wu *WakeUp) post(ev ringer.Event) {
	select {
	case wu.events <- ev:
	case <-wu.ctx.Done():
	}
}

func (wu *WakeUp) eventWorker() {
	for {
		select {
		case ev := <-wu.events:
			err := wu.runner.Dispatch(wu.ctx, ev)
			if errors.Is(err, ringer.ErrSnoozeUnavailable) || errors.Is(err, ringer.ErrNotRinging) {
				wu.log.Debugf("wakeup: %T: %v", ev, err)
			} else if err != nil {
				wu.log.Errorf("wakeup: dispatch %T: %v", ev, err)
			}
		case <-wu.ctx.Done():
			return
		}
	}
}

func (wu *WakeUp) startTicker() {
	wu.ticker = time.NewTicker(wu.cfg.TickInterval)
	go func() {
		for {
			select {
			case <-wu.ticker.C:
				wu.tick(wu.clock.Now())
			case <-wu.ctx.Done():
				return
			}
		}
	}()
}

func (wu *WakeUp) tick(now time.Time) {
	wu.post(ringer.Tick{Now: now})
	wu.notifier.Check(now)
	wu.checkLaunchAlarm()
	wu.reconcile(wu.watcher.Check(wu.ctx, now))
}

// checkLaunchAlarm picks up an alarm alarmd fired, either from the launch
// environment or from the service database
func (wu *WakeUp) checkLaunchAlarm() {
	if id := os.Getenv(nativesvc.EnvLaunchAlarm); id != "" {
		os.Unsetenv(nativesvc.EnvLaunchAlarm)
		wu.post(ringer.NativeLaunch{AlarmID: id, At: wu.clock.Now()})
	}
	id, err := wu.native.GetLaunchAlarmID(wu.ctx)
	if err != nil {
		wu.log.Warnf("wakeup: launch alarm id: %v", err)
		return
	}
	if id != "" {
		wu.post(ringer.NativeLaunch{AlarmID: id, At: wu.clock.Now()})
	}
}

func (wu *WakeUp) reconcile(reasons []scheduler.Reason) {
	if len(reasons) == 0 {
		return
	}
	wu.log.Infof("wakeup: rescheduling: %v", reasons)
	wu.sched.Request(wu.alarmsCopy())
}

func (wu *WakeUp) alarmsCopy() []models.Alarm {
	wu.mu.Lock()
	defer wu.mu.Unlock()
	return append([]models.Alarm(nil), wu.alarms...)
}

// onPrefsChanged reloads the collaborators' data after any preference write
func (wu *WakeUp) onPrefsChanged() {
	alarms := wu.prefs.LoadAlarms()
	settings := wu.prefs.LoadSettings()

	wu.mu.Lock()
	alarmsChanged := !reflect.DeepEqual(alarms, wu.alarms)
	settingsChanged := settings != wu.settings
	wu.alarms = alarms
	wu.settings = settings
	wu.mu.Unlock()

	if alarmsChanged {
		wu.post(ringer.AlarmsChanged{Alarms: append([]models.Alarm(nil), alarms...)})
		wu.sched.Request(alarms)
	}
	if settingsChanged {
		wu.post(ringer.SettingsChanged{Settings: settings})
		wu.engine.SetPreviewDuration(settings.PreviewDuration())
		if err := setupAutostart(settings.AutoStart, wu.log); err != nil {
			wu.log.Warnf("wakeup: autostart: %v", err)
		}
	}
}

// disableOneTime turns a dismissed one-time alarm off in the stored list
func (wu *WakeUp) disableOneTime(id string) {
	alarms := wu.alarmsCopy()
	for i := range alarms {
		if alarms[i].ID == id && alarms[i].IsOneTime() {
			alarms[i].Enabled = false
			if err := wu.prefs.SaveAlarms(alarms); err != nil {
				wu.log.Errorf("wakeup: save alarms: %v", err)
			}
			return
		}
	}
}

// Post implements notify.Poster with a desktop notification
func (wu *WakeUp) Post(title, body string) {
	wu.app.SendNotification(fyne.NewNotification(title, body))
}

func (wu *WakeUp) OnRingingStarted(n ringer.RingingStarted) {
	fyne.Do(func() {
		if wu.ringWindow != nil && !wu.ringWindow.Closed() && wu.ringWindow.alarm.ID == n.Alarm.ID {
			wu.ringWindow.Render(n.Challenge)
			wu.ringWindow.Show()
			return
		}
		if wu.ringWindow != nil {
			wu.ringWindow.Close()
		}
		wu.ringWindow = NewRingWindow(wu.app, n.Alarm, n.Challenge, wu.post, wu.clock, wu.log)
		wu.ringWindow.Show()
	})
}

func (wu *WakeUp) OnProgress(n ringer.Progress) {
	fyne.Do(func() {
		if wu.ringWindow != nil {
			wu.ringWindow.Render(n.Challenge)
		}
	})
}

func (wu *WakeUp) OnDismissed(n ringer.Dismissed) {
	wu.log.Infof("wakeup: alarm %s dismissed", n.Alarm.ID)
	wu.closeRingWindow()
	if n.WasOneTime {
		wu.disableOneTime(n.Alarm.ID)
	}
}

func (wu *WakeUp) OnSnoozed(n ringer.Snoozed) {
	wu.log.Infof("wakeup: alarm %s snoozed until %s", n.Alarm.ID, n.Until.Format(time.Kitchen))
	wu.closeRingWindow()
	wu.Post("Snoozed", "Ringing again at "+n.Until.Format("15:04"))
	fyne.Do(wu.updateSystemTrayMenu)
}

func (wu *WakeUp) closeRingWindow() {
	fyne.Do(func() {
		if wu.ringWindow != nil {
			wu.ringWindow.Close()
			wu.ringWindow = nil
		}
	})
}

func (wu *WakeUp) shutdown() {
	if wu.ticker != nil {
		wu.ticker.Stop()
	}
	wu.sched.Close()
	wu.runner.Close()
	wu.stop()
	if wu.nativeStore != nil {
		wu.nativeStore.Close()
	}
	wu.log.Sync() //nolint:errcheck // nothing useful to do on a failed flush
}

func (wu *WakeUp) quit() {
	wu.app.Quit()
}

var (
	_ ringer.Listener              = (*WakeUp)(nil)
	_ notify.Poster                = (*WakeUp)(nil)
	_ scheduler.PermissionPrompter = (*WakeUp)(nil)
)
