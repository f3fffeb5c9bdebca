package nativesvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/borgmon/wakeup/pkg/audio"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/logging"
	"github.com/borgmon/wakeup/pkg/models"
	"github.com/borgmon/wakeup/pkg/trigger"
)

// EnvLaunchAlarm carries the fired alarm id to a launched app
const EnvLaunchAlarm = "WAKEUP_LAUNCH_ALARM"

// missedWindow is how late a row may still ring. Older rows were missed
// while the host was off and are only re-armed.
const missedWindow = time.Minute

// Launcher brings the app up for a fired alarm
type Launcher interface {
	Launch(ctx context.Context, alarmID string) error
}

// CommandLauncher starts the app as a detached process
type CommandLauncher struct {
	Command []string
}

func (l CommandLauncher) Launch(_ context.Context, alarmID string) error {
	if len(l.Command) == 0 {
		return errors.New("nativesvc: empty launch command")
	}
	cmd := exec.Command(l.Command[0], l.Command[1:]...)
	cmd.Env = append(os.Environ(), EnvLaunchAlarm+"="+alarmID)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("nativesvc: launch %s: %w", l.Command[0], err)
	}
	go cmd.Wait() //nolint:errcheck // the app's exit status is not ours to report
	return nil
}

// Player plays the fallback alarm sound
type Player interface {
	Start(slot audio.Slot, sound models.Sound, intensity models.WakeIntensity) (audio.Handle, error)
	StopSlot(slot audio.Slot)
}

// DaemonConfig tunes the service loop
type DaemonConfig struct {
	PollInterval         time.Duration
	RingTimeout          time.Duration
	ExactAlarmPermission bool
	// AppStaleAfter is how recent the app's last poll must be for alarmd to
	// leave ringing to the running app
	AppStaleAfter time.Duration
}

// Daemon fires armed alarms
type Daemon struct {
	store    *Store
	clock    clock.Clock
	player   Player
	launcher Launcher
	log      logging.Logger
	cfg      DaemonConfig

	playing      bool
	ringingSince time.Time
}

func NewDaemon(s *Store, c clock.Clock, player Player, launcher Launcher, log logging.Logger, cfg DaemonConfig) *Daemon {
	return &Daemon{store: s, clock: c, player: player, launcher: launcher, log: log, cfg: cfg}
}

// Run polls until ctx is done
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.Start(ctx); err != nil {
		return err
	}
	defer d.stopPlayback()

	ticker := time.NewTicker(d.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := d.Poll(ctx); err != nil {
				d.log.Warnf("alarmd: poll: %v", err)
			}
		}
	}
}

// Start announces the service, fires what is due and re-arms every
// rebooted alarm that has no armed row
func (d *Daemon) Start(ctx context.Context) error {
	perm := permissionFalse
	if d.cfg.ExactAlarmPermission {
		perm = permissionTrue
	}
	if err := d.store.SetValue(ctx, keyPermission, []byte(perm)); err != nil {
		return fmt.Errorf("alarmd: announce permission: %w", err)
	}
	if err := d.Poll(ctx); err != nil {
		return err
	}
	return d.rearm(ctx)
}

// Poll fires due rows and stops fallback playback once it is cleared or
// timed out
func (d *Daemon) Poll(ctx context.Context) error {
	now := d.clock.Now()
	if err := d.store.setTime(ctx, keyDaemonSeen, now); err != nil {
		return fmt.Errorf("alarmd: heartbeat: %w", err)
	}

	due, err := d.store.DueAlarms(ctx, now)
	if err != nil {
		return err
	}
	for _, r := range due {
		if err := d.fire(ctx, r, now); err != nil {
			d.log.Errorf("alarmd: fire %s: %v", r.ID, err)
		}
	}
	return d.checkPlayback(ctx, now)
}

func (d *Daemon) fire(ctx context.Context, r Row, now time.Time) error {
	if err := d.store.DeleteAlarm(ctx, r.ID); err != nil {
		return err
	}

	if late := now.Sub(r.FireAt); late > missedWindow {
		d.log.Warnf("alarmd: %s missed by %s", r.ID, late.Round(time.Second))
	} else if err := d.ring(ctx, r, now); err != nil {
		return err
	}

	if r.Kind == KindScheduled {
		return d.rearmOne(ctx, r.ID, now)
	}
	return nil
}

func (d *Daemon) ring(ctx context.Context, r Row, now time.Time) error {
	d.log.Infof("alarmd: alarm %s is due", r.ID)
	if err := d.store.SetValue(ctx, keyLaunchAlarm, []byte(r.ID)); err != nil {
		return err
	}
	if err := d.store.SetValue(ctx, keyRinging, []byte(r.ID)); err != nil {
		return err
	}

	if d.appRunning(ctx, now) {
		return nil
	}
	err := d.launcher.Launch(ctx, r.ID)
	if err == nil {
		return nil
	}
	d.log.Warnf("alarmd: %v, ringing here", err)

	sound, serr := models.SoundFromResource(r.SoundResource)
	if serr != nil {
		d.log.Warnf("alarmd: %v, using %s", serr, models.SoundClassic)
		sound = models.SoundClassic
	}
	if _, err := d.player.Start(audio.SlotAlarm, sound, models.IntensityEnergetic); err != nil {
		return fmt.Errorf("play fallback: %w", err)
	}
	d.playing = true
	d.ringingSince = now
	return nil
}

func (d *Daemon) appRunning(ctx context.Context, now time.Time) bool {
	seen, ok, err := d.store.readTime(ctx, keyAppSeen)
	if err != nil || !ok {
		return false
	}
	return now.Sub(seen) <= d.cfg.AppStaleAfter
}

func (d *Daemon) checkPlayback(ctx context.Context, now time.Time) error {
	if !d.playing {
		return nil
	}
	_, ringing, err := d.store.Value(ctx, keyRinging)
	if err != nil {
		return err
	}
	if ringing && now.Sub(d.ringingSince) < d.cfg.RingTimeout {
		return nil
	}
	if ringing {
		d.log.Info("alarmd: ring timeout reached")
		if err := d.store.DeleteValue(ctx, keyRinging); err != nil {
			return err
		}
	}
	d.stopPlayback()
	return nil
}

func (d *Daemon) stopPlayback() {
	if d.playing {
		d.player.StopSlot(audio.SlotAlarm)
		d.playing = false
	}
}

// Ringing reports whether alarmd is playing the alarm itself
func (d *Daemon) Ringing() bool {
	return d.playing
}

func (d *Daemon) records(ctx context.Context) ([]models.RebootRecord, error) {
	blob, ok, err := d.store.Value(ctx, keyRebootBlob)
	if err != nil || !ok {
		return nil, err
	}
	var records []models.RebootRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return nil, fmt.Errorf("alarmd: decode reboot records: %w", err)
	}
	return records, nil
}

func (d *Daemon) rearm(ctx context.Context) error {
	records, err := d.records(ctx)
	if err != nil {
		return err
	}
	rows, err := d.store.Alarms(ctx)
	if err != nil {
		return err
	}
	armed := make(map[string]bool, len(rows))
	for _, r := range rows {
		armed[r.ID] = true
	}

	now := d.clock.Now()
	for _, rec := range records {
		if armed[rec.ID] {
			continue
		}
		if err := d.arm(ctx, rec, now); err != nil {
			d.log.Warnf("alarmd: re-arm %s: %v", rec.ID, err)
		}
	}
	return nil
}

// rearmOne arms the next occurrence of a repeating alarm after it fired.
// A fired one-time alarm leaves the reboot records.
func (d *Daemon) rearmOne(ctx context.Context, id string, now time.Time) error {
	records, err := d.records(ctx)
	if err != nil {
		return err
	}
	for i, rec := range records {
		if rec.ID != id {
			continue
		}
		if rec.Alarm().IsOneTime() {
			return d.dropRecord(ctx, records, i)
		}
		return d.arm(ctx, rec, now)
	}
	return nil
}

func (d *Daemon) arm(ctx context.Context, rec models.RebootRecord, now time.Time) error {
	at, ok := trigger.Resolve(rec.Alarm(), now)
	if !ok {
		return nil
	}
	resource, err := rec.Sound.ResourceName()
	if err != nil {
		return err
	}
	d.log.Debugf("alarmd: arm %s at %s", rec.ID, at.Format(time.RFC3339))
	return d.store.PutAlarm(ctx, Row{ID: rec.ID, FireAt: at, SoundResource: resource, Kind: KindScheduled})
}

func (d *Daemon) dropRecord(ctx context.Context, records []models.RebootRecord, i int) error {
	records = append(records[:i:i], records[i+1:]...)
	blob, err := json.Marshal(records)
	if err != nil {
		return err
	}
	keep := make([]string, 0, len(records))
	for _, r := range records {
		keep = append(keep, r.ID)
	}
	return d.store.SaveReboot(ctx, blob, keep)
}
