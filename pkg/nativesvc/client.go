package nativesvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/borgmon/wakeup/pkg/bridge"
	"github.com/borgmon/wakeup/pkg/clock"
	"github.com/borgmon/wakeup/pkg/models"
)

// Client is the app side of the alarm service
type Client struct {
	store      *Store
	clock      clock.Clock
	staleAfter time.Duration
}

// NewClient creates a client. The service counts as available while its
// last heartbeat is younger than staleAfter.
func NewClient(s *Store, c clock.Clock, staleAfter time.Duration) *Client {
	return &Client{store: s, clock: c, staleAfter: staleAfter}
}

func (c *Client) Available() bool {
	seen, ok, err := c.store.readTime(context.Background(), keyDaemonSeen)
	if err != nil || !ok {
		return false
	}
	return c.clock.Now().Sub(seen) <= c.staleAfter
}

func (c *Client) ScheduleAlarm(ctx context.Context, id string, epochMillis int64, soundResource string) error {
	if id == "" {
		return errors.New("nativesvc: empty alarm id")
	}
	if _, err := models.SoundFromResource(soundResource); err != nil {
		return fmt.Errorf("nativesvc: schedule %s: %w", id, err)
	}
	return c.store.PutAlarm(ctx, Row{
		ID:            id,
		FireAt:        time.UnixMilli(epochMillis),
		SoundResource: soundResource,
		Kind:          KindScheduled,
	})
}

func (c *Client) CancelAlarm(ctx context.Context, id string) error {
	return c.store.DeleteAlarm(ctx, id)
}

// StopAlarm clears the ringing marker; alarmd stops its own playback on
// the next poll
func (c *Client) StopAlarm(ctx context.Context) error {
	return c.store.DeleteValue(ctx, keyRinging)
}

func (c *Client) SnoozeAlarm(ctx context.Context, minutes int, soundResource string) error {
	if minutes <= 0 {
		return fmt.Errorf("nativesvc: snooze of %d minutes", minutes)
	}
	if _, err := models.SoundFromResource(soundResource); err != nil {
		return fmt.Errorf("nativesvc: snooze: %w", err)
	}
	if err := c.store.DeleteValue(ctx, keyRinging); err != nil {
		return err
	}
	return c.store.PutAlarm(ctx, Row{
		ID:            snoozeAlarmID,
		FireAt:        c.clock.Now().Add(time.Duration(minutes) * time.Minute),
		SoundResource: soundResource,
		Kind:          KindSnooze,
	})
}

// CheckExactAlarmPermission reports the permission alarmd announced at
// start. Unset counts as granted.
func (c *Client) CheckExactAlarmPermission(ctx context.Context) (bool, error) {
	v, ok, err := c.store.Value(ctx, keyPermission)
	if err != nil {
		return false, err
	}
	return !ok || string(v) == permissionTrue, nil
}

// IsIgnoringBatteryOptimizations is always true: desktop hosts do not
// suspend alarmd to save power
func (c *Client) IsIgnoringBatteryOptimizations(context.Context) (bool, error) {
	return true, nil
}

// SaveAlarmsForReboot stores the blob alarmd re-arms from and drops armed
// rows of alarms the blob no longer lists
func (c *Client) SaveAlarmsForReboot(ctx context.Context, blob []byte) error {
	var records []models.RebootRecord
	if err := json.Unmarshal(blob, &records); err != nil {
		return fmt.Errorf("nativesvc: decode reboot records: %w", err)
	}
	keep := make([]string, 0, len(records))
	for _, r := range records {
		keep = append(keep, r.ID)
	}
	return c.store.SaveReboot(ctx, blob, keep)
}

// GetLaunchAlarmID returns and clears the id of the alarm alarmd fired.
// The call also tells alarmd the app is running.
func (c *Client) GetLaunchAlarmID(ctx context.Context) (string, error) {
	if err := c.store.setTime(ctx, keyAppSeen, c.clock.Now()); err != nil {
		return "", err
	}
	v, ok, err := c.store.TakeValue(ctx, keyLaunchAlarm)
	if err != nil || !ok {
		return "", err
	}
	return string(v), nil
}

var _ bridge.Bridge = (*Client)(nil)
