package nativesvc

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestIsTransientSQLiteErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"non-transient", errors.New("syntax error"), false},
		{"busy", errors.New("SQLITE_BUSY"), true},
		{"locked", errors.New("database is locked"), true},
		{"code 522", errors.New("sqlite: (522) short read"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isTransientSQLiteErr(tt.err))
		})
	}
}

func TestRetryOp(t *testing.T) {
	cfg := retryConfig{maxRetries: 2, baseDelay: time.Millisecond, maxDelay: 2 * time.Millisecond}

	calls := 0
	err := retryOp(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("database is locked")
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = retryOp(context.Background(), cfg, func() error {
		calls++
		return errors.New("constraint failed")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls = 0
	err = retryOp(ctx, retryConfig{maxRetries: 5, baseDelay: time.Second, maxDelay: time.Second}, func() error {
		calls++
		return errors.New("SQLITE_BUSY")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := retryConfig{maxRetries: 10, baseDelay: 10 * time.Millisecond, maxDelay: 40 * time.Millisecond}
	for attempt := 0; attempt < 8; attempt++ {
		d := backoffDelay(cfg, attempt)
		assert.Less(t, d, cfg.maxDelay+cfg.baseDelay)
	}
}

func TestStoreAlarmRows(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)

	require.NoError(t, s.PutAlarm(ctx, Row{ID: "b", FireAt: at.Add(time.Hour), SoundResource: "alarm_radar", Kind: KindScheduled}))
	require.NoError(t, s.PutAlarm(ctx, Row{ID: "a", FireAt: at, SoundResource: "alarm_classic", Kind: KindScheduled}))
	require.NoError(t, s.PutAlarm(ctx, Row{ID: "a", FireAt: at.Add(time.Minute), SoundResource: "alarm_pulse", Kind: KindScheduled}))

	rows, err := s.Alarms(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID)
	assert.Equal(t, "alarm_pulse", rows[0].SoundResource)
	assert.True(t, rows[0].FireAt.Equal(at.Add(time.Minute)))

	due, err := s.DueAlarms(ctx, at.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "a", due[0].ID)

	require.NoError(t, s.DeleteAlarm(ctx, "a"))
	require.NoError(t, s.DeleteAlarm(ctx, "a"))
	rows, err = s.Alarms(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestStoreSaveRebootPrunes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 4, 7, 0, 0, 0, time.UTC)
	for _, id := range []string{"keep", "stale"} {
		require.NoError(t, s.PutAlarm(ctx, Row{ID: id, FireAt: at, SoundResource: "alarm_classic", Kind: KindScheduled}))
	}
	require.NoError(t, s.PutAlarm(ctx, Row{ID: snoozeAlarmID, FireAt: at, SoundResource: "alarm_classic", Kind: KindSnooze}))

	require.NoError(t, s.SaveReboot(ctx, []byte(`[{"id":"keep"}]`), []string{"keep"}))
	rows, err := s.Alarms(ctx)
	require.NoError(t, err)
	var ids []string
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	assert.ElementsMatch(t, []string{"keep", snoozeAlarmID}, ids)

	blob, ok, err := s.Value(ctx, keyRebootBlob)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"id":"keep"}]`, string(blob))

	require.NoError(t, s.SaveReboot(ctx, []byte(`[]`), nil))
	rows, err = s.Alarms(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, KindSnooze, rows[0].Kind)
}

func TestStoreTakeValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, ok, err := s.TakeValue(ctx, keyLaunchAlarm)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetValue(ctx, keyLaunchAlarm, []byte("a1")))
	v, ok, err := s.TakeValue(ctx, keyLaunchAlarm)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "a1", string(v))

	_, ok, err = s.Value(ctx, keyLaunchAlarm)
	require.NoError(t, err)
	assert.False(t, ok)
}
