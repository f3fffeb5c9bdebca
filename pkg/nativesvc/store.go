// Package nativesvc is the always-on alarm service. alarmd owns the
// ringing side; the app talks to it through Client, which implements
// bridge.Bridge over the same SQLite database.
//
// SQLite in WAL mode is the channel between the two processes: the app
// writes alarm rows and key/value flags, alarmd polls and fires them.
package nativesvc

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Kind separates rows the scheduler owns from the service's own snooze
type Kind string

const (
	KindScheduled Kind = "scheduled"
	KindSnooze    Kind = "snooze"
)

// Keys of the kv table
const (
	keyRebootBlob   = "reboot_blob"
	keyLaunchAlarm  = "launch_alarm_id"
	keyRinging      = "ringing"
	keyPermission   = "exact_alarm_permission"
	keyDaemonSeen   = "daemon_seen"
	keyAppSeen      = "app_seen"
	snoozeAlarmID   = "snooze"
	permissionTrue  = "granted"
	permissionFalse = "denied"
)

// Row is one armed alarm
type Row struct {
	ID            string
	FireAt        time.Time
	SoundResource string
	Kind          Kind
}

// Store manages the service database
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the SQLite database and initializes the schema.
func Open(path string) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("nativesvc: open db: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("nativesvc: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS alarms (
		id      TEXT PRIMARY KEY,
		fire_at INTEGER NOT NULL,
		sound   TEXT NOT NULL,
		kind    TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_alarms_fire_at ON alarms(fire_at);

	CREATE TABLE IF NOT EXISTS kv (
		key   TEXT PRIMARY KEY,
		value BLOB NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func retryOnContention(ctx context.Context, fn func() error) error {
	return retryOp(ctx, defaultRetryConfig, fn)
}

// PutAlarm arms id at fireAt, replacing any row with the same id
func (s *Store) PutAlarm(ctx context.Context, r Row) error {
	return retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO alarms (id, fire_at, sound, kind) VALUES (?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET fire_at = excluded.fire_at, sound = excluded.sound, kind = excluded.kind`,
			r.ID, r.FireAt.UnixMilli(), r.SoundResource, string(r.Kind),
		)
		return err
	})
}

// DeleteAlarm disarms id. Deleting a missing row is not an error.
func (s *Store) DeleteAlarm(ctx context.Context, id string) error {
	return retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM alarms WHERE id = ?`, id)
		return err
	})
}

// Alarms returns every armed alarm ordered by fire time
func (s *Store) Alarms(ctx context.Context) ([]Row, error) {
	return s.queryAlarms(ctx, `SELECT id, fire_at, sound, kind FROM alarms ORDER BY fire_at, id`)
}

// DueAlarms returns the rows firing at or before now
func (s *Store) DueAlarms(ctx context.Context, now time.Time) ([]Row, error) {
	return s.queryAlarms(ctx, `SELECT id, fire_at, sound, kind FROM alarms WHERE fire_at <= ? ORDER BY fire_at, id`, now.UnixMilli())
}

func (s *Store) queryAlarms(ctx context.Context, query string, args ...any) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("nativesvc: query alarms: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var r Row
		var fireAt int64
		var kind string
		if err := rows.Scan(&r.ID, &fireAt, &r.SoundResource, &kind); err != nil {
			return nil, fmt.Errorf("nativesvc: scan alarm: %w", err)
		}
		r.FireAt = time.UnixMilli(fireAt)
		r.Kind = Kind(kind)
		result = append(result, r)
	}
	return result, rows.Err()
}

// SaveReboot stores the reboot blob and drops scheduled rows whose id is
// not in keep, all in one transaction
func (s *Store) SaveReboot(ctx context.Context, blob []byte, keep []string) error {
	return retryOnContention(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO kv (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			keyRebootBlob, blob,
		); err != nil {
			return err
		}

		query := `DELETE FROM alarms WHERE kind = ?`
		args := []any{string(KindScheduled)}
		if len(keep) > 0 {
			query += ` AND id NOT IN (?` + strings.Repeat(",?", len(keep)-1) + `)`
			for _, id := range keep {
				args = append(args, id)
			}
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return err
		}
		return tx.Commit()
	})
}

// SetValue writes a kv entry
func (s *Store) SetValue(ctx context.Context, key string, value []byte) error {
	return retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO kv (key, value) VALUES (?, ?)
			 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
			key, value,
		)
		return err
	})
}

// Value reads a kv entry. ok is false when the key is unset.
func (s *Store) Value(ctx context.Context, key string) (value []byte, ok bool, err error) {
	err = s.db.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("nativesvc: read %s: %w", key, err)
	}
	return value, true, nil
}

// TakeValue reads and deletes a kv entry in one transaction
func (s *Store) TakeValue(ctx context.Context, key string) (value []byte, ok bool, err error) {
	err = retryOnContention(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		value, ok = nil, false
		err = tx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		ok = true
		if _, err := tx.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, false, fmt.Errorf("nativesvc: take %s: %w", key, err)
	}
	return value, ok, nil
}

// DeleteValue removes a kv entry
func (s *Store) DeleteValue(ctx context.Context, key string) error {
	return retryOnContention(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
		return err
	})
}

func (s *Store) setTime(ctx context.Context, key string, t time.Time) error {
	return s.SetValue(ctx, key, []byte(fmt.Sprint(t.UnixMilli())))
}

func (s *Store) readTime(ctx context.Context, key string) (time.Time, bool, error) {
	v, ok, err := s.Value(ctx, key)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	var ms int64
	if _, err := fmt.Sscan(string(v), &ms); err != nil {
		return time.Time{}, false, fmt.Errorf("nativesvc: parse %s: %w", key, err)
	}
	return time.UnixMilli(ms), true, nil
}
