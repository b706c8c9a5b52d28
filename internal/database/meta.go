package database

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"
)

// GetMeta retrieves an app_meta value by key. Returns sql.ErrNoRows if
// the key doesn't exist.
func (d *Database) GetMeta(ctx context.Context, key string) (string, error) {
	done := observeQuery("get_meta")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var value string
	err := d.db.QueryRowContext(ctx, "SELECT value FROM app_meta WHERE key = ?", key).Scan(&value)
	done(err)
	if err != nil {
		return "", err
	}
	return value, nil
}

// SetMeta sets an app_meta key-value pair.
func (d *Database) SetMeta(ctx context.Context, key, value string) error {
	done := observeQuery("set_meta")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO app_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	done(err)
	return err
}

// currentSchemaVersion reads the stored schema version. A database
// without the key is brand new and reports the current version, since
// initialize just created the full schema.
func (d *Database) currentSchemaVersion(ctx context.Context) (int, error) {
	var value string
	err := d.db.QueryRowContext(ctx,
		"SELECT value FROM app_meta WHERE key = 'schema_version'").Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a fresh database from a version-1 one, which
		// predates the schema_version key: version 1 has clip rows or
		// at least a clips table missing the description column.
		var hasDescription bool
		if err := d.db.QueryRowContext(ctx, `
			SELECT COUNT(*) > 0 FROM pragma_table_info('clips') WHERE name='description'
		`).Scan(&hasDescription); err != nil {
			return 0, err
		}
		if hasDescription {
			return schemaVersion, nil
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

func (d *Database) setSchemaVersion(ctx context.Context, version int) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO app_meta (key, value) VALUES ('schema_version', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, strconv.Itoa(version))
	return err
}

// GetLastScanTime returns when the last library scan completed, or the
// zero time if never.
func (d *Database) GetLastScanTime(ctx context.Context) (time.Time, error) {
	value, err := d.GetMeta(ctx, "last_scan_time")
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	if value == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, value)
}

// SetLastScanTime records when a library scan completed.
func (d *Database) SetLastScanTime(ctx context.Context, t time.Time) error {
	if t.IsZero() {
		return d.SetMeta(ctx, "last_scan_time", "")
	}
	return d.SetMeta(ctx, "last_scan_time", t.Format(time.RFC3339))
}
