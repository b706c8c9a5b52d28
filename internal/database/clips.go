package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"clip-library/internal/library"
)

// UpsertClip inserts or refreshes a clip row within a scan transaction.
// Identity is the file path; a re-scan of a known path keeps the
// existing id, description, star state, and tags.
func (d *Database) UpsertClip(tx *sql.Tx, clip *library.Clip) error {
	query := `
	INSERT INTO clips (id, filename, path, dir_source, recorded_at, file_size,
		duration_secs, width, height, thumb_path, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s', 'now'))
	ON CONFLICT(path) DO UPDATE SET
		filename = excluded.filename,
		dir_source = excluded.dir_source,
		recorded_at = excluded.recorded_at,
		file_size = excluded.file_size,
		duration_secs = COALESCE(excluded.duration_secs, clips.duration_secs),
		width = COALESCE(excluded.width, clips.width),
		height = COALESCE(excluded.height, clips.height),
		thumb_path = COALESCE(excluded.thumb_path, clips.thumb_path),
		updated_at = strftime('%s', 'now')
	`

	_, err := tx.ExecContext(context.Background(), query,
		clip.ID,
		clip.Filename,
		clip.Path,
		clip.DirSource,
		clip.RecordedAt,
		clip.FileSize,
		clip.DurationSecs,
		clip.Width,
		clip.Height,
		clip.ThumbPath,
	)
	return err
}

// ListClips loads the full library, tags included, ordered by recording
// time descending.
func (d *Database) ListClips(ctx context.Context) ([]library.Clip, error) {
	done := observeQuery("list_clips")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, filename, path, dir_source, recorded_at, file_size,
			duration_secs, width, height, thumb_path, description, starred,
			created_at, updated_at
		FROM clips
		ORDER BY recorded_at DESC
	`)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query clips: %w", err)
	}
	defer rows.Close()

	var clips []library.Clip
	index := make(map[string]int)
	for rows.Next() {
		var c library.Clip
		var starred int
		if err := rows.Scan(
			&c.ID, &c.Filename, &c.Path, &c.DirSource, &c.RecordedAt, &c.FileSize,
			&c.DurationSecs, &c.Width, &c.Height, &c.ThumbPath, &c.Description, &starred,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			done(err)
			return nil, fmt.Errorf("failed to scan clip row: %w", err)
		}
		c.Starred = starred != 0
		index[c.ID] = len(clips)
		clips = append(clips, c)
	}
	if err := rows.Err(); err != nil {
		done(err)
		return nil, err
	}

	if err := d.attachTags(ctx, clips, index); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return clips, nil
}

// attachTags fills Clip.Tags for every loaded clip in one pass over the
// join table.
func (d *Database) attachTags(ctx context.Context, clips []library.Clip, index map[string]int) error {
	rows, err := d.db.QueryContext(ctx, "SELECT clip_id, tag_id FROM clip_tags")
	if err != nil {
		return fmt.Errorf("failed to query clip tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var clipID, tagID string
		if err := rows.Scan(&clipID, &tagID); err != nil {
			return fmt.Errorf("failed to scan clip tag row: %w", err)
		}
		if i, ok := index[clipID]; ok {
			clips[i].Tags = append(clips[i].Tags, tagID)
		}
	}
	return rows.Err()
}

// GetClip retrieves a single clip by id. Returns sql.ErrNoRows when the
// id is unknown.
func (d *Database) GetClip(ctx context.Context, id string) (*library.Clip, error) {
	done := observeQuery("get_clip")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var c library.Clip
	var starred int
	err := d.db.QueryRowContext(ctx, `
		SELECT id, filename, path, dir_source, recorded_at, file_size,
			duration_secs, width, height, thumb_path, description, starred,
			created_at, updated_at
		FROM clips WHERE id = ?
	`, id).Scan(
		&c.ID, &c.Filename, &c.Path, &c.DirSource, &c.RecordedAt, &c.FileSize,
		&c.DurationSecs, &c.Width, &c.Height, &c.ThumbPath, &c.Description, &starred,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		done(err)
		return nil, err
	}
	c.Starred = starred != 0

	tagRows, err := d.db.QueryContext(ctx, "SELECT tag_id FROM clip_tags WHERE clip_id = ?", id)
	if err != nil {
		done(err)
		return nil, err
	}
	defer tagRows.Close()
	for tagRows.Next() {
		var tagID string
		if err := tagRows.Scan(&tagID); err != nil {
			done(err)
			return nil, err
		}
		c.Tags = append(c.Tags, tagID)
	}
	if err := tagRows.Err(); err != nil {
		done(err)
		return nil, err
	}

	done(nil)
	return &c, nil
}

// UpdateClip applies a partial update to a clip row. Tag changes go
// through SetClipTags, not here.
func (d *Database) UpdateClip(ctx context.Context, id string, patch library.ClipPatch) error {
	done := observeQuery("update_clip")

	var sets []string
	var args []interface{}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Starred != nil {
		sets = append(sets, "starred = ?")
		args = append(args, boolToInt(*patch.Starred))
	}
	if patch.ThumbPath != nil {
		sets = append(sets, "thumb_path = ?")
		args = append(args, *patch.ThumbPath)
	}
	if patch.DurationSecs != nil {
		sets = append(sets, "duration_secs = ?")
		args = append(args, *patch.DurationSecs)
	}
	if patch.Width != nil {
		sets = append(sets, "width = ?")
		args = append(args, *patch.Width)
	}
	if patch.Height != nil {
		sets = append(sets, "height = ?")
		args = append(args, *patch.Height)
	}
	if len(sets) == 0 {
		done(nil)
		return nil
	}
	sets = append(sets, "updated_at = strftime('%s', 'now')")
	args = append(args, id)

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := "UPDATE clips SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	result, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		done(err)
		return fmt.Errorf("failed to update clip: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		done(sql.ErrNoRows)
		return sql.ErrNoRows
	}
	done(nil)
	return nil
}

// DeleteClips removes clip rows by id. Tag links, collection
// membership, embeddings, and waveforms cascade.
func (d *Database) DeleteClips(ctx context.Context, ids []string) (int64, error) {
	done := observeQuery("delete_clips")

	if len(ids) == 0 {
		done(nil)
		return 0, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	result, err := d.db.ExecContext(ctx,
		"DELETE FROM clips WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		done(err)
		return 0, fmt.Errorf("failed to delete clips: %w", err)
	}
	rows, err := result.RowsAffected()
	done(err)
	return rows, err
}

// SetClipTags replaces a clip's tag set atomically.
func (d *Database) SetClipTags(ctx context.Context, clipID string, tagIDs []string) error {
	done := observeQuery("set_clip_tags")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		done(err)
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM clip_tags WHERE clip_id = ?", clipID); err != nil {
		done(err)
		return fmt.Errorf("failed to clear clip tags: %w", err)
	}
	for _, tagID := range tagIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO clip_tags (clip_id, tag_id) VALUES (?, ?)",
			clipID, tagID,
		); err != nil {
			done(err)
			return fmt.Errorf("failed to tag clip: %w", err)
		}
	}

	err = tx.Commit()
	done(err)
	return err
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
