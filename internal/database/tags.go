package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"clip-library/internal/library"
)

// GetOrCreateTag gets an existing tag by name or creates a new one.
// Name matching is case-insensitive.
func (d *Database) GetOrCreateTag(ctx context.Context, name string) (*library.Tag, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("tag name cannot be empty")
	}

	done := observeQuery("create_tag")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var tag library.Tag
	err := d.db.QueryRowContext(ctx,
		"SELECT id, name, color, created_at FROM tags WHERE name = ? COLLATE NOCASE",
		name,
	).Scan(&tag.ID, &tag.Name, &tag.Color, &tag.CreatedAt)
	if err == nil {
		done(nil)
		return &tag, nil
	}

	tag.ID = uuid.NewString()
	tag.Name = name
	_, err = d.db.ExecContext(ctx,
		"INSERT INTO tags (id, name) VALUES (?, ?)",
		tag.ID, name,
	)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	done(nil)
	return &tag, nil
}

// ListTags returns every tag with its clip count, sorted by name.
func (d *Database) ListTags(ctx context.Context) ([]library.Tag, error) {
	done := observeQuery("list_tags")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT t.id, t.name, t.color, t.created_at, COUNT(ct.clip_id)
		FROM tags t
		LEFT JOIN clip_tags ct ON ct.tag_id = t.id
		GROUP BY t.id
		ORDER BY t.name COLLATE NOCASE
	`)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query tags: %w", err)
	}
	defer rows.Close()

	var tags []library.Tag
	for rows.Next() {
		var t library.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt, &t.ClipCount); err != nil {
			done(err)
			return nil, fmt.Errorf("failed to scan tag row: %w", err)
		}
		tags = append(tags, t)
	}
	err = rows.Err()
	done(err)
	return tags, err
}

// RenameTag changes a tag's name, keeping case-insensitive uniqueness.
func (d *Database) RenameTag(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("tag name cannot be empty")
	}

	done := observeQuery("rename_tag")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "UPDATE tags SET name = ? WHERE id = ?", name, id)
	done(err)
	return err
}

// SetTagColor updates a tag's display color.
func (d *Database) SetTagColor(ctx context.Context, id, color string) error {
	done := observeQuery("set_tag_color")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "UPDATE tags SET color = ? WHERE id = ?", color, id)
	done(err)
	return err
}

// DeleteTag removes a tag; clip links cascade.
func (d *Database) DeleteTag(ctx context.Context, id string) error {
	done := observeQuery("delete_tag")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM tags WHERE id = ?", id)
	done(err)
	return err
}
