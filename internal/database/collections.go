package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"clip-library/internal/library"
)

// CreateCollection creates an empty collection and returns it.
func (d *Database) CreateCollection(ctx context.Context, name, description, color string) (*library.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("collection name cannot be empty")
	}

	done := observeQuery("save_collection")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	col := library.Collection{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Color:       color,
	}
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO collections (id, name, description, color,
			sort_order)
		VALUES (?, ?, ?, ?,
			(SELECT COALESCE(MAX(sort_order), 0) + 1 FROM collections))
	`, col.ID, col.Name, col.Description, col.Color)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	done(nil)
	return &col, nil
}

// ListCollections returns all collections with clip counts, in manual
// sort order.
func (d *Database) ListCollections(ctx context.Context) ([]library.Collection, error) {
	done := observeQuery("list_collections")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.description, c.color, c.sort_order,
			c.created_at, c.updated_at, COUNT(cc.clip_id)
		FROM collections c
		LEFT JOIN collection_clips cc ON cc.collection_id = c.id
		GROUP BY c.id
		ORDER BY c.sort_order, c.name COLLATE NOCASE
	`)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query collections: %w", err)
	}
	defer rows.Close()

	var cols []library.Collection
	for rows.Next() {
		var c library.Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.Color, &c.SortOrder,
			&c.CreatedAt, &c.UpdatedAt, &c.ClipCount); err != nil {
			done(err)
			return nil, fmt.Errorf("failed to scan collection row: %w", err)
		}
		cols = append(cols, c)
	}
	err = rows.Err()
	done(err)
	return cols, err
}

// CollectionClipIDs returns the member clip ids of a collection in
// insertion order.
func (d *Database) CollectionClipIDs(ctx context.Context, collectionID string) ([]string, error) {
	done := observeQuery("collection_clip_ids")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT clip_id FROM collection_clips
		WHERE collection_id = ?
		ORDER BY added_at, clip_id
	`, collectionID)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query collection members: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			done(err)
			return nil, err
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	done(err)
	return ids, err
}

// AddClipsToCollection adds clips to a collection, skipping existing
// members.
func (d *Database) AddClipsToCollection(ctx context.Context, collectionID string, clipIDs []string) error {
	done := observeQuery("add_to_collection")

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

	for _, clipID := range clipIDs {
		if _, err := tx.ExecContext(ctx,
			"INSERT OR IGNORE INTO collection_clips (collection_id, clip_id) VALUES (?, ?)",
			collectionID, clipID,
		); err != nil {
			done(err)
			return fmt.Errorf("failed to add clip to collection: %w", err)
		}
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE collections SET updated_at = strftime('%s', 'now') WHERE id = ?",
		collectionID,
	); err != nil {
		done(err)
		return err
	}

	err = tx.Commit()
	done(err)
	return err
}

// RemoveClipsFromCollection drops clips from a collection.
func (d *Database) RemoveClipsFromCollection(ctx context.Context, collectionID string, clipIDs []string) error {
	done := observeQuery("remove_from_collection")

	if len(clipIDs) == 0 {
		done(nil)
		return nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	placeholders := strings.Repeat("?,", len(clipIDs)-1) + "?"
	args := make([]interface{}, 0, len(clipIDs)+1)
	args = append(args, collectionID)
	for _, id := range clipIDs {
		args = append(args, id)
	}

	_, err := d.db.ExecContext(ctx,
		"DELETE FROM collection_clips WHERE collection_id = ? AND clip_id IN ("+placeholders+")",
		args...)
	done(err)
	return err
}

// RenameCollection updates a collection's name and description.
func (d *Database) RenameCollection(ctx context.Context, id, name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("collection name cannot be empty")
	}

	done := observeQuery("save_collection")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		UPDATE collections SET name = ?, description = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, name, description, id)
	done(err)
	return err
}

// DeleteCollection removes a collection; membership rows cascade.
// Clips themselves are untouched.
func (d *Database) DeleteCollection(ctx context.Context, id string) error {
	done := observeQuery("delete_collection")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM collections WHERE id = ?", id)
	done(err)
	return err
}
