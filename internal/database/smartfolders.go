package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"clip-library/internal/library"
)

// CreateSmartFolder saves a new named rule set. The rules string is
// stored opaquely; the rules package parses it at evaluation time and
// fails open on malformed input, so no validation happens here.
func (d *Database) CreateSmartFolder(ctx context.Context, name, color, rules string) (*library.SmartFolder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("smart folder name cannot be empty")
	}
	if rules == "" {
		rules = "[]"
	}

	done := observeQuery("save_smart_folder")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	sf := library.SmartFolder{
		ID:    uuid.NewString(),
		Name:  name,
		Color: color,
		Rules: rules,
	}
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO smart_folders (id, name, color, rules) VALUES (?, ?, ?, ?)",
		sf.ID, sf.Name, sf.Color, sf.Rules,
	)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to create smart folder: %w", err)
	}
	done(nil)
	return &sf, nil
}

// ListSmartFolders returns every smart folder, sorted by name.
func (d *Database) ListSmartFolders(ctx context.Context) ([]library.SmartFolder, error) {
	done := observeQuery("list_smart_folders")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT id, name, color, rules, created_at, updated_at
		FROM smart_folders
		ORDER BY name COLLATE NOCASE
	`)
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query smart folders: %w", err)
	}
	defer rows.Close()

	var folders []library.SmartFolder
	for rows.Next() {
		var sf library.SmartFolder
		if err := rows.Scan(&sf.ID, &sf.Name, &sf.Color, &sf.Rules, &sf.CreatedAt, &sf.UpdatedAt); err != nil {
			done(err)
			return nil, fmt.Errorf("failed to scan smart folder row: %w", err)
		}
		folders = append(folders, sf)
	}
	err = rows.Err()
	done(err)
	return folders, err
}

// UpdateSmartFolder replaces a smart folder's name, color, and rules.
func (d *Database) UpdateSmartFolder(ctx context.Context, id, name, color, rules string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("smart folder name cannot be empty")
	}

	done := observeQuery("save_smart_folder")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		UPDATE smart_folders
		SET name = ?, color = ?, rules = ?, updated_at = strftime('%s', 'now')
		WHERE id = ?
	`, name, color, rules, id)
	done(err)
	return err
}

// DeleteSmartFolder removes a smart folder.
func (d *Database) DeleteSmartFolder(ctx context.Context, id string) error {
	done := observeQuery("delete_smart_folder")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM smart_folders WHERE id = ?", id)
	done(err)
	return err
}
