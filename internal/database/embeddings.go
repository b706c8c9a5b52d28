package database

import (
	"context"
	"fmt"

	"clip-library/internal/search"
)

// UpsertEmbedding stores (or replaces) the semantic vector for a clip.
func (d *Database) UpsertEmbedding(ctx context.Context, clipID string, vector []float32, model string) error {
	done := observeQuery("upsert_embedding")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO embeddings (clip_id, vector, model, updated_at)
		VALUES (?, ?, ?, strftime('%s', 'now'))
		ON CONFLICT(clip_id) DO UPDATE SET
			vector = excluded.vector,
			model = excluded.model,
			updated_at = strftime('%s', 'now')
	`, clipID, search.EncodeVector(vector), model)
	done(err)
	return err
}

// AllEmbeddings loads every stored vector, keyed by clip id. A blob
// that fails to decode is skipped rather than failing the whole load.
func (d *Database) AllEmbeddings(ctx context.Context) (map[string][]float32, error) {
	done := observeQuery("all_embeddings")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, "SELECT clip_id, vector FROM embeddings")
	if err != nil {
		done(err)
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	vectors := make(map[string][]float32)
	for rows.Next() {
		var clipID string
		var blob []byte
		if err := rows.Scan(&clipID, &blob); err != nil {
			done(err)
			return nil, fmt.Errorf("failed to scan embedding row: %w", err)
		}
		v, err := search.DecodeVector(blob)
		if err != nil {
			continue
		}
		vectors[clipID] = v
	}
	err = rows.Err()
	done(err)
	return vectors, err
}

// SaveWaveform stores precomputed waveform peaks for a clip.
func (d *Database) SaveWaveform(ctx context.Context, clipID string, peaks []float32) error {
	done := observeQuery("save_waveform")

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO waveforms (clip_id, peaks, updated_at)
		VALUES (?, ?, strftime('%s', 'now'))
		ON CONFLICT(clip_id) DO UPDATE SET
			peaks = excluded.peaks,
			updated_at = strftime('%s', 'now')
	`, clipID, search.EncodeVector(peaks))
	done(err)
	return err
}

// GetWaveform loads waveform peaks for a clip. Returns sql.ErrNoRows
// when none are stored yet.
func (d *Database) GetWaveform(ctx context.Context, clipID string) ([]float32, error) {
	done := observeQuery("get_waveform")

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var blob []byte
	err := d.db.QueryRowContext(ctx,
		"SELECT peaks FROM waveforms WHERE clip_id = ?", clipID,
	).Scan(&blob)
	if err != nil {
		done(err)
		return nil, err
	}

	peaks, err := search.DecodeVector(blob)
	done(err)
	return peaks, err
}
