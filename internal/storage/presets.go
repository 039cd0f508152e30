package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ListPresets returns the user's presets ordered by name.
func (db *DB) ListPresets(ctx context.Context, userID int) ([]Preset, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT name, settings, updated_at FROM presets WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying presets: %w", err)
	}
	defer rows.Close()

	result := []Preset{}
	for rows.Next() {
		var p Preset
		var raw []byte
		if err := rows.Scan(&p.Name, &raw, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning preset: %w", err)
		}
		if p.Settings, err = decodeSettings(raw); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// GetPreset returns ErrNotFound if the user has no preset with that name.
func (db *DB) GetPreset(ctx context.Context, userID int, name string) (Preset, error) {
	p := Preset{Name: name}
	var raw []byte
	err := db.Pool.QueryRow(ctx,
		`SELECT settings, updated_at FROM presets WHERE user_id = $1 AND name = $2`,
		userID, name).Scan(&raw, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Preset{}, ErrNotFound
	}
	if err != nil {
		return Preset{}, fmt.Errorf("querying preset %q: %w", name, err)
	}
	if p.Settings, err = decodeSettings(raw); err != nil {
		return Preset{}, err
	}
	return p, nil
}

// UpsertPreset creates or replaces a preset and returns the stored row.
func (db *DB) UpsertPreset(ctx context.Context, userID int, p Preset) (Preset, error) {
	settings, err := encodeSettings(p.Settings)
	if err != nil {
		return Preset{}, err
	}
	err = db.Pool.QueryRow(ctx, `
		INSERT INTO presets (user_id, name, settings, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (user_id, name) DO UPDATE
			SET settings = EXCLUDED.settings, updated_at = NOW()
		RETURNING updated_at
	`, userID, p.Name, settings).Scan(&p.UpdatedAt)
	if err != nil {
		return Preset{}, fmt.Errorf("upserting preset %q: %w", p.Name, err)
	}
	return p, nil
}

// DeletePreset returns ErrNotFound if nothing was deleted.
func (db *DB) DeletePreset(ctx context.Context, userID int, name string) error {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM presets WHERE user_id = $1 AND name = $2`, userID, name)
	if err != nil {
		return fmt.Errorf("deleting preset %q: %w", name, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
