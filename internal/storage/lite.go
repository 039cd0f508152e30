package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// LiteDB is a single-file Store for local and development use.
// The schema must be applied with RunMigrations("sqlite", ...) first.
type LiteDB struct {
	db *sql.DB
}

var _ Store = (*LiteDB)(nil)

// OpenLite opens the SQLite database at path.
func OpenLite(ctx context.Context, path string) (*LiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// SQLite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	return &LiteDB{db: db}, nil
}

func (l *LiteDB) Close() {
	l.db.Close()
}

func (l *LiteDB) GetOrCreateUser(ctx context.Context, login, displayName string) (int, error) {
	if login == "" {
		return 0, ErrEmptyLogin
	}
	var id int
	err := l.db.QueryRowContext(ctx, `
		INSERT INTO users (login, display_name)
		VALUES (?, ?)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = CURRENT_TIMESTAMP, display_name = COALESCE(NULLIF(excluded.display_name, ''), users.display_name)
		RETURNING id
	`, login, displayName).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("resolving user %q: %w", login, err)
	}
	return id, nil
}

func (l *LiteDB) ListPresets(ctx context.Context, userID int) ([]Preset, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT name, settings, updated_at FROM presets WHERE user_id = ? ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying presets: %w", err)
	}
	defer rows.Close()

	result := []Preset{}
	for rows.Next() {
		var name, raw, updated string
		if err := rows.Scan(&name, &raw, &updated); err != nil {
			return nil, fmt.Errorf("scanning preset: %w", err)
		}
		p, err := litePreset(name, raw, updated)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (l *LiteDB) GetPreset(ctx context.Context, userID int, name string) (Preset, error) {
	var raw, updated string
	err := l.db.QueryRowContext(ctx,
		`SELECT settings, updated_at FROM presets WHERE user_id = ? AND name = ?`,
		userID, name).Scan(&raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Preset{}, ErrNotFound
	}
	if err != nil {
		return Preset{}, fmt.Errorf("querying preset %q: %w", name, err)
	}
	return litePreset(name, raw, updated)
}

func (l *LiteDB) UpsertPreset(ctx context.Context, userID int, p Preset) (Preset, error) {
	settings, err := encodeSettings(p.Settings)
	if err != nil {
		return Preset{}, err
	}
	p.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO presets (user_id, name, settings, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, name) DO UPDATE
			SET settings = excluded.settings, updated_at = excluded.updated_at
	`, userID, p.Name, settings, p.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Preset{}, fmt.Errorf("upserting preset %q: %w", p.Name, err)
	}
	return p, nil
}

func (l *LiteDB) DeletePreset(ctx context.Context, userID int, name string) error {
	res, err := l.db.ExecContext(ctx,
		`DELETE FROM presets WHERE user_id = ? AND name = ?`, userID, name)
	if err != nil {
		return fmt.Errorf("deleting preset %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting preset %q: %w", name, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func litePreset(name, raw, updated string) (Preset, error) {
	settings, err := decodeSettings([]byte(raw))
	if err != nil {
		return Preset{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return Preset{}, fmt.Errorf("parsing preset timestamp %q: %w", updated, err)
	}
	return Preset{Name: name, Settings: settings, UpdatedAt: ts}, nil
}
