// Package state persists the durable slice of the entity tree: per-game
// profiles, manual save ordering, active-profile markers, and the global
// last selection. The store is loaded at startup to seed the tree before
// the first filesystem scan and written back after structural mutations.
//
// Records are keyed by name, not by in-memory entity ID — identities are
// per-process, names are what survive on disk.
package state

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // Pure Go SQLite driver, registers as "sqlite".
)

// walJournalSizeLimit bounds the WAL file size (64 MiB).
const walJournalSizeLimit = 67108864

// GameRecord is the persisted slice of a game.
type GameRecord struct {
	Name          string
	SaveSlot      string
	Preset        bool
	ActiveProfile string // profile name, empty when none
}

// ProfileRecord is the persisted slice of a profile.
type ProfileRecord struct {
	GameName   string
	Name       string
	LastLoaded string // save name last copied to the slot, empty when none
}

// OrderRecord is one manual-order assignment for a save entry.
type OrderRecord struct {
	SaveName string
	OrderKey int64
}

// Selection is the global last-selected game/profile pair.
type Selection struct {
	Game    string
	Profile string
}

// Store is the SQLite-backed persisted-state store, WAL mode, goose-managed
// schema.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens (creating if necessary) the database at dbPath and applies
// migrations. Use ":memory:" for tests.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
			return nil, fmt.Errorf("state: creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("state: open sqlite: %w", err)
	}

	ctx := context.Background()

	if err := setPragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("state database ready", slog.String("path", dbPath))

	return &Store{db: db, logger: logger}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// setPragmas configures SQLite for WAL mode and safety.
func setPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = FULL",
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA journal_size_limit = %d", walJournalSizeLimit),
	}

	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("state: %s: %w", p, err)
		}
	}

	return nil
}

// --- Games ---

// UpsertGame inserts or updates a game record.
func (s *Store) UpsertGame(ctx context.Context, rec GameRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (name, save_slot, preset, active_profile)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (name) DO UPDATE SET
			save_slot = excluded.save_slot,
			preset = excluded.preset,
			active_profile = excluded.active_profile`,
		rec.Name, rec.SaveSlot, rec.Preset, rec.ActiveProfile)
	if err != nil {
		return fmt.Errorf("state: upserting game %q: %w", rec.Name, err)
	}

	return nil
}

// DeleteGame removes a game record; profiles and order rows cascade.
func (s *Store) DeleteGame(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM games WHERE name = ?`, name); err != nil {
		return fmt.Errorf("state: deleting game %q: %w", name, err)
	}

	return nil
}

// RenameGame rewrites a game's name across all tables in one transaction.
func (s *Store) RenameGame(ctx context.Context, oldName, newName string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		// Child rows first: the FK to games(name) has no ON UPDATE action.
		if _, err := tx.ExecContext(ctx,
			`UPDATE save_order SET game_name = ? WHERE game_name = ?`, newName, oldName); err != nil {
			return fmt.Errorf("renaming game order rows: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET game_name = ? WHERE game_name = ?`, newName, oldName); err != nil {
			return fmt.Errorf("renaming game profile rows: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE games SET name = ? WHERE name = ?`, newName, oldName); err != nil {
			return fmt.Errorf("renaming game row: %w", err)
		}

		return nil
	})
}

// ListGames returns all game records ordered by name.
func (s *Store) ListGames(ctx context.Context) ([]GameRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, save_slot, preset, active_profile FROM games ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("state: listing games: %w", err)
	}
	defer rows.Close()

	var recs []GameRecord

	for rows.Next() {
		var rec GameRecord
		if err := rows.Scan(&rec.Name, &rec.SaveSlot, &rec.Preset, &rec.ActiveProfile); err != nil {
			return nil, fmt.Errorf("state: scanning game row: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state: iterating game rows: %w", err)
	}

	return recs, nil
}

// --- Profiles ---

// UpsertProfile inserts or updates a profile record.
func (s *Store) UpsertProfile(ctx context.Context, rec ProfileRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO profiles (game_name, name, last_loaded)
		VALUES (?, ?, ?)
		ON CONFLICT (game_name, name) DO UPDATE SET
			last_loaded = excluded.last_loaded`,
		rec.GameName, rec.Name, rec.LastLoaded)
	if err != nil {
		return fmt.Errorf("state: upserting profile %q/%q: %w", rec.GameName, rec.Name, err)
	}

	return nil
}

// DeleteProfile removes a profile record; its order rows cascade.
func (s *Store) DeleteProfile(ctx context.Context, gameName, name string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM profiles WHERE game_name = ? AND name = ?`, gameName, name)
	if err != nil {
		return fmt.Errorf("state: deleting profile %q/%q: %w", gameName, name, err)
	}

	return nil
}

// RenameProfile rewrites a profile's name across profile and order rows.
func (s *Store) RenameProfile(ctx context.Context, gameName, oldName, newName string) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`UPDATE save_order SET profile_name = ? WHERE game_name = ? AND profile_name = ?`,
			newName, gameName, oldName); err != nil {
			return fmt.Errorf("renaming profile order rows: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE profiles SET name = ? WHERE game_name = ? AND name = ?`,
			newName, gameName, oldName); err != nil {
			return fmt.Errorf("renaming profile row: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE games SET active_profile = ? WHERE name = ? AND active_profile = ?`,
			newName, gameName, oldName); err != nil {
			return fmt.Errorf("renaming active-profile marker: %w", err)
		}

		return nil
	})
}

// ListProfiles returns a game's profile records ordered by name.
func (s *Store) ListProfiles(ctx context.Context, gameName string) ([]ProfileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT game_name, name, last_loaded FROM profiles WHERE game_name = ? ORDER BY name`,
		gameName)
	if err != nil {
		return nil, fmt.Errorf("state: listing profiles for %q: %w", gameName, err)
	}
	defer rows.Close()

	var recs []ProfileRecord

	for rows.Next() {
		var rec ProfileRecord
		if err := rows.Scan(&rec.GameName, &rec.Name, &rec.LastLoaded); err != nil {
			return nil, fmt.Errorf("state: scanning profile row: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state: iterating profile rows: %w", err)
	}

	return recs, nil
}

// --- Manual save ordering ---

// ReplaceOrder atomically replaces a profile's manual order rows. Passing an
// empty slice clears the manual ordering (reverting to filesystem order).
func (s *Store) ReplaceOrder(ctx context.Context, gameName, profileName string, order []OrderRecord) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM save_order WHERE game_name = ? AND profile_name = ?`,
			gameName, profileName); err != nil {
			return fmt.Errorf("clearing order rows: %w", err)
		}

		for _, rec := range order {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO save_order (game_name, profile_name, save_name, order_key)
				VALUES (?, ?, ?, ?)`,
				gameName, profileName, rec.SaveName, rec.OrderKey); err != nil {
				return fmt.Errorf("inserting order row %q: %w", rec.SaveName, err)
			}
		}

		return nil
	})
}

// ListOrder returns a profile's manual order rows sorted by key.
func (s *Store) ListOrder(ctx context.Context, gameName, profileName string) ([]OrderRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT save_name, order_key FROM save_order
		WHERE game_name = ? AND profile_name = ?
		ORDER BY order_key`,
		gameName, profileName)
	if err != nil {
		return nil, fmt.Errorf("state: listing order for %q/%q: %w", gameName, profileName, err)
	}
	defer rows.Close()

	var recs []OrderRecord

	for rows.Next() {
		var rec OrderRecord
		if err := rows.Scan(&rec.SaveName, &rec.OrderKey); err != nil {
			return nil, fmt.Errorf("state: scanning order row: %w", err)
		}

		recs = append(recs, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("state: iterating order rows: %w", err)
	}

	return recs, nil
}

// RenameSave rewrites a save's name in the order table, preserving its key.
func (s *Store) RenameSave(ctx context.Context, gameName, profileName, oldName, newName string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE save_order SET save_name = ?
		WHERE game_name = ? AND profile_name = ? AND save_name = ?`,
		newName, gameName, profileName, oldName)
	if err != nil {
		return fmt.Errorf("state: renaming save order row %q: %w", oldName, err)
	}

	return nil
}

// DeleteSave drops a save's order row, if any.
func (s *Store) DeleteSave(ctx context.Context, gameName, profileName, saveName string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM save_order
		WHERE game_name = ? AND profile_name = ? AND save_name = ?`,
		gameName, profileName, saveName)
	if err != nil {
		return fmt.Errorf("state: deleting save order row %q: %w", saveName, err)
	}

	return nil
}

// --- Selection ---

// GetSelection returns the last-selected game/profile pair.
func (s *Store) GetSelection(ctx context.Context) (Selection, error) {
	var sel Selection

	err := s.db.QueryRowContext(ctx,
		`SELECT game, profile FROM selection WHERE id = 1`).Scan(&sel.Game, &sel.Profile)
	if err != nil {
		return Selection{}, fmt.Errorf("state: reading selection: %w", err)
	}

	return sel, nil
}

// SetSelection updates the last-selected game/profile pair.
func (s *Store) SetSelection(ctx context.Context, sel Selection) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE selection SET game = ?, profile = ? WHERE id = 1`, sel.Game, sel.Profile)
	if err != nil {
		return fmt.Errorf("state: writing selection: %w", err)
	}

	return nil
}

// inTx runs fn inside a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: beginning transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return fmt.Errorf("state: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: committing transaction: %w", err)
	}

	return nil
}
