package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS intents (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					description TEXT NOT NULL,
					required_conditions TEXT,
					preferred_conditions TEXT,
					keywords TEXT,
					threshold REAL NOT NULL DEFAULT 0.5,
					priority INTEGER NOT NULL DEFAULT 1,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_intents_owner ON intents(owner_id)`,

				`CREATE TABLE IF NOT EXISTS profiles (
					id TEXT PRIMARY KEY,
					owner_id TEXT NOT NULL,
					attributes TEXT,
					tags TEXT,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_profiles_owner ON profiles(owner_id)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Match records with pair uniqueness",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS matches (
					intent_id TEXT NOT NULL,
					profile_id TEXT NOT NULL,
					score REAL NOT NULL,
					confidence REAL NOT NULL DEFAULT 0,
					explanation TEXT,
					matched_aspects TEXT,
					missing_aspects TEXT,
					breakdown TEXT,
					status TEXT NOT NULL DEFAULT 'PENDING',
					notified INTEGER NOT NULL DEFAULT 0,
					read_at DATETIME,
					notified_at DATETIME,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (intent_id, profile_id)
				)`,
				`CREATE INDEX idx_matches_intent_score ON matches(intent_id, score DESC)`,
				`CREATE INDEX idx_matches_profile ON matches(profile_id)`,
				`CREATE INDEX idx_matches_status ON matches(status)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Feedback events for calibration",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS feedback_events (
					id TEXT PRIMARY KEY,
					intent_id TEXT NOT NULL,
					profile_id TEXT NOT NULL,
					owner_id TEXT NOT NULL,
					verdict TEXT NOT NULL,
					score REAL NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_feedback_owner_created ON feedback_events(owner_id, created_at DESC)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
