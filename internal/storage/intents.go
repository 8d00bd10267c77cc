package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/relaylabs/leadmatch/internal/common"
	"github.com/relaylabs/leadmatch/internal/model"
)

// SaveIntent inserts or replaces an intent.
func (s *SQLiteStorage) SaveIntent(ctx context.Context, intent *model.Intent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if intent == nil {
		return fmt.Errorf("intent cannot be nil")
	}
	if err := intent.Validate(); err != nil {
		return fmt.Errorf("invalid intent: %w", err)
	}

	required, err := json.Marshal(intent.Required)
	if err != nil {
		return fmt.Errorf("failed to marshal required conditions: %w", err)
	}
	preferred, err := json.Marshal(intent.Preferred)
	if err != nil {
		return fmt.Errorf("failed to marshal preferred conditions: %w", err)
	}
	keywords, err := json.Marshal(intent.Keywords)
	if err != nil {
		return fmt.Errorf("failed to marshal keywords: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO intents (id, owner_id, description, required_conditions,
			preferred_conditions, keywords, threshold, priority, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			description = excluded.description,
			required_conditions = excluded.required_conditions,
			preferred_conditions = excluded.preferred_conditions,
			keywords = excluded.keywords,
			threshold = excluded.threshold,
			priority = excluded.priority,
			updated_at = excluded.updated_at`,
		intent.ID, intent.OwnerID, intent.Description, string(required),
		string(preferred), string(keywords), intent.Threshold, int(intent.Priority),
		now, now)
	if err != nil {
		return fmt.Errorf("failed to save intent: %w", err)
	}
	return nil
}

// GetIntent retrieves an intent by ID.
func (s *SQLiteStorage) GetIntent(ctx context.Context, id string) (*model.Intent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, description, required_conditions, preferred_conditions,
			keywords, threshold, priority, created_at, updated_at
		FROM intents WHERE id = ?`, id)

	intent, err := scanIntent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("intent %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get intent: %w", err)
	}
	return intent, nil
}

// GetIntentsByOwner lists an owner's intents, newest first.
func (s *SQLiteStorage) GetIntentsByOwner(ctx context.Context, ownerID string) ([]model.Intent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, description, required_conditions, preferred_conditions,
			keywords, threshold, priority, created_at, updated_at
		FROM intents WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query intents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var intents []model.Intent
	for rows.Next() {
		intent, scanErr := scanIntent(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan intent: %w", scanErr)
		}
		intents = append(intents, *intent)
	}
	return intents, rows.Err()
}

// DeleteIntent removes an intent and withdraws its matches.
func (s *SQLiteStorage) DeleteIntent(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `DELETE FROM intents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete intent: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("intent %s: %w", id, common.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE matches SET status = ?, updated_at = ?
		WHERE intent_id = ? AND status != ?`,
		model.StatusWithdrawn, time.Now().UTC(), id, model.StatusWithdrawn)
	if err != nil {
		return fmt.Errorf("failed to withdraw matches: %w", err)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (*model.Intent, error) {
	var intent model.Intent
	var required, preferred, keywords sql.NullString
	var priority int

	err := row.Scan(&intent.ID, &intent.OwnerID, &intent.Description,
		&required, &preferred, &keywords, &intent.Threshold, &priority,
		&intent.CreatedAt, &intent.UpdatedAt)
	if err != nil {
		return nil, err
	}
	intent.Priority = model.Priority(priority)

	if required.Valid && required.String != "" {
		if err := json.Unmarshal([]byte(required.String), &intent.Required); err != nil {
			return nil, fmt.Errorf("failed to unmarshal required conditions: %w", err)
		}
	}
	if preferred.Valid && preferred.String != "" {
		if err := json.Unmarshal([]byte(preferred.String), &intent.Preferred); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferred conditions: %w", err)
		}
	}
	if keywords.Valid && keywords.String != "" {
		if err := json.Unmarshal([]byte(keywords.String), &intent.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
		}
	}
	return &intent, nil
}
