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

// SaveProfile inserts or replaces a profile.
func (s *SQLiteStorage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if profile == nil {
		return fmt.Errorf("profile cannot be nil")
	}
	if err := profile.Validate(); err != nil {
		return fmt.Errorf("invalid profile: %w", err)
	}

	attributes, err := json.Marshal(profile.Attributes)
	if err != nil {
		return fmt.Errorf("failed to marshal attributes: %w", err)
	}
	tags, err := json.Marshal(profile.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, owner_id, attributes, tags, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			attributes = excluded.attributes,
			tags = excluded.tags`,
		profile.ID, profile.OwnerID, string(attributes), string(tags), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// GetProfile retrieves a profile by ID.
func (s *SQLiteStorage) GetProfile(ctx context.Context, id string) (*model.Profile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, attributes, tags, created_at
		FROM profiles WHERE id = ?`, id)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile %s: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return profile, nil
}

// GetProfilesByOwner lists an owner's profiles, newest first.
func (s *SQLiteStorage) GetProfilesByOwner(ctx context.Context, ownerID string) ([]model.Profile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, attributes, tags, created_at
		FROM profiles WHERE owner_id = ? ORDER BY created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []model.Profile
	for rows.Next() {
		profile, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", scanErr)
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

// GetCandidateProfiles lists every profile except those belonging to the
// excluded owner, so an intent never matches its own owner's profiles.
func (s *SQLiteStorage) GetCandidateProfiles(ctx context.Context, excludeOwnerID string) ([]model.Profile, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(excludeOwnerID, "excludeOwnerID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, attributes, tags, created_at
		FROM profiles WHERE owner_id != ? ORDER BY created_at DESC`, excludeOwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate profiles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var profiles []model.Profile
	for rows.Next() {
		profile, scanErr := scanProfile(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", scanErr)
		}
		profiles = append(profiles, *profile)
	}
	return profiles, rows.Err()
}

// DeleteProfile removes a profile and withdraws its matches.
func (s *SQLiteStorage) DeleteProfile(ctx context.Context, id string) error {
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

	result, err := tx.ExecContext(ctx, `DELETE FROM profiles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("profile %s: %w", id, common.ErrNotFound)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE matches SET status = ?, updated_at = ?
		WHERE profile_id = ? AND status != ?`,
		model.StatusWithdrawn, time.Now().UTC(), id, model.StatusWithdrawn)
	if err != nil {
		return fmt.Errorf("failed to withdraw matches: %w", err)
	}

	return tx.Commit()
}

func scanProfile(row rowScanner) (*model.Profile, error) {
	var profile model.Profile
	var attributes, tags sql.NullString

	err := row.Scan(&profile.ID, &profile.OwnerID, &attributes, &tags, &profile.CreatedAt)
	if err != nil {
		return nil, err
	}

	if attributes.Valid && attributes.String != "" {
		if err := json.Unmarshal([]byte(attributes.String), &profile.Attributes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal attributes: %w", err)
		}
	}
	if tags.Valid && tags.String != "" {
		if err := json.Unmarshal([]byte(tags.String), &profile.Tags); err != nil {
			return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
		}
	}
	return &profile, nil
}
