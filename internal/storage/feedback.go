package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/relaylabs/leadmatch/internal/common"
	"github.com/relaylabs/leadmatch/internal/model"
)

// SaveFeedback persists one feedback event. A missing ID is assigned.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, event *model.FeedbackEvent) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("feedback event cannot be nil")
	}
	if err := event.Validate(); err != nil {
		return fmt.Errorf("invalid feedback event: %w", err)
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO feedback_events (id, intent_id, profile_id, owner_id, verdict, score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.IntentID, event.ProfileID, event.OwnerID,
		string(event.Verdict), event.Score, event.CreatedAt)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return fmt.Errorf("feedback event %s: %w", event.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

// GetFeedbackByOwner lists an owner's feedback events, newest first.
func (s *SQLiteStorage) GetFeedbackByOwner(ctx context.Context, ownerID string, limit int) ([]model.FeedbackEvent, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(ownerID, "ownerID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 500
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, intent_id, profile_id, owner_id, verdict, score, created_at
		FROM feedback_events WHERE owner_id = ?
		ORDER BY created_at DESC LIMIT ?`, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []model.FeedbackEvent
	for rows.Next() {
		var event model.FeedbackEvent
		var verdict string
		if scanErr := rows.Scan(&event.ID, &event.IntentID, &event.ProfileID,
			&event.OwnerID, &verdict, &event.Score, &event.CreatedAt); scanErr != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", scanErr)
		}
		event.Verdict = model.FeedbackVerdict(verdict)
		events = append(events, event)
	}
	return events, rows.Err()
}
