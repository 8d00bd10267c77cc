package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/relaylabs/leadmatch/internal/common"
	"github.com/relaylabs/leadmatch/internal/model"
)

// Upsert tuning. Score changes smaller than scoreEpsilon are noise and
// skipped entirely; re-notification requires an improvement larger than
// improvementMargin, a record the owner already read, and at least
// notifyCooldown since the record was last touched.
const (
	scoreEpsilon      = 0.01
	improvementMargin = 0.1
	notifyCooldown    = 24 * time.Hour
)

// UpsertMatch persists the outcome of evaluating one (intent, profile)
// pair. The pair is the record identity: re-evaluation updates in place,
// never duplicates. The returned bool is the notification decision.
func (s *SQLiteStorage) UpsertMatch(ctx context.Context, record *model.MatchRecord) (*model.MatchRecord, bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, false, err
	}
	if record == nil {
		return nil, false, fmt.Errorf("match record cannot be nil")
	}
	if err := validateString(record.IntentID, "intentID"); err != nil {
		return nil, false, err
	}
	if err := validateString(record.ProfileID, "profileID"); err != nil {
		return nil, false, err
	}
	if record.Score < 0 || record.Score > 1 {
		return nil, false, fmt.Errorf("match score must be in [0,1], got %.3f", record.Score)
	}

	lock := s.pairLock(record.IntentID, record.ProfileID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.getMatchLocked(ctx, record.IntentID, record.ProfileID)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().UTC()

	if existing == nil {
		stored := *record
		stored.Status = model.StatusPending
		stored.Notified = true
		stored.NotifiedAt = &now
		stored.ReadAt = nil
		stored.CreatedAt = now
		stored.UpdatedAt = now
		if err := s.insertMatch(ctx, &stored); err != nil {
			return nil, false, err
		}
		return &stored, true, nil
	}

	// Tiny score drift refreshes nothing.
	if math.Abs(record.Score-existing.Score) < scoreEpsilon {
		return existing, false, nil
	}

	stored := *existing
	stored.Score = record.Score
	stored.Confidence = record.Confidence
	stored.Explanation = record.Explanation
	stored.MatchedAspects = record.MatchedAspects
	stored.MissingAspects = record.MissingAspects
	stored.Breakdown = record.Breakdown
	stored.UpdatedAt = now

	notify := s.shouldRenotify(existing, record.Score, now)
	if notify {
		stored.Status = model.StatusPending
		stored.ReadAt = nil
		stored.Notified = true
		stored.NotifiedAt = &now
	}

	if err := s.updateMatch(ctx, &stored); err != nil {
		return nil, false, err
	}
	return &stored, notify, nil
}

// shouldRenotify applies the update-notification gate: the score must
// improve meaningfully, the owner must have already read the record, and
// the previous update must be outside the cooldown window. The cooldown
// runs from the most recent activity on the record, so a silent refresh
// resets it just like a notification does.
func (s *SQLiteStorage) shouldRenotify(existing *model.MatchRecord, newScore float64, now time.Time) bool {
	if newScore-existing.Score <= improvementMargin {
		return false
	}
	if !existing.IsRead() {
		return false
	}
	last := existing.UpdatedAt
	if existing.NotifiedAt != nil && existing.NotifiedAt.After(last) {
		last = *existing.NotifiedAt
	}
	return now.Sub(last) > notifyCooldown
}

// GetMatch retrieves the match record for one pair.
func (s *SQLiteStorage) GetMatch(ctx context.Context, intentID, profileID string) (*model.MatchRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(intentID, "intentID"); err != nil {
		return nil, err
	}
	if err := validateString(profileID, "profileID"); err != nil {
		return nil, err
	}
	return s.getMatchLocked(ctx, intentID, profileID)
}

func (s *SQLiteStorage) getMatchLocked(ctx context.Context, intentID, profileID string) (*model.MatchRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT intent_id, profile_id, score, confidence, explanation,
			matched_aspects, missing_aspects, breakdown, status, notified,
			read_at, notified_at, created_at, updated_at
		FROM matches WHERE intent_id = ? AND profile_id = ?`, intentID, profileID)

	record, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("match (%s, %s): %w", intentID, profileID, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get match: %w", err)
	}
	return record, nil
}

// GetMatchesForIntent lists an intent's matches, best score first.
func (s *SQLiteStorage) GetMatchesForIntent(ctx context.Context, intentID string) ([]model.MatchRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(intentID, "intentID"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT intent_id, profile_id, score, confidence, explanation,
			matched_aspects, missing_aspects, breakdown, status, notified,
			read_at, notified_at, created_at, updated_at
		FROM matches WHERE intent_id = ? ORDER BY score DESC, profile_id`, intentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.MatchRecord
	for rows.Next() {
		record, scanErr := scanMatch(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan match: %w", scanErr)
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// MarkMatchRead records that the owner viewed a pending match.
func (s *SQLiteStorage) MarkMatchRead(ctx context.Context, intentID, profileID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(intentID, "intentID"); err != nil {
		return err
	}
	if err := validateString(profileID, "profileID"); err != nil {
		return err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE matches SET status = ?, read_at = ?, updated_at = ?
		WHERE intent_id = ? AND profile_id = ? AND status = ?`,
		model.StatusRead, now, now, intentID, profileID, model.StatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark match read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("pending match (%s, %s): %w", intentID, profileID, common.ErrNotFound)
	}
	return nil
}

// WithdrawMatchesForIntent withdraws every active match for an intent.
func (s *SQLiteStorage) WithdrawMatchesForIntent(ctx context.Context, intentID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(intentID, "intentID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE matches SET status = ?, updated_at = ?
		WHERE intent_id = ? AND status != ?`,
		model.StatusWithdrawn, time.Now().UTC(), intentID, model.StatusWithdrawn)
	if err != nil {
		return fmt.Errorf("failed to withdraw matches for intent: %w", err)
	}
	return nil
}

// WithdrawMatchesForProfile withdraws every active match for a profile.
func (s *SQLiteStorage) WithdrawMatchesForProfile(ctx context.Context, profileID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(profileID, "profileID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE matches SET status = ?, updated_at = ?
		WHERE profile_id = ? AND status != ?`,
		model.StatusWithdrawn, time.Now().UTC(), profileID, model.StatusWithdrawn)
	if err != nil {
		return fmt.Errorf("failed to withdraw matches for profile: %w", err)
	}
	return nil
}

// WithdrawMatchesBelowScore withdraws an intent's active matches scoring
// under the threshold, for use after an owner raises their bar. It
// returns the number of matches withdrawn.
func (s *SQLiteStorage) WithdrawMatchesBelowScore(ctx context.Context, intentID string, threshold float64) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(intentID, "intentID"); err != nil {
		return 0, err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE matches SET status = ?, updated_at = ?
		WHERE intent_id = ? AND score < ? AND status != ?`,
		model.StatusWithdrawn, time.Now().UTC(), intentID, threshold, model.StatusWithdrawn)
	if err != nil {
		return 0, fmt.Errorf("failed to withdraw matches below score: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check update result: %w", err)
	}
	return int(affected), nil
}

func (s *SQLiteStorage) insertMatch(ctx context.Context, record *model.MatchRecord) error {
	matched, missing, breakdown, err := marshalMatchJSON(record)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO matches (intent_id, profile_id, score, confidence, explanation,
			matched_aspects, missing_aspects, breakdown, status, notified,
			read_at, notified_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.IntentID, record.ProfileID, record.Score, record.Confidence,
		record.Explanation, matched, missing, breakdown, record.Status,
		record.Notified, record.ReadAt, record.NotifiedAt,
		record.CreatedAt, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert match: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) updateMatch(ctx context.Context, record *model.MatchRecord) error {
	matched, missing, breakdown, err := marshalMatchJSON(record)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE matches SET score = ?, confidence = ?, explanation = ?,
			matched_aspects = ?, missing_aspects = ?, breakdown = ?,
			status = ?, notified = ?, read_at = ?, notified_at = ?, updated_at = ?
		WHERE intent_id = ? AND profile_id = ?`,
		record.Score, record.Confidence, record.Explanation,
		matched, missing, breakdown, record.Status, record.Notified,
		record.ReadAt, record.NotifiedAt, record.UpdatedAt,
		record.IntentID, record.ProfileID)
	if err != nil {
		return fmt.Errorf("failed to update match: %w", err)
	}
	return nil
}

func marshalMatchJSON(record *model.MatchRecord) (matched, missing, breakdown string, err error) {
	m, err := json.Marshal(record.MatchedAspects)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal matched aspects: %w", err)
	}
	mi, err := json.Marshal(record.MissingAspects)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal missing aspects: %w", err)
	}
	b, err := json.Marshal(record.Breakdown)
	if err != nil {
		return "", "", "", fmt.Errorf("failed to marshal breakdown: %w", err)
	}
	return string(m), string(mi), string(b), nil
}

func scanMatch(row rowScanner) (*model.MatchRecord, error) {
	var record model.MatchRecord
	var matched, missing, breakdown sql.NullString
	var readAt, notifiedAt sql.NullTime
	var status string

	err := row.Scan(&record.IntentID, &record.ProfileID, &record.Score,
		&record.Confidence, &record.Explanation, &matched, &missing, &breakdown,
		&status, &record.Notified, &readAt, &notifiedAt,
		&record.CreatedAt, &record.UpdatedAt)
	if err != nil {
		return nil, err
	}
	record.Status = model.MatchStatus(status)

	if readAt.Valid {
		t := readAt.Time
		record.ReadAt = &t
	}
	if notifiedAt.Valid {
		t := notifiedAt.Time
		record.NotifiedAt = &t
	}
	if matched.Valid && matched.String != "" {
		if err := json.Unmarshal([]byte(matched.String), &record.MatchedAspects); err != nil {
			return nil, fmt.Errorf("failed to unmarshal matched aspects: %w", err)
		}
	}
	if missing.Valid && missing.String != "" {
		if err := json.Unmarshal([]byte(missing.String), &record.MissingAspects); err != nil {
			return nil, fmt.Errorf("failed to unmarshal missing aspects: %w", err)
		}
	}
	if breakdown.Valid && breakdown.String != "" {
		if err := json.Unmarshal([]byte(breakdown.String), &record.Breakdown); err != nil {
			return nil, fmt.Errorf("failed to unmarshal breakdown: %w", err)
		}
	}
	return &record, nil
}
