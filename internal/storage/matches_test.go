package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relaylabs/leadmatch/internal/common"
	"github.com/relaylabs/leadmatch/internal/model"
)

func newMatch(score float64) *model.MatchRecord {
	return &model.MatchRecord{
		IntentID:    "i1",
		ProfileID:   "p1",
		Score:       score,
		Confidence:  0.9,
		Explanation: "looks good",
		MatchedAspects: []string{
			"go experience",
		},
		Breakdown: model.ScoreBreakdown{Heuristic: score, Required: 1.0},
	}
}

func TestUpsertMatchFirstInsertNotifies(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	stored, notify, err := store.UpsertMatch(ctx, newMatch(0.8))
	require.NoError(t, err)
	assert.True(t, notify)
	assert.Equal(t, model.StatusPending, stored.Status)
	assert.True(t, stored.Notified)
	require.NotNil(t, stored.NotifiedAt)
}

func TestUpsertMatchIsIdempotent(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	first, _, err := store.UpsertMatch(ctx, newMatch(0.8))
	require.NoError(t, err)

	second, notify, err := store.UpsertMatch(ctx, newMatch(0.8))
	require.NoError(t, err)
	assert.False(t, notify)
	assert.Equal(t, first.Score, second.Score)

	matches, err := store.GetMatchesForIntent(ctx, "i1")
	require.NoError(t, err)
	assert.Len(t, matches, 1, "re-evaluation must never duplicate the pair")
}

func TestUpsertMatchEpsilonSkip(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	first, _, err := store.UpsertMatch(ctx, newMatch(0.8))
	require.NoError(t, err)

	// Within epsilon: no write, the stored record comes back untouched.
	update := newMatch(0.805)
	update.Explanation = "different text that must not land"
	stored, notify, err := store.UpsertMatch(ctx, update)
	require.NoError(t, err)
	assert.False(t, notify)
	assert.InDelta(t, 0.8, stored.Score, 0.0001)
	assert.Equal(t, "looks good", stored.Explanation)
	assert.Equal(t, first.UpdatedAt.Unix(), stored.UpdatedAt.Unix())
}

func TestUpsertMatchSilentRefreshWhenUnread(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	_, _, err := store.UpsertMatch(ctx, newMatch(0.5))
	require.NoError(t, err)

	// Big improvement, but the owner never read the match: no second ping.
	stored, notify, err := store.UpsertMatch(ctx, newMatch(0.9))
	require.NoError(t, err)
	assert.False(t, notify)
	assert.InDelta(t, 0.9, stored.Score, 0.001)
	assert.Equal(t, model.StatusPending, stored.Status)
}

func TestUpsertMatchCooldownSuppressesRenotify(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	_, _, err := store.UpsertMatch(ctx, newMatch(0.5))
	require.NoError(t, err)
	require.NoError(t, store.MarkMatchRead(ctx, "i1", "p1"))

	// Read and improved, but the first notification was moments ago.
	_, notify, err := store.UpsertMatch(ctx, newMatch(0.9))
	require.NoError(t, err)
	assert.False(t, notify, "within cooldown no second notification may fire")
}

func TestUpsertMatchRenotifiesAfterCooldown(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	_, _, err := store.UpsertMatch(ctx, newMatch(0.5))
	require.NoError(t, err)
	require.NoError(t, store.MarkMatchRead(ctx, "i1", "p1"))

	// Age the record past the cooldown window.
	backdateMatch(t, store, "i1", "p1", 25*time.Hour)

	stored, notify, err := store.UpsertMatch(ctx, newMatch(0.9))
	require.NoError(t, err)
	assert.True(t, notify)
	assert.Equal(t, model.StatusPending, stored.Status, "re-notification reopens the match")
	assert.Nil(t, stored.ReadAt)
}

// backdateMatch ages both activity timestamps so the cooldown window has
// elapsed for the pair.
func backdateMatch(t *testing.T, store *SQLiteStorage, intentID, profileID string, age time.Duration) {
	t.Helper()
	old := time.Now().UTC().Add(-age)
	_, err := store.db.ExecContext(context.Background(),
		`UPDATE matches SET notified_at = ?, updated_at = ? WHERE intent_id = ? AND profile_id = ?`,
		old, old, intentID, profileID)
	require.NoError(t, err)
}

func TestUpsertMatchRecentUpdateSuppressesRenotify(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	_, _, err := store.UpsertMatch(ctx, newMatch(0.5))
	require.NoError(t, err)
	require.NoError(t, store.MarkMatchRead(ctx, "i1", "p1"))
	backdateMatch(t, store, "i1", "p1", 25*time.Hour)

	// A sub-margin refresh lands silently but still counts as activity.
	_, notify, err := store.UpsertMatch(ctx, newMatch(0.58))
	require.NoError(t, err)
	require.False(t, notify)

	// The old notification is outside the cooldown, but the record was
	// just updated: no second ping.
	stored, notify, err := store.UpsertMatch(ctx, newMatch(0.72))
	require.NoError(t, err)
	assert.False(t, notify, "cooldown runs from the last update, not the last notification")
	assert.Equal(t, model.StatusRead, stored.Status)
	assert.NotNil(t, stored.ReadAt)
}

func TestUpsertMatchSmallImprovementNoRenotify(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	_, _, err := store.UpsertMatch(ctx, newMatch(0.5))
	require.NoError(t, err)
	require.NoError(t, store.MarkMatchRead(ctx, "i1", "p1"))

	backdateMatch(t, store, "i1", "p1", 25*time.Hour)

	// Improvement of 0.08 stays under the margin.
	stored, notify, err := store.UpsertMatch(ctx, newMatch(0.58))
	require.NoError(t, err)
	assert.False(t, notify)
	assert.Equal(t, model.StatusRead, stored.Status, "silent refresh keeps read status")
}

func TestUpsertMatchRejectsOutOfRangeScore(t *testing.T) {
	store := setupTestStorage(t)

	_, _, err := store.UpsertMatch(context.Background(), newMatch(1.2))
	assert.Error(t, err)
}

func TestMarkMatchRead(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	_, _, err := store.UpsertMatch(ctx, newMatch(0.8))
	require.NoError(t, err)

	require.NoError(t, store.MarkMatchRead(ctx, "i1", "p1"))

	match, err := store.GetMatch(ctx, "i1", "p1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusRead, match.Status)
	assert.NotNil(t, match.ReadAt)

	// Reading an already-read match is an error: it is no longer pending.
	err = store.MarkMatchRead(ctx, "i1", "p1")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestWithdrawMatchesBelowScore(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	for i, score := range []float64{0.3, 0.5, 0.7, 0.9} {
		record := newMatch(score)
		record.ProfileID = string(rune('a' + i))
		_, _, err := store.UpsertMatch(ctx, record)
		require.NoError(t, err)
	}

	withdrawn, err := store.WithdrawMatchesBelowScore(ctx, "i1", 0.6)
	require.NoError(t, err)
	assert.Equal(t, 2, withdrawn)

	matches, err := store.GetMatchesForIntent(ctx, "i1")
	require.NoError(t, err)
	var active int
	for _, m := range matches {
		if m.Status != model.StatusWithdrawn {
			active++
			assert.GreaterOrEqual(t, m.Score, 0.6)
		}
	}
	assert.Equal(t, 2, active)
}

func TestGetMatchesForIntentOrdersByScore(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	for i, score := range []float64{0.4, 0.9, 0.6} {
		record := newMatch(score)
		record.ProfileID = string(rune('a' + i))
		_, _, err := store.UpsertMatch(ctx, record)
		require.NoError(t, err)
	}

	matches, err := store.GetMatchesForIntent(ctx, "i1")
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.InDelta(t, 0.9, matches[0].Score, 0.001)
	assert.InDelta(t, 0.6, matches[1].Score, 0.001)
	assert.InDelta(t, 0.4, matches[2].Score, 0.001)
}

func TestMatchBreakdownRoundTrip(t *testing.T) {
	store := setupTestStorage(t)
	ctx := context.Background()

	record := newMatch(0.8)
	record.Breakdown = model.ScoreBreakdown{
		Heuristic: 0.7,
		Judgment:  0.85,
		Required:  1.0,
		Keyword:   0.5,
		HasJudge:  true,
	}
	record.MissingAspects = []string{"certification"}
	_, _, err := store.UpsertMatch(ctx, record)
	require.NoError(t, err)

	got, err := store.GetMatch(ctx, "i1", "p1")
	require.NoError(t, err)
	assert.InDelta(t, 0.85, got.Breakdown.Judgment, 0.001)
	assert.True(t, got.Breakdown.HasJudge)
	assert.Equal(t, []string{"certification"}, got.MissingAspects)
	assert.Equal(t, []string{"go experience"}, got.MatchedAspects)
}
