package model

import "time"

// MatchStatus tracks the lifecycle of a match record.
type MatchStatus string

// Match lifecycle states. A record is created pending, moves to read when
// the owner views it, may re-open to pending on a cooldown-gated score
// improvement, and ends withdrawn when the intent or profile goes away.
const (
	StatusPending   MatchStatus = "PENDING"
	StatusRead      MatchStatus = "READ"
	StatusWithdrawn MatchStatus = "WITHDRAWN"
)

// ScoreBreakdown records the per-signal components behind a fused score.
type ScoreBreakdown struct {
	Heuristic  float64 `json:"heuristic"`
	Similarity float64 `json:"similarity"`
	Judgment   float64 `json:"judgment"`
	Required   float64 `json:"required"`
	Preferred  float64 `json:"preferred"`
	Keyword    float64 `json:"keyword"`
	HasJudge   bool    `json:"has_judgment"`
	HasSim     bool    `json:"has_similarity"`
}

// MatchRecord is the persisted outcome of evaluating one (intent, profile)
// pair. The pair is the record's identity: there is never more than one
// record per pair.
type MatchRecord struct {
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
	NotifiedAt     *time.Time     `json:"notified_at,omitempty"`
	IntentID       string         `json:"intent_id"`
	ProfileID      string         `json:"profile_id"`
	Explanation    string         `json:"explanation"`
	Status         MatchStatus    `json:"status"`
	MatchedAspects []string       `json:"matched_aspects,omitempty"`
	MissingAspects []string       `json:"missing_aspects,omitempty"`
	Breakdown      ScoreBreakdown `json:"breakdown"`
	Score          float64        `json:"score"`
	Confidence     float64        `json:"confidence"`
	Notified       bool           `json:"notified"`
}

// IsRead reports whether the owner has seen this match.
func (m *MatchRecord) IsRead() bool {
	return m.Status == StatusRead
}

// MatchResult pairs an upserted record with the notification decision for
// downstream delivery. Delivery itself is owned by a separate collaborator.
type MatchResult struct {
	Record       MatchRecord `json:"record"`
	ShouldNotify bool        `json:"should_notify"`
}
