package model

import (
	"fmt"
	"time"
)

// FeedbackVerdict is the owner's reaction to a delivered match.
type FeedbackVerdict string

// Feedback verdicts.
const (
	VerdictAccept FeedbackVerdict = "ACCEPT"
	VerdictReject FeedbackVerdict = "REJECT"
	VerdictIgnore FeedbackVerdict = "IGNORE"
)

// FeedbackEvent is one labeled outcome for a match, used by the
// calibration loop. Score is the fused score the match carried when the
// feedback was given.
type FeedbackEvent struct {
	CreatedAt time.Time       `json:"created_at"`
	ID        string          `json:"id"`
	IntentID  string          `json:"intent_id"`
	ProfileID string          `json:"profile_id"`
	OwnerID   string          `json:"owner_id"`
	Verdict   FeedbackVerdict `json:"verdict"`
	Score     float64         `json:"score"`
}

// Validate checks feedback invariants before persistence.
func (f *FeedbackEvent) Validate() error {
	if f.IntentID == "" || f.ProfileID == "" {
		return fmt.Errorf("feedback requires intent and profile ids")
	}
	if f.OwnerID == "" {
		return fmt.Errorf("feedback owner id is required")
	}
	switch f.Verdict {
	case VerdictAccept, VerdictReject, VerdictIgnore:
	default:
		return fmt.Errorf("unsupported feedback verdict %q", f.Verdict)
	}
	if f.Score < 0 || f.Score > 1 {
		return fmt.Errorf("feedback score must be in [0,1], got %.2f", f.Score)
	}
	return nil
}

// IsLabeled reports whether the event carries an accept/reject label
// usable for calibration. Ignores are recorded but not labeled.
func (f *FeedbackEvent) IsLabeled() bool {
	return f.Verdict == VerdictAccept || f.Verdict == VerdictReject
}
