// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/relaylabs/leadmatch/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Intent operations
	SaveIntent(ctx context.Context, intent *model.Intent) error
	GetIntent(ctx context.Context, id string) (*model.Intent, error)
	GetIntentsByOwner(ctx context.Context, ownerID string) ([]model.Intent, error)
	DeleteIntent(ctx context.Context, id string) error

	// Profile operations
	SaveProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, id string) (*model.Profile, error)
	GetProfilesByOwner(ctx context.Context, ownerID string) ([]model.Profile, error)
	GetCandidateProfiles(ctx context.Context, excludeOwnerID string) ([]model.Profile, error)
	DeleteProfile(ctx context.Context, id string) error

	// Match operations
	UpsertMatch(ctx context.Context, record *model.MatchRecord) (*model.MatchRecord, bool, error)
	GetMatch(ctx context.Context, intentID, profileID string) (*model.MatchRecord, error)
	GetMatchesForIntent(ctx context.Context, intentID string) ([]model.MatchRecord, error)
	MarkMatchRead(ctx context.Context, intentID, profileID string) error
	WithdrawMatchesForIntent(ctx context.Context, intentID string) error
	WithdrawMatchesForProfile(ctx context.Context, profileID string) error
	WithdrawMatchesBelowScore(ctx context.Context, intentID string, threshold float64) (int, error)

	// Feedback operations
	SaveFeedback(ctx context.Context, event *model.FeedbackEvent) error
	GetFeedbackByOwner(ctx context.Context, ownerID string, limit int) ([]model.FeedbackEvent, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// FeedbackSource is the narrow read surface the calibration loop needs.
type FeedbackSource interface {
	GetFeedbackByOwner(ctx context.Context, ownerID string, limit int) ([]model.FeedbackEvent, error)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// RunStats shows the results of a matching run.
type RunStats struct {
	Duration       time.Duration
	Candidates     int
	Judged         int
	Matched        int
	Notified       int
	Degraded       int
	CacheHits      int
	JudgmentErrors int
}
